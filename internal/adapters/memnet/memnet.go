// Package memnet provides an in-process datagram network for exercising the
// protocol engines without sockets. Delivery is unordered only in the sense
// that a full inbox drops the datagram, as a real socket buffer would.
package memnet

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/bft-labs/fragship/internal/ports"
)

const inboxSize = 64

// Addr names an endpoint on a Network.
type Addr string

// Network implements net.Addr.
func (Addr) Network() string { return "memnet" }

func (a Addr) String() string { return string(a) }

// Filter decides whether a datagram is delivered. Returning false drops it.
type Filter func(from, to net.Addr, b []byte) bool

// Network connects endpoints by name.
type Network struct {
	mu        sync.Mutex
	endpoints map[Addr]*Endpoint
	filter    Filter
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{endpoints: make(map[Addr]*Endpoint)}
}

// SetFilter installs a delivery filter for every datagram on the network.
func (n *Network) SetFilter(f Filter) {
	n.mu.Lock()
	n.filter = f
	n.mu.Unlock()
}

// Endpoint binds a new endpoint with the given name. Binding a name twice
// replaces the earlier endpoint.
func (n *Network) Endpoint(name string) *Endpoint {
	e := &Endpoint{
		net:    n,
		addr:   Addr(name),
		inbox:  make(chan ports.Datagram, inboxSize),
		closed: make(chan struct{}),
	}
	n.mu.Lock()
	n.endpoints[e.addr] = e
	n.mu.Unlock()
	return e
}

// NewPipe returns two endpoints on a fresh network.
func NewPipe() (*Endpoint, *Endpoint) {
	n := NewNetwork()
	return n.Endpoint("a"), n.Endpoint("b")
}

func (n *Network) deliver(from Addr, to net.Addr, b []byte) {
	n.mu.Lock()
	dst, ok := n.endpoints[Addr(to.String())]
	filter := n.filter
	n.mu.Unlock()
	if !ok {
		return
	}
	if filter != nil && !filter(from, to, b) {
		return
	}

	data := make([]byte, len(b))
	copy(data, b)
	select {
	case dst.inbox <- ports.Datagram{Data: data, From: from}:
	case <-dst.closed:
	default:
	}
}

// Endpoint is one bound address. It implements ports.Transport.
type Endpoint struct {
	net    *Network
	addr   Addr
	inbox  chan ports.Datagram
	closed chan struct{}
	once   sync.Once
}

var _ ports.Transport = (*Endpoint)(nil)

// Send delivers a copy of b to the endpoint named by to. Datagrams to unknown
// addresses vanish.
func (e *Endpoint) Send(ctx context.Context, b []byte, to net.Addr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-e.closed:
		return net.ErrClosed
	default:
	}
	e.net.deliver(e.addr, to, b)
	return nil
}

// Receive waits for the next datagram, truncated to bufSize.
func (e *Endpoint) Receive(ctx context.Context, timeout time.Duration, bufSize int) (ports.Datagram, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case dg := <-e.inbox:
		if bufSize >= 0 && len(dg.Data) > bufSize {
			dg.Data = dg.Data[:bufSize]
		}
		return dg, nil
	case <-timer.C:
		return ports.Datagram{}, ports.ErrReceiveTimeout
	case <-e.closed:
		return ports.Datagram{}, net.ErrClosed
	case <-ctx.Done():
		return ports.Datagram{}, ctx.Err()
	}
}

// LocalAddr returns the endpoint name.
func (e *Endpoint) LocalAddr() net.Addr { return e.addr }

// Close unbinds the endpoint. Pending datagrams are discarded.
func (e *Endpoint) Close() error {
	e.once.Do(func() {
		close(e.closed)
		e.net.mu.Lock()
		if e.net.endpoints[e.addr] == e {
			delete(e.net.endpoints, e.addr)
		}
		e.net.mu.Unlock()
	})
	return nil
}
