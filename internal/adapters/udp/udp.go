// Package udp implements ports.Transport on a UDP socket.
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/bft-labs/fragship/internal/domain"
	"github.com/bft-labs/fragship/internal/ports"
)

// Transport is a UDP socket. A dialed transport is connected to one peer so
// the kernel reports refused datagrams; a listening one accepts any peer.
type Transport struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
}

var _ ports.Transport = (*Transport)(nil)

// Listen binds a socket on addr ("host:port", port 0 for any).
func Listen(addr string) (*Transport, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Transport{conn: conn}, nil
}

// Dial creates a socket connected to addr.
func Dial(addr string) (*Transport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Transport{conn: conn, remote: raddr}, nil
}

// RemoteAddr returns the peer of a dialed transport, or nil.
func (t *Transport) RemoteAddr() net.Addr {
	if t.remote == nil {
		return nil
	}
	return t.remote
}

// Send writes one datagram. A dialed transport ignores to and writes to its
// peer.
func (t *Transport) Send(ctx context.Context, b []byte, to net.Addr) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	if t.remote != nil {
		_, err = t.conn.Write(b)
	} else {
		var ua *net.UDPAddr
		ua, err = toUDPAddr(to)
		if err == nil {
			_, err = t.conn.WriteToUDP(b, ua)
		}
	}
	return mapError(err)
}

// Receive waits up to timeout for one datagram. The wait also ends when ctx
// is cancelled.
func (t *Transport) Receive(ctx context.Context, timeout time.Duration, bufSize int) (ports.Datagram, error) {
	if err := ctx.Err(); err != nil {
		return ports.Datagram{}, err
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return ports.Datagram{}, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	buf := make([]byte, bufSize)
	var (
		n    int
		from net.Addr
		err  error
	)
	if t.remote != nil {
		n, err = t.conn.Read(buf)
		from = t.remote
	} else {
		var ua *net.UDPAddr
		n, ua, err = t.conn.ReadFromUDP(buf)
		if ua != nil {
			from = ua
		}
	}
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return ports.Datagram{}, cerr
		}
		return ports.Datagram{}, mapError(err)
	}
	return ports.Datagram{Data: buf[:n], From: from}, nil
}

// LocalAddr returns the bound address.
func (t *Transport) LocalAddr() net.Addr { return t.conn.LocalAddr() }

// Close closes the socket.
func (t *Transport) Close() error { return t.conn.Close() }

func toUDPAddr(a net.Addr) (*net.UDPAddr, error) {
	if ua, ok := a.(*net.UDPAddr); ok {
		return ua, nil
	}
	if a == nil {
		return nil, fmt.Errorf("%w: no destination address", domain.ErrInvalidConfig)
	}
	return net.ResolveUDPAddr("udp", a.String())
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return ports.ErrReceiveTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w: %v", domain.ErrPeerUnreachable, err)
	default:
		return err
	}
}
