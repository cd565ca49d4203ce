package ports

import (
	"context"
	"errors"
	"net"
	"time"
)

// ErrReceiveTimeout is returned by Transport.Receive when no datagram
// arrived within the timeout.
var ErrReceiveTimeout = errors.New("transport: receive timeout")

// Datagram is one received packet and its origin.
type Datagram struct {
	Data []byte
	From net.Addr
}

// Transport is a connectionless, unreliable datagram endpoint.
// A Transport is owned by one engine for the duration of a transfer.
type Transport interface {
	// Send writes one datagram to the given address.
	Send(ctx context.Context, b []byte, to net.Addr) error

	// Receive waits up to timeout for one datagram. Datagrams longer than
	// bufSize are truncated. Returns ErrReceiveTimeout when the wait expires,
	// an error wrapping domain.ErrPeerUnreachable when the peer refused a
	// previous datagram, or ctx.Err() when the context ends first.
	Receive(ctx context.Context, timeout time.Duration, bufSize int) (Datagram, error)

	// LocalAddr returns the bound address.
	LocalAddr() net.Addr

	// Close releases the socket.
	Close() error
}
