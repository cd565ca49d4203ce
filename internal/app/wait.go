package app

import (
	"context"
	"net"
	"time"

	"github.com/bft-labs/fragship/internal/ports"
	"github.com/bft-labs/fragship/pkg/protocol"
)

// receiveFrom waits up to timeout for a datagram from peer. Datagrams from
// other addresses are dropped without extending the deadline. A nil peer
// accepts any sender.
func receiveFrom(ctx context.Context, t ports.Transport, peer net.Addr, timeout time.Duration, bufSize int, logger ports.Logger) (ports.Datagram, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ports.Datagram{}, ports.ErrReceiveTimeout
		}
		dg, err := t.Receive(ctx, remaining, bufSize)
		if err != nil {
			return ports.Datagram{}, err
		}
		if peer != nil && !sameAddr(dg.From, peer) {
			logger.Debug("dropping datagram from foreign address",
				ports.Stringer("from", dg.From),
				ports.Stringer("peer", peer))
			continue
		}
		return dg, nil
	}
}

// awaitReply waits for a reply frame from peer.
func awaitReply(ctx context.Context, t ports.Transport, peer net.Addr, timeout time.Duration, logger ports.Logger) (protocol.Frame, error) {
	dg, err := receiveFrom(ctx, t, peer, timeout, protocol.HandshakeBufferSize, logger)
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Decode(dg.Data), nil
}

// reply sends an empty-payload frame of the given kind.
func reply(ctx context.Context, t ports.Transport, p protocol.Polynomial, kind protocol.Kind, declaredSize int, to net.Addr) error {
	b, err := p.Encode(kind, declaredSize, nil)
	if err != nil {
		return err
	}
	return t.Send(ctx, b, to)
}

func sameAddr(a, b net.Addr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Network() == b.Network() && a.String() == b.String()
}
