// Package fault wraps a transport to damage outgoing datagrams on purpose.
package fault

import (
	"context"
	"net"
	"sync"

	"github.com/bft-labs/fragship/internal/ports"
	"github.com/bft-labs/fragship/pkg/protocol"
)

// Transport corrupts the n-th outgoing data datagram once and passes all
// other traffic through unchanged.
type Transport struct {
	ports.Transport

	poly   protocol.Polynomial
	target int
	logger ports.Logger

	mu   sync.Mutex
	seen int
	done bool
}

var _ ports.Transport = (*Transport)(nil)

// CorruptFragment returns a transport that damages the n-th PSH datagram
// (1-based) sent through inner. Retransmissions count as datagrams, but only
// the first matching one is damaged. n <= 0 disables injection.
func CorruptFragment(inner ports.Transport, poly protocol.Polynomial, n int, logger ports.Logger) *Transport {
	return &Transport{Transport: inner, poly: poly, target: n, logger: logger}
}

// Injected reports whether the corruption has happened.
func (t *Transport) Injected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Send forwards b, damaged if it is the targeted data datagram.
func (t *Transport) Send(ctx context.Context, b []byte, to net.Addr) error {
	if t.shouldCorrupt(b) {
		b = Corrupt(t.poly, b)
		if t.logger != nil {
			t.logger.Info("corrupted outgoing fragment", ports.Int("fragment", t.target))
		}
	}
	return t.Transport.Send(ctx, b, to)
}

func (t *Transport) shouldCorrupt(b []byte) bool {
	if t.target <= 0 || len(b) <= protocol.HeaderSize || protocol.Kind(b[0]) != protocol.KindPush {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.seen++
	if t.seen == t.target {
		t.done = true
		return true
	}
	return false
}

// Corrupt returns a copy of datagram with one payload bit flipped, choosing
// the first bit whose flip the checksum detects. If no single flip is
// detectable the checksum digit itself is replaced. The input is not
// modified.
func Corrupt(poly protocol.Polynomial, datagram []byte) []byte {
	out := make([]byte, len(datagram))
	copy(out, datagram)
	if len(out) < protocol.HeaderSize {
		return out
	}

	digit := out[protocol.HeaderSize-1]
	payload := out[protocol.HeaderSize:]
	for i := range payload {
		for bit := 0; bit < 8; bit++ {
			payload[i] ^= 1 << bit
			if poly.Checksum(payload) != digit {
				return out
			}
			payload[i] ^= 1 << bit
		}
	}

	if digit == '9' {
		out[protocol.HeaderSize-1] = '0'
	} else {
		out[protocol.HeaderSize-1] = digit + 1
	}
	return out
}
