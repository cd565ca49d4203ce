package app

import (
	"fmt"
	"time"

	"github.com/bft-labs/fragship/internal/domain"
	"github.com/bft-labs/fragship/pkg/protocol"
)

// Default protocol timings.
const (
	DefaultHandshakeTimeout  = 5 * time.Second
	DefaultListenTimeout     = 20 * time.Second
	DefaultAckTimeout        = 5 * time.Second
	DefaultInactivityTimeout = 3 * time.Second
	DefaultCompletionTimeout = 5 * time.Second
	DefaultMaxRetries        = 5
)

// EngineConfig controls the handshake, sender and receiver engines.
type EngineConfig struct {
	// HandshakeTimeout bounds the sender's wait for a handshake reply.
	HandshakeTimeout time.Duration

	// ListenTimeout bounds the receiver's wait for a handshake offer.
	ListenTimeout time.Duration

	// AckTimeout bounds the sender's wait for a fragment reply before it
	// retransmits.
	AckTimeout time.Duration

	// InactivityTimeout ends a receiving transfer after this much silence.
	InactivityTimeout time.Duration

	// CompletionTimeout bounds the sender's wait for the final ACK.
	CompletionTimeout time.Duration

	// MaxRetries caps retransmissions of a single fragment.
	MaxRetries int

	// CompleteOnCount sends the final ACK as soon as the declared fragment
	// count has been accepted. When false it waits for silence. Either way
	// the receiver keeps listening until InactivityTimeout to catch surplus
	// fragments.
	CompleteOnCount bool

	// Polynomial is the checksum generator shared by both ends.
	Polynomial protocol.Polynomial
}

// DefaultEngineConfig returns the protocol defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HandshakeTimeout:  DefaultHandshakeTimeout,
		ListenTimeout:     DefaultListenTimeout,
		AckTimeout:        DefaultAckTimeout,
		InactivityTimeout: DefaultInactivityTimeout,
		CompletionTimeout: DefaultCompletionTimeout,
		MaxRetries:        DefaultMaxRetries,
		CompleteOnCount:   true,
		Polynomial:        protocol.DefaultPolynomial,
	}
}

// Validate checks that every wait is bounded.
func (c EngineConfig) Validate() error {
	waits := []struct {
		name string
		d    time.Duration
	}{
		{"handshake timeout", c.HandshakeTimeout},
		{"listen timeout", c.ListenTimeout},
		{"ack timeout", c.AckTimeout},
		{"inactivity timeout", c.InactivityTimeout},
		{"completion timeout", c.CompletionTimeout},
	}
	for _, w := range waits {
		if w.d <= 0 {
			return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidConfig, w.name)
		}
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", domain.ErrInvalidConfig)
	}
	if c.Polynomial.String() == "" {
		return fmt.Errorf("%w: checksum polynomial not set", domain.ErrInvalidConfig)
	}
	return nil
}

// ValidFragmentSize reports whether a datagram capacity (header included)
// carries between MinPayload and MaxPayload bytes of data.
func ValidFragmentSize(fragmentSize int) bool {
	payload := fragmentSize - protocol.HeaderSize
	return payload >= protocol.MinPayload && payload <= protocol.MaxPayload
}
