package domain

import "errors"

// Transfer errors. They are returned wrapped; check with errors.Is.
var (
	// ErrChecksumMismatch marks a datagram whose checksum digit did not match.
	// The protocol recovers from it with RST and retransmission.
	ErrChecksumMismatch = errors.New("fragship: checksum mismatch")

	// ErrHandshakeTimeout is returned when no handshake reply (sender) or no
	// handshake offer (receiver) arrives in time.
	ErrHandshakeTimeout = errors.New("fragship: connection not established")

	// ErrInactivityTimeout is returned when a receiving transfer goes silent
	// before the declared fragment count was reached.
	ErrInactivityTimeout = errors.New("fragship: inactivity timeout")

	// ErrFragmentOverflow is returned when a receiving transfer gets more
	// data fragments than were declared. Usually a fragment was written twice
	// after its ACK was lost, so the received data cannot be trusted.
	ErrFragmentOverflow = errors.New("fragship: more fragments than declared")

	// ErrPeerUnreachable is returned when the transport reports a connection
	// reset or refusal from the peer.
	ErrPeerUnreachable = errors.New("fragship: peer unreachable")

	// ErrMalformedNegotiation is returned when a handshake passed the checksum
	// but its contents cannot be used.
	ErrMalformedNegotiation = errors.New("fragship: malformed negotiation")

	// ErrRetriesExhausted is returned when a fragment was retransmitted the
	// maximum number of times without a positive acknowledgment.
	ErrRetriesExhausted = errors.New("fragship: retries exhausted")

	// ErrCompletionAckMissing is returned when all fragments were delivered
	// but the receiver's final acknowledgment never arrived.
	ErrCompletionAckMissing = errors.New("fragship: completion acknowledgment missing")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("fragship: invalid configuration")

	// ErrAlreadyRunning is returned when Start() is called on a running server.
	ErrAlreadyRunning = errors.New("fragship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped server.
	ErrNotRunning = errors.New("fragship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("fragship: shutdown timeout")
)
