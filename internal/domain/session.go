package domain

import (
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// TransferKind distinguishes text messages from files.
type TransferKind int

const (
	TransferText TransferKind = iota
	TransferFile
)

// String returns a human-readable representation of the kind.
func (k TransferKind) String() string {
	switch k {
	case TransferText:
		return "text"
	case TransferFile:
		return "file"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k TransferKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TransferKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "text":
		*k = TransferText
	case "file":
		*k = TransferFile
	default:
		return fmt.Errorf("unknown transfer kind %q", b)
	}
	return nil
}

// Session holds the negotiated parameters of one transfer.
// The peer address is the only identity the wire knows about; ID exists for
// logs, reports and the session table.
type Session struct {
	ID   uuid.UUID
	Peer net.Addr
	Kind TransferKind

	// FragmentSize is the datagram capacity, header included.
	FragmentSize int

	// TotalFragments is the count declared in the handshake.
	TotalFragments int

	// TargetName is the destination file name; empty for text.
	TargetName string

	// ReadBuffer is the receive buffer the receiver provisions for data
	// datagrams: declared size plus the length of the handshake datagram.
	// Zero on the sending side.
	ReadBuffer int

	// Received and Sent count fragments for reporting only.
	Received int
	Sent     int

	CreatedAt time.Time
}

// NewSession creates a session with a fresh ID.
func NewSession(peer net.Addr, kind TransferKind, fragmentSize, total int) *Session {
	return &Session{
		ID:             uuid.New(),
		Peer:           peer,
		Kind:           kind,
		FragmentSize:   fragmentSize,
		TotalFragments: total,
		CreatedAt:      time.Now(),
	}
}

// PayloadSize returns the number of data bytes carried per fragment.
func (s *Session) PayloadSize(headerSize int) int {
	return s.FragmentSize - headerSize
}
