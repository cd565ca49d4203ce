package protocol

import (
	"errors"
	"fmt"
	"strconv"
)

// Wire layout constants.
const (
	// HeaderSize is the number of bytes preceding the payload.
	HeaderSize = 6

	// SizeWidth is the width of the declared size field.
	SizeWidth = 4

	// MaxDeclaredSize is the largest value the size field can carry.
	MaxDeclaredSize = 9999

	// MinPayload and MaxPayload bound the data carried by one fragment.
	// 1466 = 1500 (MTU) - 20 (IPv4) - 8 (UDP) - 6 (header).
	MinPayload = 1
	MaxPayload = 1466

	// HandshakeBufferSize is the read buffer used before a session exists.
	HandshakeBufferSize = 4096
)

// ErrSizeOverflow is returned by Encode when the declared size does not fit
// the 4-digit field.
var ErrSizeOverflow = errors.New("protocol: declared size does not fit header")

// Kind identifies the purpose of a frame.
type Kind byte

const (
	KindSet        Kind = '0' // handshake for a file transfer
	KindPush       Kind = '1' // data fragment
	KindAck        Kind = '2' // positive acknowledgment
	KindReset      Kind = '3' // negative acknowledgment
	KindSetMessage Kind = '8' // handshake for a text transfer
)

// String returns the protocol mnemonic for the kind.
func (k Kind) String() string {
	switch k {
	case KindSet:
		return "SET"
	case KindPush:
		return "PSH"
	case KindAck:
		return "ACK"
	case KindReset:
		return "RST"
	case KindSetMessage:
		return "SET_MSG"
	default:
		return fmt.Sprintf("UNKNOWN(%q)", byte(k))
	}
}

// IsHandshake reports whether the kind opens a transfer.
func (k Kind) IsHandshake() bool {
	return k == KindSet || k == KindSetMessage
}

// Frame is a decoded datagram.
type Frame struct {
	Kind Kind

	// DeclaredSize is the fragment size advertised by the sender.
	// It is -1 when the size field was not four decimal digits.
	DeclaredSize int

	// Checksum is the ASCII digit carried in the header.
	Checksum byte

	Payload []byte
}

// Valid recomputes the checksum over the payload and compares it with the
// digit carried in the header.
func (f Frame) Valid() bool {
	return Verify(f.Payload, f.Checksum) == KindAck
}

// Encode builds header + payload. The checksum digit is computed with
// DefaultPolynomial.
func Encode(kind Kind, declaredSize int, payload []byte) ([]byte, error) {
	return DefaultPolynomial.Encode(kind, declaredSize, payload)
}

// Encode builds header + payload using p for the checksum digit.
func (p Polynomial) Encode(kind Kind, declaredSize int, payload []byte) ([]byte, error) {
	if declaredSize < 0 || declaredSize > MaxDeclaredSize {
		return nil, fmt.Errorf("%w: %d", ErrSizeOverflow, declaredSize)
	}
	out := make([]byte, 0, HeaderSize+len(payload))
	out = append(out, byte(kind))
	out = append(out, fmt.Sprintf("%0*d", SizeWidth, declaredSize)...)
	out = append(out, p.Checksum(payload))
	out = append(out, payload...)
	return out, nil
}

// Decode splits a datagram into its header fields and payload. It never
// fails: short or garbled input yields zero-valued fields, and damage is left
// for the checksum to detect. The returned payload aliases b.
func Decode(b []byte) Frame {
	f := Frame{DeclaredSize: -1}
	if len(b) > 0 {
		f.Kind = Kind(b[0])
	}
	if len(b) >= 1+SizeWidth {
		f.DeclaredSize = parseDigits(b[1 : 1+SizeWidth])
	}
	if len(b) >= HeaderSize {
		f.Checksum = b[HeaderSize-1]
		f.Payload = b[HeaderSize:]
	}
	return f
}

// parseDigits returns the decimal value of b, or -1 if b holds anything other
// than ASCII digits.
func parseDigits(b []byte) int {
	if len(b) == 0 {
		return -1
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return -1
		}
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return -1
	}
	return n
}
