package protocol

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedOffer is returned by ParseOffer when a handshake payload cannot
// be interpreted.
var ErrMalformedOffer = errors.New("protocol: malformed handshake payload")

// textMarker is the unused byte that precedes the count in a text offer.
const textMarker = byte(KindSetMessage)

// Offer is the content of a handshake frame.
type Offer struct {
	// Kind is KindSet for files and KindSetMessage for text.
	Kind Kind

	// FragmentSize is the datagram capacity, header included, that the sender
	// will use for every data frame of the transfer.
	FragmentSize int

	// Fragments is the number of data frames the sender will deliver.
	Fragments int

	// FileName is the destination name; empty for text transfers.
	FileName string
}

// Payload renders the handshake payload.
func (o Offer) Payload() []byte {
	count := strconv.Itoa(o.Fragments)
	if o.Kind == KindSetMessage {
		return append([]byte{textMarker}, count...)
	}
	return append([]byte(o.FileName), count...)
}

// Encode renders the complete handshake datagram.
func (o Offer) Encode(p Polynomial) ([]byte, error) {
	if !o.Kind.IsHandshake() {
		return nil, fmt.Errorf("%w: kind %s", ErrMalformedOffer, o.Kind)
	}
	return p.Encode(o.Kind, o.FragmentSize, o.Payload())
}

// ParseOffer interprets a handshake frame. For file offers the fragment count
// is the trailing run of decimal digits and the name is whatever precedes it,
// so a name that itself ends in digits cannot be told apart from the count.
func ParseOffer(f Frame) (Offer, error) {
	o := Offer{Kind: f.Kind, FragmentSize: f.DeclaredSize}
	if f.DeclaredSize < 0 {
		return Offer{}, fmt.Errorf("%w: unreadable fragment size", ErrMalformedOffer)
	}

	switch f.Kind {
	case KindSetMessage:
		if len(f.Payload) < 2 {
			return Offer{}, fmt.Errorf("%w: missing fragment count", ErrMalformedOffer)
		}
		n := parseDigits(f.Payload[1:])
		if n < 0 {
			return Offer{}, fmt.Errorf("%w: fragment count %q", ErrMalformedOffer, f.Payload[1:])
		}
		o.Fragments = n

	case KindSet:
		i := len(f.Payload)
		for i > 0 && f.Payload[i-1] >= '0' && f.Payload[i-1] <= '9' {
			i--
		}
		if i == len(f.Payload) {
			return Offer{}, fmt.Errorf("%w: missing fragment count", ErrMalformedOffer)
		}
		if i == 0 {
			return Offer{}, fmt.Errorf("%w: missing file name", ErrMalformedOffer)
		}
		n := parseDigits(f.Payload[i:])
		if n < 0 {
			return Offer{}, fmt.Errorf("%w: fragment count %q", ErrMalformedOffer, f.Payload[i:])
		}
		o.Fragments = n
		o.FileName = string(f.Payload[:i])

	default:
		return Offer{}, fmt.Errorf("%w: kind %s", ErrMalformedOffer, f.Kind)
	}
	return o, nil
}

// FragmentCount returns how many fragments of fragmentSize (header included)
// are needed for size bytes of data.
func FragmentCount(size int64, fragmentSize int) int {
	per := int64(fragmentSize - HeaderSize)
	if per <= 0 || size <= 0 {
		return 0
	}
	return int((size + per - 1) / per)
}
