package protocol

import (
	"errors"
	"testing"
)

func TestOffer_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		offer Offer
		wire  string
	}{
		{
			name:  "file",
			offer: Offer{Kind: KindSet, FragmentSize: 1024, Fragments: 720, FileName: "name1.pdf"},
			wire:  "name1.pdf720",
		},
		{
			name:  "text",
			offer: Offer{Kind: KindSetMessage, FragmentSize: 1024, Fragments: 1},
			wire:  "81",
		},
		{
			name:  "empty file",
			offer: Offer{Kind: KindSet, FragmentSize: 7, Fragments: 0, FileName: "empty.txt"},
			wire:  "empty.txt0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(tt.offer.Payload()); got != tt.wire {
				t.Fatalf("Payload = %q, want %q", got, tt.wire)
			}
			b, err := tt.offer.Encode(DefaultPolynomial)
			if err != nil {
				t.Fatalf("Encode error = %v", err)
			}
			got, err := ParseOffer(Decode(b))
			if err != nil {
				t.Fatalf("ParseOffer error = %v", err)
			}
			if got != tt.offer {
				t.Errorf("ParseOffer = %+v, want %+v", got, tt.offer)
			}
		})
	}
}

// A name ending in digits merges with the count; the trailing run wins.
func TestParseOffer_TrailingDigitsAmbiguity(t *testing.T) {
	b, _ := Offer{Kind: KindSet, FragmentSize: 100, Fragments: 3, FileName: "log2"}.Encode(DefaultPolynomial)
	got, err := ParseOffer(Decode(b))
	if err != nil {
		t.Fatalf("ParseOffer error = %v", err)
	}
	if got.FileName != "log" || got.Fragments != 23 {
		t.Errorf("ParseOffer = (%q, %d), want (\"log\", 23)", got.FileName, got.Fragments)
	}
}

func TestParseOffer_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{name: "file without count", frame: Frame{Kind: KindSet, DeclaredSize: 10, Payload: []byte("report.pdf")}},
		{name: "file without name", frame: Frame{Kind: KindSet, DeclaredSize: 10, Payload: []byte("42")}},
		{name: "text without count", frame: Frame{Kind: KindSetMessage, DeclaredSize: 10, Payload: []byte("8")}},
		{name: "text with letters", frame: Frame{Kind: KindSetMessage, DeclaredSize: 10, Payload: []byte("8x1")}},
		{name: "count overflow", frame: Frame{Kind: KindSetMessage, DeclaredSize: 10, Payload: []byte("899999999999999999999999")}},
		{name: "bad size", frame: Frame{Kind: KindSet, DeclaredSize: -1, Payload: []byte("a1")}},
		{name: "data frame", frame: Frame{Kind: KindPush, DeclaredSize: 10, Payload: []byte("a1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseOffer(tt.frame); !errors.Is(err, ErrMalformedOffer) {
				t.Errorf("ParseOffer error = %v, want ErrMalformedOffer", err)
			}
		})
	}
}

func TestFragmentCount(t *testing.T) {
	tests := []struct {
		size         int64
		fragmentSize int
		want         int
	}{
		{3000, 1024, 3},
		{1018, 1024, 1},
		{1019, 1024, 2},
		{0, 1024, 0},
		{2, 1024, 1},
		{10, HeaderSize, 0},
	}
	for _, tt := range tests {
		if got := FragmentCount(tt.size, tt.fragmentSize); got != tt.want {
			t.Errorf("FragmentCount(%d, %d) = %d, want %d", tt.size, tt.fragmentSize, got, tt.want)
		}
	}
}
