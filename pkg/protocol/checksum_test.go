package protocol

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    byte
	}{
		{name: "empty", payload: nil, want: '3'},
		{name: "zero byte", payload: []byte{0x00}, want: '1'},
		{name: "one", payload: []byte{0x01}, want: '2'},
		{name: "two", payload: []byte{0x02}, want: '0'},
		{name: "seven", payload: []byte{0x07}, want: '2'},
		{name: "six", payload: []byte{0x06}, want: '1'},
		{name: "hi", payload: []byte("hi"), want: '2'},
		{name: "hello", payload: []byte("hello"), want: '2'},
		{name: "single quote", payload: []byte("it's"), want: '2'},
		{name: "double quote", payload: []byte(`say "hi"`), want: '0'},
		{name: "both quotes", payload: []byte(`'"`), want: '1'},
		{name: "backslash", payload: []byte(`a\b`), want: '3'},
		{name: "whitespace escapes", payload: []byte("\t\n\r"), want: '2'},
		{name: "high bytes", payload: []byte{0x7f, 0xff}, want: '2'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.payload); got != tt.want {
				t.Errorf("Checksum(%q) = %q, want %q", tt.payload, got, tt.want)
			}
		})
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		payload []byte
		want    string
	}{
		{nil, `b''`},
		{[]byte("hi"), `b'hi'`},
		{[]byte("it's"), `b"it's"`},
		{[]byte(`say "hi"`), `b'say "hi"'`},
		{[]byte(`'"`), `b'\'"'`},
		{[]byte(`a\b`), `b'a\\b'`},
		{[]byte("\t\n\r"), `b'\t\n\r'`},
		{[]byte{0x00, 0x1f, 0x7f, 0xfe}, `b'\x00\x1f\x7f\xfe'`},
		{[]byte(" ~"), `b' ~'`},
	}
	for _, tt := range tests {
		if got := string(Literal(tt.payload)); got != tt.want {
			t.Errorf("Literal(%q) = %s, want %s", tt.payload, got, tt.want)
		}
	}
}

func TestRemainder_KnownValues(t *testing.T) {
	tests := []struct {
		payload []byte
		want    []byte
	}{
		{[]byte{0x00}, []byte{0, 1, 0}},
		{[]byte{0x01}, []byte{0, 1, 1}},
		{[]byte{0x02}, []byte{0, 0, 0}},
		{[]byte{0x06}, []byte{1, 0, 0}},
		{[]byte{0x07}, []byte{1, 0, 1}},
		{[]byte("hi"), []byte{1, 0, 1}},
		{[]byte("hj"), []byte{1, 1, 0}},
	}
	for _, tt := range tests {
		if got := DefaultPolynomial.Remainder(tt.payload); !bytes.Equal(got, tt.want) {
			t.Errorf("Remainder(%q) = %v, want %v", tt.payload, got, tt.want)
		}
	}
}

// Datagrams produced by an independent peer implementation. Each must verify
// and be reproduced byte for byte by Encode.
func TestVerifyDatagram_PeerFrames(t *testing.T) {
	tests := []struct {
		name    string
		wire    string
		kind    Kind
		size    int
		payload string
	}{
		{"data", "110242hello", KindPush, 1024, "hello"},
		{"message offer", "81024283", KindSetMessage, 1024, "3"},
		{"file offer", "010182report.pdf3", KindSet, 1018, "report.pdf3"},
		{"final ack", "210243", KindAck, 1024, ""},
		{"reset", "300003", KindReset, 0, ""},
		{"binary data", "110242\x00\x01\xfe\xff", KindPush, 1024, "\x00\x01\xfe\xff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := []byte(tt.wire)
			if got := VerifyDatagram(wire); got != KindAck {
				t.Fatalf("VerifyDatagram(%q) = %s, want ACK", wire, got)
			}
			f := Decode(wire)
			if f.Kind != tt.kind || f.DeclaredSize != tt.size || string(f.Payload) != tt.payload {
				t.Errorf("Decode(%q) = %s/%d/%q", wire, f.Kind, f.DeclaredSize, f.Payload)
			}
			b, err := Encode(tt.kind, tt.size, []byte(tt.payload))
			if err != nil {
				t.Fatalf("Encode error = %v", err)
			}
			if !bytes.Equal(b, wire) {
				t.Errorf("Encode = %q, want %q", b, wire)
			}
		})
	}
}

func TestRemainder_Width(t *testing.T) {
	p := MustPolynomial("110101")
	r := p.Remainder([]byte("fragship"))
	if len(r) != 5 {
		t.Fatalf("remainder has %d bits, want 5", len(r))
	}
	if d := p.Checksum([]byte("fragship")); d < '0' || d > '5' {
		t.Errorf("Checksum = %q, want a digit in [0,5]", d)
	}
}

func TestVerify_AcceptsOwnChecksum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		p := make([]byte, rng.Intn(64))
		rng.Read(p)
		if got := Verify(p, Checksum(p)); got != KindAck {
			t.Fatalf("Verify(%x, Checksum) = %s, want ACK", p, got)
		}
	}
}

func TestVerify_RejectsWrongDigit(t *testing.T) {
	p := []byte{0x07}
	if got := Verify(p, '0'); got != KindReset {
		t.Errorf("Verify = %s, want RST", got)
	}
}

// The digest keeps only the weight of the remainder, so payloads whose
// remainders differ but have the same number of set bits collide.
func TestVerify_PopulationCountCollision(t *testing.T) {
	p1 := []byte("hi") // remainder 101
	p2 := []byte("hj") // remainder 110

	if bytes.Equal(DefaultPolynomial.Remainder(p1), DefaultPolynomial.Remainder(p2)) {
		t.Fatalf("remainders are equal; expected distinct remainders")
	}
	if Checksum(p1) != Checksum(p2) {
		t.Fatalf("Checksum(%x) = %q, Checksum(%x) = %q; expected a collision", p1, Checksum(p1), p2, Checksum(p2))
	}
	if got := Verify(p2, Checksum(p1)); got != KindAck {
		t.Errorf("Verify(p2, Checksum(p1)) = %s, want ACK (collision undetectable)", got)
	}
}

func TestVerifyDatagram(t *testing.T) {
	b, err := Encode(KindPush, 1024, []byte{0x07, 0x07})
	if err != nil {
		t.Fatalf("Encode error = %v", err)
	}
	if got := VerifyDatagram(b); got != KindAck {
		t.Errorf("VerifyDatagram(intact) = %s, want ACK", got)
	}

	damaged := append([]byte(nil), b...)
	damaged[HeaderSize] ^= 0x01 // remainder 100 -> 000 changes the digit
	if got := VerifyDatagram(damaged); got != KindReset {
		t.Errorf("VerifyDatagram(damaged) = %s, want RST", got)
	}

	if got := VerifyDatagram([]byte("12")); got != KindReset {
		t.Errorf("VerifyDatagram(short) = %s, want RST", got)
	}
}

func TestNewPolynomial(t *testing.T) {
	tests := []struct {
		gen     string
		wantErr bool
	}{
		{"1001", false},
		{"11", false},
		{"1000000001", false},
		{"1", true},
		{"0101", true},
		{"10a1", true},
		{"10000000001", true},
	}
	for _, tt := range tests {
		p, err := NewPolynomial(tt.gen)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewPolynomial(%q) error = %v, wantErr %v", tt.gen, err, tt.wantErr)
			continue
		}
		if err != nil {
			if !errors.Is(err, ErrBadGenerator) {
				t.Errorf("NewPolynomial(%q) error = %v, want ErrBadGenerator", tt.gen, err)
			}
			continue
		}
		if p.String() != tt.gen {
			t.Errorf("String() = %s, want %s", p.String(), tt.gen)
		}
	}
}
