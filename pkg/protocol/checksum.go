package protocol

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

// DefaultGenerator is x^3 + 1.
const DefaultGenerator = "1001"

// ErrBadGenerator is returned by NewPolynomial for unusable generators.
var ErrBadGenerator = errors.New("protocol: invalid generator polynomial")

// DefaultPolynomial is the generator used by both ends unless configured
// otherwise. Both peers must agree on it; it is not negotiated.
var DefaultPolynomial = MustPolynomial(DefaultGenerator)

// Polynomial is a CRC generator expressed as a bit pattern, most significant
// term first.
type Polynomial struct {
	gen []byte // 0/1 per bit
}

// NewPolynomial parses a generator such as "1001". The leading bit must be 1
// and the remainder must have at most 9 bits so its population count fits in
// one decimal digit.
func NewPolynomial(generator string) (Polynomial, error) {
	if len(generator) < 2 || len(generator) > 10 || generator[0] != '1' {
		return Polynomial{}, ErrBadGenerator
	}
	gen := make([]byte, len(generator))
	for i := 0; i < len(generator); i++ {
		switch generator[i] {
		case '0':
		case '1':
			gen[i] = 1
		default:
			return Polynomial{}, ErrBadGenerator
		}
	}
	return Polynomial{gen: gen}, nil
}

// MustPolynomial is like NewPolynomial but panics on error.
func MustPolynomial(generator string) Polynomial {
	p, err := NewPolynomial(generator)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the generator bit pattern.
func (p Polynomial) String() string {
	var sb strings.Builder
	for _, b := range p.gen {
		sb.WriteByte('0' + b)
	}
	return sb.String()
}

// Remainder returns the CRC remainder of payload as len(generator)-1 bits.
//
// The dividend is the payload written as a bytes literal (see Literal), each
// character of it in binary without leading zeros, followed by
// len(generator)-1 zero bits. "hi" is divided as the five characters b'hi'.
func (p Polynomial) Remainder(payload []byte) []byte {
	width := len(p.gen) - 1
	text := Literal(payload)
	work := make([]byte, 0, len(text)*7+width)
	for _, c := range text {
		for _, d := range strconv.FormatUint(uint64(c), 2) {
			work = append(work, byte(d-'0'))
		}
	}
	work = append(work, make([]byte, width)...)

	for i := 0; i+len(p.gen) <= len(work); i++ {
		if work[i] == 0 {
			continue
		}
		for j, g := range p.gen {
			work[i+j] ^= g
		}
	}
	return work[len(work)-width:]
}

const hexDigits = "0123456789abcdef"

// Literal renders payload the way peers of this protocol print a byte
// string before dividing it: a leading b, then quotes around the bytes.
// Printable ASCII stands for itself. Backslash, the quote, tab, newline and
// carriage return are backslash-escaped. Every other byte becomes \xNN with
// lower-case hex. The quote is ' unless the payload contains ' and no ".
func Literal(payload []byte) []byte {
	quote := byte('\'')
	if bytes.IndexByte(payload, '\'') >= 0 && bytes.IndexByte(payload, '"') < 0 {
		quote = '"'
	}

	out := make([]byte, 0, len(payload)+3)
	out = append(out, 'b', quote)
	for _, c := range payload {
		switch {
		case c == quote || c == '\\':
			out = append(out, '\\', c)
		case c == '\t':
			out = append(out, '\\', 't')
		case c == '\n':
			out = append(out, '\\', 'n')
		case c == '\r':
			out = append(out, '\\', 'r')
		case c < ' ' || c >= 0x7f:
			out = append(out, '\\', 'x', hexDigits[c>>4], hexDigits[c&0x0f])
		default:
			out = append(out, c)
		}
	}
	return append(out, quote)
}

// Checksum returns the header digit for payload: the population count of the
// remainder as an ASCII digit.
func (p Polynomial) Checksum(payload []byte) byte {
	var weight int
	for _, b := range p.Remainder(payload) {
		weight += int(b)
	}
	return byte('0' + weight)
}

// Verify recomputes the digit over payload and returns KindAck when it equals
// digit, KindReset otherwise. Payloads whose remainders share a population
// count are indistinguishable.
func (p Polynomial) Verify(payload []byte, digit byte) Kind {
	if p.Checksum(payload) != digit {
		return KindReset
	}
	return KindAck
}

// VerifyDatagram checks a raw datagram: the digit at offset 5 against the
// bytes from offset 6. Datagrams shorter than the header are rejected.
func (p Polynomial) VerifyDatagram(b []byte) Kind {
	if len(b) < HeaderSize {
		return KindReset
	}
	return p.Verify(b[HeaderSize:], b[HeaderSize-1])
}

// Checksum computes the digit with DefaultPolynomial.
func Checksum(payload []byte) byte { return DefaultPolynomial.Checksum(payload) }

// Verify checks payload against digit with DefaultPolynomial.
func Verify(payload []byte, digit byte) Kind { return DefaultPolynomial.Verify(payload, digit) }

// VerifyDatagram checks a raw datagram with DefaultPolynomial.
func VerifyDatagram(b []byte) Kind { return DefaultPolynomial.VerifyDatagram(b) }
