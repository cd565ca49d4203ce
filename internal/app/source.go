package app

import (
	"errors"
	"io"
)

// ReaderSource slices a byte stream into fixed-size payloads.
type ReaderSource struct {
	r     io.Reader
	buf   []byte
	total int
}

// NewReaderSource reads payloadSize bytes per fragment from r. total is the
// fragment count announced in the handshake.
func NewReaderSource(r io.Reader, payloadSize, total int) *ReaderSource {
	return &ReaderSource{r: r, buf: make([]byte, payloadSize), total: total}
}

// Next returns the next payload or io.EOF. The slice is reused by the next
// call.
func (s *ReaderSource) Next() ([]byte, error) {
	n, err := io.ReadFull(s.r, s.buf)
	switch {
	case n > 0 && (err == nil || errors.Is(err, io.ErrUnexpectedEOF)):
		return s.buf[:n], nil
	case err == nil || errors.Is(err, io.EOF):
		return nil, io.EOF
	default:
		return nil, err
	}
}

// Fragments returns the announced fragment count.
func (s *ReaderSource) Fragments() int { return s.total }

// MessageSource slices an in-memory message.
type MessageSource struct {
	msg  []byte
	size int
	off  int
}

// NewMessageSource slices msg into payloads of at most payloadSize bytes.
func NewMessageSource(msg []byte, payloadSize int) *MessageSource {
	return &MessageSource{msg: msg, size: payloadSize}
}

// Next returns the next slice of the message or io.EOF.
func (s *MessageSource) Next() ([]byte, error) {
	if s.off >= len(s.msg) {
		return nil, io.EOF
	}
	end := s.off + s.size
	if end > len(s.msg) {
		end = len(s.msg)
	}
	chunk := s.msg[s.off:end]
	s.off = end
	return chunk, nil
}

// Fragments returns ceil(len(msg) / payloadSize).
func (s *MessageSource) Fragments() int {
	if s.size <= 0 {
		return 0
	}
	return (len(s.msg) + s.size - 1) / s.size
}
