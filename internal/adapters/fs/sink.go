package fs

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// FileSink buffers received payloads into a newly created file.
type FileSink struct {
	f *os.File
	w *bufio.Writer
}

var _ io.WriteCloser = (*FileSink)(nil)

// CreateSink creates path, failing if it already exists, so a name handed
// out by CollisionResolver is never overwritten by a concurrent writer.
func CreateSink(path string) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f, w: bufio.NewWriter(f)}, nil
}

// Write appends p.
func (s *FileSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// Close flushes, syncs and closes the file.
func (s *FileSink) Close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("flush %s: %w", s.f.Name(), err)
	}
	if err := s.f.Sync(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("sync %s: %w", s.f.Name(), err)
	}
	return s.f.Close()
}
