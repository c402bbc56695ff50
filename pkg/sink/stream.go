package sink

import (
	"io"
	"sync"
)

// StreamSink writes each rendered line (with a trailing newline) to an
// underlying io.Writer, serializing concurrent writers on a mutex
// (spec.md §4.8: "concurrent writers from within the same process
// serialize on a per-sink lock").
type StreamSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer // nil for stdout/stderr, which must never be closed
	closed bool
}

// NewStreamSink wraps w. If w also implements io.Closer, Close releases it;
// pass nil explicitly via NewStdStreamSink for os.Stdout/os.Stderr so
// Close never closes a standard stream.
func NewStreamSink(w io.Writer) *StreamSink {
	closer, _ := w.(io.Closer)
	return &StreamSink{w: w, closer: closer}
}

// NewStdStreamSink wraps a standard stream (os.Stdout/os.Stderr) that
// Close must never actually close.
func NewStdStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

func (s *StreamSink) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if _, err := s.w.Write(p); err != nil {
		return err
	}
	_, err := s.w.Write([]byte("\n"))
	return err
}

func (s *StreamSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close is idempotent (spec.md §4.8).
func (s *StreamSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
