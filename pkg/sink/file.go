package sink

import (
	"os"
	"sync"
)

// FileSink appends rendered lines to a single file, never rotating
// (spec.md §4.8: "file_append"). Grounded on the teacher's
// internal/sinks.LocalFileSink per-file mutex/size-tracking shape,
// stripped of queueing (the async decorator in this package adds that
// generically instead of baking it into every file variant).
type FileSink struct {
	mu          sync.Mutex
	path        string
	file        *os.File
	currentSize int64
	closed      bool
}

// NewFileSink opens (or creates) path in append mode.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	var size int64
	if err == nil {
		size = info.Size()
	}
	return &FileSink{path: path, file: f, currentSize: size}, nil
}

func (s *FileSink) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	n, err := s.file.Write(append(p, '\n'))
	s.currentSize += int64(n)
	return err
}

func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.file.Sync()
}

// Close is idempotent (spec.md §4.8).
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// Size reports the current file size in bytes.
func (s *FileSink) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSize
}
