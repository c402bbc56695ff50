package sink

import "sync"

// MemorySink buffers every write in process memory, for tests
// (spec.md §4.8: "memory_sink (for tests)").
type MemorySink struct {
	mu     sync.Mutex
	lines  [][]byte
	closed bool
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Write(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(p))
	copy(cp, p)
	m.lines = append(m.lines, cp)
	return nil
}

func (m *MemorySink) Flush() error { return nil }

func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Lines returns a snapshot of every line written so far, in write order.
func (m *MemorySink) Lines() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.lines))
	copy(out, m.lines)
	return out
}

// Closed reports whether Close has been called.
func (m *MemorySink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
