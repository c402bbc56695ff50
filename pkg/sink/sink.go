// Package sink implements the terminal writers described in spec.md §4.8
// (C8): stream/file/rotating-file/null/memory sinks sharing a common
// write/flush/close contract, plus the async and fallback decorators
// SPEC_FULL.md adds around them.
//
// Grounded on the teacher's internal/sinks.LocalFileSink (per-sink mutex,
// scoped acquisition with guaranteed release) and pkg/workerpool.WorkerPool
// (queue + bounded goroutines) for the async decorator.
package sink

// Sink is the common terminal-writer contract (spec.md §4.8): write is
// best-effort and non-throwing into the caller, flush forces durability,
// and close is idempotent.
type Sink interface {
	Write(p []byte) error
	Flush() error
	Close() error
}
