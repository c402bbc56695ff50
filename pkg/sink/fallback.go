package sink

import "sync"

// FallbackSink routes a write to secondary whenever primary's Write fails,
// implementing spec.md §7's "SinkWriteError ... routed to a secondary
// error sink if one exists". Simplified from the teacher's pkg/dlq.DeadLetterQueue
// (which persists failed entries to disk for later reprocessing) down to
// direct secondary-sink routing, since SPEC_FULL.md scopes out
// reprocessing/replay as a Non-goal-adjacent feature the pipeline itself
// doesn't need.
type FallbackSink struct {
	mu        sync.Mutex
	primary   Sink
	secondary Sink
}

// NewFallbackSink pairs primary with secondary.
func NewFallbackSink(primary, secondary Sink) *FallbackSink {
	return &FallbackSink{primary: primary, secondary: secondary}
}

func (f *FallbackSink) Write(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.primary.Write(p); err != nil {
		return f.secondary.Write(p)
	}
	return nil
}

func (f *FallbackSink) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.primary.Flush(); err != nil {
		return f.secondary.Flush()
	}
	return nil
}

// Close is idempotent and closes both sinks, preferring to report the
// primary's error if both fail.
func (f *FallbackSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err1 := f.primary.Close()
	err2 := f.secondary.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
