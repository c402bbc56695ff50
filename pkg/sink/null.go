package sink

// NullSink discards every write; used when telemetry is disabled
// (spec.md §6: `*_TELEMETRY_DISABLED` installs only a null sink).
type NullSink struct{}

func (NullSink) Write(p []byte) error { return nil }
func (NullSink) Flush() error         { return nil }
func (NullSink) Close() error         { return nil }
