package sink

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// OTLPSink wraps an inner sink and, when the write's context carries a valid
// span, records the write as an event on that span. Trace and span ids are
// not written into the rendered line. This is SPEC_FULL.md's
// OTLP-compatible sink: "we define the export interface, not
// the protocol" (spec.md §1 Non-goals exclude an OTLP exporter
// implementation). It uses go.opentelemetry.io/otel/trace only — no wire
// format, no collector client.
type OTLPSink struct {
	inner  Sink
	tracer trace.Tracer
}

// NewOTLPSink wraps inner. tracer is stored but not consulted: the active
// span is taken from the context passed to WriteContext.
func NewOTLPSink(inner Sink, tracer trace.Tracer) *OTLPSink {
	return &OTLPSink{inner: inner, tracer: tracer}
}

// Write satisfies Sink using a background context (no trace stamping).
func (o *OTLPSink) Write(p []byte) error {
	return o.WriteContext(context.Background(), p)
}

// WriteContext records the write as a span event on the context's active
// span, if any, then forwards the original bytes to the inner sink
// unmodified (trace enrichment is metadata about the write, not a
// mutation of the rendered line).
func (o *OTLPSink) WriteContext(ctx context.Context, p []byte) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("foundation.sink.write")
	}
	return o.inner.Write(p)
}

func (o *OTLPSink) Flush() error { return o.inner.Flush() }
func (o *OTLPSink) Close() error { return o.inner.Close() }
