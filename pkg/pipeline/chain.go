package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Chain composes a sequence of Processors followed by a render step
// (spec.md §4.3: "process(event) -> rendered_output | DROP"). DROP is
// distinct from an exception and MUST be observable via a counter.
type Chain struct {
	stages              []Processor
	formatter           Formatter
	dropped             prometheus.Counter
	serializationErrors prometheus.Counter
}

// NewChain returns a Chain running stages in order, rendering survivors
// with formatter.
func NewChain(formatter Formatter, stages ...Processor) *Chain {
	return &Chain{
		stages:    stages,
		formatter: formatter,
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundation_pipeline_dropped_total",
			Help: "Events intentionally suppressed by the processor chain.",
		}),
		serializationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundation_pipeline_serialization_errors_total",
			Help: "Events rendered with at least one field that needed From's best-effort fallback.",
		}),
	}
}

// Collectors exposes the drop and serialization-error counters for
// registration.
func (c *Chain) Collectors() []prometheus.Collector {
	return []prometheus.Collector{c.dropped, c.serializationErrors}
}

// Process runs event through every stage; if any stage drops it, Process
// returns (nil, true) and increments the drop counter. Otherwise it
// renders the survivor and returns (bytes, false).
func (c *Chain) Process(event *Event) (out []byte, dropped bool) {
	cur := event
	for _, stage := range c.stages {
		cur = stage(cur)
		if cur == nil {
			c.dropped.Inc()
			return nil, true
		}
	}
	if _, ok := cur.Fields.Get(FieldSerializationError); ok {
		c.serializationErrors.Inc()
	}
	return c.formatter.Render(cur), false
}
