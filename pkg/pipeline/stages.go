package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/sswlabs/foundation/pkg/eventset"
	"github.com/sswlabs/foundation/pkg/fvalue"
	"github.com/sswlabs/foundation/pkg/level"
	"github.com/sswlabs/foundation/pkg/ratelimit"
)

// Processor is a pure event transform: event -> event | DROP (nil return
// means DROP), matching spec.md §4.3's "processor is a pure function
// event -> event | DROP".
type Processor func(*Event) *Event

// BaseContext carries the process-wide fields attached by
// InjectBaseContext (spec.md §4.3 step 1).
type BaseContext struct {
	ServiceName   string
	PID           int
	Host          string
	OmitTimestamp bool
	Clock         Clock
}

// InjectBaseContext attaches service_name, pid, host, and timestamp
// (unless omitted) to every event, but only where a bound or call-site
// value hasn't already claimed the key.
func InjectBaseContext(bc BaseContext) Processor {
	clock := bc.Clock
	if clock == nil {
		clock = defaultClock
	}
	return func(e *Event) *Event {
		e.setIfAbsent("service_name", fvalue.String(bc.ServiceName))
		e.setIfAbsent("pid", fvalue.Int(int64(bc.PID)))
		e.setIfAbsent("host", fvalue.String(bc.Host))
		if !bc.OmitTimestamp {
			e.setIfAbsent(FieldTimestamp, fvalue.String(clock().UTC().Format(rfc3339Micro)))
		}
		return e
	}
}

const rfc3339Micro = "2006-01-02T15:04:05.000000Z07:00"

// ApplyBoundContext merges a logger's bound key-values into e. Bound
// values override base-context fields but a true call-site value always
// wins (spec.md §4.3 step 2). It is exported directly (rather than only
// as a Processor) because each Logger instance carries its own bound
// context from Bind — pkg/flog applies it per dispatch, before the shared
// Chain runs, instead of baking one fixed bound map into a chain stage.
func ApplyBoundContext(e *Event, bound *fvalue.OrderedMap) {
	if bound == nil {
		return
	}
	var inexactKeys []string
	for _, k := range bound.Keys() {
		v, _ := bound.Get(k)
		e.setUnlessCallSite(k, v)
		if v.IsInexact() {
			inexactKeys = append(inexactKeys, k)
		}
	}
	e.recordSerializationErrors(inexactKeys)
}

// InjectBoundContext adapts ApplyBoundContext into a Processor for chains
// with a single fixed, process-wide bound context (e.g. tests).
func InjectBoundContext(bound *fvalue.OrderedMap) Processor {
	return func(e *Event) *Event {
		ApplyBoundContext(e, bound)
		return e
	}
}

// FilterByLevel drops the event if its level is below the effective level
// resolved for its logger name (spec.md §4.3 step 3, invariant 1).
func FilterByLevel(resolver *level.Resolver) Processor {
	return func(e *Event) *Event {
		if e.Level() < resolver.Effective(e.LoggerName()) {
			return nil
		}
		return e
	}
}

// ResolveEventSet consults the event-set catalog and attaches markers,
// overlay fields, and per-field transforms (spec.md §4.3 step 4).
func ResolveEventSet(catalog *eventset.Catalog) Processor {
	return func(e *Event) *Event {
		enrichment := catalog.Resolve(e.Fields)
		if len(enrichment.Markers) > 0 {
			markers := make([]fvalue.Value, len(enrichment.Markers))
			for i, m := range enrichment.Markers {
				markers[i] = fvalue.String(m)
			}
			e.setUnlessCallSite(FieldMarkers, fvalue.List(markers...))
		}
		for field, v := range enrichment.Overlay {
			e.setUnlessCallSite(field, v)
		}
		for field, transform := range enrichment.Transforms {
			applyTransform(e, field, transform)
		}
		return e
	}
}

func applyTransform(e *Event, field string, transform eventset.Transform) {
	v, ok := e.Fields.Get(field)
	if !ok {
		return
	}
	switch transform {
	case eventset.TransformRedact:
		e.Fields.Set(field, fvalue.String("***"))
	case eventset.TransformTruncate:
		e.Fields.Set(field, fvalue.String(truncate(fvalue.RenderText(v), 32)))
	case eventset.TransformHash:
		e.Fields.Set(field, fvalue.String(hashValue(fvalue.RenderText(v))))
	case eventset.TransformKeep:
		// no-op
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func hashValue(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// SanitizeSensitive redacts any field whose key contains one of patterns
// (case-insensitive substring match), regardless of any event-set
// transform already applied (spec.md §4.3 step 5, scenario 6).
func SanitizeSensitive(patterns []string) Processor {
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return func(e *Event) *Event {
		for _, k := range e.Fields.Keys() {
			lk := strings.ToLower(k)
			for _, p := range lowered {
				if strings.Contains(lk, p) {
					e.Fields.Set(k, fvalue.String("***"))
					break
				}
			}
		}
		return e
	}
}

// CostFunc computes the rate-limiter admission cost for an event; nil
// means a flat cost of 1.0 per event.
type CostFunc func(*Event) float64

// ApplyRateLimit consults the rate limiter registry for the event's logger
// name, if one is attached; a denial drops the event (spec.md §4.3 step 6).
func ApplyRateLimit(registry *ratelimit.Registry, cost CostFunc) Processor {
	return func(e *Event) *Event {
		if registry == nil {
			return e
		}
		c := 1.0
		if cost != nil {
			c = cost(e)
		}
		if !registry.Admit(e.LoggerName(), c) {
			return nil
		}
		return e
	}
}

// FormatException renders the captured error chain in exc_info, when
// present, into a traceback-style string field (spec.md §4.3 step 7).
func FormatException() Processor {
	return func(e *Event) *Event {
		v, ok := e.Fields.Get(FieldExcInfo)
		if !ok {
			return e
		}
		err, isErr := v.AsError()
		if !isErr || err == nil {
			return e
		}
		e.Fields.Set("exc_text", fvalue.String(renderErrorChain(err)))
		return e
	}
}

func renderErrorChain(err error) string {
	var b strings.Builder
	for err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(err.Error())
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return b.String()
}
