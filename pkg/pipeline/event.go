// Package pipeline implements the processor chain described in spec.md
// §4.3 (C3): an ordered composition of pure event transforms, adapted from
// the teacher's internal/processing.LogProcessor pipeline-of-steps shape
// (compiled steps run in sequence, any step may short-circuit the rest).
package pipeline

import (
	"time"

	"github.com/sswlabs/foundation/pkg/fvalue"
	"github.com/sswlabs/foundation/pkg/level"
)

// Reserved field names (spec.md §3 Event).
const (
	FieldTimestamp  = "timestamp"
	FieldLevel      = "level"
	FieldLoggerName = "logger_name"
	FieldMessage    = "message"
	FieldExcInfo    = "exc_info"
	FieldMarkers    = "_markers"

	// FieldSerializationError holds the names of fields whose value
	// required fvalue.From's best-effort string fallback instead of an
	// exact conversion (spec.md §4.3/§9 edge case, §6 JSON
	// _serialization_errors array).
	FieldSerializationError = "serialization_error"
)

// Event is an ordered mapping of fields plus enough call-site provenance to
// implement the base < bound < call-site precedence rule from spec.md
// §4.3 step 2. callSiteKeys snapshots the keys present at construction
// time; later stages consult it before overwriting a field so enrichment
// never clobbers what the caller explicitly passed.
type Event struct {
	Fields       *fvalue.OrderedMap
	callSiteKeys map[string]struct{}
}

// NewEvent constructs an Event from a logger call site: loggerName, lvl,
// and message are reserved fields; kv holds the call's additional
// key-values in call order (spec.md §3: Event is an *ordered* mapping, so
// this takes an ordered slice rather than a Go map whose iteration order
// is randomized).
func NewEvent(loggerName string, lvl level.Level, message string, kv []fvalue.KV) *Event {
	fields := fvalue.NewOrderedMap()
	fields.Set(FieldLoggerName, fvalue.String(loggerName))
	fields.Set(FieldLevel, fvalue.String(lvl.String()))
	fields.Set(FieldMessage, fvalue.String(message))

	var inexactKeys []string
	for _, pair := range kv {
		fields.Set(pair.Key, pair.Value)
		if pair.Value.IsInexact() {
			inexactKeys = append(inexactKeys, pair.Key)
		}
	}

	callSite := make(map[string]struct{}, fields.Len())
	for _, k := range fields.Keys() {
		callSite[k] = struct{}{}
	}
	e := &Event{Fields: fields, callSiteKeys: callSite}
	e.recordSerializationErrors(inexactKeys)
	return e
}

func stringValues(ss []string) []fvalue.Value {
	out := make([]fvalue.Value, len(ss))
	for i, s := range ss {
		out[i] = fvalue.String(s)
	}
	return out
}

// recordSerializationErrors appends field names whose value required
// From's best-effort fallback to the event's serialization_error field.
// Unlike ordinary fields it accumulates across every stage that can
// contribute to it (call site, bound context) rather than letting the
// first writer win.
func (e *Event) recordSerializationErrors(keys []string) {
	if len(keys) == 0 {
		return
	}
	var items []fvalue.Value
	if existing, ok := e.Fields.Get(FieldSerializationError); ok {
		items, _ = existing.AsList()
	}
	items = append(items, stringValues(keys)...)
	e.Fields.Set(FieldSerializationError, fvalue.List(items...))
}

// isCallSite reports whether key was present at construction time, i.e.
// came directly from the logger call rather than an enrichment stage.
func (e *Event) isCallSite(key string) bool {
	_, ok := e.callSiteKeys[key]
	return ok
}

// setIfAbsent is used by inject_base_context: base fields never override
// anything already present (bound or call-site).
func (e *Event) setIfAbsent(key string, v fvalue.Value) {
	if _, exists := e.Fields.Get(key); !exists {
		e.Fields.Set(key, v)
	}
}

// setUnlessCallSite is used by inject_bound_context and resolve_event_set:
// both may override base-context fields but neither may override a true
// call-site value.
func (e *Event) setUnlessCallSite(key string, v fvalue.Value) {
	if e.isCallSite(key) {
		return
	}
	e.Fields.Set(key, v)
}

// Level returns the event's level field, parsed back into a level.Level.
func (e *Event) Level() level.Level {
	v, ok := e.Fields.Get(FieldLevel)
	if !ok {
		return level.Info
	}
	s, _ := v.AsString()
	lvl, ok := level.Parse(s)
	if !ok {
		return level.Info
	}
	return lvl
}

// LoggerName returns the event's logger_name field.
func (e *Event) LoggerName() string {
	v, ok := e.Fields.Get(FieldLoggerName)
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

// Clock abstracts time.Now for inject_base_context's timestamp field.
type Clock func() time.Time

func defaultClock() time.Time { return time.Now() }
