package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sswlabs/foundation/pkg/eventset"
	"github.com/sswlabs/foundation/pkg/fvalue"
	"github.com/sswlabs/foundation/pkg/level"
	"github.com/sswlabs/foundation/pkg/ratelimit"
)

func newEvent(loggerName string, lvl level.Level, message string, kv map[string]interface{}) *Event {
	// Test inputs use at most one extra field, so map iteration order
	// (which Go does not guarantee) never affects the result.
	pairs := make([]fvalue.KV, 0, len(kv))
	for k, v := range kv {
		pairs = append(pairs, fvalue.Pair(k, v))
	}
	return NewEvent(loggerName, lvl, message, pairs)
}

// Scenario 1 from spec.md §8.
func TestBasicRenderingScenario(t *testing.T) {
	chain := NewChain(KeyValueFormatter{},
		InjectBaseContext(BaseContext{ServiceName: "svc", OmitTimestamp: true}),
		InjectBoundContext(nil),
		FilterByLevel(level.NewResolver(level.Info, nil)),
		ResolveEventSet(eventset.New()),
		SanitizeSensitive(nil),
		ApplyRateLimit(nil, nil),
		FormatException(),
	)

	out, dropped := chain.Process(newEvent("root", level.Info, "hello", map[string]interface{}{"user": "ana"}))
	require.False(t, dropped)
	assert.Equal(t, "level=info logger=root hello user=ana", string(out))
}

// Scenario 2 from spec.md §8.
func TestModuleOverrideScenarioDropsBelowThreshold(t *testing.T) {
	resolver := level.NewResolver(level.Warning, map[string]level.Level{"db": level.Debug})
	chain := NewChain(KeyValueFormatter{}, FilterByLevel(resolver))

	_, dropped := chain.Process(newEvent("db.pool", level.Debug, "connect", nil))
	assert.False(t, dropped)

	_, dropped = chain.Process(newEvent("api", level.Debug, "request", nil))
	assert.True(t, dropped)
}

// Scenario 3 from spec.md §8, run through the full chain instead of the
// catalog directly.
func TestEventSetEnrichmentThroughChain(t *testing.T) {
	catalog := eventset.New()
	catalog.Register(eventset.EventSet{
		Name: "A", Priority: 10,
		Mappings: []eventset.Mapping{{
			MatchField: "http.status", MatchValue: fvalue.Int(200),
			Marker: "OK", Overlay: map[string]fvalue.Value{"category": fvalue.String("2xx")},
		}},
	})
	catalog.Register(eventset.EventSet{
		Name: "B", Priority: 20,
		Mappings: []eventset.Mapping{{
			MatchField: "http.status", MatchValue: fvalue.Int(200),
			Marker: "check", Overlay: map[string]fvalue.Value{"category": fvalue.String("success")},
		}},
	})
	chain := NewChain(KeyValueFormatter{},
		InjectBaseContext(BaseContext{OmitTimestamp: true}),
		ResolveEventSet(catalog),
	)

	out, dropped := chain.Process(newEvent("root", level.Info, "request done", map[string]interface{}{"http.status": int64(200)}))
	require.False(t, dropped)
	assert.Contains(t, string(out), "[OK][check]")
	assert.Contains(t, string(out), "category=success")
}

// Scenario 6 from spec.md §8: sanitization overrides an event-set "keep"
// transform.
func TestSanitizationOverridesEventSetTransform(t *testing.T) {
	catalog := eventset.New()
	catalog.Register(eventset.EventSet{
		Name: "auth", Priority: 1,
		Transforms: []eventset.FieldTransform{{Field: "password", Transform: eventset.TransformKeep}},
	})
	chain := NewChain(KeyValueFormatter{},
		InjectBaseContext(BaseContext{OmitTimestamp: true}),
		ResolveEventSet(catalog),
		SanitizeSensitive([]string{"password", "token", "authorization"}),
	)

	out, dropped := chain.Process(newEvent("auth", level.Info, "login", map[string]interface{}{"password": "hunter2"}))
	require.False(t, dropped)
	assert.Contains(t, string(out), "password=***")
	assert.NotContains(t, string(out), "hunter2")
}

func TestRateLimitDeniesAndIsObservableAsDrop(t *testing.T) {
	reg := ratelimit.NewRegistry()
	reg.Attach("noisy", ratelimit.New(1, 0, nil)) // capacity 1, no refill: second call denied

	chain := NewChain(KeyValueFormatter{}, ApplyRateLimit(reg, nil))

	_, dropped := chain.Process(newEvent("noisy", level.Info, "first", nil))
	assert.False(t, dropped)
	_, dropped = chain.Process(newEvent("noisy", level.Info, "second", nil))
	assert.True(t, dropped)
}

func TestDropIsCountedSeparatelyFromRender(t *testing.T) {
	chain := NewChain(KeyValueFormatter{}, func(e *Event) *Event { return nil })
	out, dropped := chain.Process(newEvent("root", level.Info, "x", nil))
	assert.Nil(t, out)
	assert.True(t, dropped)
}

// Invariant 8 from spec.md §8: render is injective enough that two events
// differing in a non-redacted field render differently.
func TestRenderDiffersForDifferingFields(t *testing.T) {
	chain := NewChain(KeyValueFormatter{}, InjectBaseContext(BaseContext{OmitTimestamp: true}))
	a, _ := chain.Process(newEvent("root", level.Info, "x", map[string]interface{}{"n": int64(1)}))
	b, _ := chain.Process(newEvent("root", level.Info, "x", map[string]interface{}{"n": int64(2)}))
	assert.NotEqual(t, string(a), string(b))
}

func TestBoundContextOverridesBaseButNotCallSite(t *testing.T) {
	bound := fvalue.NewOrderedMap()
	bound.Set("service_name", fvalue.String("bound-wins"))
	bound.Set("user", fvalue.String("bound-loses"))

	chain := NewChain(KeyValueFormatter{},
		InjectBaseContext(BaseContext{ServiceName: "base", OmitTimestamp: true}),
		InjectBoundContext(bound),
	)
	out, _ := chain.Process(newEvent("root", level.Info, "x", map[string]interface{}{"user": "call-site-wins"}))
	s := string(out)
	assert.Contains(t, s, "service_name=bound-wins")
	assert.Contains(t, s, "user=call-site-wins")
}

func TestFormatExceptionRendersChain(t *testing.T) {
	inner := errors.New("root cause")
	wrapped := &wrappingError{msg: "outer", cause: inner}

	chain := NewChain(KeyValueFormatter{}, FormatException())
	val, _ := fvalue.From(error(wrapped))
	ev := NewEvent("root", level.Error, "failed", []fvalue.KV{{Key: FieldExcInfo, Value: val}})
	out, dropped := chain.Process(ev)
	require.False(t, dropped)
	assert.Contains(t, string(out), "exc_text=")
	assert.Contains(t, string(out), "outer: root cause")
}

type wrappingError struct {
	msg   string
	cause error
}

func (w *wrappingError) Error() string { return w.msg }
func (w *wrappingError) Unwrap() error { return w.cause }
