package flog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sswlabs/foundation/pkg/eventset"
	"github.com/sswlabs/foundation/pkg/fvalue"
	"github.com/sswlabs/foundation/pkg/level"
	"github.com/sswlabs/foundation/pkg/pipeline"
	"github.com/sswlabs/foundation/pkg/sink"
)

func newTestCore(resolver *level.Resolver) (*Core, *sink.MemorySink) {
	mem := sink.NewMemorySink()
	chain := pipeline.NewChain(pipeline.KeyValueFormatter{},
		pipeline.InjectBaseContext(pipeline.BaseContext{ServiceName: "svc", OmitTimestamp: true}),
		pipeline.FilterByLevel(resolver),
		pipeline.ResolveEventSet(eventset.New()),
		pipeline.SanitizeSensitive([]string{"password", "token", "authorization"}),
		pipeline.ApplyRateLimit(nil, nil),
		pipeline.FormatException(),
	)
	return NewCore(chain, resolver, []sink.Sink{mem}), mem
}

// Scenario 1 from spec.md §8.
func TestBasicRenderingThroughLogger(t *testing.T) {
	core, mem := newTestCore(level.NewResolver(level.Info, nil))
	core.Get("root").Info("hello", fvalue.Pair("user", "ana"))

	lines := mem.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "level=info logger=root hello user=ana", string(lines[0]))
}

// Scenario 2 from spec.md §8.
func TestModuleOverrideThroughLogger(t *testing.T) {
	resolver := level.NewResolver(level.Warning, map[string]level.Level{"db": level.Debug})
	core, mem := newTestCore(resolver)

	core.Get("db.pool").Debug("connect")
	core.Get("api").Debug("request")

	lines := mem.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, string(lines[0]), "connect")
}

// Invariant 1 from spec.md §8: a suppressed event never reaches a sink.
func TestSuppressedLevelNeverReachesSink(t *testing.T) {
	core, mem := newTestCore(level.NewResolver(level.Warning, nil))
	core.Get("root").Info("swallowed")
	assert.Empty(t, mem.Lines())
}

func TestBindMergesWithoutMutatingOriginal(t *testing.T) {
	core, mem := newTestCore(level.NewResolver(level.Info, nil))
	base := core.Get("root")
	bound := base.Bind(fvalue.Pair("request_id", "r-1"))

	bound.Info("bound call")
	base.Info("unbound call")

	lines := mem.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "request_id=r-1")
	assert.NotContains(t, string(lines[1]), "request_id")
}

func TestBoundContextNeverOverridesCallSite(t *testing.T) {
	core, mem := newTestCore(level.NewResolver(level.Info, nil))
	bound := core.Get("root").Bind(fvalue.Pair("user", "bound-user"))
	bound.Info("hi", fvalue.Pair("user", "call-site-user"))

	lines := mem.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, string(lines[0]), "user=call-site-user")
	assert.NotContains(t, string(lines[0]), "bound-user")
}

func TestExceptionAttachesErrInfoAndLogsAtError(t *testing.T) {
	core, mem := newTestCore(level.NewResolver(level.Info, nil))
	core.Get("root").Exception(assertErr{"disk full"}, "write failed")

	lines := mem.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, string(lines[0]), "level=error")
	assert.Contains(t, string(lines[0]), "exc_info=")
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func TestSinkWriteErrorNeverPropagatesToCaller(t *testing.T) {
	core := NewCore(
		pipeline.NewChain(pipeline.KeyValueFormatter{}, pipeline.InjectBaseContext(pipeline.BaseContext{OmitTimestamp: true})),
		level.NewResolver(level.Info, nil),
		[]sink.Sink{failingWriteSink{}},
	)
	assert.NotPanics(t, func() {
		core.Get("root").Info("should not panic or error out")
	})
}

type failingWriteSink struct{}

func (failingWriteSink) Write(p []byte) error { return assertErr{"disk error"} }
func (failingWriteSink) Flush() error         { return nil }
func (failingWriteSink) Close() error         { return nil }
