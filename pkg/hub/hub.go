// Package hub implements the process-singleton Hub (C9): it loads the
// Foundation Context, assembles the C7 Logger Core, registers built-in
// event sets, and builds a dispatchable CLI from registry-declared
// commands (spec.md §4.9). Grounded on the teacher's internal/app.New/Run
// bootstrap ordering (config load → component wiring → ready), adapted
// from a single monolithic App into a reusable library singleton with an
// explicit reset for test isolation.
package hub

import (
	"errors"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/sswlabs/foundation/internal/bootstraplog"
	"github.com/sswlabs/foundation/pkg/eventset"
	"github.com/sswlabs/foundation/pkg/fctx"
	"github.com/sswlabs/foundation/pkg/ferrors"
	"github.com/sswlabs/foundation/pkg/flog"
	"github.com/sswlabs/foundation/pkg/level"
	"github.com/sswlabs/foundation/pkg/pipeline"
	"github.com/sswlabs/foundation/pkg/ratelimit"
	"github.com/sswlabs/foundation/pkg/registry"
	"github.com/sswlabs/foundation/pkg/sink"
)

const (
	dimensionCommand  = "command"
	dimensionEventSet = "eventset"
	dimensionDefault  = "component"
)

// CommandHandler is the function shape registered under the command
// dimension; args are the positional arguments following the dotted
// command name.
type CommandHandler func(args []string) error

// UsageError marks a CLI invocation failure as a usage error rather than a
// handler failure (spec.md §6: "exit codes: 0 on success, 1 on handler
// failure, 2 on usage error"). Cobra itself does not expose a clean
// parse-error/handler-error split, so this is the Hub's explicit signal;
// handlers opt in by returning one when argument validation fails before
// any real work starts.
type UsageError struct{ Err error }

func (u *UsageError) Error() string { return u.Err.Error() }
func (u *UsageError) Unwrap() error { return u.Err }

// ExitCode classifies err per spec.md §6's three-way exit code contract.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}

// InitOptions configures Initialize. EnvPrefix and Overrides feed C10
// (spec.md §4.10); ExtraSinks lets a caller add sinks to the defaults the
// Hub would otherwise build on its own.
type InitOptions struct {
	EnvPrefix  string
	Overrides  fctx.Overrides
	Force      bool
	ExtraSinks []sink.Sink
}

// Hub is the process-singleton described in spec.md §4.9.
type Hub struct {
	mu          sync.RWMutex
	initialized bool

	registry *registry.Registry
	context  *fctx.Context
	core     *flog.Core
	catalog  *eventset.Catalog
	rlimits  *ratelimit.Registry
	bootLog  *logrus.Logger
}

// New returns an uninitialized Hub. A process typically owns exactly one,
// but nothing here enforces that — tests freely construct their own.
func New() *Hub {
	return &Hub{
		registry: registry.New(),
		bootLog:  bootstraplog.New(),
	}
}

// Initialize runs the five-step init sequence from spec.md §4.9. It is
// idempotent when force=false; with force=true it builds fresh state and
// replaces the old state with it (the previous Logger Core is not closed).
// Double-checked locking: an uncontended repeat call only needs a read
// lock, matching spec.md §4.9's "subsequent method calls take a read lock
// (reentrant)".
func (h *Hub) Initialize(opts InitOptions) error {
	h.mu.RLock()
	ready := h.initialized && !opts.Force
	h.mu.RUnlock()
	if ready {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.initialized && !opts.Force {
		return nil
	}

	ctx, err := fctx.Load(opts.EnvPrefix, opts.Overrides)
	if err != nil {
		return ferrors.InitializationFailure("hub", "initialize", "failed to load context").Wrap(err)
	}

	catalog := eventset.New()
	for _, es := range builtinEventSets() {
		catalog.Register(es)
	}
	for _, entry := range h.registry.List(dimensionEventSet) {
		es, ok := entry.Value.(eventset.EventSet)
		if !ok {
			continue
		}
		if eventSetEnabled(ctx, es.Name) {
			catalog.Register(es)
		}
	}
	if ctx.EventSetFile != "" {
		fileSets, err := eventset.LoadCatalogFile(ctx.EventSetFile)
		if err != nil {
			return ferrors.InitializationFailure("hub", "initialize", "failed to load event set file").Wrap(err)
		}
		for _, es := range fileSets {
			if eventSetEnabled(ctx, es.Name) {
				catalog.Register(es)
			}
		}
	}

	resolver := level.NewResolver(ctx.DefaultLevel, ctx.ModuleLevels)
	formatter, err := buildFormatter(ctx)
	if err != nil {
		return ferrors.InitializationFailure("hub", "initialize", "unsupported console formatter").Wrap(err)
	}

	rlimits := ratelimit.NewRegistry()
	chain := pipeline.NewChain(formatter,
		pipeline.InjectBaseContext(pipeline.BaseContext{
			ServiceName:   ctx.ServiceName,
			PID:           os.Getpid(),
			OmitTimestamp: ctx.OmitTimestamp,
		}),
		pipeline.FilterByLevel(resolver),
		pipeline.ResolveEventSet(catalog),
		pipeline.SanitizeSensitive(ctx.SanitizePatterns),
		pipeline.ApplyRateLimit(rlimits, nil),
		pipeline.FormatException(),
	)

	sinks, err := buildSinks(ctx, opts.ExtraSinks)
	if err != nil {
		return ferrors.InitializationFailure("hub", "initialize", "failed to build sinks").Wrap(err)
	}

	core := flog.NewCore(chain, resolver, sinks)

	// Step 4, "discover entry-point registered components into C1": Go has
	// no runtime entry-point scanning (unlike setuptools entry_points); the
	// idiomatic equivalent is components self-registering via an init()
	// func in a blank-imported package before Initialize ever runs. By the
	// time we get here the registry the Hub owns already reflects every
	// such registration, so this step is a no-op validation rather than a
	// scan.

	h.context = ctx
	h.catalog = catalog
	h.rlimits = rlimits
	h.core = core
	h.initialized = true
	h.bootLog.WithFields(logrus.Fields{
		"instance_id":  ctx.InstanceID,
		"service_name": ctx.ServiceName,
		"environment":  ctx.Environment,
	}).Info("hub initialized")
	return nil
}

func eventSetEnabled(ctx *fctx.Context, name string) bool {
	if len(ctx.EnabledEventSets) == 0 {
		return false
	}
	for _, n := range ctx.EnabledEventSets {
		if n == name {
			return true
		}
	}
	return false
}

// builtinEventSets returns the event sets the Hub registers unconditionally
// at step 3 of Initialize, regardless of ctx.EnabledEventSets (spec.md
// §4.9 step 3 is distinct from the user-declared, opt-in sets discovered
// at step 4).
func builtinEventSets() []eventset.EventSet {
	return []eventset.EventSet{
		{
			Name:     "foundation.redact_defaults",
			Priority: 0,
			Transforms: []eventset.FieldTransform{
				{Field: "password", Transform: eventset.TransformRedact},
				{Field: "token", Transform: eventset.TransformRedact},
				{Field: "authorization", Transform: eventset.TransformRedact},
			},
		},
	}
}

func buildFormatter(ctx *fctx.Context) (pipeline.Formatter, error) {
	switch ctx.ConsoleFormatter {
	case "json":
		return pipeline.JSONFormatter{EmojiEnabled: ctx.EmojiEnabled}, nil
	case "key_value":
		return pipeline.KeyValueFormatter{EmojiEnabled: ctx.EmojiEnabled}, nil
	default:
		return nil, ferrors.InvalidConfiguration("hub", "buildFormatter", "unknown console_formatter: "+ctx.ConsoleFormatter)
	}
}

func buildSinks(ctx *fctx.Context, extra []sink.Sink) ([]sink.Sink, error) {
	if ctx.TelemetryDisabled {
		return []sink.Sink{sink.NullSink{}}, nil
	}
	sinks := []sink.Sink{sink.NewStdStreamSink(os.Stdout)}
	if ctx.LogFilePath != "" {
		fileSink, err := sink.NewFileSink(ctx.LogFilePath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fileSink)
	}
	sinks = append(sinks, extra...)
	return sinks, nil
}

// Shutdown flushes and closes every sink registered with the Logger Core
// (spec.md §5/§4.9: "Shutdown invokes flush then close on every registered
// sink" and "the Hub MUST ensure all sinks are flushed before exit"). It is
// a no-op on an uninitialized or already-shut-down Hub, so a deferred call
// right after Initialize is always safe.
func (h *Hub) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.core == nil {
		return nil
	}
	err := h.core.Close()
	h.initialized = false
	h.core = nil
	if err != nil {
		return ferrors.SinkWriteError("hub", "shutdown", "failed to close logger core").Wrap(err)
	}
	return nil
}

// ResetForTesting restores the Hub to its pre-init state (spec.md §4.9:
// "MUST restore registries, caches, and Context to their pristine
// post-import state").
func (h *Hub) ResetForTesting() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.core != nil {
		_ = h.core.Close()
	}
	h.registry.Reset()
	h.context = nil
	h.catalog = nil
	h.rlimits = nil
	h.core = nil
	h.initialized = false
}

// Initialized reports whether Initialize has completed successfully and
// not since been reset.
func (h *Hub) Initialized() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.initialized
}

// Logger returns a Logger bound to name, requiring a completed Initialize.
func (h *Hub) Logger(name string) (*flog.Logger, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.initialized {
		return nil, ferrors.InitializationFailure("hub", "logger", "hub is not initialized")
	}
	return h.core.Get(name), nil
}

// Context returns the active configuration snapshot.
func (h *Hub) Context() (*fctx.Context, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.initialized {
		return nil, ferrors.InitializationFailure("hub", "context", "hub is not initialized")
	}
	return h.context, nil
}

// RegisterEventSet adds es to the discoverable set consulted by the next
// Initialize/Initialize(force=true) call; it does not affect an already
// assembled catalog.
func (h *Hub) RegisterEventSet(es eventset.EventSet) error {
	return h.registry.Register(dimensionEventSet, es.Name, es, registry.Options{})
}

// RegisterCommand associates handler with a dotted command name (spec.md
// §6: "db.migrate" → nested group "db" with command "migrate"). category is
// stored as metadata for discovery/documentation purposes.
func (h *Hub) RegisterCommand(name string, handler CommandHandler, category string) error {
	return h.registry.Register(dimensionCommand, name, handler, registry.Options{
		Metadata: map[string]interface{}{"category": category},
	})
}

// GetComponent resolves name within dimension.
func (h *Hub) GetComponent(dimension, name string) (interface{}, bool) {
	if dimension == "" {
		dimension = dimensionDefault
	}
	return h.registry.Get(dimension, name)
}

// AddComponent registers value under name within dimension (defaulting to
// "component" when dimension is empty).
func (h *Hub) AddComponent(name string, value interface{}, dimension string) error {
	if dimension == "" {
		dimension = dimensionDefault
	}
	return h.registry.Register(dimension, name, value, registry.Options{})
}

// Collectors aggregates every Prometheus collector the Hub's subsystems
// expose, for registration with a metrics registry.
func (h *Hub) Collectors() []prometheus.Collector {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []prometheus.Collector
	if h.core != nil {
		out = append(out, h.core.Collectors()...)
	}
	if h.rlimits != nil {
		out = append(out, h.rlimits.Collectors()...)
	}
	return out
}
