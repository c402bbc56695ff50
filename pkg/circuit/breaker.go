// Package circuit implements the failure-count circuit breaker state
// machine described in spec.md §4.6 (C6): closed -> open -> half_open,
// with atomic probe admission in half_open to prevent over-admission.
//
// Adapted from the teacher's pkg/circuit/breaker.go 3-phase
// lock/execute/lock pattern (lock for admission check, run the guarded
// function unlocked so calls can proceed in parallel, lock again to record
// the outcome), generalized to the spec's exact probe-count semantics and
// an injectable clock for deterministic tests.
package circuit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sswlabs/foundation/pkg/ferrors"
)

// State is one of the three circuit breaker states (spec.md §3).
type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half_open"
)

// Clock abstracts time.Now for deterministic tests, mirroring the time
// source injection required of the rate limiter (spec.md §4.4).
type Clock func() time.Time

// Config configures a Breaker.
type Config struct {
	Name               string
	FailureThreshold   int
	RecoveryTimeout    time.Duration
	HalfOpenProbeCount int
	Clock              Clock
}

func (c *Config) setDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 30 * time.Second
	}
	if c.HalfOpenProbeCount <= 0 {
		c.HalfOpenProbeCount = 1
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Breaker is a single named circuit breaker instance, safe for concurrent
// use (spec.md §3 CircuitState, §5 shared-resource policy).
type Breaker struct {
	cfg Config
	mu  sync.Mutex

	state               State
	failureCount        int
	consecutiveSuccesses int
	openedAt            time.Time
	probeSlotsRemaining int

	stateGauge prometheus.Gauge
}

// stateValue maps State to the Prometheus gauge's numeric encoding.
func stateValue(s State) float64 {
	switch s {
	case Closed:
		return 0
	case HalfOpen:
		return 1
	case Open:
		return 2
	default:
		return -1
	}
}

// New constructs a Breaker in the closed state (spec.md §4.6 Initial state).
func New(cfg Config) *Breaker {
	cfg.setDefaults()
	b := &Breaker{cfg: cfg, state: Closed}
	b.stateGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "foundation_circuit_breaker_state",
		Help:        "Current circuit breaker state: 0=closed 1=half_open 2=open.",
		ConstLabels: prometheus.Labels{"name": cfg.Name},
	})
	b.stateGauge.Set(stateValue(Closed))
	return b
}

// Collector exposes the breaker's state gauge for registration with a
// prometheus.Registerer.
func (b *Breaker) Collector() prometheus.Collector { return b.stateGauge }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn under the breaker's protection. In the open state, calls
// are rejected with ferrors.KindCircuitOpen until RecoveryTimeout has
// elapsed since opening, at which point the breaker transitions to
// half_open and admits up to HalfOpenProbeCount concurrent probes.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn()

	b.record(err)
	return err
}

// admit performs the admission check (spec.md §4.6 "closed"/"open"
// transitions), returning a CircuitOpen error if the call must be
// rejected, otherwise reserving a half-open probe slot if applicable.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.cfg.Clock()

	if b.state == Open {
		if now.Sub(b.openedAt) < b.cfg.RecoveryTimeout {
			return ferrors.CircuitOpen("circuit", "execute").WithMeta("name", b.cfg.Name)
		}
		b.transitionTo(HalfOpen, now)
	}

	if b.state == HalfOpen {
		if b.probeSlotsRemaining <= 0 {
			return ferrors.CircuitOpen("circuit", "execute").
				WithMeta("name", b.cfg.Name).WithMeta("reason", "half_open_probe_exhausted")
		}
		b.probeSlotsRemaining--
	}

	return nil
}

// record applies the outcome of a guarded call (spec.md §4.6 success/
// failure handling for closed/half_open).
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.cfg.Clock()

	switch b.state {
	case Closed:
		if err != nil {
			b.failureCount++
			if b.failureCount >= b.cfg.FailureThreshold {
				b.transitionTo(Open, now)
			}
			return
		}
		b.failureCount = 0

	case HalfOpen:
		if err != nil {
			b.transitionTo(Open, now)
			return
		}
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.cfg.HalfOpenProbeCount {
			b.transitionTo(Closed, now)
		}

	case Open:
		// A call admitted before the breaker (re)opened, such as a closed-
		// state call or a concurrent half-open probe, may still be in
		// flight; its outcome no longer matters to state.
	}
}

// transitionTo must be called with b.mu held.
func (b *Breaker) transitionTo(to State, now time.Time) {
	b.state = to
	switch to {
	case Open:
		b.openedAt = now
		b.failureCount = 0
		b.consecutiveSuccesses = 0
		b.probeSlotsRemaining = 0
	case HalfOpen:
		b.probeSlotsRemaining = b.cfg.HalfOpenProbeCount
		b.consecutiveSuccesses = 0
	case Closed:
		b.failureCount = 0
		b.consecutiveSuccesses = 0
	}
	b.stateGauge.Set(stateValue(to))
}

// Reset forces the breaker back to closed, used by Hub.ResetForTesting.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(Closed, b.cfg.Clock())
}
