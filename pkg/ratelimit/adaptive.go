package ratelimit

import (
	"sync"
	"time"
)

// AdaptiveLimiter decorates a TokenBucket with latency-aware rate
// narrowing, generalized from the teacher's
// pkg/ratelimit.AdaptiveRateLimiter: a sliding window of observed
// operation latencies drives periodic adjustment of the wrapped bucket's
// effective rate, widening when latency is comfortably under target and
// narrowing when it exceeds it. This is a SPEC_FULL supplement (§5) on top
// of the spec's flat token bucket — useful for a sink that must back off
// under write-latency pressure without the caller tracking it explicitly.
type AdaptiveLimiter struct {
	mu sync.Mutex

	base       *TokenBucket
	targetLat  time.Duration
	tolerance  float64 // fraction above target still considered healthy
	minRPS     float64
	maxRPS     float64
	currentRPS float64
	capacity   float64
	clock      Clock

	window []time.Duration
	cursor int

	cooldown     time.Duration
	lastAdapted  time.Time
}

// AdaptiveConfig configures an AdaptiveLimiter.
type AdaptiveConfig struct {
	InitialRPS      float64
	MinRPS          float64
	MaxRPS          float64
	Capacity        float64
	LatencyTarget   time.Duration
	LatencyTolerance float64 // e.g. 0.2 = 20% over target still healthy
	WindowSize      int
	AdaptCooldown   time.Duration
	Clock           Clock
}

// NewAdaptive builds an AdaptiveLimiter wrapping a fresh TokenBucket seeded
// at cfg.InitialRPS.
func NewAdaptive(cfg AdaptiveConfig) *AdaptiveLimiter {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 50
	}
	if cfg.AdaptCooldown <= 0 {
		cfg.AdaptCooldown = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = cfg.InitialRPS
	}
	return &AdaptiveLimiter{
		base:       New(cfg.Capacity, cfg.InitialRPS, cfg.Clock),
		targetLat:  cfg.LatencyTarget,
		tolerance:  cfg.LatencyTolerance,
		minRPS:     cfg.MinRPS,
		maxRPS:     cfg.MaxRPS,
		currentRPS: cfg.InitialRPS,
		capacity:   cfg.Capacity,
		clock:      cfg.Clock,
		window:     make([]time.Duration, cfg.WindowSize),
		cooldown:   cfg.AdaptCooldown,
	}
}

// TryAcquire delegates admission to the wrapped bucket.
func (a *AdaptiveLimiter) TryAcquire(cost float64) bool {
	return a.base.TryAcquire(cost, time.Time{})
}

// Observe records the latency of a completed operation and, on each call,
// may adjust the wrapped bucket's rate once the adaptation cooldown has
// elapsed (teacher's AdaptiveRateLimiter.adapt()).
func (a *AdaptiveLimiter) Observe(latency time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.window[a.cursor] = latency
	a.cursor = (a.cursor + 1) % len(a.window)

	now := a.clock()
	if now.Sub(a.lastAdapted) < a.cooldown {
		return
	}
	a.lastAdapted = now

	avg := a.averageLocked()
	if avg <= 0 || a.targetLat <= 0 {
		return
	}
	healthyCeiling := time.Duration(float64(a.targetLat) * (1 + a.tolerance))

	switch {
	case avg > healthyCeiling && a.currentRPS > a.minRPS:
		a.currentRPS *= 0.8
	case avg < a.targetLat && a.currentRPS < a.maxRPS:
		a.currentRPS *= 1.1
	default:
		return
	}
	a.currentRPS = clamp(a.currentRPS, a.minRPS, a.maxRPS)
	a.base = New(a.capacity, a.currentRPS, a.clock)
}

func (a *AdaptiveLimiter) averageLocked() time.Duration {
	var total time.Duration
	var n int
	for _, d := range a.window {
		if d > 0 {
			total += d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

// CurrentRPS returns the limiter's current effective rate.
func (a *AdaptiveLimiter) CurrentRPS() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRPS
}

func clamp(v, min, max float64) float64 {
	if max > 0 && v > max {
		return max
	}
	if v < min {
		return min
	}
	return v
}
