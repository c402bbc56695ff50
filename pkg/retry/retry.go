// Package retry implements the policy-driven retry executor described in
// spec.md §4.5 (C5): configurable backoff strategies, jitter, a retryable
// predicate, and context-cancellation-aware suspension.
//
// Adapted from the teacher's internal/dispatcher.RetryManager (which
// schedules exponential-backoff retries per failed batch item, bounded by a
// semaphore of concurrent retries) generalized from a fire-and-forget
// dispatcher worker into a synchronous Execute call the caller awaits.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/sswlabs/foundation/pkg/ferrors"
)

// Backoff selects the delay growth formula (spec.md §3 RetryPolicy).
type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// RetryablePredicate classifies whether err should trigger another attempt.
// A nil predicate treats every non-nil error as retryable.
type RetryablePredicate func(err error) bool

// Policy configures a retry run (spec.md §3 RetryPolicy).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Backoff     Backoff
	Jitter      float64 // in [0, 1]
	Retryable   RetryablePredicate

	// Sleep overrides time.Sleep-via-timer for tests; it must honor ctx
	// cancellation the same way the default implementation does.
	Sleep func(ctx context.Context, d time.Duration) error

	// Rand overrides the jitter random source for deterministic tests.
	Rand func() float64
}

func (p *Policy) isRetryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delay computes the un-jittered delay awaited after failed attempt n
// (1-indexed), before attempt n+1, clamped to MaxDelay when MaxDelay > 0.
func Delay(policy Policy, n int) time.Duration {
	var d time.Duration
	switch policy.Backoff {
	case BackoffLinear:
		d = policy.BaseDelay * time.Duration(n)
	case BackoffExponential:
		d = policy.BaseDelay * time.Duration(1<<uint(n-1))
	default: // BackoffFixed and unset
		d = policy.BaseDelay
	}
	if policy.MaxDelay > 0 && d > policy.MaxDelay {
		d = policy.MaxDelay
	}
	return d
}

// ApplyJitter scales d by (1 - jitter/2 + rand()*jitter), per spec.md §4.5.
// The result may exceed d by up to jitter/2 — the spec explicitly sides
// with "overshoot permitted" over a hard clamp (§9 open question).
func ApplyJitter(d time.Duration, jitter float64, randFn func() float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	if randFn == nil {
		randFn = rand.Float64
	}
	factor := 1 - jitter/2 + randFn()*jitter
	return time.Duration(float64(d) * factor)
}

// Execute invokes operation up to policy.MaxAttempts times. On success it
// returns nil immediately. On a non-retryable error it propagates that
// error unchanged. After exhausting all attempts on retryable errors it
// returns a *ferrors.RetryExhaustedError. Cancellation of ctx during a
// between-attempt suspension propagates ctx.Err() instead of completing
// the retry (spec.md §4.5 Cancellation).
func Execute(ctx context.Context, policy Policy, operation func(ctx context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = defaultSleep
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}
		if !policy.isRetryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		delay := Delay(policy, attempt)
		delay = ApplyJitter(delay, policy.Jitter, policy.Rand)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return ferrors.RetryExhausted("retry", "execute", policy.MaxAttempts, lastErr)
}
