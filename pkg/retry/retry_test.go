package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sswlabs/foundation/pkg/ferrors"
)

func instantSleep(recorded *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
}

func TestMaxAttemptsOneMeansSingleInvocationNoSuspension(t *testing.T) {
	calls := 0
	var delays []time.Duration
	err := Execute(context.Background(), Policy{
		MaxAttempts: 1,
		BaseDelay:   10 * time.Millisecond,
		Sleep:       instantSleep(&delays),
	}, func(ctx context.Context) error {
		calls++
		return errors.New("fail")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestScenarioFiveExponentialBackoffWithJitter(t *testing.T) {
	calls := 0
	var delays []time.Duration
	err := Execute(context.Background(), Policy{
		MaxAttempts: 4,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    80 * time.Millisecond,
		Backoff:     BackoffExponential,
		Jitter:      0.2,
		Rand:        func() float64 { return 0.5 }, // mid-range, deterministic
		Sleep:       instantSleep(&delays),
	}, func(ctx context.Context) error {
		calls++
		if calls < 4 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	require.Len(t, delays, 3)

	base := 10 * time.Millisecond
	for i, d := range delays {
		n := i + 1
		unclamped := base * time.Duration(1<<uint(n-1))
		clamped := unclamped
		if clamped > 80*time.Millisecond {
			clamped = 80 * time.Millisecond
		}
		upperBound := time.Duration(float64(clamped) * 1.1) // jitter/2 overshoot allowed
		assert.LessOrEqual(t, d, upperBound, "delay %d exceeds permitted overshoot", n)
	}
}

func TestRetryExhaustedAfterMaxAttempts(t *testing.T) {
	calls := 0
	var delays []time.Duration
	permanent := errors.New("permanent")
	err := Execute(context.Background(), Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep:       instantSleep(&delays),
	}, func(ctx context.Context) error {
		calls++
		return permanent
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, ferrors.KindRetryExhausted, ferrors.Of(err))
	var re *ferrors.RetryExhaustedError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 3, re.Attempts)
}

func TestNonRetryableErrorPropagatesImmediately(t *testing.T) {
	calls := 0
	sentinel := errors.New("do not retry me")
	err := Execute(context.Background(), Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, sentinel) },
	}, func(ctx context.Context) error {
		calls++
		return sentinel
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, sentinel)
}

func TestCancellationDuringSuspensionPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Execute(ctx, Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}, func(ctx context.Context) error {
		calls++
		return errors.New("retry me")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestFixedAndLinearDelayFormulas(t *testing.T) {
	p := Policy{BaseDelay: 10 * time.Millisecond, Backoff: BackoffFixed}
	assert.Equal(t, 10*time.Millisecond, Delay(p, 1))
	assert.Equal(t, 10*time.Millisecond, Delay(p, 5))

	p.Backoff = BackoffLinear
	assert.Equal(t, 30*time.Millisecond, Delay(p, 3))
}
