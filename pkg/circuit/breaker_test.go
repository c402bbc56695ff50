package circuit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sswlabs/foundation/pkg/ferrors"
)

// TestMain guards the probe-slot admission test below, the one place in
// this package that drives the breaker from more than one goroutine.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time    { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestScenarioFourTransitions(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := New(Config{
		Name:               "db",
		FailureThreshold:   2,
		RecoveryTimeout:    100 * time.Millisecond,
		HalfOpenProbeCount: 1,
		Clock:              clock.Now,
	})

	failing := errors.New("boom")
	require.ErrorIs(t, b.Execute(func() error { return failing }), failing)
	assert.Equal(t, Closed, b.State())
	require.ErrorIs(t, b.Execute(func() error { return failing }), failing)
	assert.Equal(t, Open, b.State())

	// Rejected while still within recovery timeout.
	err := b.Execute(func() error { return nil })
	require.Error(t, err)
	assert.Equal(t, ferrors.KindCircuitOpen, ferrors.Of(err))
	assert.Equal(t, Open, b.State())

	clock.Advance(100*time.Millisecond + time.Microsecond)

	// Probe succeeds -> closed.
	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, Closed, b.State())
}

func TestHalfOpenFailingProbeReturnsToOpen(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenProbeCount: 1, Clock: clock.Now})

	require.Error(t, b.Execute(func() error { return errors.New("x") }))
	assert.Equal(t, Open, b.State())

	clock.Advance(11 * time.Millisecond)
	require.Error(t, b.Execute(func() error { return errors.New("still failing") }))
	assert.Equal(t, Open, b.State())
}

func TestHalfOpenProbeSlotsCapAdmission(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenProbeCount: 1, Clock: clock.Now})
	require.Error(t, b.Execute(func() error { return errors.New("x") }))
	clock.Advance(11 * time.Millisecond)

	b.mu.Lock()
	b.state = HalfOpen
	b.probeSlotsRemaining = 1
	b.mu.Unlock()

	release := make(chan struct{})
	go func() {
		_ = b.Execute(func() error {
			<-release
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond) // let the goroutine take the only slot

	err := b.Execute(func() error { return nil })
	require.Error(t, err)
	assert.Equal(t, ferrors.KindCircuitOpen, ferrors.Of(err))
	close(release)
}

func TestQuantifiedInvariantFourConsecutiveFailuresOpen(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	const threshold = 3
	b := New(Config{FailureThreshold: threshold, RecoveryTimeout: time.Second, Clock: clock.Now})
	for i := 0; i < threshold; i++ {
		_ = b.Execute(func() error { return errors.New("x") })
	}
	assert.Equal(t, Open, b.State())
	err := b.Execute(func() error { return nil })
	assert.Equal(t, ferrors.KindCircuitOpen, ferrors.Of(err))
}

func TestResetForcesClosed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: time.Hour, Clock: clock.Now})
	_ = b.Execute(func() error { return errors.New("x") })
	require.Equal(t, Open, b.State())
	b.Reset()
	assert.Equal(t, Closed, b.State())
}
