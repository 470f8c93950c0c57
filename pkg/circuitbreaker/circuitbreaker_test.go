package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("connection refused")

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func fail(context.Context) error    { return errDown }
func succeed(context.Context) error { return nil }

func TestBreaker_OpensAfterThresholdAndRecovers(t *testing.T) {
	clk := &clock{now: time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)}
	var transitions []string
	cb := New("cache",
		WithFailureThreshold(2),
		WithSuccessThreshold(1),
		WithCoolDown(10*time.Second),
		WithClock(clk.Now),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		}),
	)
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Execute(ctx, func(context.Context) error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsRejection(err))
	assert.Zero(t, calls)

	clk.Advance(10 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, transitions)
	counts := cb.Counts()
	assert.Equal(t, 3, counts.Requests)
	assert.Equal(t, 1, counts.Rejected)
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	clk := &clock{now: time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)}
	cb := New("cache", WithFailureThreshold(1), WithCoolDown(time.Second), WithClock(clk.Now))
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.Equal(t, StateOpen, cb.State())

	clk.Advance(time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	// The cool-down restarts from the failed probe.
	clk.Advance(500 * time.Millisecond)
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)
}

func TestBreaker_ProbeBudget(t *testing.T) {
	clk := &clock{now: time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)}
	cb := New("cache", WithFailureThreshold(1), WithSuccessThreshold(2), WithCoolDown(time.Second), WithClock(clk.Now))
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clk.Advance(time.Second)

	// The first probe is still running when a second call arrives.
	err := cb.Execute(ctx, func(ctx context.Context) error {
		assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrTooManyProbes)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_IgnoresCallerCancellation(t *testing.T) {
	cb := New("cache", WithFailureThreshold(1))
	ctx := context.Background()

	err := cb.Execute(ctx, func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())

	cb = New("cache", WithFailureThreshold(1), WithIsFailure(func(err error) bool { return !errors.Is(err, errDown) }))
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_Reset(t *testing.T) {
	cb := New("cache", WithFailureThreshold(1))
	_ = cb.Execute(context.Background(), fail)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{}, cb.Counts())
	assert.Equal(t, "cache", cb.Name())
}
