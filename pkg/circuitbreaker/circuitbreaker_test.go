package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("down")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []string
	cb := New("store",
		WithFailureThreshold(2),
		WithTimeout(time.Hour),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)

	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	assert.True(t, cb.IsClosed())
	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	assert.True(t, cb.IsOpen())

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := New("store",
		WithFailureThreshold(1),
		WithSuccessThreshold(1),
		WithTimeout(time.Millisecond),
	)
	require.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	require.True(t, cb.IsOpen())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, cb.Execute(context.Background(), ok))
	assert.True(t, cb.IsClosed())
}

func TestCircuitBreaker_Fallback(t *testing.T) {
	cb := New("store", WithFailureThreshold(1), WithTimeout(time.Hour))
	_ = cb.Execute(context.Background(), fail)

	err := cb.ExecuteWithFallback(context.Background(), ok, func(err error) error {
		assert.ErrorIs(t, err, ErrCircuitOpen)
		return nil
	})
	assert.NoError(t, err)
}

func TestSessionStoreBreaker_IgnoresCancellation(t *testing.T) {
	cb := SessionStoreBreaker(nil)
	for i := 0; i < 5; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	}
	assert.True(t, cb.IsClosed())

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	assert.True(t, cb.IsOpen())
	assert.Equal(t, "session-store", cb.Name())
}

func TestCircuitBreaker_SnapshotAndReset(t *testing.T) {
	opened := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cb := New("store", WithFailureThreshold(1))
	cb.now = func() time.Time { return opened }

	_ = cb.Execute(context.Background(), fail)
	snap := cb.Snapshot()
	assert.Equal(t, "open", snap.State)
	assert.Equal(t, opened, snap.OpenedAt)
	assert.Equal(t, 1, snap.Counts.TotalFailures)

	cb.Reset()
	snap = cb.Snapshot()
	assert.Equal(t, "closed", snap.State)
	assert.True(t, snap.OpenedAt.IsZero())
	assert.Equal(t, Counts{}, snap.Counts)
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cb := New("store", WithFailureThreshold(1), WithTimeout(time.Minute))
	cb.now = func() time.Time { return now }

	_ = cb.Execute(context.Background(), fail)
	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	assert.True(t, cb.IsOpen())
	assert.ErrorIs(t, cb.Execute(context.Background(), ok), ErrCircuitOpen)
}
