package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func isBoom(err error) bool { return errors.Is(err, errBoom) }

func fast(extra ...Option) *Retrier {
	return DatabaseRetrier(append([]Option{
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(2 * time.Millisecond),
		WithJitter(0),
	}, extra...)...)
}

func TestDo_SucceedsAfterRetryableFailures(t *testing.T) {
	var calls int32
	err := fast(WithMaxAttempts(3), WithRetryIf(isBoom)).Do(context.Background(), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errBoom
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls)
}

func TestDo_RejectedErrorStopsImmediately(t *testing.T) {
	errFatal := errors.New("constraint violated")
	var calls int
	err := fast(WithMaxAttempts(5), WithRetryIf(isBoom)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errFatal
	})

	assert.ErrorIs(t, err, errFatal)
	assert.False(t, IsExhausted(err))
	assert.Equal(t, 1, calls)
}

func TestDo_NothingRetriedWithoutRetryIf(t *testing.T) {
	var calls int
	err := fast().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int
	err := fast(WithMaxAttempts(4), WithRetryIf(isBoom)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errBoom
	})

	assert.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 4, calls)
}

func TestDo_OnRetryCalledBetweenAttempts(t *testing.T) {
	var seen []int
	r := fast(WithMaxAttempts(3), WithRetryIf(isBoom), WithOnRetry(func(attempt int, err error, _ time.Duration) {
		seen = append(seen, attempt)
		assert.ErrorIs(t, err, errBoom)
	}))
	_ = r.Do(context.Background(), func(ctx context.Context) error { return errBoom })

	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Do(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelay_CappedAtMax(t *testing.T) {
	r := New(WithInitialDelay(10*time.Millisecond), WithMaxDelay(25*time.Millisecond), WithJitter(0))
	assert.Equal(t, 10*time.Millisecond, r.delay(1))
	assert.Equal(t, 20*time.Millisecond, r.delay(2))
	assert.Equal(t, 25*time.Millisecond, r.delay(3))
}
