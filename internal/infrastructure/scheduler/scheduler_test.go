package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j *funcJob) Name() string { return j.name }
func (j *funcJob) Description() string { return "test job" }
func (j *funcJob) Run(ctx context.Context) error { return j.run(ctx) }

func testScheduler() *Scheduler {
	cfg := DefaultSchedulerConfig()
	cfg.TickInterval = 5 * time.Millisecond
	return NewScheduler(cfg)
}

func TestScheduler_RegisterValidation(t *testing.T) {
	s := testScheduler()
	job := &funcJob{name: "a", run: func(context.Context) error { return nil }}

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Second)), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Second)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Second)), ErrJobAlreadyExists)

	require.NoError(t, s.Unregister("a"))
	assert.ErrorIs(t, s.Unregister("a"), ErrJobNotFound)
}

func TestScheduler_FixedDelayFirstRunHonoursInitialDelay(t *testing.T) {
	s := testScheduler()
	job := &funcJob{name: "sweep", run: func(context.Context) error { return nil }}
	before := time.Now()
	require.NoError(t, s.Register(job, &FixedDelaySchedule{Delay: time.Hour, InitialDelay: time.Minute}))

	info, err := s.GetJobInfo("sweep")
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(time.Minute), info.NextRun, time.Second)
	assert.Equal(t, "@fixed-delay 1h0m0s", info.Schedule)
}

func TestScheduler_FixedDelayNeverOverlaps(t *testing.T) {
	s := testScheduler()

	var active, maxActive, runs atomic.Int32
	job := &funcJob{name: "slow", run: func(ctx context.Context) error {
		n := active.Add(1)
		defer active.Add(-1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		runs.Add(1)
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	}}
	require.NoError(t, s.Register(job, NewFixedDelaySchedule(time.Millisecond)))

	completed := make(chan JobResult, 16)
	s.OnJobComplete(func(r JobResult) {
		select {
		case completed <- r:
		default:
		}
	})

	require.NoError(t, s.Start(context.Background()))
	first := <-completed
	second := <-completed
	require.NoError(t, s.Stop())

	assert.Equal(t, int32(1), maxActive.Load())
	assert.GreaterOrEqual(t, runs.Load(), int32(2))
	assert.False(t, second.StartedAt.Before(first.CompletedAt))
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	s := testScheduler()
	started := make(chan struct{})
	var cancelled atomic.Bool
	job := &funcJob{name: "block", run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}}
	require.NoError(t, s.Register(job, NewFixedDelaySchedule(time.Hour)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	<-started
	require.NoError(t, s.Stop())

	assert.True(t, cancelled.Load())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_RunNowRecordsResult(t *testing.T) {
	s := testScheduler()
	boom := errors.New("boom")
	job := &funcJob{name: "fail", run: func(context.Context) error { return boom }}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "fail")
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.True(t, result.Manual)

	info, err := s.GetJobInfo("fail")
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.RunCount)
	assert.Equal(t, int64(1), info.FailCount)

	snap := s.GetMetrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalFailures)
	assert.Equal(t, JobCounts{Executions: 1, Failures: 1}, snap.Jobs["fail"])

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := testScheduler()
	job := &funcJob{name: "panic", run: func(context.Context) error { panic("bad") }}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "panic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job panicked")
	assert.False(t, result.Success)
}
