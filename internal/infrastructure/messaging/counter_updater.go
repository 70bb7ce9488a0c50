// Package messaging runs the board's asynchronous write path: counter
// adjustments are queued in process and applied to the stats store by a
// worker pool, off the request goroutines.
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/pkg/retry"
)

// ErrUpdaterClosed is returned by Adjust after Stop.
var ErrUpdaterClosed = errors.New("counter updater: closed")

// OverflowPolicy decides what happens when the queue is full.
type OverflowPolicy string

const (
	// OverflowDropOldest discards the oldest pending adjustment to make room.
	OverflowDropOldest OverflowPolicy = "drop_oldest"

	// OverflowBlock makes the submitter wait for a free slot.
	OverflowBlock OverflowPolicy = "block"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// CounterUpdaterConfig configures a CounterUpdater.
type CounterUpdaterConfig struct {
	QueueSize int
	Workers   int
	Overflow  OverflowPolicy

	// Store writes are retried with exponential backoff.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// WriteTimeout bounds a single store write.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// DefaultCounterUpdaterConfig returns sensible defaults.
func DefaultCounterUpdaterConfig() CounterUpdaterConfig {
	return CounterUpdaterConfig{
		QueueSize:    1024,
		Workers:      4,
		Overflow:     OverflowDropOldest,
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		WriteTimeout: 3 * time.Second,
		Logger:       slog.Default(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// COUNTER UPDATER
// ══════════════════════════════════════════════════════════════════════════════

type adjustment struct {
	postID     int64
	field      post.Field
	delta      int
	enqueuedAt time.Time
}

// CounterUpdater implements post.CounterAdjuster. Adjust returns once the
// change is queued; workers apply it through StatRepository.Increment.
type CounterUpdater struct {
	stats   post.StatRepository
	config  CounterUpdaterConfig
	retrier *retry.Retrier
	logger  *slog.Logger

	queue chan adjustment

	// mu guards closed and the queue's send side.
	mu     sync.RWMutex
	closed bool

	stopping  chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
	started   atomic.Bool

	workCtx    context.Context
	cancelWork context.CancelFunc
	wg         sync.WaitGroup

	accepted   atomic.Int64
	applied    atomic.Int64
	retried    atomic.Int64
	dropped    atomic.Int64
	overflowed atomic.Int64
}

var _ post.CounterAdjuster = (*CounterUpdater)(nil)

// NewCounterUpdater creates an updater. Call Start to launch the workers.
func NewCounterUpdater(stats post.StatRepository, config CounterUpdaterConfig) *CounterUpdater {
	defaults := DefaultCounterUpdaterConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.Overflow != OverflowBlock {
		config.Overflow = OverflowDropOldest
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = defaults.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	u := &CounterUpdater{
		stats:    stats,
		config:   config,
		logger:   config.Logger.With("component", "counter_updater"),
		queue:    make(chan adjustment, config.QueueSize),
		stopping: make(chan struct{}),
	}
	u.workCtx, u.cancelWork = context.WithCancel(context.Background())

	u.retrier = retry.DatabaseRetrier(
		retry.WithMaxAttempts(config.MaxAttempts),
		retry.WithInitialDelay(config.InitialDelay),
		retry.WithMaxDelay(config.MaxDelay),
		retry.WithRetryIf(shared.IsRetryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			u.retried.Add(1)
			u.logger.Debug("retrying counter write",
				"attempt", attempt,
				"delay", delay.String(),
				"error", err,
			)
		}),
	)

	return u
}

// Start launches the worker pool. Calling it twice has no effect.
func (u *CounterUpdater) Start() {
	u.startOnce.Do(func() {
		u.started.Store(true)
		for i := 0; i < u.config.Workers; i++ {
			u.wg.Add(1)
			go u.worker()
		}
		u.logger.Info("counter updater started",
			"workers", u.config.Workers,
			"queue_size", u.config.QueueSize,
			"overflow", string(u.config.Overflow),
		)
	})
}

// Adjust queues delta for one counter of a post. It never waits for the
// write; the only errors are an invalid call and ErrUpdaterClosed.
func (u *CounterUpdater) Adjust(postID int64, field post.Field, delta int) error {
	if err := post.ValidateAdjustment(postID, field, delta); err != nil {
		return err
	}

	a := adjustment{postID: postID, field: field, delta: delta, enqueuedAt: time.Now()}

	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.closed {
		return ErrUpdaterClosed
	}

	if u.config.Overflow == OverflowBlock {
		select {
		case u.queue <- a:
		case <-u.stopping:
			return ErrUpdaterClosed
		}
		u.accepted.Add(1)
		return nil
	}

	for {
		select {
		case u.queue <- a:
			u.accepted.Add(1)
			return nil
		default:
		}

		// Full: evict the oldest and try again.
		select {
		case old := <-u.queue:
			u.overflowed.Add(1)
			u.logger.Warn("counter queue full, dropped oldest adjustment",
				"post_id", old.postID,
				"field", old.field.String(),
				"delta", old.delta,
			)
		default:
		}
	}
}

// Stop refuses new adjustments, drains the queue and waits for the workers.
// When ctx ends first, in-flight retries are cancelled and what remains is
// dropped.
func (u *CounterUpdater) Stop(ctx context.Context) error {
	u.stopOnce.Do(func() { close(u.stopping) })

	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	close(u.queue)
	u.mu.Unlock()

	if !u.started.Load() {
		for a := range u.queue {
			u.drop(a, ErrUpdaterClosed)
		}
		u.cancelWork()
		return nil
	}

	done := make(chan struct{})
	go func() {
		u.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		u.cancelWork()
		u.logger.Info("counter updater stopped", "applied", u.applied.Load(), "dropped", u.dropped.Load())
		return nil
	case <-ctx.Done():
		u.cancelWork()
		<-done
		u.logger.Warn("counter updater stopped before draining", "dropped", u.dropped.Load())
		return ctx.Err()
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Workers
// ─────────────────────────────────────────────────────────────────────────────

func (u *CounterUpdater) worker() {
	defer u.wg.Done()

	for a := range u.queue {
		if u.workCtx.Err() != nil {
			u.drop(a, u.workCtx.Err())
			continue
		}
		u.apply(a)
	}
}

func (u *CounterUpdater) apply(a adjustment) {
	err := u.retrier.Do(u.workCtx, func(ctx context.Context) error {
		writeCtx, cancel := context.WithTimeout(ctx, u.config.WriteTimeout)
		defer cancel()
		return u.stats.Increment(writeCtx, a.postID, a.field, a.delta)
	})
	if err != nil {
		u.drop(a, err)
		return
	}
	u.applied.Add(1)
}

func (u *CounterUpdater) drop(a adjustment, err error) {
	u.dropped.Add(1)
	u.logger.Warn("counter adjustment dropped",
		"post_id", a.postID,
		"field", a.field.String(),
		"delta", a.delta,
		"queued_for", time.Since(a.enqueuedAt).String(),
		"exhausted", retry.IsExhausted(err),
		"error", err,
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// CounterUpdaterMetrics is a point-in-time snapshot.
type CounterUpdaterMetrics struct {
	Accepted   int64 `json:"accepted"`
	Applied    int64 `json:"applied"`
	Retried    int64 `json:"retried"`
	Dropped    int64 `json:"dropped"`
	Overflowed int64 `json:"overflowed"`
	Pending    int   `json:"pending"`
}

// Metrics returns the current counters.
func (u *CounterUpdater) Metrics() CounterUpdaterMetrics {
	return CounterUpdaterMetrics{
		Accepted:   u.accepted.Load(),
		Applied:    u.applied.Load(),
		Retried:    u.retried.Load(),
		Dropped:    u.dropped.Load(),
		Overflowed: u.overflowed.Load(),
		Pending:    len(u.queue),
	}
}
