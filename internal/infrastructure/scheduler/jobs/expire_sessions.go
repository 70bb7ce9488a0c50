// Package jobs contains the board's scheduled background jobs.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/board-hub/community-board/internal/domain/session"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE SESSIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ExpireSessionsJob invalidates registered sessions that have been idle longer
// than their max inactive interval and removes them from the registry.
//
// Each run works on a snapshot; sessions registered meanwhile are picked up
// by the next run.
type ExpireSessionsJob struct {
	registry *session.Registry
	now      func() time.Time
	logger   *slog.Logger

	lastResult atomic.Pointer[SweepResult]
}

// SweepResult summarises one pass over the registry.
type SweepResult struct {
	Scanned        int
	Expired        int
	AlreadyInvalid int
}

// Pruned is the number of sessions removed from the registry.
func (r SweepResult) Pruned() int {
	return r.Expired + r.AlreadyInvalid
}

// NewExpireSessionsJob creates the sweeper. now defaults to time.Now.
func NewExpireSessionsJob(registry *session.Registry, now func() time.Time, logger *slog.Logger) *ExpireSessionsJob {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpireSessionsJob{
		registry: registry,
		now:      now,
		logger:   logger.With("job", "expire_sessions"),
	}
}

// Name returns the job name.
func (j *ExpireSessionsJob) Name() string {
	return "expire_sessions"
}

// Description returns a human-readable description.
func (j *ExpireSessionsJob) Description() string {
	return "Invalidates idle sessions and prunes them from the registry"
}

// Run performs one sweep. It only fails when ctx is cancelled mid-sweep.
func (j *ExpireSessionsJob) Run(ctx context.Context) error {
	result, err := j.Sweep(ctx)
	j.lastResult.Store(&result)
	if err != nil {
		return err
	}

	if result.Pruned() == 0 {
		j.logger.Debug("no sessions pruned", "scanned", result.Scanned)
		return nil
	}
	j.logger.Info("sessions pruned",
		"scanned", result.Scanned,
		"expired", result.Expired,
		"already_invalid", result.AlreadyInvalid,
		"remaining", j.registry.Len(),
	)
	return nil
}

// Sweep checks every session in a registry snapshot.
func (j *ExpireSessionsJob) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := j.now()

	for _, s := range j.registry.Snapshot() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++

		expired, err := session.IsExpired(s, now)
		if errors.Is(err, session.ErrInvalidated) {
			j.registry.Unregister(s)
			result.AlreadyInvalid++
			continue
		}
		if err != nil {
			j.logger.Warn("session check failed", "session_id", s.ID(), "error", err)
			continue
		}
		if !expired {
			continue
		}

		if err := s.Invalidate(); err != nil && !errors.Is(err, session.ErrInvalidated) {
			j.logger.Warn("session invalidate failed", "session_id", s.ID(), "error", err)
		}
		j.registry.Unregister(s)
		result.Expired++
	}

	return result, nil
}

// LastResult returns the outcome of the most recent run, if any.
func (j *ExpireSessionsJob) LastResult() (SweepResult, bool) {
	r := j.lastResult.Load()
	if r == nil {
		return SweepResult{}, false
	}
	return *r, true
}
