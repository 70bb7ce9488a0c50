package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/board-hub/community-board/internal/application/command"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE POST STATS JOB
// ══════════════════════════════════════════════════════════════════════════════

// PostStatsSyncer reconciles one post's counters.
type PostStatsSyncer interface {
	Handle(ctx context.Context, cmd command.SyncPostStatsCommand) (*post.Stat, error)
}

// ReconcilePostStatsConfig contains configuration for the job.
type ReconcilePostStatsConfig struct {
	// BatchSize is the number of post ids fetched per page.
	BatchSize int

	// Timeout bounds a full pass. Zero means no limit.
	Timeout time.Duration
}

// DefaultReconcilePostStatsConfig returns default configuration.
func DefaultReconcilePostStatsConfig() ReconcilePostStatsConfig {
	return ReconcilePostStatsConfig{
		BatchSize: 100,
		Timeout:   30 * time.Minute,
	}
}

// ReconcileStats summarises one pass.
type ReconcileStats struct {
	StartedAt  time.Time
	Duration   time.Duration
	Scanned    int
	Reconciled int
	Failed     int
}

// ReconcilePostStatsJob walks every post and overwrites its like and comment
// counters with the live counts, healing adjustments the updater dropped.
type ReconcilePostStatsJob struct {
	posts  post.Repository
	syncer PostStatsSyncer
	config ReconcilePostStatsConfig
	logger *slog.Logger

	lastRunStats atomic.Pointer[ReconcileStats]
}

// NewReconcilePostStatsJob creates the job.
func NewReconcilePostStatsJob(
	posts post.Repository,
	syncer PostStatsSyncer,
	config ReconcilePostStatsConfig,
	logger *slog.Logger,
) *ReconcilePostStatsJob {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultReconcilePostStatsConfig().BatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcilePostStatsJob{
		posts:  posts,
		syncer: syncer,
		config: config,
		logger: logger.With("job", "reconcile_post_stats"),
	}
}

// Name returns the job name.
func (j *ReconcilePostStatsJob) Name() string {
	return "reconcile_post_stats"
}

// Description returns a human-readable description.
func (j *ReconcilePostStatsJob) Description() string {
	return "Recomputes like and comment counters for every post"
}

// Run executes one full pass. A failing post is logged and skipped; only a
// listing error or cancellation aborts the pass.
func (j *ReconcilePostStatsJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	stats := &ReconcileStats{StartedAt: time.Now()}
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		j.lastRunStats.Store(stats)
	}()

	var after int64
	for {
		ids, err := j.posts.ListIDs(ctx, after, j.config.BatchSize)
		if err != nil {
			return fmt.Errorf("reconcile_post_stats: list posts after %d: %w", after, err)
		}

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats.Scanned++

			if _, err := j.syncer.Handle(ctx, command.SyncPostStatsCommand{PostID: id}); err != nil {
				if shared.IsNotFound(err) {
					continue
				}
				stats.Failed++
				j.logger.Warn("post reconciliation failed", "post_id", id, "error", err)
				continue
			}
			stats.Reconciled++
		}

		if len(ids) < j.config.BatchSize {
			break
		}
		after = ids[len(ids)-1]
	}

	j.logger.Info("post stats reconciled",
		"scanned", stats.Scanned,
		"reconciled", stats.Reconciled,
		"failed", stats.Failed,
		"duration", time.Since(stats.StartedAt).String(),
	)
	return nil
}

// LastRunStats returns statistics from the most recent pass.
func (j *ReconcilePostStatsJob) LastRunStats() *ReconcileStats {
	return j.lastRunStats.Load()
}
