// Package main is the entry point of the board's background worker.
//
// The worker reconciles post like and comment counters against the source
// tables. It runs next to one or more API servers that share the same
// database, so counter drift left by dropped async adjustments heals even
// when the servers run with reconciliation disabled.
//
// Usage:
//
//	worker          run the reconciliation job on STATS_RECONCILE_INTERVAL
//	worker -once    run one pass and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/board-hub/community-board/config"
	"github.com/board-hub/community-board/internal/application/command"
	"github.com/board-hub/community-board/internal/infrastructure/persistence/postgres"
	"github.com/board-hub/community-board/internal/infrastructure/scheduler"
	"github.com/board-hub/community-board/internal/infrastructure/scheduler/jobs"
)

// defaultReconcileInterval applies when the shared config disables the job.
const defaultReconcileInterval = 10 * time.Minute

func main() {
	once := flag.Bool("once", false, "run a single reconciliation pass and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, *once); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, once bool) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.UsesInMemoryStorage() {
		return errors.New("DATABASE_URL is required")
	}

	figure.NewFigure(cfg.App.Name+" worker", "cybermedium", true).Print()

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logging
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting worker", "env", cfg.App.Environment, "once", once)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Database
	// ─────────────────────────────────────────────────────────────────────────
	opts := postgres.DefaultPoolOptions()
	opts.MaxConns = 4
	opts.MinConns = 1
	if cfg.Database.QueryTimeout > 0 {
		opts.QueryTimeout = cfg.Database.QueryTimeout
	}

	log.Info("connecting to database")
	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		conn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Migrations
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date", "applied", applied)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Job
	// ─────────────────────────────────────────────────────────────────────────
	posts := postgres.NewPostRepository(conn)
	syncer := command.NewSyncPostStatsHandler(
		posts,
		postgres.NewPostStatRepository(conn),
		postgres.NewLikeRepository(conn),
		postgres.NewCommentRepository(conn),
	)

	interval := cfg.Stats.ReconcileInterval
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	job := jobs.NewReconcilePostStatsJob(posts, syncer, jobs.ReconcilePostStatsConfig{
		BatchSize: cfg.Stats.ReconcileBatchSize,
		Timeout:   interval,
	}, log)

	if once {
		if err := job.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", job.Name(), err)
		}
		if last := job.LastRunStats(); last != nil && last.Failed > 0 {
			return fmt.Errorf("%s: %d posts failed", job.Name(), last.Failed)
		}
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Scheduler
	// ─────────────────────────────────────────────────────────────────────────
	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.Logger = log
	if cfg.Scheduler.TickInterval > 0 {
		schedCfg.TickInterval = cfg.Scheduler.TickInterval
	}
	sched := scheduler.NewScheduler(schedCfg)

	if err := sched.Register(job, &scheduler.FixedDelaySchedule{Delay: interval}); err != nil {
		return fmt.Errorf("failed to register %s: %w", job.Name(), err)
	}
	sched.OnJobComplete(func(r scheduler.JobResult) {
		if !r.Success {
			log.Error("job failed", "job", r.JobName, "error", r.Error)
		}
	})

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("worker is running", "interval", interval.String())

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("received shutdown signal", "timeout", cfg.App.ShutdownTimeout.String())

	done := make(chan error, 1)
	go func() { done <- sched.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
	case <-time.After(cfg.App.ShutdownTimeout):
		return errors.New("shutdown timed out waiting for running jobs")
	}

	log.Info("shutdown completed")
	return nil
}

// setupLogger configures structured logging.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if strings.EqualFold(cfg.Observability.LogLevel, "debug") {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() || strings.EqualFold(cfg.Observability.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("service", cfg.App.Name+"-worker")
	slog.SetDefault(log)
	return log
}
