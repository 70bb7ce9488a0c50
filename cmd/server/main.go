// Package main is the entry point of the community board API server.
//
// The server owns the HTTP API, the cookie session runtime, the async post
// counter updater and the in-process scheduler that expires idle sessions
// and reconciles post counters.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"golang.org/x/sync/errgroup"

	"github.com/board-hub/community-board/config"
	"github.com/board-hub/community-board/internal/application/auth"
	"github.com/board-hub/community-board/internal/application/command"
	"github.com/board-hub/community-board/internal/application/query"
	"github.com/board-hub/community-board/internal/domain/comment"
	"github.com/board-hub/community-board/internal/domain/like"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/session"
	"github.com/board-hub/community-board/internal/domain/user"
	"github.com/board-hub/community-board/internal/infrastructure/messaging"
	"github.com/board-hub/community-board/internal/infrastructure/persistence/memory"
	"github.com/board-hub/community-board/internal/infrastructure/persistence/postgres"
	"github.com/board-hub/community-board/internal/infrastructure/persistence/redis"
	"github.com/board-hub/community-board/internal/infrastructure/scheduler"
	"github.com/board-hub/community-board/internal/infrastructure/scheduler/jobs"
	"github.com/board-hub/community-board/internal/infrastructure/security"
	"github.com/board-hub/community-board/internal/infrastructure/storage"
	"github.com/board-hub/community-board/internal/infrastructure/websession"
	"github.com/board-hub/community-board/internal/interface/http"
	"github.com/board-hub/community-board/internal/interface/http/handlers"
	"github.com/board-hub/community-board/pkg/circuitbreaker"
	"github.com/board-hub/community-board/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// repositories is the storage backend selected at startup.
type repositories struct {
	users    user.Repository
	posts    post.Repository
	stats    post.StatRepository
	likes    like.Repository
	comments comment.Repository

	ping  handlers.HealthCheckFunc
	close func()
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	figure.NewFigure(cfg.App.Name, "cybermedium", true).Print()

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logging
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	httpLog := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
		Format: logFormat(cfg),
	})
	log.Info("starting community board",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Storage
	// ─────────────────────────────────────────────────────────────────────────
	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.close()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Redis (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisClient *redis.Client
		sessionRepo websession.Store
		breaker     *circuitbreaker.CircuitBreaker
		limiter     http.RateLimiter
	)
	if cfg.Redis.Enabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}

		log.Info("connecting to redis", "addr", cfg.Redis.Addr())
		redisClient, err = redis.NewClient(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() {
			log.Info("closing redis connection")
			_ = redisClient.Close()
		}()

		breaker = circuitbreaker.SessionStoreBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		})
		sessionRepo = redis.NewSessionStore(redisClient, redis.WithBreaker(breaker))

		if cfg.HTTP.RateLimitPerMinute > 0 {
			limiter = redis.NewRateLimiter(redisClient, cfg.HTTP.RateLimitPerMinute, time.Minute, log)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Sessions
	// ─────────────────────────────────────────────────────────────────────────
	registry := session.NewRegistry()

	sessions := websession.NewManager(websession.Config{
		Cookie: websession.CookieOptions{
			Name:     cfg.Session.CookieName,
			Path:     cfg.Session.CookiePath,
			Secure:   cfg.Session.CookieSecure,
			SameSite: cfg.Session.SameSite,
		},
		MaxInactive: cfg.Session.Timeout,
		Store:       sessionRepo,
		Logger:      log,
	})
	sessions.OnCreated(registry.Register)
	sessions.OnDestroyed(registry.Unregister)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Post counter updater
	// ─────────────────────────────────────────────────────────────────────────
	updater := messaging.NewCounterUpdater(repos.stats, messaging.CounterUpdaterConfig{
		QueueSize:    cfg.Stats.QueueSize,
		Workers:      cfg.Stats.Workers,
		Overflow:     messaging.OverflowPolicy(cfg.Stats.OverflowPolicy),
		MaxAttempts:  cfg.Stats.MaxAttempts,
		InitialDelay: cfg.Stats.InitialDelay,
		MaxDelay:     cfg.Stats.MaxDelay,
		WriteTimeout: cfg.Stats.WriteTimeout,
		Logger:       log,
	})
	updater.Start()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Application services
	// ─────────────────────────────────────────────────────────────────────────
	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)

	objects, err := storage.NewLocalStorage(cfg.Image.BaseDir, log)
	if err != nil {
		return fmt.Errorf("failed to prepare image storage: %w", err)
	}

	syncStats := command.NewSyncPostStatsHandler(repos.posts, repos.stats, repos.likes, repos.comments)

	deps := http.Dependencies{
		Sessions: sessions,
		Auth:     auth.NewSessionService(repos.users, hasher),

		Users:     command.NewUserHandler(repos.users, hasher),
		Posts:     command.NewPostHandler(repos.posts, repos.users, cfg.Image.MaxPerPost),
		Likes:     command.NewLikePostHandler(repos.posts, repos.stats, repos.likes, updater, log),
		Comments:  command.NewCommentHandler(repos.posts, repos.users, repos.comments, updater, log),
		SyncStats: syncStats,
		Images: command.NewUploadImageHandler(repos.users, repos.posts, objects, command.UploadImageConfig{
			MaxFileSize:       cfg.Image.MaxFileSize,
			AllowedExtensions: cfg.Image.AllowedExtensions,
		}),

		UserQueries:  query.NewUserQueries(repos.users),
		ListPosts:    query.NewListPostsHandler(repos.posts, repos.users, repos.stats),
		PostDetail:   query.NewGetPostDetailHandler(repos.posts, repos.users, repos.stats, repos.comments, repos.likes, updater, log),
		ListComments: query.NewListCommentsHandler(repos.posts, repos.users, repos.comments),
		PostStats:    query.NewGetPostStatsHandler(repos.posts, repos.stats),

		Files:       objects.Handler(),
		RateLimiter: limiter,
		Logger:      httpLog,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. Scheduler
	// ─────────────────────────────────────────────────────────────────────────
	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.Logger = log
	if cfg.Scheduler.TickInterval > 0 {
		schedCfg.TickInterval = cfg.Scheduler.TickInterval
	}
	sched := scheduler.NewScheduler(schedCfg)

	expireJob := jobs.NewExpireSessionsJob(registry, nil, log)
	if err := sched.Register(expireJob, scheduler.NewFixedDelayScheduleMillis(cfg.Session.CleanupFixedDelayMs)); err != nil {
		return fmt.Errorf("failed to register %s: %w", expireJob.Name(), err)
	}
	if cfg.Stats.ReconcileInterval > 0 {
		reconcileJob := jobs.NewReconcilePostStatsJob(repos.posts, syncStats, jobs.ReconcilePostStatsConfig{
			BatchSize: cfg.Stats.ReconcileBatchSize,
			Timeout:   cfg.Stats.ReconcileInterval,
		}, log)
		if err := sched.Register(reconcileJob, scheduler.NewIntervalSchedule(cfg.Stats.ReconcileInterval)); err != nil {
			return fmt.Errorf("failed to register %s: %w", reconcileJob.Name(), err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. Health checks
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("storage", repos.ping)
	if redisClient != nil {
		health.AddCheck("redis", handlers.NewPingCheck(redisClient))
		health.AddDetail("session_store_breaker", func() any { return breaker.Snapshot() })
	}
	health.AddDetail("sessions", func() any {
		return map[string]int{"live": sessions.Len(), "registered": registry.Len()}
	})
	health.AddDetail("stats_updater", func() any { return updater.Metrics() })
	health.AddDetail("scheduler", func() any { return sched.GetMetrics().Snapshot() })
	deps.HealthChecker = health

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := http.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.MaxUploadBytes = cfg.Image.MaxFileSize
	serverCfg.Version = cfg.App.Version

	server := http.NewServer(serverCfg, deps)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. Run until signalled
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Scheduler.Enabled {
		if err := sched.Start(gctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		log.Warn("scheduler disabled, idle sessions will not be swept")
	}

	g.Go(func() error {
		log.Info("http server listening", "addr", server.Address())
		if err := server.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.App.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
		if sched.IsRunning() {
			if err := sched.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("scheduler: %w", err))
			}
		}
		if err := updater.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stats updater: %w", err))
		}
		log.Info("stats updater drained", "metrics", updater.Metrics())
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown completed")
	return nil
}

// openRepositories connects to PostgreSQL, or falls back to the in-memory
// store when no database URL is configured.
func openRepositories(ctx context.Context, cfg *config.Config, log *slog.Logger) (*repositories, error) {
	if cfg.UsesInMemoryStorage() {
		log.Warn("DATABASE_URL not set, using in-memory storage")
		store := memory.NewStore()
		return &repositories{
			users:    store.Users(),
			posts:    store.Posts(),
			stats:    store.Stats(),
			likes:    store.Likes(),
			comments: store.Comments(),
			ping:     handlers.NewPingCheck(store),
			close:    func() {},
		}, nil
	}

	log.Info("connecting to database")
	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, poolOptions(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date", "applied", applied)
	}

	return &repositories{
		users:    postgres.NewUserRepository(conn),
		posts:    postgres.NewPostRepository(conn),
		stats:    postgres.NewPostStatRepository(conn),
		likes:    postgres.NewLikeRepository(conn),
		comments: postgres.NewCommentRepository(conn),
		ping:     handlers.NewPingCheck(conn),
		close: func() {
			log.Info("closing database connection")
			conn.Close()
		},
	}, nil
}

func poolOptions(db config.DatabaseConfig) postgres.PoolOptions {
	opts := postgres.DefaultPoolOptions()
	if db.MaxConns > 0 {
		opts.MaxConns = int32(db.MaxConns)
	}
	if db.MinConns > 0 {
		opts.MinConns = int32(db.MinConns)
	}
	if db.ConnMaxLifetime > 0 {
		opts.MaxConnLifetime = db.ConnMaxLifetime
	}
	if db.ConnMaxIdleTime > 0 {
		opts.MaxConnIdleTime = db.ConnMaxIdleTime
	}
	if db.QueryTimeout > 0 {
		opts.QueryTimeout = db.QueryTimeout
	}
	return opts
}

// setupLogger configures the process-wide slog logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Observability.LogLevel)}

	var handler slog.Handler
	if logFormat(cfg) == logger.FormatJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("service", cfg.App.Name)
	slog.SetDefault(log)
	return log
}

func logFormat(cfg *config.Config) logger.Format {
	switch strings.ToLower(cfg.Observability.LogFormat) {
	case "json":
		return logger.FormatJSON
	case "text":
		return logger.FormatText
	}
	if cfg.IsProduction() {
		return logger.FormatJSON
	}
	return logger.FormatText
}

func slogLevel(level string) slog.Level {
	switch logger.ParseLevel(level) {
	case logger.LevelDebug:
		return slog.LevelDebug
	case logger.LevelWarn:
		return slog.LevelWarn
	case logger.LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
