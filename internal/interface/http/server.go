// Package http exposes the board's REST API: accounts, sessions, posts,
// likes, comments, stats and images, behind the session gate.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/board-hub/community-board/internal/application/auth"
	"github.com/board-hub/community-board/internal/application/command"
	"github.com/board-hub/community-board/internal/application/query"
	"github.com/board-hub/community-board/internal/infrastructure/websession"
	"github.com/board-hub/community-board/internal/interface/http/handlers"
	"github.com/board-hub/community-board/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string

	// RateLimitPerMinute is requests per minute per client IP (0 = disabled).
	RateLimitPerMinute int

	// MaxUploadBytes caps an image file; the multipart body may exceed it
	// by the form overhead.
	MaxUploadBytes int64

	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		AllowedOrigins:     []string{"http://localhost:3000"},
		RateLimitPerMinute: 0,
		MaxUploadBytes:     10 << 20,
		Version:            "v1",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains everything the handlers call into.
type Dependencies struct {
	Sessions *websession.Manager
	Auth     *auth.SessionService

	// Commands
	Users     *command.UserHandler
	Posts     *command.PostHandler
	Likes     *command.LikePostHandler
	Comments  *command.CommentHandler
	SyncStats *command.SyncPostStatsHandler
	Images    *command.UploadImageHandler

	// Queries
	UserQueries  *query.UserQueries
	ListPosts    *query.ListPostsHandler
	PostDetail   *query.GetPostDetailHandler
	ListComments *query.ListCommentsHandler
	PostStats    *query.GetPostStatsHandler

	// Files serves stored images below /files/.
	Files http.Handler

	// RateLimiter is optional; without it an in-process limiter is used
	// when the config enables rate limiting.
	RateLimiter RateLimiter

	HealthChecker handlers.HealthChecker
	Logger        *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	handler    http.Handler
	logger     *logger.Logger

	rateLimiter RateLimiter
	ownLimiter  *memoryRateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	if s.deps.HealthChecker == nil {
		s.deps.HealthChecker = handlers.NewCompositeHealthChecker(config.Version)
	}

	s.rateLimiter = deps.RateLimiter
	if s.rateLimiter == nil && config.RateLimitPerMinute > 0 {
		s.ownLimiter = newMemoryRateLimiter(config.RateLimitPerMinute, time.Minute)
		s.rateLimiter = s.ownLimiter
	}

	s.handler = s.buildHandler()
	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// buildHandler mounts the probes on an outer mux and the API behind the
// session loader and the gate.
func (s *Server) buildHandler() http.Handler {
	api := http.NewServeMux()
	s.setupRoutes(api)

	gate := handlers.NewSessionGate(currentSession, s.deps.Auth.IsAuthenticated, s.logger)
	gated := handlers.ChainHandler(api, s.deps.Sessions.Middleware, gate.Middleware)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", s.handleHealth)
	root.HandleFunc("GET /ready", s.handleReady)
	root.HandleFunc("GET /live", s.handleLive)
	root.Handle("/", gated)

	var rateLimit handlers.MiddlewareFunc
	if s.rateLimiter != nil {
		rateLimit = s.rateLimitMiddleware
	}

	return handlers.ChainHandler(root,
		s.recoveryMiddleware,
		s.requestIDMiddleware,
		s.loggingMiddleware,
		handlers.SecurityHeadersMiddleware,
		s.corsMiddleware,
		rateLimit,
	)
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// ─────────────────────────────────────────────────────────────────────────
	// Sessions
	// ─────────────────────────────────────────────────────────────────────────
	mux.Handle("POST /auth", handlers.NoCacheMiddleware(http.HandlerFunc(s.handleLogin)))
	mux.Handle("DELETE /auth", handlers.NoCacheMiddleware(http.HandlerFunc(s.handleLogout)))
	mux.Handle("GET /auth/me", handlers.NoCacheMiddleware(http.HandlerFunc(s.handleMe)))

	// ─────────────────────────────────────────────────────────────────────────
	// Users
	// ─────────────────────────────────────────────────────────────────────────
	mux.HandleFunc("POST /users", s.handleRegister)
	mux.HandleFunc("GET /users/check-email", s.handleCheckEmail)
	mux.HandleFunc("GET /users/check-nickname", s.handleCheckNickname)
	mux.HandleFunc("GET /users/{id}", s.handleGetUser)
	mux.HandleFunc("PATCH /users/{id}", s.handleUpdateUser)
	mux.HandleFunc("PATCH /users/{id}/password", s.handleChangePassword)
	mux.HandleFunc("DELETE /users/{id}", s.handleDeleteUser)

	// ─────────────────────────────────────────────────────────────────────────
	// Posts, likes and stats
	// ─────────────────────────────────────────────────────────────────────────
	mux.HandleFunc("GET /posts", s.handleListPosts)
	mux.HandleFunc("POST /posts", s.handleCreatePost)
	mux.HandleFunc("GET /posts/{id}", s.handleGetPost)
	mux.HandleFunc("PATCH /posts/{id}", s.handleUpdatePost)
	mux.HandleFunc("DELETE /posts/{id}", s.handleDeletePost)
	mux.HandleFunc("POST /posts/{id}/likes", s.handleLike)
	mux.HandleFunc("DELETE /posts/{id}/likes", s.handleUnlike)
	mux.HandleFunc("GET /posts/{id}/stats", s.handleGetStats)
	mux.HandleFunc("POST /posts/{id}/stats/sync", s.handleSyncStats)

	// ─────────────────────────────────────────────────────────────────────────
	// Comments
	// ─────────────────────────────────────────────────────────────────────────
	mux.HandleFunc("GET /posts/{id}/comments", s.handleListComments)
	mux.HandleFunc("POST /posts/{id}/comments", s.handleCreateComment)
	mux.HandleFunc("PATCH /comments/{id}", s.handleUpdateComment)
	mux.HandleFunc("DELETE /comments/{id}", s.handleDeleteComment)

	// ─────────────────────────────────────────────────────────────────────────
	// Images
	// ─────────────────────────────────────────────────────────────────────────
	upload := handlers.RequestSizeLimitMiddleware(s.config.MaxUploadBytes + multipartOverhead)
	mux.Handle("POST /images", upload(http.HandlerFunc(s.handleUploadImage)))
	if s.deps.Files != nil {
		mux.Handle("GET /files/", http.StripPrefix("/files/", s.deps.Files))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start listens and serves until Shutdown. It returns nil after a graceful
// shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.stopLimiter()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	err := s.httpServer.Shutdown(ctx)
	s.stopLimiter()
	return err
}

func (s *Server) stopLimiter() {
	if s.ownLimiter != nil {
		s.ownLimiter.Stop()
	}
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
