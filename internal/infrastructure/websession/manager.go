package websession

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/board-hub/community-board/internal/domain/session"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config configures a Manager.
type Config struct {
	Cookie CookieOptions

	// MaxInactive is given to new sessions. <= 0 means never expire.
	MaxInactive time.Duration

	// Store is optional; without it sessions live in process only.
	Store        Store
	StoreTimeout time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// DefaultConfig returns the in-process configuration with a 30 minute timeout.
func DefaultConfig() Config {
	return Config{
		Cookie:       CookieOptions{Name: DefaultCookieName, Path: "/"},
		MaxInactive:  30 * time.Minute,
		StoreTimeout: 2 * time.Second,
		Logger:       slog.Default(),
		Now:          time.Now,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MANAGER
// ══════════════════════════════════════════════════════════════════════════════

// Manager owns the live sessions of the process.
type Manager struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	live sync.Map // id -> *Session

	mu        sync.RWMutex
	created   []func(session.Session)
	destroyed []func(session.Session)
}

// NewManager creates a Manager.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 2 * time.Second
	}
	cfg.Cookie = cfg.Cookie.normalize()

	return &Manager{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "websession"),
		now:    cfg.Now,
	}
}

// OnCreated registers a listener called after a session is created or
// restored from the store.
func (m *Manager) OnCreated(fn func(session.Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, fn)
}

// OnDestroyed registers a listener called after a session is invalidated.
func (m *Manager) OnDestroyed(fn func(session.Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = append(m.destroyed, fn)
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Create starts a new session with a random id.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	s := newSession(id.String(), m.now(), m.cfg.MaxInactive)
	m.attach(s)
	m.live.Store(s.id, s)
	m.persist(ctx, s)

	m.logger.Debug("session created", "session_id", s.id)
	m.fire(m.listeners(true), s)
	return s, nil
}

// Get returns the live session for id and records the access. Expired
// sessions are invalidated on the way and reported as absent.
func (m *Manager) Get(ctx context.Context, id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	var s *Session
	if v, ok := m.live.Load(id); ok {
		s = v.(*Session)
	} else if restored := m.load(ctx, id); restored != nil {
		actual, loaded := m.live.LoadOrStore(id, restored)
		s = actual.(*Session)
		if !loaded {
			m.fire(m.listeners(true), s)
		}
	}
	if s == nil {
		return nil, false
	}

	now := m.now()
	expired, err := session.IsExpired(s, now)
	if err != nil {
		return nil, false
	}
	if expired {
		_ = s.Invalidate()
		return nil, false
	}
	if err := s.touch(now); err != nil {
		return nil, false
	}
	m.persist(ctx, s)
	return s, true
}

// Len counts sessions held in process.
func (m *Manager) Len() int {
	n := 0
	m.live.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP integration
// ─────────────────────────────────────────────────────────────────────────────

type contextKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session loaded for the request, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

// Middleware resolves the session cookie and puts the session in the request
// context. It never creates sessions.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := readCookie(r, m.cfg.Cookie); id != "" {
			if s, ok := m.Get(r.Context(), id); ok {
				r = r.WithContext(WithSession(r.Context(), s))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Start begins an authenticated session for the request. Any session the
// client already holds is invalidated first so its id cannot be reused.
func (m *Manager) Start(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if old, ok := FromContext(r.Context()); ok {
		_ = old.Invalidate()
	} else if old, ok := m.Get(r.Context(), readCookie(r, m.cfg.Cookie)); ok {
		_ = old.Invalidate()
	}

	s, err := m.Create(r.Context())
	if err != nil {
		return nil, err
	}
	SetCookie(w, s.ID(), m.cfg.Cookie)
	return s, nil
}

// End invalidates the request's session, if any, and clears the cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) bool {
	ended := false
	if s, ok := FromContext(r.Context()); ok {
		ended = s.Invalidate() == nil
	}
	ClearCookie(w, m.cfg.Cookie)
	return ended
}

// ─────────────────────────────────────────────────────────────────────────────
// Internals
// ─────────────────────────────────────────────────────────────────────────────

func (m *Manager) attach(s *Session) {
	s.onChange = func(s *Session) { m.persist(context.Background(), s) }
	s.onInvalidate = m.destroy
}

func (m *Manager) destroy(s *Session) {
	m.live.CompareAndDelete(s.id, s)

	if m.cfg.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StoreTimeout)
		defer cancel()
		if err := m.cfg.Store.Delete(ctx, s.id); err != nil {
			m.logger.Warn("failed to delete stored session", "session_id", s.id, "error", err)
		}
	}

	m.logger.Debug("session invalidated", "session_id", s.id)
	m.fire(m.listeners(false), s)
}

func (m *Manager) persist(ctx context.Context, s *Session) {
	if m.cfg.Store == nil {
		return
	}
	rec, ok := s.record()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.StoreTimeout)
	defer cancel()
	if err := m.cfg.Store.Save(ctx, rec, m.cfg.MaxInactive); err != nil {
		m.logger.Warn("failed to persist session", "session_id", s.id, "error", err)
	}
}

func (m *Manager) load(ctx context.Context, id string) *Session {
	if m.cfg.Store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()
	rec, err := m.cfg.Store.Load(ctx, id)
	if err != nil {
		m.logger.Warn("failed to load stored session", "session_id", id, "error", err)
		return nil
	}
	if rec == nil || rec.ID != id {
		return nil
	}

	s := restore(*rec)
	m.attach(s)
	return s
}

func (m *Manager) listeners(created bool) []func(session.Session) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if created {
		return slices.Clone(m.created)
	}
	return slices.Clone(m.destroyed)
}

func (m *Manager) fire(fns []func(session.Session), s *Session) {
	for _, fn := range fns {
		fn(s)
	}
}
