package websession

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/board-hub/community-board/internal/domain/session"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// jsonStore round-trips records through JSON like the redis store does.
type jsonStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newJSONStore() *jsonStore { return &jsonStore{data: map[string][]byte{}} }

func (s *jsonStore) Save(_ context.Context, rec Record, _ time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.ID] = b
	return nil
}

func (s *jsonStore) Load(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	b, ok := s.data[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *jsonStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *jsonStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[id]
	return ok
}

func newTestManager(store Store) (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	cfg := DefaultConfig()
	cfg.Store = store
	cfg.Now = clock.Now
	return NewManager(cfg), clock
}

func TestManager_CreateAndGet(t *testing.T) {
	m, clock := newTestManager(nil)
	ctx := context.Background()

	s, err := m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	clock.Advance(10 * time.Minute)
	got, ok := m.Get(ctx, s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	last, err := got.LastAccessedTime()
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), last)
}

func TestManager_GetExpiredInvalidates(t *testing.T) {
	m, clock := newTestManager(nil)
	ctx := context.Background()

	var destroyed []string
	m.OnDestroyed(func(s session.Session) { destroyed = append(destroyed, s.ID()) })

	s, err := m.Create(ctx)
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	_, ok := m.Get(ctx, s.ID())
	assert.False(t, ok)
	assert.Equal(t, []string{s.ID()}, destroyed)
	assert.Zero(t, m.Len())

	_, err = s.Attribute(session.UserIDKey)
	assert.ErrorIs(t, err, session.ErrInvalidated)
}

func TestManager_ListenersFeedRegistry(t *testing.T) {
	m, _ := newTestManager(nil)
	reg := session.NewRegistry()
	m.OnCreated(reg.Register)
	m.OnDestroyed(reg.Unregister)

	s, err := m.Create(context.Background())
	require.NoError(t, err)
	assert.True(t, reg.Contains(s.ID()))

	require.NoError(t, s.Invalidate())
	assert.False(t, reg.Contains(s.ID()))
	assert.ErrorIs(t, s.Invalidate(), session.ErrInvalidated)
}

func TestManager_ListenerAddedWhileFiringRunsNextTime(t *testing.T) {
	m, _ := newTestManager(nil)
	var calls []string
	m.OnCreated(func(session.Session) {
		calls = append(calls, "first")
		m.OnCreated(func(session.Session) { calls = append(calls, "late") })
	})

	_, err := m.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, calls)

	calls = nil
	_, err = m.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "late"}, calls)
}

func TestManager_RestoresFromStore(t *testing.T) {
	store := newJSONStore()
	first, _ := newTestManager(store)
	ctx := context.Background()

	s, err := first.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SetAttribute(session.UserIDKey, int64(42)))
	require.NoError(t, s.SetAttribute(session.UserEmailKey, "a@example.com"))

	// A second process sharing the store.
	second, _ := newTestManager(store)
	reg := session.NewRegistry()
	second.OnCreated(reg.Register)

	got, ok := second.Get(ctx, s.ID())
	require.True(t, ok)
	assert.True(t, reg.Contains(s.ID()))

	id, ok := session.UserID(got)
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	email, err := got.Attribute(session.UserEmailKey)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)

	require.NoError(t, got.Invalidate())
	assert.False(t, store.has(s.ID()))
}

func TestManager_MiddlewareAndStart(t *testing.T) {
	m, _ := newTestManager(nil)

	var seen *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			s, err := m.Start(w, r)
			require.NoError(t, err)
			require.NoError(t, s.SetAttribute(session.UserIDKey, int64(7)))
			return
		}
		seen, _ = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	firstID := cookies[0].Value

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, firstID, seen.ID())

	// Logging in again rotates the id and kills the old session.
	req = httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	rotated := rec.Result().Cookies()
	require.Len(t, rotated, 1)
	assert.NotEqual(t, firstID, rotated[0].Value)
	assert.False(t, seen.IsValid())
	assert.Equal(t, 1, m.Len())
}

func TestManager_End(t *testing.T) {
	m, _ := newTestManager(nil)
	s, err := m.Create(context.Background())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/auth", nil)
	req = req.WithContext(WithSession(req.Context(), s))
	rec := httptest.NewRecorder()

	assert.True(t, m.End(rec, req))
	assert.False(t, s.IsValid())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	assert.False(t, m.End(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/auth", nil)))
}

func TestNormalizeNumber(t *testing.T) {
	assert.Equal(t, int64(5), normalizeNumber(json.Number("5")))
	assert.Equal(t, 1.5, normalizeNumber(json.Number("1.5")))
	assert.Equal(t, int64(3), normalizeNumber(float64(3)))
	assert.Equal(t, "x", normalizeNumber("x"))
}
