package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/board-hub/community-board/internal/domain/session"
	"github.com/board-hub/community-board/pkg/logger"
)

type gateSession struct {
	attrs map[string]any
}

func (s *gateSession) ID() string { return "s" }
func (s *gateSession) CreationTime() (time.Time, error) { return time.Time{}, nil }
func (s *gateSession) LastAccessedTime() (time.Time, error) { return time.Time{}, nil }
func (s *gateSession) MaxInactiveInterval() (time.Duration, error) { return 0, nil }
func (s *gateSession) Attribute(k string) (any, error) { return s.attrs[k], nil }
func (s *gateSession) SetAttribute(k string, v any) error { s.attrs[k] = v; return nil }
func (s *gateSession) RemoveAttribute(k string) error { delete(s.attrs, k); return nil }
func (s *gateSession) Invalidate() error { return nil }

func newGate(s session.Session) http.Handler {
	lookup := func(*http.Request) session.Session { return s }
	authenticated := func(s session.Session) bool {
		_, ok := session.UserID(s)
		return ok
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return NewSessionGate(lookup, authenticated, logger.Discard()).Middleware(next)
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestIsPublic(t *testing.T) {
	cases := []struct {
		method, path string
		public       bool
	}{
		{http.MethodGet, "/files/post/1/images/a.png", true},
		{http.MethodGet, "/files", true},
		{http.MethodGet, "/users/check-email", true},
		{http.MethodPost, "/users/check-nickname", true},
		{http.MethodPost, "/users", true},
		{http.MethodGet, "/users", false},
		{http.MethodGet, "/users/42", true},
		{http.MethodPatch, "/users/42", false},
		{http.MethodGet, "/users/abc", false},
		{http.MethodGet, "/users/42/password", false},
		{http.MethodPost, "/auth", true},
		{http.MethodDelete, "/auth", true},
		{http.MethodGet, "/auth/me", false},
		{http.MethodGet, "/posts", false},
		{http.MethodGet, "/filesystem", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.public, IsPublic(c.method, c.path), "%s %s", c.method, c.path)
	}
}

func TestSessionGate_RejectsWithoutSession(t *testing.T) {
	rec := serve(newGate(nil), http.MethodGet, "/posts")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "unauthorized", body.Error.Code)
	assert.Equal(t, "login required", body.Error.Message)
}

func TestSessionGate_RejectsAnonymousSession(t *testing.T) {
	rec := serve(newGate(&gateSession{attrs: map[string]any{}}), http.MethodPost, "/posts")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionGate_PassesAuthenticatedSession(t *testing.T) {
	s := &gateSession{attrs: map[string]any{session.UserIDKey: int64(7)}}
	rec := serve(newGate(s), http.MethodGet, "/posts")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestSessionGate_BypassesPreflightAndPublicRoutes(t *testing.T) {
	h := newGate(nil)
	assert.Equal(t, http.StatusTeapot, serve(h, http.MethodOptions, "/posts").Code)
	assert.Equal(t, http.StatusTeapot, serve(h, http.MethodPost, "/auth").Code)
	assert.Equal(t, http.StatusTeapot, serve(h, http.MethodGet, "/users/1").Code)
}
