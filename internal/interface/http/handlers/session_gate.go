package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/board-hub/community-board/internal/domain/session"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION GATE
// Rejects requests without an authenticated session unless the route is
// public. The gate only reads session state.
// ══════════════════════════════════════════════════════════════════════════════

// SessionLookup returns the session already resolved for r, or nil.
type SessionLookup func(r *http.Request) session.Session

// Authenticator decides whether a session belongs to a logged-in user.
type Authenticator func(s session.Session) bool

// SessionGate is an http middleware enforcing login outside the public routes.
type SessionGate struct {
	lookup        SessionLookup
	authenticated Authenticator
	log           *logger.Logger
}

// NewSessionGate creates a gate.
func NewSessionGate(lookup SessionLookup, authenticated Authenticator, log *logger.Logger) *SessionGate {
	if log == nil {
		log = logger.Default()
	}
	return &SessionGate{
		lookup:        lookup,
		authenticated: authenticated,
		log:           log.With(logger.Component("session_gate")),
	}
}

var userPath = regexp.MustCompile(`^/users/[0-9]+$`)

// IsPublic reports whether method and path may be served without login.
func IsPublic(method, path string) bool {
	switch {
	case path == "/files" || strings.HasPrefix(path, "/files/"):
		return true
	case path == "/users/check-email" || path == "/users/check-nickname":
		return true
	case path == "/users":
		return method == http.MethodPost
	case userPath.MatchString(path):
		return method == http.MethodGet
	case path == "/auth":
		return method == http.MethodPost || method == http.MethodDelete
	}
	return false
}

// Middleware wraps next with the gate.
func (g *SessionGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || IsPublic(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if s := g.lookup(r); s != nil && g.authenticated(s) {
			next.ServeHTTP(w, r)
			return
		}

		g.log.Debug("unauthenticated request rejected",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", RequestID(r.Context())),
		)
		WriteError(w, r, http.StatusUnauthorized, CodeUnauthorized, shared.MsgLoginRequired)
	})
}
