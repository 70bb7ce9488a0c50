// Package session describes the web sessions the board authenticates with and
// the registry that tracks the live ones for expiry sweeping.
package session

import (
	"errors"
	"time"
)

// Attribute keys stored on an authenticated session.
const (
	UserIDKey    = "userId"
	UserEmailKey = "userEmail"
)

// ErrInvalidated is returned by every accessor of an invalidated session.
var ErrInvalidated = errors.New("session invalidated")

// Session is a handle owned by the web runtime. Callers hold it without
// extending its life.
type Session interface {
	ID() string

	CreationTime() (time.Time, error)
	LastAccessedTime() (time.Time, error)

	// MaxInactiveInterval <= 0 means the session never expires.
	MaxInactiveInterval() (time.Duration, error)

	Attribute(key string) (any, error)
	SetAttribute(key string, value any) error
	RemoveAttribute(key string) error

	Invalidate() error
}

// IsExpired reports whether s has been idle longer than its max inactive
// interval at now. Sessions with a non-positive interval never expire.
func IsExpired(s Session, now time.Time) (bool, error) {
	maxInactive, err := s.MaxInactiveInterval()
	if err != nil {
		return false, err
	}
	if maxInactive <= 0 {
		return false, nil
	}
	last, err := s.LastAccessedTime()
	if err != nil {
		return false, err
	}
	return now.Sub(last) > maxInactive, nil
}

// UserID extracts the authenticated user id. ok is false when the attribute
// is absent, of the wrong type, or the session is invalidated.
func UserID(s Session) (id int64, ok bool) {
	if s == nil {
		return 0, false
	}
	v, err := s.Attribute(UserIDKey)
	if err != nil || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, n > 0
	case int:
		return int64(n), n > 0
	case float64:
		return int64(n), n > 0
	default:
		return 0, false
	}
}
