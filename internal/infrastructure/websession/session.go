// Package websession is the cookie-based session runtime: it creates, looks
// up, touches, persists and invalidates sessions, and tells listeners when a
// session starts or ends.
package websession

import (
	"sync"
	"time"

	"github.com/board-hub/community-board/internal/domain/session"
)

// Session is the runtime's session handle. It is safe for concurrent use;
// once invalidated every accessor returns session.ErrInvalidated.
type Session struct {
	mu sync.Mutex

	id           string
	createdAt    time.Time
	lastAccessed time.Time
	maxInactive  time.Duration
	attrs        map[string]any
	invalid      bool

	// Set by the manager.
	onChange     func(*Session)
	onInvalidate func(*Session)
}

var _ session.Session = (*Session)(nil)

func newSession(id string, now time.Time, maxInactive time.Duration) *Session {
	return &Session{
		id:           id,
		createdAt:    now,
		lastAccessed: now,
		maxInactive:  maxInactive,
		attrs:        make(map[string]any),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreationTime() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalid {
		return time.Time{}, session.ErrInvalidated
	}
	return s.createdAt, nil
}

func (s *Session) LastAccessedTime() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalid {
		return time.Time{}, session.ErrInvalidated
	}
	return s.lastAccessed, nil
}

func (s *Session) MaxInactiveInterval() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalid {
		return 0, session.ErrInvalidated
	}
	return s.maxInactive, nil
}

func (s *Session) Attribute(key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalid {
		return nil, session.ErrInvalidated
	}
	return s.attrs[key], nil
}

// SetAttribute stores a value; a nil value removes the key.
func (s *Session) SetAttribute(key string, value any) error {
	s.mu.Lock()
	if s.invalid {
		s.mu.Unlock()
		return session.ErrInvalidated
	}
	if value == nil {
		delete(s.attrs, key)
	} else {
		s.attrs[key] = value
	}
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(s)
	}
	return nil
}

func (s *Session) RemoveAttribute(key string) error {
	return s.SetAttribute(key, nil)
}

// Invalidate ends the session. Only the first call succeeds.
func (s *Session) Invalidate() error {
	s.mu.Lock()
	if s.invalid {
		s.mu.Unlock()
		return session.ErrInvalidated
	}
	s.invalid = true
	s.attrs = nil
	onInvalidate := s.onInvalidate
	s.mu.Unlock()

	if onInvalidate != nil {
		onInvalidate(s)
	}
	return nil
}

// IsValid reports whether the session has not been invalidated.
func (s *Session) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.invalid
}

// touch records an access at now.
func (s *Session) touch(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalid {
		return session.ErrInvalidated
	}
	if now.After(s.lastAccessed) {
		s.lastAccessed = now
	}
	return nil
}

// record copies the persistent state. ok is false once invalidated.
func (s *Session) record() (rec Record, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalid {
		return Record{}, false
	}
	attrs := make(map[string]any, len(s.attrs))
	for k, v := range s.attrs {
		attrs[k] = v
	}
	return Record{
		ID:                 s.id,
		CreatedAt:          s.createdAt,
		LastAccessedAt:     s.lastAccessed,
		MaxInactiveSeconds: int64(s.maxInactive / time.Second),
		Attributes:         attrs,
	}, true
}
