package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/board-hub/community-board/internal/infrastructure/websession"
	"github.com/board-hub/community-board/pkg/circuitbreaker"
)

// SessionStore implements websession.Store. Each session is one JSON value
// whose TTL is refreshed to the max inactive interval on every save.
type SessionStore struct {
	client  *Client
	prefix  string
	breaker *circuitbreaker.CircuitBreaker
}

var _ websession.Store = (*SessionStore)(nil)

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithBreaker routes every store call through cb. While it is open, calls
// fail fast with circuitbreaker.ErrCircuitOpen and sessions live in process.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) SessionStoreOption {
	return func(s *SessionStore) {
		s.breaker = cb
	}
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *Client, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		client: client,
		prefix: PrefixSession,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *SessionStore) do(ctx context.Context, fn func(context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	return s.breaker.Execute(ctx, fn)
}

func (s *SessionStore) Save(ctx context.Context, rec websession.Record, ttl time.Duration) error {
	if rec.ID == "" {
		return fmt.Errorf("session store: missing session id")
	}
	return s.do(ctx, func(ctx context.Context) error {
		return s.client.SetJSON(ctx, s.key(rec.ID), rec, ttl)
	})
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (*websession.Record, error) {
	if sessionID == "" {
		return nil, nil
	}

	var (
		rec   websession.Record
		found bool
	)
	err := s.do(ctx, func(ctx context.Context) error {
		err := s.client.GetJSON(ctx, s.key(sessionID), &rec)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.client.Delete(ctx, s.key(sessionID))
	})
}
