package websession

import (
	"context"
	"encoding/json"
	"time"
)

// Record is the persisted form of a session.
type Record struct {
	ID                 string         `json:"id"`
	CreatedAt          time.Time      `json:"createdAt"`
	LastAccessedAt     time.Time      `json:"lastAccessedAt"`
	MaxInactiveSeconds int64          `json:"maxInactiveSeconds"`
	Attributes         map[string]any `json:"attributes,omitempty"`
}

// Store persists sessions so they survive a restart. Implementations must
// stay opaque: the runtime owns the live handles.
type Store interface {
	// Save writes rec; ttl <= 0 means no expiry.
	Save(ctx context.Context, rec Record, ttl time.Duration) error

	// Load returns nil, nil when the id is unknown.
	Load(ctx context.Context, id string) (*Record, error)

	Delete(ctx context.Context, id string) error
}

// restore rebuilds a live session from a record.
func restore(rec Record) *Session {
	s := newSession(rec.ID, rec.CreatedAt, time.Duration(rec.MaxInactiveSeconds)*time.Second)
	s.lastAccessed = rec.LastAccessedAt
	for k, v := range rec.Attributes {
		s.attrs[k] = normalizeNumber(v)
	}
	return s
}

// normalizeNumber turns decoded JSON numbers back into int64 when they are
// integral, so ids read from a store compare equal to ids set in process.
func normalizeNumber(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case float64:
		if n == float64(int64(n)) {
			return int64(n)
		}
		return n
	default:
		return v
	}
}
