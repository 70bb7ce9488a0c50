package post

import (
	"context"
	"time"

	"github.com/board-hub/community-board/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

// Field names one counter of a Stat.
type Field int

const (
	FieldView Field = iota + 1
	FieldLike
	FieldComment
)

// String returns the field's wire name.
func (f Field) String() string {
	switch f {
	case FieldView:
		return "view"
	case FieldLike:
		return "like"
	case FieldComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Valid reports whether f names a known counter.
func (f Field) Valid() bool {
	return f >= FieldView && f <= FieldComment
}

// Stat is the denormalized counter row of a post. Stored counters may dip
// below zero transiently; Display clamps them.
type Stat struct {
	PostID       int64
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
	UpdatedAt    time.Time
}

// Get returns the counter for f.
func (s Stat) Get(f Field) int64 {
	switch f {
	case FieldView:
		return s.ViewCount
	case FieldLike:
		return s.LikeCount
	case FieldComment:
		return s.CommentCount
	default:
		return 0
	}
}

// Add applies delta to the counter for f.
func (s *Stat) Add(f Field, delta int64) {
	switch f {
	case FieldView:
		s.ViewCount += delta
	case FieldLike:
		s.LikeCount += delta
	case FieldComment:
		s.CommentCount += delta
	}
}

// Display returns a copy with every counter clamped at zero.
func (s Stat) Display() Stat {
	s.ViewCount = clamp(s.ViewCount)
	s.LikeCount = clamp(s.LikeCount)
	s.CommentCount = clamp(s.CommentCount)
	return s
}

// Optimistic returns the displayed value of f as if delta had already been
// applied. Used to answer a request before its adjustment lands.
func (s Stat) Optimistic(f Field, delta int64) int64 {
	return clamp(s.Get(f) + delta)
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// ValidateAdjustment checks an Adjust call.
func ValidateAdjustment(postID int64, f Field, delta int) error {
	if postID <= 0 {
		return shared.BadRequest("stats", "Adjust", shared.MsgValidPostIDRequired)
	}
	if !f.Valid() {
		return shared.BadRequest("stats", "Adjust", "unknown counter field")
	}
	if delta != 1 && delta != -1 {
		return shared.BadRequest("stats", "Adjust", "delta must be +1 or -1")
	}
	return nil
}

// CounterAdjuster schedules a counter change without waiting for it.
// It returns an error only when the call itself is invalid or the
// adjuster no longer accepts work.
type CounterAdjuster interface {
	Adjust(postID int64, field Field, delta int) error
}

// StatRepository is the counter store.
type StatRepository interface {
	// Create inserts a zero row; a no-op when the row exists.
	Create(ctx context.Context, postID int64) error

	// Get returns a NotFound error when the post has no row.
	Get(ctx context.Context, postID int64) (*Stat, error)

	// GetMany returns the rows that exist among postIDs.
	GetMany(ctx context.Context, postIDs []int64) (map[int64]*Stat, error)

	// Increment atomically adds delta to one counter, creating the row if
	// needed. Returns a NotFound error when the post does not exist.
	Increment(ctx context.Context, postID int64, field Field, delta int) error

	// Overwrite sets the like and comment counters, preserving the view
	// counter, and returns the stored row.
	Overwrite(ctx context.Context, postID int64, likeCount, commentCount int64) (*Stat, error)
}
