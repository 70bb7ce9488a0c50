package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/board-hub/community-board/internal/domain/like"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIKE POST COMMAND
// Adds or removes a user's like. The membership row is written synchronously;
// the counter follows asynchronously.
// ══════════════════════════════════════════════════════════════════════════════

// LikePostCommand identifies the like.
type LikePostCommand struct {
	PostID int64
	UserID int64
}

// Validate validates the command.
func (c LikePostCommand) Validate() error {
	if c.PostID <= 0 {
		return shared.BadRequest("like", "Validate", shared.MsgValidPostIDRequired)
	}
	if c.UserID <= 0 {
		return shared.Unauthorized("like", "Validate", shared.MsgLoginRequired)
	}
	return nil
}

// LikePostResult carries the like count the caller should display.
type LikePostResult struct {
	LikeCount int64 `json:"likeCount"`

	// Changed is false for a duplicate like or an unlike of a missing like.
	Changed bool `json:"-"`
}

// LikePostHandler handles likes and unlikes.
type LikePostHandler struct {
	posts    post.Repository
	stats    post.StatRepository
	likes    like.Repository
	adjuster post.CounterAdjuster
	logger   *slog.Logger
}

// NewLikePostHandler creates a new LikePostHandler.
func NewLikePostHandler(
	posts post.Repository,
	stats post.StatRepository,
	likes like.Repository,
	adjuster post.CounterAdjuster,
	logger *slog.Logger,
) *LikePostHandler {
	return &LikePostHandler{
		posts:    posts,
		stats:    stats,
		likes:    likes,
		adjuster: adjuster,
		logger:   orDefault(logger),
	}
}

// Like records the like. The returned count is the stored counter plus one
// when the like is new, and the stored counter otherwise.
func (h *LikePostHandler) Like(ctx context.Context, cmd LikePostCommand) (*LikePostResult, error) {
	stat, err := h.prepare(ctx, cmd)
	if err != nil {
		return nil, err
	}

	added, err := h.likes.Add(ctx, cmd.PostID, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("like_post: add: %w", err)
	}
	if !added {
		return &LikePostResult{LikeCount: stat.Display().LikeCount}, nil
	}

	scheduleAdjust(h.adjuster, h.logger, cmd.PostID, post.FieldLike, 1)
	return &LikePostResult{LikeCount: stat.Optimistic(post.FieldLike, 1), Changed: true}, nil
}

// Unlike removes the like. The returned count never goes below zero.
func (h *LikePostHandler) Unlike(ctx context.Context, cmd LikePostCommand) (*LikePostResult, error) {
	stat, err := h.prepare(ctx, cmd)
	if err != nil {
		return nil, err
	}

	removed, err := h.likes.Remove(ctx, cmd.PostID, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("like_post: remove: %w", err)
	}
	if !removed {
		return &LikePostResult{LikeCount: stat.Display().LikeCount}, nil
	}

	scheduleAdjust(h.adjuster, h.logger, cmd.PostID, post.FieldLike, -1)
	return &LikePostResult{LikeCount: stat.Optimistic(post.FieldLike, -1), Changed: true}, nil
}

// prepare checks the post and reads the counter before the source write.
func (h *LikePostHandler) prepare(ctx context.Context, cmd LikePostCommand) (*post.Stat, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if _, err := h.posts.GetByID(ctx, cmd.PostID); err != nil {
		return nil, err
	}
	return currentStat(ctx, h.stats, cmd.PostID)
}

// currentStat reads the stat row, treating a missing row as all zeros.
func currentStat(ctx context.Context, stats post.StatRepository, postID int64) (*post.Stat, error) {
	st, err := stats.Get(ctx, postID)
	if shared.IsNotFound(err) {
		return &post.Stat{PostID: postID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	return st, nil
}
