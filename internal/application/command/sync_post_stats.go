// Package command contains the board's write operations. Each command is a
// plain struct handled by a dedicated handler.
package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/board-hub/community-board/internal/domain/comment"
	"github.com/board-hub/community-board/internal/domain/like"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC POST STATS COMMAND
// Recomputes a post's like and comment counters from the source tables.
// ══════════════════════════════════════════════════════════════════════════════

// SyncPostStatsCommand names the post to reconcile.
type SyncPostStatsCommand struct {
	PostID int64
}

// Validate validates the command.
func (c SyncPostStatsCommand) Validate() error {
	if c.PostID <= 0 {
		return shared.BadRequest("stats", "Sync", shared.MsgValidPostIDRequired)
	}
	return nil
}

// SyncPostStatsHandler overwrites the stored like and comment counters with
// the live counts. The view counter has no source table and is kept.
type SyncPostStatsHandler struct {
	posts    post.Repository
	stats    post.StatRepository
	likes    like.Repository
	comments comment.Repository

	group   singleflight.Group
	timeout time.Duration
}

// syncTimeout bounds one shared reconciliation of a post.
const syncTimeout = 30 * time.Second

// NewSyncPostStatsHandler creates a new SyncPostStatsHandler.
func NewSyncPostStatsHandler(
	posts post.Repository,
	stats post.StatRepository,
	likes like.Repository,
	comments comment.Repository,
) *SyncPostStatsHandler {
	return &SyncPostStatsHandler{
		posts:    posts,
		stats:    stats,
		likes:    likes,
		comments: comments,
		timeout:  syncTimeout,
	}
}

// Handle reconciles one post. Concurrent calls for the same post share a
// single store round trip. The shared run is detached from the caller that
// started it, so a cancelled caller returns early without failing the rest.
func (h *SyncPostStatsHandler) Handle(ctx context.Context, cmd SyncPostStatsCommand) (*post.Stat, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	ch := h.group.DoChan(strconv.FormatInt(cmd.PostID, 10), func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
		defer cancel()
		return h.sync(runCtx, cmd.PostID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		st := *res.Val.(*post.Stat)
		return &st, nil
	}
}

func (h *SyncPostStatsHandler) sync(ctx context.Context, postID int64) (*post.Stat, error) {
	// Soft-deleted posts keep their stat rows, so they stay reconcilable.
	exists, err := h.posts.Exists(ctx, postID, true)
	if err != nil {
		return nil, fmt.Errorf("sync_post_stats: check post: %w", err)
	}
	if !exists {
		return nil, shared.NotFound("stats", "Sync", shared.MsgPostNotFound)
	}

	likeCount, err := h.likes.CountByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("sync_post_stats: count likes: %w", err)
	}
	commentCount, err := h.comments.CountActiveByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("sync_post_stats: count comments: %w", err)
	}

	st, err := h.stats.Overwrite(ctx, postID, likeCount, commentCount)
	if err != nil {
		return nil, fmt.Errorf("sync_post_stats: overwrite: %w", err)
	}
	return st, nil
}
