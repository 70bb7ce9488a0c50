package query

import (
	"context"

	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
)

// GetPostStatsHandler returns a post's displayed counters.
type GetPostStatsHandler struct {
	posts post.Repository
	stats post.StatRepository
}

// NewGetPostStatsHandler creates a new GetPostStatsHandler.
func NewGetPostStatsHandler(posts post.Repository, stats post.StatRepository) *GetPostStatsHandler {
	return &GetPostStatsHandler{posts: posts, stats: stats}
}

// Handle returns NotFound for a missing post or a post without a stat row.
func (h *GetPostStatsHandler) Handle(ctx context.Context, postID int64) (*StatsDTO, error) {
	if postID <= 0 {
		return nil, shared.BadRequest("stats", "Get", shared.MsgValidPostIDRequired)
	}
	exists, err := h.posts.Exists(ctx, postID, false)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.NotFound("stats", "Get", shared.MsgPostNotFound)
	}

	st, err := h.stats.Get(ctx, postID)
	if shared.IsNotFound(err) {
		return nil, shared.NotFound("stats", "Get", shared.MsgStatsNotFound)
	}
	if err != nil {
		return nil, err
	}
	dto := ToStatsDTO(st)
	return &dto, nil
}
