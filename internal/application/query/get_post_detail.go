package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/board-hub/community-board/internal/domain/comment"
	"github.com/board-hub/community-board/internal/domain/like"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET POST DETAIL QUERY
// Reading a post counts a view. The view is applied asynchronously, so the
// response adds it to the stored counter itself.
// ══════════════════════════════════════════════════════════════════════════════

// GetPostDetailQuery identifies the post and the viewer (0 when anonymous).
type GetPostDetailQuery struct {
	PostID   int64
	ViewerID int64
}

// GetPostDetailHandler handles GetPostDetailQuery.
type GetPostDetailHandler struct {
	posts    post.Repository
	users    user.Repository
	stats    post.StatRepository
	comments comment.Repository
	likes    like.Repository
	adjuster post.CounterAdjuster
	logger   *slog.Logger
}

// NewGetPostDetailHandler creates a new GetPostDetailHandler.
func NewGetPostDetailHandler(
	posts post.Repository,
	users user.Repository,
	stats post.StatRepository,
	comments comment.Repository,
	likes like.Repository,
	adjuster post.CounterAdjuster,
	logger *slog.Logger,
) *GetPostDetailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetPostDetailHandler{
		posts:    posts,
		users:    users,
		stats:    stats,
		comments: comments,
		likes:    likes,
		adjuster: adjuster,
		logger:   logger,
	}
}

// Handle executes the query. The detail carries the first page of comments;
// later pages come from ListCommentsHandler.
func (h *GetPostDetailHandler) Handle(ctx context.Context, q GetPostDetailQuery) (*PostDetailDTO, error) {
	if q.PostID <= 0 {
		return nil, shared.BadRequest("post", "GetDetail", shared.MsgValidPostIDRequired)
	}

	p, err := h.posts.GetByID(ctx, q.PostID)
	if err != nil {
		return nil, err
	}

	stat, err := h.stats.Get(ctx, p.ID)
	if shared.IsNotFound(err) {
		stat, err = &post.Stat{PostID: p.ID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get_post_detail: load stats: %w", err)
	}

	if err := h.adjuster.Adjust(p.ID, post.FieldView, 1); err != nil {
		h.logger.Warn("view count not scheduled", "post_id", p.ID, "error", err)
	}

	thread, err := h.comments.ListByPost(ctx, p.ID, shared.NewPage(0, shared.MaxPageSize))
	if err != nil {
		return nil, fmt.Errorf("get_post_detail: load comments: %w", err)
	}

	ids := []int64{p.AuthorID}
	for _, c := range thread.Items {
		ids = append(ids, c.AuthorID)
	}
	people, err := h.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get_post_detail: load authors: %w", err)
	}

	dto := ToPostDetailDTO(p, people[p.AuthorID], stat)
	dto.Stats.ViewCount = stat.Optimistic(post.FieldView, 1)

	for _, c := range thread.Items {
		dto.Comments = append(dto.Comments, ToCommentDTO(c, people[c.AuthorID]))
	}

	if q.ViewerID > 0 {
		liked, err := h.likes.Exists(ctx, p.ID, q.ViewerID)
		if err != nil {
			return nil, fmt.Errorf("get_post_detail: load like: %w", err)
		}
		dto.LikedByMe = liked
	}

	return &dto, nil
}
