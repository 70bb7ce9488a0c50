package query

import (
	"context"
	"fmt"

	"github.com/board-hub/community-board/internal/domain/comment"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

// ListCommentsQuery asks for one page of a post's comments, oldest first.
type ListCommentsQuery struct {
	PostID int64
	Page   int
	Size   int
}

// ListCommentsHandler handles ListCommentsQuery.
type ListCommentsHandler struct {
	posts    post.Repository
	users    user.Repository
	comments comment.Repository
}

// NewListCommentsHandler creates a new ListCommentsHandler.
func NewListCommentsHandler(posts post.Repository, users user.Repository, comments comment.Repository) *ListCommentsHandler {
	return &ListCommentsHandler{posts: posts, users: users, comments: comments}
}

// Handle executes the query.
func (h *ListCommentsHandler) Handle(ctx context.Context, q ListCommentsQuery) (*CommentPageDTO, error) {
	if q.PostID <= 0 {
		return nil, shared.BadRequest("comment", "List", shared.MsgValidPostIDRequired)
	}
	exists, err := h.posts.Exists(ctx, q.PostID, false)
	if err != nil {
		return nil, fmt.Errorf("list_comments: check post: %w", err)
	}
	if !exists {
		return nil, shared.NotFound("comment", "List", shared.MsgPostNotFound)
	}

	result, err := h.comments.ListByPost(ctx, q.PostID, shared.NewPage(q.Page, q.Size))
	if err != nil {
		return nil, fmt.Errorf("list_comments: %w", err)
	}

	ids := make([]int64, 0, len(result.Items))
	for _, c := range result.Items {
		ids = append(ids, c.AuthorID)
	}
	authors, err := h.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list_comments: load authors: %w", err)
	}

	page := &CommentPageDTO{
		Items:         make([]CommentDTO, 0, len(result.Items)),
		Page:          result.Page,
		Size:          result.Size,
		TotalElements: result.TotalElements,
		TotalPages:    result.TotalPages(),
		HasNext:       result.HasNext(),
	}
	for _, c := range result.Items {
		page.Items = append(page.Items, ToCommentDTO(c, authors[c.AuthorID]))
	}
	return page, nil
}
