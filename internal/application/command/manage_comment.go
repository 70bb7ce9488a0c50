package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/board-hub/community-board/internal/domain/comment"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMENT COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// CreateCommentCommand adds a comment or, with ParentID, a reply.
type CreateCommentCommand struct {
	PostID   int64
	AuthorID int64
	ParentID *int64
	Content  string
}

// Validate validates the command.
func (c CreateCommentCommand) Validate() error {
	if c.PostID <= 0 || c.AuthorID <= 0 {
		return shared.BadRequest("comment", "Create", shared.MsgValidIDRequired)
	}
	if c.ParentID != nil && *c.ParentID <= 0 {
		return shared.BadRequest("comment", "Create", shared.MsgValidCommentIDRequired)
	}
	return nil
}

// UpdateCommentCommand replaces a comment's content.
type UpdateCommentCommand struct {
	CommentID int64
	ActorID   int64
	Content   string
}

// DeleteCommentCommand soft-deletes a comment.
type DeleteCommentCommand struct {
	CommentID int64
	ActorID   int64
}

// CommentHandler handles comment writes.
type CommentHandler struct {
	posts    post.Repository
	users    user.Repository
	comments comment.Repository
	adjuster post.CounterAdjuster
	logger   *slog.Logger
	now      func() time.Time
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(
	posts post.Repository,
	users user.Repository,
	comments comment.Repository,
	adjuster post.CounterAdjuster,
	logger *slog.Logger,
) *CommentHandler {
	return &CommentHandler{
		posts:    posts,
		users:    users,
		comments: comments,
		adjuster: adjuster,
		logger:   orDefault(logger),
		now:      time.Now,
	}
}

// Create stores the comment and schedules a comment counter increment.
func (h *CommentHandler) Create(ctx context.Context, cmd CreateCommentCommand) (*comment.Comment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if _, err := h.posts.GetByID(ctx, cmd.PostID); err != nil {
		return nil, err
	}
	if _, err := h.users.GetByID(ctx, cmd.AuthorID); err != nil {
		return nil, err
	}

	var parent *comment.Comment
	if cmd.ParentID != nil {
		p, err := h.comments.GetByID(ctx, *cmd.ParentID)
		if shared.IsNotFound(err) {
			return nil, shared.NotFound("comment", "Create", shared.MsgParentCommentNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("create_comment: load parent: %w", err)
		}
		parent = p
	}

	c, err := comment.New(cmd.PostID, cmd.AuthorID, parent, cmd.Content, h.now())
	if err != nil {
		return nil, err
	}
	if err := h.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create_comment: %w", err)
	}

	scheduleAdjust(h.adjuster, h.logger, cmd.PostID, post.FieldComment, 1)
	return c, nil
}

// Update edits the content. Only the author may edit, and never a deleted
// comment.
func (h *CommentHandler) Update(ctx context.Context, cmd UpdateCommentCommand) (*comment.Comment, error) {
	c, err := h.owned(ctx, cmd.CommentID, cmd.ActorID, "Update")
	if err != nil {
		return nil, err
	}
	if err := c.Edit(cmd.Content, h.now()); err != nil {
		return nil, err
	}
	if err := h.comments.UpdateContent(ctx, c); err != nil {
		if shared.IsValidation(err) || shared.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update_comment: %w", err)
	}
	return c, nil
}

// Delete soft-deletes the comment and schedules a comment counter
// decrement. Deleting an already deleted comment changes nothing; of two
// concurrent deletions only the one the store accepts decrements.
func (h *CommentHandler) Delete(ctx context.Context, cmd DeleteCommentCommand) error {
	c, err := h.owned(ctx, cmd.CommentID, cmd.ActorID, "Delete")
	if err != nil {
		return err
	}
	if !c.MarkDeleted(h.now()) {
		return nil
	}
	deleted, err := h.comments.SoftDelete(ctx, c)
	if err != nil {
		return fmt.Errorf("delete_comment: %w", err)
	}
	if !deleted {
		return nil
	}

	scheduleAdjust(h.adjuster, h.logger, c.PostID, post.FieldComment, -1)
	return nil
}

func (h *CommentHandler) owned(ctx context.Context, commentID, actorID int64, op string) (*comment.Comment, error) {
	if commentID <= 0 {
		return nil, shared.BadRequest("comment", op, shared.MsgValidCommentIDRequired)
	}
	c, err := h.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !c.IsAuthor(actorID) {
		return nil, shared.Forbidden("comment", op, shared.MsgNotOwner)
	}
	return c, nil
}
