package comment

import (
	"context"

	"github.com/board-hub/community-board/internal/domain/shared"
)

// Repository stores comments.
type Repository interface {
	// Create assigns c.ID.
	Create(ctx context.Context, c *Comment) error

	// GetByID returns deleted comments too; NotFound only when absent.
	GetByID(ctx context.Context, id int64) (*Comment, error)

	// UpdateContent persists an edit of a live comment. If the comment was
	// deleted meanwhile nothing is written and BadRequest with
	// MsgDeletedComment is returned.
	UpdateContent(ctx context.Context, c *Comment) error

	// SoftDelete writes the deletion of c unless the stored comment is
	// already deleted, and reports whether this call deleted it.
	SoftDelete(ctx context.Context, c *Comment) (bool, error)

	// ListByPost returns a page ordered by creation time, deleted included.
	ListByPost(ctx context.Context, postID int64, page shared.Page) (shared.PageResult[*Comment], error)

	// CountActiveByPost is the authoritative comment count of a post.
	CountActiveByPost(ctx context.Context, postID int64) (int64, error)
}
