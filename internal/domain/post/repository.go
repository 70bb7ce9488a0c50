package post

import (
	"context"

	"github.com/board-hub/community-board/internal/domain/shared"
)

// Repository stores posts and their images.
type Repository interface {
	// Create inserts the post, its images and a zero stat row together,
	// and assigns p.ID.
	Create(ctx context.Context, p *Post) error

	// GetByID returns a live post with images, or a NotFound error.
	GetByID(ctx context.Context, id int64) (*Post, error)

	// Exists reports whether a row exists; includeDeleted widens the check
	// to soft-deleted posts.
	Exists(ctx context.Context, id int64, includeDeleted bool) (bool, error)

	// List returns live posts by descending id, starting below cursor.After.
	List(ctx context.Context, cursor shared.Cursor) ([]*Post, error)

	// Update persists title, content and deletion. When replaceImages is
	// set the image list is swapped in the same transaction.
	Update(ctx context.Context, p *Post, replaceImages bool) error

	// ListIDs walks every post id (deleted ones included) in ascending
	// order, for maintenance jobs.
	ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}
