package query

import (
	"context"
	"fmt"

	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST POSTS QUERY
// Newest first, paginated by id cursor.
// ══════════════════════════════════════════════════════════════════════════════

// ListPostsQuery asks for posts with id < Cursor. Cursor <= 0 starts from
// the newest; Size is clamped to 1..20 (10 when unset).
type ListPostsQuery struct {
	Cursor int64
	Size   int
}

// ListPostsHandler handles ListPostsQuery.
type ListPostsHandler struct {
	posts post.Repository
	users user.Repository
	stats post.StatRepository
}

// NewListPostsHandler creates a new ListPostsHandler.
func NewListPostsHandler(posts post.Repository, users user.Repository, stats post.StatRepository) *ListPostsHandler {
	return &ListPostsHandler{posts: posts, users: users, stats: stats}
}

// Handle executes the query.
func (h *ListPostsHandler) Handle(ctx context.Context, q ListPostsQuery) (*PostPageDTO, error) {
	cursor := shared.NewCursor(q.Cursor, q.Size)

	// One extra row tells whether another page exists.
	posts, err := h.posts.List(ctx, shared.Cursor{After: cursor.After, Size: cursor.Size + 1})
	if err != nil {
		return nil, fmt.Errorf("list_posts: %w", err)
	}
	hasNext := len(posts) > cursor.Size
	if hasNext {
		posts = posts[:cursor.Size]
	}

	postIDs := make([]int64, 0, len(posts))
	authorIDs := make([]int64, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		authorIDs = append(authorIDs, p.AuthorID)
	}

	authors, err := h.users.GetByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("list_posts: load authors: %w", err)
	}
	stats, err := h.stats.GetMany(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("list_posts: load stats: %w", err)
	}

	page := &PostPageDTO{Items: make([]PostSummaryDTO, 0, len(posts)), HasNext: hasNext}
	for _, p := range posts {
		page.Items = append(page.Items, PostSummaryDTO{
			PostID:    p.ID,
			Title:     p.Title,
			Author:    ToAuthorDTO(authors[p.AuthorID]),
			Stats:     ToStatsDTO(stats[p.ID]),
			CreatedAt: p.CreatedAt,
		})
	}
	if n := len(posts); n > 0 {
		next := posts[n-1].ID
		page.NextCursor = &next
	}
	return page, nil
}
