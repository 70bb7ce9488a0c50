// Package like models like membership: a (post, user) pair that exists at
// most once. The pair's existence is the only source of truth for "liked".
package like

import "context"

// Repository stores like membership.
type Repository interface {
	// Add inserts the pair and reports whether it was new. A duplicate is
	// not an error.
	Add(ctx context.Context, postID, userID int64) (bool, error)

	// Remove deletes the pair and reports whether it existed.
	Remove(ctx context.Context, postID, userID int64) (bool, error)

	Exists(ctx context.Context, postID, userID int64) (bool, error)

	// CountByPost is the authoritative like count of a post.
	CountByPost(ctx context.Context, postID int64) (int64, error)
}
