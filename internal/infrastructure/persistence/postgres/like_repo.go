package postgres

import (
	"context"

	"github.com/board-hub/community-board/internal/domain/shared"
)

// LikeRepository implements like.Repository for PostgreSQL.
type LikeRepository struct {
	conn *Connection
}

// NewLikeRepository creates a new LikeRepository.
func NewLikeRepository(conn *Connection) *LikeRepository {
	return &LikeRepository{conn: conn}
}

// Add inserts the pair; the primary key makes duplicates a no-op.
func (r *LikeRepository) Add(ctx context.Context, postID, userID int64) (bool, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `
		INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID)
	if err != nil {
		return false, mapError("like", "Add", err, shared.MsgPostNotFound)
	}
	return tag.RowsAffected() == 1, nil
}

// Remove deletes the pair if present.
func (r *LikeRepository) Remove(ctx context.Context, postID, userID int64) (bool, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, mapError("like", "Remove", err, shared.MsgPostNotFound)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LikeRepository) Exists(ctx context.Context, postID, userID int64) (bool, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var ok bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM post_likes WHERE post_id = $1 AND user_id = $2)`, postID, userID,
	).Scan(&ok)
	if err != nil {
		return false, mapError("like", "Exists", err, shared.MsgPostNotFound)
	}
	return ok, nil
}

// CountByPost counts like rows.
func (r *LikeRepository) CountByPost(ctx context.Context, postID int64) (int64, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var n int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID).Scan(&n); err != nil {
		return 0, mapError("like", "CountByPost", err, shared.MsgPostNotFound)
	}
	return n, nil
}
