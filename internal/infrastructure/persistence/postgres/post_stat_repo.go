package postgres

import (
	"context"
	"fmt"

	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// POST STAT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PostStatRepository implements post.StatRepository for PostgreSQL. Counter
// changes are single-statement upserts so concurrent writers never lose an
// update.
type PostStatRepository struct {
	conn *Connection
}

// NewPostStatRepository creates a new PostStatRepository.
func NewPostStatRepository(conn *Connection) *PostStatRepository {
	return &PostStatRepository{conn: conn}
}

// Create inserts a zero row unless one exists.
func (r *PostStatRepository) Create(ctx context.Context, postID int64) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Exec(ctx, `INSERT INTO post_stats (post_id) VALUES ($1) ON CONFLICT (post_id) DO NOTHING`, postID)
	return mapError("stats", "Create", err, shared.MsgPostNotFound)
}

// Get returns the row of one post.
func (r *PostStatRepository) Get(ctx context.Context, postID int64) (*post.Stat, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var s post.Stat
	err := r.conn.QueryRow(ctx, `
		SELECT post_id, view_count, like_count, comment_count, updated_at
		FROM post_stats WHERE post_id = $1
	`, postID).Scan(&s.PostID, &s.ViewCount, &s.LikeCount, &s.CommentCount, &s.UpdatedAt)
	if err != nil {
		return nil, mapError("stats", "Get", err, shared.MsgStatsNotFound)
	}
	return &s, nil
}

// GetMany returns the existing rows among postIDs.
func (r *PostStatRepository) GetMany(ctx context.Context, postIDs []int64) (map[int64]*post.Stat, error) {
	result := make(map[int64]*post.Stat, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `
		SELECT post_id, view_count, like_count, comment_count, updated_at
		FROM post_stats WHERE post_id = ANY($1)
	`, postIDs)
	if err != nil {
		return nil, mapError("stats", "GetMany", err, shared.MsgStatsNotFound)
	}
	defer rows.Close()

	for rows.Next() {
		var s post.Stat
		if err := rows.Scan(&s.PostID, &s.ViewCount, &s.LikeCount, &s.CommentCount, &s.UpdatedAt); err != nil {
			return nil, mapError("stats", "GetMany", err, shared.MsgStatsNotFound)
		}
		result[s.PostID] = &s
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("stats", "GetMany", err, shared.MsgStatsNotFound)
	}
	return result, nil
}

// Increment adds delta to one counter, creating the row on first write. The
// foreign key turns a write for a missing post into NotFound.
func (r *PostStatRepository) Increment(ctx context.Context, postID int64, field post.Field, delta int) error {
	column, err := counterColumn(field)
	if err != nil {
		return err
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO post_stats (post_id, %[1]s) VALUES ($1, $2)
		ON CONFLICT (post_id) DO UPDATE
		SET %[1]s = post_stats.%[1]s + EXCLUDED.%[1]s, updated_at = NOW()
	`, column)

	_, err = r.conn.Exec(ctx, query, postID, int64(delta))
	return mapError("stats", "Increment", err, shared.MsgPostNotFound)
}

// Overwrite sets like and comment counters and keeps the view counter.
func (r *PostStatRepository) Overwrite(ctx context.Context, postID int64, likeCount, commentCount int64) (*post.Stat, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var s post.Stat
	err := r.conn.QueryRow(ctx, `
		INSERT INTO post_stats (post_id, like_count, comment_count) VALUES ($1, $2, $3)
		ON CONFLICT (post_id) DO UPDATE
		SET like_count = EXCLUDED.like_count, comment_count = EXCLUDED.comment_count, updated_at = NOW()
		RETURNING post_id, view_count, like_count, comment_count, updated_at
	`, postID, likeCount, commentCount).Scan(&s.PostID, &s.ViewCount, &s.LikeCount, &s.CommentCount, &s.UpdatedAt)
	if err != nil {
		return nil, mapError("stats", "Overwrite", err, shared.MsgPostNotFound)
	}
	return &s, nil
}

func counterColumn(f post.Field) (string, error) {
	switch f {
	case post.FieldView:
		return "view_count", nil
	case post.FieldLike:
		return "like_count", nil
	case post.FieldComment:
		return "comment_count", nil
	default:
		return "", shared.BadRequest("stats", "Increment", fmt.Sprintf("unknown counter field %d", int(f)))
	}
}
