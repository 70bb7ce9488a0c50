package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/board-hub/community-board/internal/domain/comment"
	"github.com/board-hub/community-board/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CommentRepository implements comment.Repository for PostgreSQL.
type CommentRepository struct {
	conn *Connection
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(conn *Connection) *CommentRepository {
	return &CommentRepository{conn: conn}
}

const commentColumns = `id, post_id, author_id, parent_id, depth, content, created_at, updated_at, deleted_at`

// Create inserts a comment and assigns its id.
func (r *CommentRepository) Create(ctx context.Context, c *comment.Comment) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	err := r.conn.QueryRow(ctx, `
		INSERT INTO comments (post_id, author_id, parent_id, depth, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, c.PostID, c.AuthorID, c.ParentID, c.Depth, c.Content, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil {
		return mapError("comment", "Create", err, shared.MsgPostNotFound)
	}
	return nil
}

// GetByID returns a comment, deleted or not.
func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*comment.Comment, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	c, err := scanComment(r.conn.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("comment", "GetByID", err, shared.MsgCommentNotFound)
	}
	return c, nil
}

// UpdateContent edits a comment that is still live.
func (r *CommentRepository) UpdateContent(ctx context.Context, c *comment.Comment) error {
	qctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(qctx, `
		UPDATE comments SET content = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`, c.ID, c.Content, c.UpdatedAt)
	if err != nil {
		return mapError("comment", "UpdateContent", err, shared.MsgCommentNotFound)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Either gone or deleted by a concurrent request.
	if _, err := r.GetByID(ctx, c.ID); err != nil {
		return err
	}
	return shared.BadRequest("comment", "UpdateContent", shared.MsgDeletedComment)
}

// SoftDelete marks the comment deleted. Only the first of concurrent
// deletions affects a row.
func (r *CommentRepository) SoftDelete(ctx context.Context, c *comment.Comment) (bool, error) {
	if c.DeletedAt == nil {
		return false, fmt.Errorf("soft delete comment %d: not marked deleted", c.ID)
	}
	qctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(qctx, `
		UPDATE comments SET content = $2, updated_at = $3, deleted_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`, c.ID, c.Content, c.UpdatedAt, *c.DeletedAt)
	if err != nil {
		return false, mapError("comment", "SoftDelete", err, shared.MsgCommentNotFound)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := r.GetByID(ctx, c.ID); err != nil {
		return false, err
	}
	return false, nil
}

// ListByPost pages comments of a post in creation order.
func (r *CommentRepository) ListByPost(ctx context.Context, postID int64, page shared.Page) (shared.PageResult[*comment.Comment], error) {
	result := shared.PageResult[*comment.Comment]{Page: page.Number, Size: page.Size}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = $1`, postID).Scan(&result.TotalElements); err != nil {
		return result, mapError("comment", "ListByPost", err, shared.MsgPostNotFound)
	}

	rows, err := r.conn.Query(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`, postID, page.Limit(), page.Offset())
	if err != nil {
		return result, mapError("comment", "ListByPost", err, shared.MsgPostNotFound)
	}
	defer rows.Close()

	result.Items = make([]*comment.Comment, 0, page.Size)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return result, mapError("comment", "ListByPost", err, shared.MsgPostNotFound)
		}
		result.Items = append(result.Items, c)
	}
	if err := rows.Err(); err != nil {
		return result, mapError("comment", "ListByPost", err, shared.MsgPostNotFound)
	}
	return result, nil
}

// CountActiveByPost counts live comments.
func (r *CommentRepository) CountActiveByPost(ctx context.Context, postID int64) (int64, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var n int64
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM comments WHERE post_id = $1 AND deleted_at IS NULL`, postID,
	).Scan(&n)
	if err != nil {
		return 0, mapError("comment", "CountActiveByPost", err, shared.MsgPostNotFound)
	}
	return n, nil
}

func scanComment(row pgx.Row) (*comment.Comment, error) {
	var c comment.Comment
	if err := row.Scan(
		&c.ID, &c.PostID, &c.AuthorID, &c.ParentID, &c.Depth, &c.Content,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	); err != nil {
		return nil, fmt.Errorf("scan comment: %w", err)
	}
	return &c, nil
}
