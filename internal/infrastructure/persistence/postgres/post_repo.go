package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// POST REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PostRepository implements post.Repository for PostgreSQL.
type PostRepository struct {
	conn *Connection
}

// NewPostRepository creates a new PostRepository.
func NewPostRepository(conn *Connection) *PostRepository {
	return &PostRepository{conn: conn}
}

const postColumns = `id, author_id, title, content, created_at, updated_at, deleted_at`

// Create inserts the post, its images and a zero stat row in one transaction.
func (r *PostRepository) Create(ctx context.Context, p *post.Post) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `
			INSERT INTO posts (author_id, title, content, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		if err := tx.QueryRow(ctx, query, p.AuthorID, p.Title, p.Content, p.CreatedAt, p.UpdatedAt).Scan(&p.ID); err != nil {
			return err
		}
		if err := insertImages(ctx, tx, p.ID, p.Images); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO post_stats (post_id, updated_at) VALUES ($1, $2)`, p.ID, p.CreatedAt)
		return err
	})
	if err != nil {
		return mapError("post", "Create", err, shared.MsgAuthorNotFound)
	}
	return nil
}

// GetByID returns a live post with its images.
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*post.Post, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND deleted_at IS NULL`
	p, err := scanPost(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("post", "GetByID", err, shared.MsgPostNotFound)
	}

	images, err := r.loadImages(ctx, []int64{p.ID})
	if err != nil {
		return nil, mapError("post", "GetByID", err, shared.MsgPostNotFound)
	}
	p.Images = images[p.ID]
	return p, nil
}

// Exists checks for the row, optionally including soft-deleted posts.
func (r *PostRepository) Exists(ctx context.Context, id int64, includeDeleted bool) (bool, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query := `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1 AND ($2 OR deleted_at IS NULL))`
	var ok bool
	if err := r.conn.QueryRow(ctx, query, id, includeDeleted).Scan(&ok); err != nil {
		return false, mapError("post", "Exists", err, shared.MsgPostNotFound)
	}
	return ok, nil
}

// List returns live posts by descending id below the cursor.
func (r *PostRepository) List(ctx context.Context, cursor shared.Cursor) ([]*post.Post, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE deleted_at IS NULL AND ($1 = 0 OR id < $1)
		ORDER BY id DESC
		LIMIT $2
	`
	rows, err := r.conn.Query(ctx, query, cursor.After, cursor.Size)
	if err != nil {
		return nil, mapError("post", "List", err, shared.MsgPostNotFound)
	}
	defer rows.Close()

	var posts []*post.Post
	var ids []int64
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, mapError("post", "List", err, shared.MsgPostNotFound)
		}
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("post", "List", err, shared.MsgPostNotFound)
	}

	images, err := r.loadImages(ctx, ids)
	if err != nil {
		return nil, mapError("post", "List", err, shared.MsgPostNotFound)
	}
	for _, p := range posts {
		p.Images = images[p.ID]
	}
	return posts, nil
}

// Update persists title, content and deletion, and optionally swaps images.
func (r *PostRepository) Update(ctx context.Context, p *post.Post, replaceImages bool) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `
			UPDATE posts SET title = $2, content = $3, updated_at = $4, deleted_at = $5
			WHERE id = $1 AND deleted_at IS NULL
		`
		tag, err := tx.Exec(ctx, query, p.ID, p.Title, p.Content, p.UpdatedAt, p.DeletedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		if !replaceImages {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM post_images WHERE post_id = $1`, p.ID); err != nil {
			return err
		}
		return insertImages(ctx, tx, p.ID, p.Images)
	})
	if err != nil {
		return mapError("post", "Update", err, shared.MsgPostNotFound)
	}
	return nil
}

// ListIDs walks all post ids in ascending order.
func (r *PostRepository) ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT id FROM posts WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, mapError("post", "ListIDs", err, shared.MsgPostNotFound)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, mapError("post", "ListIDs", err, shared.MsgPostNotFound)
	}
	return ids, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func insertImages(ctx context.Context, tx pgx.Tx, postID int64, images []post.Image) error {
	if len(images) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, img := range images {
		batch.Queue(`INSERT INTO post_images (post_id, object_key, display_order) VALUES ($1, $2, $3)`,
			postID, img.ObjectKey, img.DisplayOrder)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (r *PostRepository) loadImages(ctx context.Context, postIDs []int64) (map[int64][]post.Image, error) {
	result := make(map[int64][]post.Image, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	rows, err := r.conn.Query(ctx, `
		SELECT post_id, object_key, display_order
		FROM post_images
		WHERE post_id = ANY($1)
		ORDER BY post_id, display_order
	`, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var postID int64
		var img post.Image
		if err := rows.Scan(&postID, &img.ObjectKey, &img.DisplayOrder); err != nil {
			return nil, err
		}
		result[postID] = append(result[postID], img)
	}
	return result, rows.Err()
}

func scanPost(row pgx.Row) (*post.Post, error) {
	var p post.Post
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &p, nil
}
