package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `id, email, password_hash, nickname, COALESCE(profile_image_key, ''), created_at, updated_at, deleted_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a user and assigns its id.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (email, password_hash, nickname, profile_image_key, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING id
	`

	err := r.conn.QueryRow(ctx, query,
		u.Email, u.PasswordHash, u.Nickname, u.ProfileImageKey, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		return userConflict("Create", err)
	}
	return nil
}

// GetByID returns a live user.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	u, err := scanUser(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("user", "GetByID", err, shared.MsgUserNotFound)
	}
	return u, nil
}

// GetByEmail returns a live user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	u, err := scanUser(r.conn.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapError("user", "GetByEmail", err, shared.MsgUserNotFound)
	}
	return u, nil
}

// GetByIDs returns the live users among ids.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*user.User, error) {
	result := make(map[int64]*user.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) AND deleted_at IS NULL`
	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return nil, mapError("user", "GetByIDs", err, shared.MsgUserNotFound)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError("user", "GetByIDs", err, shared.MsgUserNotFound)
		}
		result[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("user", "GetByIDs", err, shared.MsgUserNotFound)
	}
	return result, nil
}

// Update persists mutable fields, including soft deletion.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE users
		SET nickname = $2, password_hash = $3, profile_image_key = NULLIF($4, ''),
		    updated_at = $5, deleted_at = $6
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.conn.Exec(ctx, query,
		u.ID, u.Nickname, u.PasswordHash, u.ProfileImageKey, u.UpdatedAt, u.DeletedAt,
	)
	if err != nil {
		return userConflict("Update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("user", "Update", shared.MsgUserNotFound)
	}
	return nil
}

// ExistsByEmail checks live users only.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "ExistsByEmail", `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`, email)
}

// ExistsByNickname checks live users only.
func (r *UserRepository) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	return r.exists(ctx, "ExistsByNickname", `SELECT EXISTS (SELECT 1 FROM users WHERE nickname = $1 AND deleted_at IS NULL)`, nickname)
}

func (r *UserRepository) exists(ctx context.Context, op, query, arg string) (bool, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var ok bool
	if err := r.conn.QueryRow(ctx, query, arg).Scan(&ok); err != nil {
		return false, mapError("user", op, err, shared.MsgUserNotFound)
	}
	return ok, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// userConflict names the taken field from the violated partial index.
func userConflict(op string, err error) error {
	if IsUniqueViolation(err) {
		switch ConstraintName(err) {
		case "users_email_live_key":
			return shared.WrapError("user", op, shared.ErrAlreadyExists, shared.MsgEmailInUse, err)
		case "users_nickname_live_key":
			return shared.WrapError("user", op, shared.ErrAlreadyExists, shared.MsgNicknameInUse, err)
		}
	}
	return mapError("user", op, err, shared.MsgUserNotFound)
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	if err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &u.ProfileImageKey,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
