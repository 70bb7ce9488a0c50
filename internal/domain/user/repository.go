package user

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores users. Lookups ignore soft-deleted rows.
type Repository interface {
	// Create assigns u.ID. Returns an AlreadyExists error naming the
	// conflicting field when the email or nickname is taken.
	Create(ctx context.Context, u *User) error

	// GetByID returns a NotFound error for missing or deleted users.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail expects a normalized email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByIDs returns the live users among ids, keyed by id.
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*User, error)

	// Update persists nickname, profile image, password hash and deletion.
	Update(ctx context.Context, u *User) error

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)
}

// PasswordHasher hashes and verifies passwords. The algorithm is pluggable.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}
