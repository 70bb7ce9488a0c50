// Package security holds credential hashing.
package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/board-hub/community-board/internal/domain/user"
)

// BcryptHasher implements user.PasswordHasher.
type BcryptHasher struct {
	cost int
}

var _ user.PasswordHasher = (*BcryptHasher)(nil)

// NewBcryptHasher creates a hasher. Out-of-range costs fall back to
// bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Compare reports whether password matches hash. A malformed hash never
// matches.
func (h *BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
