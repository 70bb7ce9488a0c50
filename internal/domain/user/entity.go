// Package user contains the board member model.
package user

import (
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/board-hub/community-board/internal/domain/shared"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 64
	MaxNicknameLength = 10
)

// User is a registered member. Deleted users keep their row but release their
// email and nickname.
type User struct {
	ID              int64
	Email           string
	PasswordHash    string
	Nickname        string
	ProfileImageKey string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeNickname trims a nickname.
func NormalizeNickname(nickname string) string {
	return strings.TrimSpace(nickname)
}

// ValidateEmail checks an already normalized email.
func ValidateEmail(email string) error {
	if email == "" {
		return shared.BadRequest("user", "Validate", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return shared.BadRequest("user", "Validate", "email is not valid")
	}
	return nil
}

// ValidateNickname checks an already normalized nickname.
func ValidateNickname(nickname string) error {
	if nickname == "" {
		return shared.BadRequest("user", "Validate", "nickname is required")
	}
	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return shared.BadRequest("user", "Validate", "nickname must be at most 10 characters")
	}
	if strings.IndexFunc(nickname, unicode.IsSpace) >= 0 {
		return shared.BadRequest("user", "Validate", "nickname must not contain spaces")
	}
	return nil
}

// ValidatePassword checks a raw password before hashing.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if strings.TrimSpace(password) == "" {
		return shared.BadRequest("user", "Validate", "password is required")
	}
	if n < MinPasswordLength || n > MaxPasswordLength {
		return shared.BadRequest("user", "Validate", "password must be 8 to 64 characters")
	}
	return nil
}

// New builds a user from normalized, validated input.
func New(email, passwordHash, nickname string, now time.Time) *User {
	return &User{
		Email:        email,
		PasswordHash: passwordHash,
		Nickname:     nickname,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsDeleted reports whether the user was soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// MarkDeleted soft-deletes the user.
func (u *User) MarkDeleted(now time.Time) {
	u.DeletedAt = &now
	u.UpdatedAt = now
}
