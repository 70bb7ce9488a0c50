// Package auth authenticates board accounts against web sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/board-hub/community-board/internal/application/query"
	"github.com/board-hub/community-board/internal/domain/session"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// LoginCommand carries credentials as submitted.
type LoginCommand struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	UserID          int64  `json:"userId"`
	Email           string `json:"email"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// SessionStarter begins a fresh session for the caller, invalidating any
// session it already holds.
type SessionStarter func() (session.Session, error)

// SessionService logs accounts in and out of sessions.
type SessionService struct {
	users  user.Repository
	hasher user.PasswordHasher
}

// NewSessionService creates a new SessionService.
func NewSessionService(users user.Repository, hasher user.PasswordHasher) *SessionService {
	return &SessionService{users: users, hasher: hasher}
}

// Login verifies the credentials and only then starts a session, so a failed
// attempt leaves the caller's current session untouched.
func (s *SessionService) Login(ctx context.Context, cmd LoginCommand, start SessionStarter) (*LoginResult, error) {
	email := user.NormalizeEmail(cmd.Email)
	if email == "" || strings.TrimSpace(cmd.Password) == "" {
		return nil, shared.BadRequest("auth", "Login", shared.MsgInvalidEmailOrPassword)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if shared.IsNotFound(err) {
		return nil, shared.NotFound("auth", "Login", shared.MsgInvalidEmailOrPassword)
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !s.hasher.Compare(u.PasswordHash, cmd.Password) {
		return nil, shared.BadRequest("auth", "Login", shared.MsgInvalidEmailOrPassword)
	}

	sess, err := start()
	if err != nil {
		return nil, fmt.Errorf("login: start session: %w", err)
	}
	if err := sess.SetAttribute(session.UserIDKey, u.ID); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := sess.SetAttribute(session.UserEmailKey, u.Email); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	author := query.ToAuthorDTO(u)
	return &LoginResult{
		UserID:          u.ID,
		Email:           u.Email,
		Nickname:        u.Nickname,
		ProfileImageURL: author.ProfileImageURL,
	}, nil
}

// Logout invalidates s. A nil or already invalidated session is not an error.
func (s *SessionService) Logout(sess session.Session) error {
	if sess == nil {
		return nil
	}
	if err := sess.Invalidate(); err != nil && !errors.Is(err, session.ErrInvalidated) {
		return err
	}
	return nil
}

// Me returns the account behind s. When that account has been deleted the
// session is invalidated as well.
func (s *SessionService) Me(ctx context.Context, sess session.Session) (*query.UserDTO, error) {
	id, err := s.CurrentUserID(sess)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, id)
	if shared.IsNotFound(err) {
		_ = s.Logout(sess)
		return nil, shared.NotFound("auth", "Me", shared.MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	dto := query.ToUserDTO(u)
	return &dto, nil
}

// IsAuthenticated reports whether s carries a user id.
func (s *SessionService) IsAuthenticated(sess session.Session) bool {
	return IsAuthenticated(sess)
}

// CurrentUserID returns the authenticated user id or an Unauthorized error.
func (s *SessionService) CurrentUserID(sess session.Session) (int64, error) {
	id, ok := session.UserID(sess)
	if !ok {
		return 0, shared.Unauthorized("auth", "CurrentUser", shared.MsgLoginRequired)
	}
	return id, nil
}

// IsAuthenticated reports whether sess is live and carries a user id.
func IsAuthenticated(sess session.Session) bool {
	_, ok := session.UserID(sess)
	return ok
}
