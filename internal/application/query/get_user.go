package query

import (
	"context"
	"fmt"

	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

// UserQueries serves account reads.
type UserQueries struct {
	users user.Repository
}

// NewUserQueries creates a new UserQueries.
func NewUserQueries(users user.Repository) *UserQueries {
	return &UserQueries{users: users}
}

// Get returns a live account.
func (q *UserQueries) Get(ctx context.Context, id int64) (*UserDTO, error) {
	if id <= 0 {
		return nil, shared.BadRequest("user", "Get", shared.MsgValidIDRequired)
	}
	u, err := q.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToUserDTO(u)
	return &dto, nil
}

// EmailAvailable reports whether no live account uses email.
func (q *UserQueries) EmailAvailable(ctx context.Context, email string) (bool, error) {
	email = user.NormalizeEmail(email)
	if email == "" {
		return false, shared.BadRequest("user", "EmailAvailable", "email is required")
	}
	taken, err := q.users.ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("email_available: %w", err)
	}
	return !taken, nil
}

// NicknameAvailable reports whether no live account uses nickname.
func (q *UserQueries) NicknameAvailable(ctx context.Context, nickname string) (bool, error) {
	nickname = user.NormalizeNickname(nickname)
	if nickname == "" {
		return false, shared.BadRequest("user", "NicknameAvailable", "nickname is required")
	}
	taken, err := q.users.ExistsByNickname(ctx, nickname)
	if err != nil {
		return false, fmt.Errorf("nickname_available: %w", err)
	}
	return !taken, nil
}
