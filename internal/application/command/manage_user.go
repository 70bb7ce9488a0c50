package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/board-hub/community-board/internal/domain/image"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand signs a user up.
type RegisterUserCommand struct {
	Email    string
	Password string
	Nickname string
}

// UpdateUserCommand changes profile fields. A nil field is left unchanged;
// an empty ProfileImageKey clears the profile image.
type UpdateUserCommand struct {
	UserID          int64
	ActorID         int64
	Nickname        *string
	ProfileImageKey *string
}

// ChangePasswordCommand replaces the password after checking the current one.
type ChangePasswordCommand struct {
	UserID          int64
	ActorID         int64
	CurrentPassword string
	NewPassword     string
}

// DeleteUserCommand soft-deletes an account.
type DeleteUserCommand struct {
	UserID  int64
	ActorID int64
}

// UserHandler handles account writes.
type UserHandler struct {
	users  user.Repository
	hasher user.PasswordHasher
	now    func() time.Time
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users user.Repository, hasher user.PasswordHasher) *UserHandler {
	return &UserHandler{users: users, hasher: hasher, now: time.Now}
}

// Register creates the account. Email is stored lowercased.
func (h *UserHandler) Register(ctx context.Context, cmd RegisterUserCommand) (*user.User, error) {
	email := user.NormalizeEmail(cmd.Email)
	nickname := user.NormalizeNickname(cmd.Nickname)

	if err := user.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := user.ValidatePassword(cmd.Password); err != nil {
		return nil, err
	}
	if err := user.ValidateNickname(nickname); err != nil {
		return nil, err
	}

	if taken, err := h.users.ExistsByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("register_user: check email: %w", err)
	} else if taken {
		return nil, shared.Conflict("user", "Register", shared.MsgEmailInUse)
	}
	if taken, err := h.users.ExistsByNickname(ctx, nickname); err != nil {
		return nil, fmt.Errorf("register_user: check nickname: %w", err)
	} else if taken {
		return nil, shared.Conflict("user", "Register", shared.MsgNicknameInUse)
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	u := user.New(email, hash, nickname, h.now())
	// The unique indexes still arbitrate a race between two sign-ups.
	if err := h.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update applies profile changes. Users may only edit themselves.
func (h *UserHandler) Update(ctx context.Context, cmd UpdateUserCommand) (*user.User, error) {
	u, err := h.self(ctx, cmd.UserID, cmd.ActorID, "Update")
	if err != nil {
		return nil, err
	}

	if cmd.Nickname != nil {
		if nickname := user.NormalizeNickname(*cmd.Nickname); nickname != "" && nickname != u.Nickname {
			if err := user.ValidateNickname(nickname); err != nil {
				return nil, err
			}
			taken, err := h.users.ExistsByNickname(ctx, nickname)
			if err != nil {
				return nil, fmt.Errorf("update_user: check nickname: %w", err)
			}
			if taken {
				return nil, shared.Conflict("user", "Update", shared.MsgNicknameInUse)
			}
			u.Nickname = nickname
		}
	}

	if cmd.ProfileImageKey != nil {
		key := strings.TrimSpace(*cmd.ProfileImageKey)
		if err := image.ValidatePrefix(image.TypeProfile, key, u.ID); err != nil {
			return nil, err
		}
		u.ProfileImageKey = key
	}

	u.UpdatedAt = h.now()
	if err := h.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword verifies the current password and stores the new hash.
func (h *UserHandler) ChangePassword(ctx context.Context, cmd ChangePasswordCommand) error {
	u, err := h.self(ctx, cmd.UserID, cmd.ActorID, "ChangePassword")
	if err != nil {
		return err
	}

	current := strings.TrimSpace(cmd.CurrentPassword)
	next := strings.TrimSpace(cmd.NewPassword)
	if current == "" || next == "" {
		return shared.BadRequest("user", "ChangePassword", shared.MsgPasswordAllRequired)
	}
	if current == next {
		return shared.BadRequest("user", "ChangePassword", shared.MsgPasswordSameAsPrevious)
	}
	if err := user.ValidatePassword(next); err != nil {
		return err
	}
	if !h.hasher.Compare(u.PasswordHash, current) {
		return shared.BadRequest("user", "ChangePassword", shared.MsgPasswordMismatch)
	}

	hash, err := h.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("change_password: %w", err)
	}
	u.PasswordHash = hash
	u.UpdatedAt = h.now()
	return h.users.Update(ctx, u)
}

// Delete soft-deletes the account, freeing its email and nickname.
func (h *UserHandler) Delete(ctx context.Context, cmd DeleteUserCommand) error {
	u, err := h.self(ctx, cmd.UserID, cmd.ActorID, "Delete")
	if err != nil {
		return err
	}
	u.MarkDeleted(h.now())
	return h.users.Update(ctx, u)
}

func (h *UserHandler) self(ctx context.Context, userID, actorID int64, op string) (*user.User, error) {
	if userID <= 0 {
		return nil, shared.BadRequest("user", op, shared.MsgValidIDRequired)
	}
	if userID != actorID {
		return nil, shared.Forbidden("user", op, shared.MsgNotOwner)
	}
	return h.users.GetByID(ctx, userID)
}
