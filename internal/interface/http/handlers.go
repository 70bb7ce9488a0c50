package http

import (
	"net/http"

	"github.com/board-hub/community-board/internal/application/auth"
	"github.com/board-hub/community-board/internal/application/command"
	"github.com/board-hub/community-board/internal/application/query"
	"github.com/board-hub/community-board/internal/domain/session"
	"github.com/board-hub/community-board/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth reports every check and the runtime details.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleLogin handles POST /auth.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var cmd auth.LoginCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		writeError(w, r, err)
		return
	}

	start := func() (session.Session, error) {
		sess, err := s.deps.Sessions.Start(w, r)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
	result, err := s.deps.Auth.Login(r.Context(), cmd, start)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("user logged in", logger.UserID(result.UserID))
	writeJSON(w, r, http.StatusOK, result)
}

// handleLogout handles DELETE /auth. It succeeds with or without a session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ended := s.deps.Sessions.End(w, r)
	writeJSON(w, r, http.StatusOK, map[string]bool{"loggedOut": ended})
}

// handleMe handles GET /auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	me, err := s.deps.Auth.Me(r.Context(), currentSession(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, me)
}

// actorID returns the logged-in user of r.
func (s *Server) actorID(r *http.Request) (int64, error) {
	return s.deps.Auth.CurrentUserID(currentSession(r))
}

// ══════════════════════════════════════════════════════════════════════════════
// USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type updateUserRequest struct {
	Nickname        *string `json:"nickname"`
	ProfileImageKey *string `json:"profileImageKey"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// handleRegister handles POST /users.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.deps.Users.Register(r.Context(), command.RegisterUserCommand{
		Email:    req.Email,
		Password: req.Password,
		Nickname: req.Nickname,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, query.ToUserDTO(u))
}

// handleGetUser handles GET /users/{id}.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.deps.UserQueries.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, u)
}

// handleUpdateUser handles PATCH /users/{id}.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := s.ownerRequest(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.deps.Users.Update(r.Context(), command.UpdateUserCommand{
		UserID:          id,
		ActorID:         actor,
		Nickname:        req.Nickname,
		ProfileImageKey: req.ProfileImageKey,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.ToUserDTO(u))
}

// handleChangePassword handles PATCH /users/{id}/password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := s.ownerRequest(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := s.deps.Users.ChangePassword(r.Context(), command.ChangePasswordCommand{
		UserID:          id,
		ActorID:         actor,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nil)
}

// handleDeleteUser handles DELETE /users/{id} and ends the caller's session.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := s.ownerRequest(w, r)
	if !ok {
		return
	}
	if err := s.deps.Users.Delete(r.Context(), command.DeleteUserCommand{UserID: id, ActorID: actor}); err != nil {
		writeError(w, r, err)
		return
	}
	s.deps.Sessions.End(w, r)
	logger.FromContext(r.Context()).Info("user deleted", logger.UserID(id))
	writeJSON(w, r, http.StatusOK, nil)
}

// handleCheckEmail handles GET /users/check-email?email=.
func (s *Server) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	ok, err := s.deps.UserQueries.EmailAvailable(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"available": ok})
}

// handleCheckNickname handles GET /users/check-nickname?nickname=.
func (s *Server) handleCheckNickname(w http.ResponseWriter, r *http.Request) {
	ok, err := s.deps.UserQueries.NicknameAvailable(r.Context(), r.URL.Query().Get("nickname"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"available": ok})
}

// ownerRequest parses the {id} path value and the acting user, writing the
// error response itself when either is missing.
func (s *Server) ownerRequest(w http.ResponseWriter, r *http.Request) (id, actor int64, ok bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return 0, 0, false
	}
	actor, err = s.actorID(r)
	if err != nil {
		writeError(w, r, err)
		return 0, 0, false
	}
	return id, actor, true
}
