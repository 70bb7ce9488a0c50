package http

import (
	"net/http"

	"github.com/board-hub/community-board/internal/application/command"
	"github.com/board-hub/community-board/internal/application/query"
	"github.com/board-hub/community-board/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// POST HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type postRequest struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	ImageObjectKeys []string `json:"imageObjectKeys"`
}

type postIDResponse struct {
	PostID int64 `json:"postId"`
}

// handleListPosts handles GET /posts?cursor=&size=.
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	cursor, err := queryInt(r, "cursor", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := s.deps.ListPosts.Handle(r.Context(), query.ListPostsQuery{Cursor: cursor, Size: int(size)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// handleCreatePost handles POST /posts.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req postRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.deps.Posts.Create(r.Context(), command.CreatePostCommand{
		AuthorID:        actor,
		Title:           req.Title,
		Content:         req.Content,
		ImageObjectKeys: req.ImageObjectKeys,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("post created", logger.PostID(p.ID), logger.UserID(actor))
	writeJSON(w, r, http.StatusCreated, postIDResponse{PostID: p.ID})
}

// handleGetPost handles GET /posts/{id}. Each call counts one view.
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	viewer, _ := s.actorID(r)

	detail, err := s.deps.PostDetail.Handle(r.Context(), query.GetPostDetailQuery{PostID: id, ViewerID: viewer})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// handleUpdatePost handles PATCH /posts/{id}.
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := s.ownerRequest(w, r)
	if !ok {
		return
	}
	var req postRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.deps.Posts.Update(r.Context(), command.UpdatePostCommand{
		PostID:          id,
		ActorID:         actor,
		Title:           req.Title,
		Content:         req.Content,
		ImageObjectKeys: req.ImageObjectKeys,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, postIDResponse{PostID: p.ID})
}

// handleDeletePost handles DELETE /posts/{id}.
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := s.ownerRequest(w, r)
	if !ok {
		return
	}
	if err := s.deps.Posts.Delete(r.Context(), command.DeletePostCommand{PostID: id, ActorID: actor}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIKE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleLike handles POST /posts/{id}/likes.
func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := s.ownerRequest(w, r)
	if !ok {
		return
	}
	result, err := s.deps.Likes.Like(r.Context(), command.LikePostCommand{PostID: id, UserID: actor})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleUnlike handles DELETE /posts/{id}/likes.
func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := s.ownerRequest(w, r)
	if !ok {
		return
	}
	result, err := s.deps.Likes.Unlike(r.Context(), command.LikePostCommand{PostID: id, UserID: actor})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetStats handles GET /posts/{id}/stats.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := s.deps.PostStats.Handle(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// handleSyncStats handles POST /posts/{id}/stats/sync.
func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stat, err := s.deps.SyncStats.Handle(r.Context(), command.SyncPostStatsCommand{PostID: id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.ToStatsDTO(stat))
}
