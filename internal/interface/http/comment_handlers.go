package http

import (
	"net/http"

	"github.com/board-hub/community-board/internal/application/command"
	"github.com/board-hub/community-board/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type commentRequest struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parentId"`
}

// handleListComments handles GET /posts/{id}/comments?page=&size=.
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := queryInt(r, "page", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.deps.ListComments.Handle(r.Context(), query.ListCommentsQuery{
		PostID: id,
		Page:   int(page),
		Size:   int(size),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleCreateComment handles POST /posts/{id}/comments.
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	postID, actor, ok := s.ownerRequest(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.deps.Comments.Create(r.Context(), command.CreateCommentCommand{
		PostID:   postID,
		AuthorID: actor,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, query.ToCommentDTO(c, nil))
}

// handleUpdateComment handles PATCH /comments/{id}.
func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := s.ownerRequest(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.deps.Comments.Update(r.Context(), command.UpdateCommentCommand{
		CommentID: id,
		ActorID:   actor,
		Content:   req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.ToCommentDTO(c, nil))
}

// handleDeleteComment handles DELETE /comments/{id}.
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := s.ownerRequest(w, r)
	if !ok {
		return
	}
	if err := s.deps.Comments.Delete(r.Context(), command.DeleteCommentCommand{CommentID: id, ActorID: actor}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nil)
}
