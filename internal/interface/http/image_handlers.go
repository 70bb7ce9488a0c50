package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/board-hub/community-board/internal/application/command"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMAGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleUploadImage handles POST /images (multipart: type, resourceId, file).
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, shared.BadRequest("image", "Upload", shared.MsgImageTooLarge))
			return
		}
		writeError(w, r, shared.WrapError("image", "Upload", shared.ErrInvalidInput, "multipart form expected", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	resourceID, err := strconv.ParseInt(r.FormValue("resourceId"), 10, 64)
	if err != nil {
		writeError(w, r, shared.BadRequest("image", "Upload", shared.MsgValidIDRequired))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, shared.BadRequest("image", "Upload", shared.MsgFilenameRequired))
		return
	}
	defer file.Close()

	result, err := s.deps.Images.Handle(r.Context(), command.UploadImageCommand{
		Type:       r.FormValue("type"),
		ResourceID: resourceID,
		ActorID:    actor,
		Filename:   header.Filename,
		Size:       header.Size,
		Body:       file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("image stored",
		logger.String("object_key", result.ObjectKey),
		logger.UserID(actor),
	)
	writeJSON(w, r, http.StatusCreated, result)
}
