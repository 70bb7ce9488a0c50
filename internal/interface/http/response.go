package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/interface/http/handlers"
	"github.com/board-hub/community-board/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

const (
	maxJSONBody       = 1 << 20
	multipartOverhead = 1 << 20
)

// writeJSON writes a success envelope.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	handlers.WriteJSON(w, r, status, data)
}

// writeError maps err onto the envelope. Domain errors carry their own client
// message; anything else is logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		handlers.WriteError(w, r, status, code, shared.MsgInternal)
		return
	}
	handlers.WriteError(w, r, status, code, shared.Message(err, http.StatusText(status)))
}

func classify(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, handlers.CodeNotFound
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, handlers.CodeConflict
	case shared.IsUnauthorized(err):
		return http.StatusUnauthorized, handlers.CodeUnauthorized
	case shared.IsForbidden(err):
		return http.StatusForbidden, handlers.CodeForbidden
	case shared.IsValidation(err):
		return http.StatusBadRequest, handlers.CodeBadRequest
	default:
		return http.StatusInternalServerError, handlers.CodeInternal
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return shared.WrapError("http", "Decode", shared.ErrInvalidInput, "malformed request body", err)
	}
	return nil
}

// pathID parses a positive numeric path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.BadRequest("http", "PathID", shared.MsgValidIDRequired)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string, defaultValue int64) (int64, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, shared.BadRequest("http", "Query", "invalid "+key+" parameter")
	}
	return n, nil
}
