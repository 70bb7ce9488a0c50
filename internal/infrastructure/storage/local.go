// Package storage keeps uploaded image objects. Objects are addressed by
// slash-separated keys such as "post/7/images/cat_<uuid>.png".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/board-hub/community-board/internal/domain/shared"
)

// ObjectStorage stores and serves image objects.
type ObjectStorage interface {
	// Save writes r under key, reading at most maxBytes.
	Save(ctx context.Context, key string, r io.Reader, maxBytes int64) error

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// Handler serves objects by key, relative to the mount point.
	Handler() http.Handler
}

// ErrTooLarge is returned when an object exceeds the size limit.
var ErrTooLarge = errors.New("storage: object too large")

// LocalStorage keeps objects as files under a base directory.
type LocalStorage struct {
	baseDir string
	logger  *slog.Logger
}

var _ ObjectStorage = (*LocalStorage)(nil)

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(baseDir string, logger *slog.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create base dir: %w", err)
	}
	return &LocalStorage{
		baseDir: abs,
		logger:  logger.With("component", "local_storage"),
	}, nil
}

// BaseDir returns the absolute base directory.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// Save writes the object atomically: a temp file is renamed into place once
// fully written.
func (s *LocalStorage) Save(ctx context.Context, key string, r io.Reader, maxBytes int64) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return shared.WrapError("image", "Save", shared.ErrTransient, shared.MsgImageSaveFailed, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return shared.WrapError("image", "Save", shared.ErrTransient, shared.MsgImageSaveFailed, err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return shared.WrapError("image", "Save", shared.ErrTransient, shared.MsgImageSaveFailed, err)
	}
	if maxBytes > 0 && n > maxBytes {
		return shared.WrapError("image", "Save", shared.ErrValidation, shared.MsgImageTooLarge, ErrTooLarge)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return shared.WrapError("image", "Save", shared.ErrTransient, shared.MsgImageSaveFailed, err)
	}

	s.logger.Debug("object stored", "key", key, "bytes", n)
	return nil
}

// Delete removes the object. Missing objects are not an error.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether an object is stored under key.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	target, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(target)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	return info.Mode().IsRegular(), nil
}

// Handler serves the base directory without listings.
func (s *LocalStorage) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.baseDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

// resolve maps key to a path that is guaranteed to stay under baseDir.
func (s *LocalStorage) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") || strings.HasPrefix(key, "/") {
		return "", shared.BadRequest("image", "Resolve", shared.MsgInvalidFilePath)
	}
	target := filepath.Join(s.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.baseDir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", shared.BadRequest("image", "Resolve", shared.MsgInvalidFilePath)
	}
	return target, nil
}
