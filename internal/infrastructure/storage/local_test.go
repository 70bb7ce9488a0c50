package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/board-hub/community-board/internal/domain/shared"
)

func newStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestLocalStorage_SaveExistsDelete(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)
	key := "post/1/images/cat_abc.png"

	require.NoError(t, s.Save(ctx, key, strings.NewReader("png-bytes"), 1024))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, key))
	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Delete(ctx, key))
}

func TestLocalStorage_RejectsOversizedObject(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	err := s.Save(ctx, "user/1/profile/a.png", strings.NewReader("0123456789"), 4)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.ErrorIs(t, err, ErrTooLarge)

	ok, err := s.Exists(ctx, "user/1/profile/a.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	for _, key := range []string{"", "../x.png", "post/../../x.png", "/etc/passwd", "a\\b.png", ".."} {
		err := s.Save(ctx, key, strings.NewReader("x"), 0)
		assert.True(t, shared.IsValidation(err), key)
	}
}

func TestLocalStorage_Handler(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)
	require.NoError(t, s.Save(ctx, "post/2/images/a.txt", strings.NewReader("hello"), 0))

	h := http.StripPrefix("/files/", s.Handler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/post/2/images/a.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/post/2/images/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
