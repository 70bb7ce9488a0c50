package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesKind(t *testing.T) {
	err := NotFound("post", "Get", MsgPostNotFound)

	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, "post.Get: post not found", err.Error())
}

func TestDomainError_WrappedCause(t *testing.T) {
	cause := errors.New("pool closed")
	err := WrapError("stats", "Increment", ErrTransient, "write failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrTransient)
	assert.True(t, IsRetryable(err))
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("handler: %w", BadRequest("comment", "Create", MsgMaxDepthExceeded))
	assert.Equal(t, MsgMaxDepthExceeded, Message(err, "fallback"))
	assert.Equal(t, "fallback", Message(errors.New("raw"), "fallback"))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(NotFound("post", "Get", "x")))
	assert.False(t, IsRetryable(BadRequest("stats", "Adjust", "x")))
	assert.True(t, IsRetryable(errors.New("connection reset")))
	assert.False(t, IsRetryable(Forbidden("post", "Update", "x")))
}

func TestPage(t *testing.T) {
	p := NewPage(-3, 0)
	assert.Equal(t, 0, p.Number)
	assert.Equal(t, DefaultPageSize, p.Size)

	p = NewPage(2, 100)
	assert.Equal(t, MaxPageSize, p.Limit())
	assert.Equal(t, 40, p.Offset())
}

func TestPageResult(t *testing.T) {
	r := PageResult[int]{Page: 0, Size: 10, TotalElements: 21}
	assert.Equal(t, 3, r.TotalPages())
	assert.True(t, r.HasNext())

	r.Page = 2
	assert.False(t, r.HasNext())
}

func TestCursor(t *testing.T) {
	c := NewCursor(-1, 50)
	assert.False(t, c.HasStart())
	assert.Equal(t, MaxPageSize, c.Size)
	assert.True(t, NewCursor(9, 5).HasStart())
}
