package comment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/board-hub/community-board/internal/domain/shared"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNew_TopLevel(t *testing.T) {
	c, err := New(1, 2, nil, "  hello  ", now)
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Content)
	assert.Equal(t, 0, c.Depth)
	assert.Nil(t, c.ParentID)
}

func TestNew_BlankContent(t *testing.T) {
	_, err := New(1, 2, nil, "   ", now)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, shared.MsgCommentContentRequired, shared.Message(err, ""))
}

func TestNew_Reply(t *testing.T) {
	parent := &Comment{ID: 10, PostID: 1, Depth: 0}
	c, err := New(1, 2, parent, "reply", now)
	require.NoError(t, err)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, int64(10), *c.ParentID)
	assert.Equal(t, 1, c.Depth)
}

func TestNew_ReplyToReplyExceedsDepth(t *testing.T) {
	parent := &Comment{ID: 11, PostID: 1, Depth: 1}
	_, err := New(1, 2, parent, "too deep", now)
	require.Error(t, err)
	assert.Equal(t, shared.MsgMaxDepthExceeded, shared.Message(err, ""))
}

func TestNew_ReplyAcrossPosts(t *testing.T) {
	parent := &Comment{ID: 11, PostID: 9}
	_, err := New(1, 2, parent, "x", now)
	assert.Equal(t, shared.MsgParentCommentNotInPost, shared.Message(err, ""))
}

func TestNew_ReplyToDeleted(t *testing.T) {
	parent := &Comment{ID: 11, PostID: 1}
	parent.MarkDeleted(now)
	_, err := New(1, 2, parent, "x", now)
	assert.Equal(t, shared.MsgDeletedCommentNoReply, shared.Message(err, ""))
}

func TestMarkDeleted_Idempotent(t *testing.T) {
	c := &Comment{ID: 1, Content: "x"}
	assert.True(t, c.MarkDeleted(now))
	assert.Equal(t, shared.MsgDeletedComment, c.Content)
	assert.False(t, c.MarkDeleted(now.Add(time.Minute)))
	assert.Equal(t, now, *c.DeletedAt)
}

func TestEdit(t *testing.T) {
	c := &Comment{ID: 1, Content: "x"}
	require.NoError(t, c.Edit(" y ", now))
	assert.Equal(t, "y", c.Content)

	c.MarkDeleted(now)
	assert.Error(t, c.Edit("z", now))
}
