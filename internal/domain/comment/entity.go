// Package comment contains comments and one level of replies.
package comment

import (
	"strings"
	"time"

	"github.com/board-hub/community-board/internal/domain/shared"
)

// MaxDepth is the deepest allowed reply level. Top-level comments have depth 0.
const MaxDepth = 1

// Comment belongs to a post and optionally replies to another comment of the
// same post. Deleted comments stay listed with placeholder content.
type Comment struct {
	ID        int64
	PostID    int64
	AuthorID  int64
	ParentID  *int64
	Depth     int
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", shared.BadRequest("comment", "Validate", shared.MsgCommentContentRequired)
	}
	return content, nil
}

// New builds a comment. parent is nil for a top-level comment; otherwise it
// must be a live comment of the same post shallower than MaxDepth.
func New(postID, authorID int64, parent *Comment, content string, now time.Time) (*Comment, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}

	c := &Comment{
		PostID:    postID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if parent != nil {
		if err := parent.AcceptsReplyIn(postID); err != nil {
			return nil, err
		}
		pid := parent.ID
		c.ParentID = &pid
		c.Depth = parent.Depth + 1
	}

	return c, nil
}

// AcceptsReplyIn checks whether a reply posted under postID may attach here.
func (c *Comment) AcceptsReplyIn(postID int64) error {
	if c.PostID != postID {
		return shared.BadRequest("comment", "Reply", shared.MsgParentCommentNotInPost)
	}
	if c.IsDeleted() {
		return shared.BadRequest("comment", "Reply", shared.MsgDeletedCommentNoReply)
	}
	if c.Depth >= MaxDepth {
		return shared.BadRequest("comment", "Reply", shared.MsgMaxDepthExceeded)
	}
	return nil
}

// IsDeleted reports whether the comment was soft-deleted.
func (c *Comment) IsDeleted() bool {
	return c.DeletedAt != nil
}

// IsAuthor reports whether userID wrote the comment.
func (c *Comment) IsAuthor(userID int64) bool {
	return c.AuthorID == userID
}

// Edit replaces the content of a live comment.
func (c *Comment) Edit(content string, now time.Time) error {
	if c.IsDeleted() {
		return shared.BadRequest("comment", "Update", shared.MsgDeletedComment)
	}
	content, err := normalizeContent(content)
	if err != nil {
		return err
	}
	c.Content = content
	c.UpdatedAt = now
	return nil
}

// MarkDeleted soft-deletes the comment and reports whether anything changed.
func (c *Comment) MarkDeleted(now time.Time) bool {
	if c.IsDeleted() {
		return false
	}
	c.Content = shared.MsgDeletedComment
	c.DeletedAt = &now
	c.UpdatedAt = now
	return true
}
