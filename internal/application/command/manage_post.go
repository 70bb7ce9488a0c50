package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/board-hub/community-board/internal/domain/image"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// POST COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// CreatePostCommand creates a post with optional images.
type CreatePostCommand struct {
	AuthorID        int64
	Title           string
	Content         string
	ImageObjectKeys []string
}

// UpdatePostCommand edits a post. Blank Title or Content keep the current
// value; a non-nil ImageObjectKeys replaces every image, empty removes them.
type UpdatePostCommand struct {
	PostID          int64
	ActorID         int64
	Title           string
	Content         string
	ImageObjectKeys []string
}

// DeletePostCommand soft-deletes a post.
type DeletePostCommand struct {
	PostID  int64
	ActorID int64
}

// PostHandler handles post writes.
type PostHandler struct {
	posts      post.Repository
	users      user.Repository
	maxPerPost int
	now        func() time.Time
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(posts post.Repository, users user.Repository, maxImagesPerPost int) *PostHandler {
	if maxImagesPerPost <= 0 {
		maxImagesPerPost = 5
	}
	return &PostHandler{
		posts:      posts,
		users:      users,
		maxPerPost: maxImagesPerPost,
		now:        time.Now,
	}
}

// Create stores the post, its images and a zeroed stat row together.
func (h *PostHandler) Create(ctx context.Context, cmd CreatePostCommand) (*post.Post, error) {
	if _, err := h.users.GetByID(ctx, cmd.AuthorID); err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NotFound("post", "Create", shared.MsgAuthorNotFound)
		}
		return nil, fmt.Errorf("create_post: load author: %w", err)
	}

	if err := h.checkImageCount(cmd.ImageObjectKeys, "Create"); err != nil {
		return nil, err
	}
	// The id is not assigned yet, so only the key shape can be checked.
	for _, key := range cmd.ImageObjectKeys {
		if _, err := image.ValidatePostKeyShape(key); err != nil {
			return nil, err
		}
	}

	p, err := post.New(cmd.AuthorID, cmd.Title, cmd.Content, cmd.ImageObjectKeys, h.now())
	if err != nil {
		return nil, err
	}
	if err := h.posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create_post: %w", err)
	}
	return p, nil
}

// Update applies the edit. Only the author may edit.
func (h *PostHandler) Update(ctx context.Context, cmd UpdatePostCommand) (*post.Post, error) {
	p, err := h.owned(ctx, cmd.PostID, cmd.ActorID, "Update")
	if err != nil {
		return nil, err
	}

	now := h.now()
	if err := p.Edit(cmd.Title, cmd.Content, now); err != nil {
		return nil, err
	}

	replace := cmd.ImageObjectKeys != nil
	if replace {
		if err := h.checkImageCount(cmd.ImageObjectKeys, "Update"); err != nil {
			return nil, err
		}
		for _, key := range cmd.ImageObjectKeys {
			if key == "" {
				return nil, shared.BadRequest("post", "Update", fmt.Sprintf(shared.MsgPostImagePrefix, image.Prefix(image.TypePost, p.ID)))
			}
			if err := image.ValidatePrefix(image.TypePost, key, p.ID); err != nil {
				return nil, err
			}
		}
		p.ReplaceImages(cmd.ImageObjectKeys, now)
	}

	if err := h.posts.Update(ctx, p, replace); err != nil {
		return nil, fmt.Errorf("update_post: %w", err)
	}
	return p, nil
}

// Delete soft-deletes the post. Its stat row, likes and comments are kept.
func (h *PostHandler) Delete(ctx context.Context, cmd DeletePostCommand) error {
	p, err := h.owned(ctx, cmd.PostID, cmd.ActorID, "Delete")
	if err != nil {
		return err
	}
	p.MarkDeleted(h.now())
	if err := h.posts.Update(ctx, p, false); err != nil {
		return fmt.Errorf("delete_post: %w", err)
	}
	return nil
}

func (h *PostHandler) owned(ctx context.Context, postID, actorID int64, op string) (*post.Post, error) {
	if postID <= 0 {
		return nil, shared.BadRequest("post", op, shared.MsgValidPostIDRequired)
	}
	p, err := h.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !p.IsAuthor(actorID) {
		return nil, shared.Forbidden("post", op, shared.MsgNotOwner)
	}
	return p, nil
}

func (h *PostHandler) checkImageCount(keys []string, op string) error {
	if len(keys) > h.maxPerPost {
		return shared.BadRequest("post", op, shared.MsgTooManyImages+" (max "+strconv.Itoa(h.maxPerPost)+")")
	}
	return nil
}
