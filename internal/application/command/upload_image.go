package command

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/board-hub/community-board/internal/domain/image"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPLOAD IMAGE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ObjectSaver persists uploaded bytes under an object key.
type ObjectSaver interface {
	Save(ctx context.Context, key string, r io.Reader, maxBytes int64) error
}

// UploadImageCommand stores one image for a profile or a post.
type UploadImageCommand struct {
	Type       string
	ResourceID int64
	ActorID    int64
	Filename   string

	// Size is the declared size; -1 when unknown.
	Size int64
	Body io.Reader
}

// UploadImageResult is returned to the client, which later references the
// object key in a user or post update.
type UploadImageResult struct {
	ObjectKey string `json:"objectKey"`
	URL       string `json:"url"`
}

// UploadImageConfig limits uploads.
type UploadImageConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// UploadImageHandler handles image uploads.
type UploadImageHandler struct {
	users   user.Repository
	posts   post.Repository
	objects ObjectSaver
	config  UploadImageConfig
	token   func() string
}

// NewUploadImageHandler creates a new UploadImageHandler.
func NewUploadImageHandler(users user.Repository, posts post.Repository, objects ObjectSaver, config UploadImageConfig) *UploadImageHandler {
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = 10 << 20
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{"jpeg", "jpg", "png", "gif", "webp"}
	}
	return &UploadImageHandler{
		users:   users,
		posts:   posts,
		objects: objects,
		config:  config,
		token:   func() string { return uuid.NewString() },
	}
}

// Handle validates the upload and stores it under a fresh, collision-free
// key inside the resource's prefix.
func (h *UploadImageHandler) Handle(ctx context.Context, cmd UploadImageCommand) (*UploadImageResult, error) {
	t, err := image.ParseType(cmd.Type)
	if err != nil {
		return nil, err
	}
	if cmd.ResourceID <= 0 {
		return nil, shared.BadRequest("image", "Upload", shared.MsgValidIDRequired)
	}
	if err := h.checkResource(ctx, t, cmd.ResourceID, cmd.ActorID); err != nil {
		return nil, err
	}

	if err := image.ValidateExtension(cmd.Filename, h.config.AllowedExtensions); err != nil {
		return nil, err
	}
	if cmd.Size > h.config.MaxFileSize {
		return nil, shared.BadRequest("image", "Upload", shared.MsgImageTooLarge)
	}

	key := image.Key(t, cmd.ResourceID, image.UniqueFilename(cmd.Filename, h.token()))

	if err := h.objects.Save(ctx, key, cmd.Body, h.config.MaxFileSize); err != nil {
		return nil, fmt.Errorf("upload_image: %w", err)
	}
	return &UploadImageResult{ObjectKey: key, URL: image.URL(key)}, nil
}

func (h *UploadImageHandler) checkResource(ctx context.Context, t image.Type, resourceID, actorID int64) error {
	switch t {
	case image.TypeProfile:
		if _, err := h.users.GetByID(ctx, resourceID); err != nil {
			return err
		}
		if resourceID != actorID {
			return shared.Forbidden("image", "Upload", shared.MsgNotOwner)
		}
	case image.TypePost:
		p, err := h.posts.GetByID(ctx, resourceID)
		if err != nil {
			return err
		}
		if !p.IsAuthor(actorID) {
			return shared.Forbidden("image", "Upload", shared.MsgNotOwner)
		}
	}
	return nil
}
