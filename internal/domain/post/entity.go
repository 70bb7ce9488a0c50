// Package post contains posts, their images and their statistics row.
package post

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/board-hub/community-board/internal/domain/shared"
)

const MaxTitleLength = 26

// Image is an object key attached to a post, shown in DisplayOrder.
type Image struct {
	ObjectKey    string
	DisplayOrder int
}

// Post is a board entry. Deleted posts keep their row and stat row.
type Post struct {
	ID        int64
	AuthorID  int64
	Title     string
	Content   string
	Images    []Image
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// New validates and builds a post. Image order follows keys.
func New(authorID int64, title, content string, keys []string, now time.Time) (*Post, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)

	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, shared.BadRequest("post", "Create", "content is required")
	}

	return &Post{
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		Images:    ImagesFromKeys(keys),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func validateTitle(title string) error {
	if title == "" {
		return shared.BadRequest("post", "Validate", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return shared.BadRequest("post", "Validate", "title must be at most 26 characters")
	}
	return nil
}

// ImagesFromKeys assigns display order by position.
func ImagesFromKeys(keys []string) []Image {
	images := make([]Image, 0, len(keys))
	for i, k := range keys {
		images = append(images, Image{ObjectKey: k, DisplayOrder: i})
	}
	return images
}

// IsDeleted reports whether the post was soft-deleted.
func (p *Post) IsDeleted() bool {
	return p.DeletedAt != nil
}

// IsAuthor reports whether userID wrote the post.
func (p *Post) IsAuthor(userID int64) bool {
	return p.AuthorID == userID
}

// Edit applies a partial update. Blank title or content leave the field as is.
func (p *Post) Edit(title, content string, now time.Time) error {
	if t := strings.TrimSpace(title); t != "" {
		if err := validateTitle(t); err != nil {
			return err
		}
		p.Title = t
	}
	if c := strings.TrimSpace(content); c != "" {
		p.Content = c
	}
	p.UpdatedAt = now
	return nil
}

// ReplaceImages swaps the whole image list.
func (p *Post) ReplaceImages(keys []string, now time.Time) {
	p.Images = ImagesFromKeys(keys)
	p.UpdatedAt = now
}

// MarkDeleted soft-deletes the post.
func (p *Post) MarkDeleted(now time.Time) {
	p.DeletedAt = &now
	p.UpdatedAt = now
}

// ImageKeys returns object keys in display order.
func (p *Post) ImageKeys() []string {
	keys := make([]string, len(p.Images))
	for i, img := range p.Images {
		keys[i] = img.ObjectKey
	}
	return keys
}
