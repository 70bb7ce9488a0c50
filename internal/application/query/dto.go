// Package query contains the board's read operations and the DTOs they
// return to the HTTP layer.
package query

import (
	"time"

	"github.com/board-hub/community-board/internal/domain/comment"
	"github.com/board-hub/community-board/internal/domain/image"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════════

// UserDTO is the public view of an account.
type UserDTO struct {
	UserID          int64     `json:"userId"`
	Email           string    `json:"email"`
	Nickname        string    `json:"nickname"`
	ProfileImageKey string    `json:"profileImageKey,omitempty"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AuthorDTO is the author block embedded in posts and comments.
type AuthorDTO struct {
	UserID          int64  `json:"userId"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// StatsDTO holds the displayed counters. Values are never negative.
type StatsDTO struct {
	ViewCount    int64 `json:"viewCount"`
	LikeCount    int64 `json:"likeCount"`
	CommentCount int64 `json:"commentCount"`
}

// ImageDTO is one post image.
type ImageDTO struct {
	ObjectKey    string `json:"objectKey"`
	URL          string `json:"url"`
	DisplayOrder int    `json:"displayOrder"`
}

// PostSummaryDTO is a post as listed.
type PostSummaryDTO struct {
	PostID    int64      `json:"postId"`
	Title     string     `json:"title"`
	Author    *AuthorDTO `json:"author,omitempty"`
	Stats     StatsDTO   `json:"stats"`
	CreatedAt time.Time  `json:"createdAt"`
}

// PostDetailDTO is a single post with everything needed to render it.
type PostDetailDTO struct {
	PostID    int64        `json:"postId"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Author    *AuthorDTO   `json:"author,omitempty"`
	Images    []ImageDTO   `json:"images"`
	Stats     StatsDTO     `json:"stats"`
	LikedByMe bool         `json:"likedByMe"`
	Comments  []CommentDTO `json:"comments"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// CommentDTO is one comment. Deleted comments keep their place in the
// thread with masked content.
type CommentDTO struct {
	CommentID int64      `json:"commentId"`
	PostID    int64      `json:"postId"`
	ParentID  *int64     `json:"parentId,omitempty"`
	Depth     int        `json:"depth"`
	Content   string     `json:"content"`
	Deleted   bool       `json:"deleted"`
	Author    *AuthorDTO `json:"author,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// PostPageDTO is a cursor page of posts.
type PostPageDTO struct {
	Items      []PostSummaryDTO `json:"items"`
	NextCursor *int64           `json:"nextCursor"`
	HasNext    bool             `json:"hasNext"`
}

// CommentPageDTO is an offset page of comments.
type CommentPageDTO struct {
	Items         []CommentDTO `json:"items"`
	Page          int          `json:"page"`
	Size          int          `json:"size"`
	TotalElements int64        `json:"totalElements"`
	TotalPages    int          `json:"totalPages"`
	HasNext       bool         `json:"hasNext"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Mappers
// ─────────────────────────────────────────────────────────────────────────────

// ToUserDTO maps an account.
func ToUserDTO(u *user.User) UserDTO {
	return UserDTO{
		UserID:          u.ID,
		Email:           u.Email,
		Nickname:        u.Nickname,
		ProfileImageKey: u.ProfileImageKey,
		ProfileImageURL: image.URL(u.ProfileImageKey),
		CreatedAt:       u.CreatedAt,
	}
}

// ToAuthorDTO maps the author block; nil when the account is gone.
func ToAuthorDTO(u *user.User) *AuthorDTO {
	if u == nil {
		return nil
	}
	return &AuthorDTO{
		UserID:          u.ID,
		Nickname:        u.Nickname,
		ProfileImageURL: image.URL(u.ProfileImageKey),
	}
}

// ToStatsDTO maps a stat row, clamping negatives to zero.
func ToStatsDTO(s *post.Stat) StatsDTO {
	if s == nil {
		return StatsDTO{}
	}
	d := s.Display()
	return StatsDTO{
		ViewCount:    d.ViewCount,
		LikeCount:    d.LikeCount,
		CommentCount: d.CommentCount,
	}
}

// ToImageDTOs maps post images in display order.
func ToImageDTOs(images []post.Image) []ImageDTO {
	out := make([]ImageDTO, 0, len(images))
	for _, img := range images {
		out = append(out, ImageDTO{
			ObjectKey:    img.ObjectKey,
			URL:          image.URL(img.ObjectKey),
			DisplayOrder: img.DisplayOrder,
		})
	}
	return out
}

// ToPostDetailDTO maps a post without comments or viewer state.
func ToPostDetailDTO(p *post.Post, author *user.User, stat *post.Stat) PostDetailDTO {
	return PostDetailDTO{
		PostID:    p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Author:    ToAuthorDTO(author),
		Images:    ToImageDTOs(p.Images),
		Stats:     ToStatsDTO(stat),
		Comments:  []CommentDTO{},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// ToCommentDTO maps a comment.
func ToCommentDTO(c *comment.Comment, author *user.User) CommentDTO {
	return CommentDTO{
		CommentID: c.ID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		Depth:     c.Depth,
		Content:   c.Content,
		Deleted:   c.IsDeleted(),
		Author:    ToAuthorDTO(author),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
