// Package image holds the object-key rules for uploaded images.
package image

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/board-hub/community-board/internal/domain/shared"
)

// Type is the owner kind of an image.
type Type string

const (
	TypeProfile Type = "profile"
	TypePost    Type = "post"
)

// FilesPrefix is the public URL prefix objects are served under.
const FilesPrefix = "/files/"

// ParseType accepts "profile" or "post" in any case.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeProfile:
		return TypeProfile, nil
	case TypePost:
		return TypePost, nil
	default:
		return "", shared.BadRequest("image", "ParseType", shared.MsgImageTypeNotSupported)
	}
}

// Prefix returns the key prefix for images owned by resourceID.
func Prefix(t Type, resourceID int64) string {
	switch t {
	case TypeProfile:
		return fmt.Sprintf("user/%d/profile/", resourceID)
	case TypePost:
		return fmt.Sprintf("post/%d/images/", resourceID)
	default:
		return ""
	}
}

// Key joins the prefix for resourceID with filename.
func Key(t Type, resourceID int64, filename string) string {
	return Prefix(t, resourceID) + filename
}

// ValidatePrefix checks that key belongs to resourceID. An empty key passes.
func ValidatePrefix(t Type, key string, resourceID int64) error {
	if key == "" {
		return nil
	}
	prefix := Prefix(t, resourceID)
	if prefix == "" {
		return shared.BadRequest("image", "Validate", shared.MsgImageTypeNotSupported)
	}
	if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
		msg := shared.MsgPostImagePrefix
		if t == TypeProfile {
			msg = shared.MsgProfileImagePrefix
		}
		return shared.BadRequest("image", "Validate", fmt.Sprintf(msg, prefix))
	}
	if strings.Contains(key[len(prefix):], "/") || strings.Contains(key, "..") {
		return shared.BadRequest("image", "Validate", shared.MsgInvalidFilePath)
	}
	return nil
}

var postKeyPattern = regexp.MustCompile(`^post/(\d+)/images/[^/]+$`)

// ValidatePostKeyShape checks a post image key without knowing the post id,
// as when the post is being created. Returns the embedded id.
func ValidatePostKeyShape(key string) (int64, error) {
	m := postKeyPattern.FindStringSubmatch(key)
	if m == nil || strings.Contains(key, "..") {
		return 0, shared.BadRequest("image", "Validate", fmt.Sprintf(shared.MsgPostImagePrefix, "post/{postId}/images/"))
	}
	var id int64
	if _, err := fmt.Sscan(m[1], &id); err != nil {
		return 0, shared.BadRequest("image", "Validate", shared.MsgInvalidFilePath)
	}
	return id, nil
}

// Extension returns the lower-cased extension of the last path segment.
func Extension(nameOrKey string) (string, error) {
	if strings.TrimSpace(nameOrKey) == "" {
		return "", shared.BadRequest("image", "Validate", shared.MsgFilenameRequired)
	}
	name := path.Base(strings.ReplaceAll(nameOrKey, "\\", "/"))
	dot := strings.LastIndex(name, ".")
	if dot < 0 || dot+1 >= len(name) {
		return "", shared.BadRequest("image", "Validate", shared.MsgImageExtensionRequired)
	}
	return strings.ToLower(name[dot+1:]), nil
}

// ValidateExtension checks nameOrKey against the allowed extensions.
func ValidateExtension(nameOrKey string, allowed []string) error {
	ext, err := Extension(nameOrKey)
	if err != nil {
		return err
	}
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return nil
		}
	}
	return shared.BadRequest("image", "Validate", shared.MsgImageExtensionInvalid+ext)
}

var leadingDots = regexp.MustCompile(`^\.+`)

// SanitizeFilename strips path separators and leading dots.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", "", "\\", "").Replace(name)
	name = leadingDots.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// UniqueFilename renders base_token.ext from an uploaded file name.
func UniqueFilename(original, token string) string {
	name := path.Base(strings.ReplaceAll(original, "\\", "/"))
	base, ext := name, ""
	if dot := strings.LastIndex(name, "."); dot > 0 {
		base = name[:dot]
		ext = name[dot+1:]
	}
	base = SanitizeFilename(base)
	if ext == "" {
		return base + "_" + token
	}
	return base + "_" + token + "." + ext
}

// URL returns the public URL of an object key, or "" for no key.
func URL(key string) string {
	if key == "" {
		return ""
	}
	return FilesPrefix + key
}
