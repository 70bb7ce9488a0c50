package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/board-hub/community-board/internal/domain/shared"
)

var allowed = []string{"jpeg", "jpg", "png", "gif", "webp"}

func TestParseType(t *testing.T) {
	typ, err := ParseType(" POST ")
	require.NoError(t, err)
	assert.Equal(t, TypePost, typ)

	_, err = ParseType("banner")
	assert.True(t, shared.IsValidation(err))
}

func TestValidatePrefix(t *testing.T) {
	assert.NoError(t, ValidatePrefix(TypeProfile, "", 3))
	assert.NoError(t, ValidatePrefix(TypeProfile, "user/3/profile/a.png", 3))
	assert.NoError(t, ValidatePrefix(TypePost, "post/8/images/a_1.png", 8))

	err := ValidatePrefix(TypeProfile, "user/4/profile/a.png", 3)
	require.Error(t, err)
	assert.Equal(t, "profile image objectKey must start with 'user/3/profile/'", shared.Message(err, ""))

	assert.Error(t, ValidatePrefix(TypePost, "post/8/images/", 8))
	assert.Error(t, ValidatePrefix(TypePost, "post/8/images/../../etc", 8))
	assert.Error(t, ValidatePrefix(TypePost, "post/8/images/x/y.png", 8))
}

func TestValidatePostKeyShape(t *testing.T) {
	id, err := ValidatePostKeyShape("post/12/images/cat.png")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = ValidatePostKeyShape("user/12/profile/cat.png")
	assert.Error(t, err)
}

func TestValidateExtension(t *testing.T) {
	assert.NoError(t, ValidateExtension("photo.JPG", allowed))
	assert.NoError(t, ValidateExtension("post/1/images/x.webp", allowed))

	err := ValidateExtension("archive.zip", allowed)
	assert.Equal(t, "unsupported image extension: zip", shared.Message(err, ""))

	err = ValidateExtension("noext", allowed)
	assert.Equal(t, shared.MsgImageExtensionRequired, shared.Message(err, ""))

	err = ValidateExtension(" ", allowed)
	assert.Equal(t, shared.MsgFilenameRequired, shared.Message(err, ""))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "etcpasswd", SanitizeFilename("../etc/passwd"))
	assert.Equal(t, "hidden", SanitizeFilename("...hidden"))
	assert.Equal(t, "ab.png", SanitizeFilename("a\\b.png"))
}

func TestUniqueFilename(t *testing.T) {
	assert.Equal(t, "cat_abc.png", UniqueFilename("cat.png", "abc"))
	assert.Equal(t, "cat_abc.png", UniqueFilename("dir/cat.png", "abc"))
	assert.Equal(t, "README_abc", UniqueFilename("README", "abc"))
}

func TestURL(t *testing.T) {
	assert.Equal(t, "/files/post/1/images/a.png", URL("post/1/images/a.png"))
	assert.Equal(t, "", URL(""))
}
