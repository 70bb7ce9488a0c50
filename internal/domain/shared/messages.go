package shared

// Client-facing messages. Handlers return these verbatim in the error envelope.
const (
	MsgLoginRequired           = "login required"
	MsgInvalidEmailOrPassword  = "invalid email or password"
	MsgUserNotFound            = "user not found"
	MsgAuthorNotFound          = "author not found"
	MsgEmailInUse              = "email already in use"
	MsgNicknameInUse           = "nickname already in use"
	MsgPasswordAllRequired     = "both current and new password are required"
	MsgPasswordSameAsPrevious  = "new password must differ from the current one"
	MsgPasswordMismatch        = "current password does not match"
	MsgPostNotFound            = "post not found"
	MsgStatsNotFound           = "post stats not found"
	MsgValidPostIDRequired     = "a valid post id is required"
	MsgCommentNotFound         = "comment not found"
	MsgParentCommentNotFound   = "parent comment not found"
	MsgValidCommentIDRequired  = "a valid comment id is required"
	MsgCommentContentRequired  = "comment content is required"
	MsgParentCommentNotInPost  = "parent comment does not belong to this post"
	MsgDeletedCommentNoReply   = "cannot reply to a deleted comment"
	MsgMaxDepthExceeded        = "max depth exceeded"
	MsgDeletedComment          = "deleted comment"
	MsgImageTypeNotSupported   = "unsupported image type"
	MsgFilenameRequired        = "filename is required"
	MsgImageExtensionRequired  = "an image extension is required (.jpeg/.jpg/.png/.gif/.webp)"
	MsgImageExtensionInvalid   = "unsupported image extension: "
	MsgInvalidFilePath         = "invalid file path"
	MsgImageSaveFailed         = "failed to store image"
	MsgImageTooLarge           = "image exceeds the maximum file size"
	MsgTooManyImages           = "too many images for one post"
	MsgProfileImagePrefix      = "profile image objectKey must start with '%s'"
	MsgPostImagePrefix         = "post image objectKey must start with '%s'"
	MsgValidIDRequired         = "a valid id is required"
	MsgNotOwner                = "you are not allowed to modify this resource"
	MsgInternal                = "internal server error"
)
