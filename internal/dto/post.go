package dto

import "io"

// FileUpload is an uploaded media file handed to the file service.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CreatePostRequest is the multipart payload for a new post.
type CreatePostRequest struct {
	Section string      `form:"section" json:"section" validate:"omitempty,max=32"`
	Title   string      `form:"title" json:"title" validate:"required,max=255"`
	Content *string     `form:"content" json:"content" validate:"omitempty,max=500"`
	File    *FileUpload `form:"-" json:"-"`
}

// UpdatePostRequest is a partial update; omitted fields stay unchanged.
type UpdatePostRequest struct {
	Section        *string `json:"section" validate:"omitempty,max=32"`
	Title          *string `json:"title" validate:"omitempty,min=1,max=255"`
	Content        *string `json:"content" validate:"omitempty,max=500"`
	ApprovalStatus *string `json:"approval_status" validate:"omitempty,oneof=PENDING APPROVED AUTO_APPROVED REJECTED"`
	FileStatus     *string `json:"file_status" validate:"omitempty,oneof=VISIBLE DELETE UNKNOWN"`
}

// ModerationDecisionRequest carries an optional reason for approve or reject.
type ModerationDecisionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// PostListQuery binds moderator and public post listings.
type PostListQuery struct {
	PageQuery
	Status  string `form:"status" validate:"omitempty,oneof=PENDING APPROVED AUTO_APPROVED REJECTED"`
	Section string `form:"section"`
	Search  string `form:"search" validate:"max=100"`
}
