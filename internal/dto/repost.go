package dto

// CreateRepostRequest is the multipart payload for a reply to a post.
type CreateRepostRequest struct {
	PostID  string      `form:"-" json:"-" validate:"required,uuid"`
	Content *string     `form:"content" json:"content" validate:"omitempty,max=500"`
	File    *FileUpload `form:"-" json:"-"`
}

// UpdateRepostRequest is a partial update; omitted fields stay unchanged.
type UpdateRepostRequest struct {
	PostID         *string `json:"post_id" validate:"omitempty,uuid"`
	Content        *string `json:"content" validate:"omitempty,max=500"`
	ApprovalStatus *string `json:"approval_status" validate:"omitempty,oneof=PENDING APPROVED AUTO_APPROVED REJECTED"`
	FileStatus     *string `json:"file_status" validate:"omitempty,oneof=VISIBLE DELETE UNKNOWN"`
}

// RepostListQuery binds repost listings.
type RepostListQuery struct {
	PageQuery
	Status string `form:"status" validate:"omitempty,oneof=PENDING APPROVED AUTO_APPROVED REJECTED"`
}
