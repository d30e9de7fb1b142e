package models

import "time"

// Repost is a reply attached to exactly one post.
type Repost struct {
	ID             string         `db:"id" json:"id"`
	PostID         string         `db:"post_id" json:"post_id"`
	Content        *string        `db:"content" json:"content,omitempty"`
	FileURL        *string        `db:"file_url" json:"file_url,omitempty"`
	FileType       *FileType      `db:"file_type" json:"file_type,omitempty"`
	FileStatus     FileStatus     `db:"file_status" json:"file_status"`
	ApprovalStatus ApprovalStatus `db:"approval_status" json:"approval_status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// HasFile reports whether a stored file is attached.
func (r *Repost) HasFile() bool {
	return r.FileURL != nil && *r.FileURL != "" && r.FileType != nil
}

// RepostFilter captures filtering criteria for listing reposts.
type RepostFilter struct {
	PostID    string
	Statuses  []ApprovalStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RepostUpdate holds a partial update; nil fields are left unchanged.
type RepostUpdate struct {
	PostID         *string
	Content        *string
	ApprovalStatus *ApprovalStatus
	FileStatus     *FileStatus
}
