package models

import (
	"strings"
	"time"
)

// ApprovalStatus is the review state of a post or repost.
type ApprovalStatus string

const (
	ApprovalPending      ApprovalStatus = "PENDING"
	ApprovalApproved     ApprovalStatus = "APPROVED"
	ApprovalAutoApproved ApprovalStatus = "AUTO_APPROVED"
	ApprovalRejected     ApprovalStatus = "REJECTED"
)

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalAutoApproved, ApprovalRejected:
		return true
	}
	return false
}

// Visible reports whether content in this state is shown on public feeds.
func (s ApprovalStatus) Visible() bool {
	return s == ApprovalApproved || s == ApprovalAutoApproved
}

// VisibleStatuses are the states listed on public feeds.
var VisibleStatuses = []ApprovalStatus{ApprovalApproved, ApprovalAutoApproved}

// FileStatus tracks an attached file independently of approval.
type FileStatus string

const (
	FileVisible FileStatus = "VISIBLE"
	FileDelete  FileStatus = "DELETE"
	FileUnknown FileStatus = "UNKNOWN"
)

// Valid reports whether s is a known file status.
func (s FileStatus) Valid() bool {
	return s == FileVisible || s == FileDelete || s == FileUnknown
}

// FileType is the upper-cased extension of a stored upload.
type FileType string

const (
	FileTypePNG     FileType = "PNG"
	FileTypeJPG     FileType = "JPG"
	FileTypeJPEG    FileType = "JPEG"
	FileTypeMP4     FileType = "MP4"
	FileTypeUnknown FileType = "UNKNOWN"
)

// FileTypeFromExtension maps "png" or ".PNG" to FileTypePNG; anything else is UNKNOWN.
func FileTypeFromExtension(ext string) FileType {
	switch t := FileType(strings.ToUpper(strings.TrimPrefix(ext, "."))); t {
	case FileTypePNG, FileTypeJPG, FileTypeJPEG, FileTypeMP4:
		return t
	}
	return FileTypeUnknown
}

// Post is a top-level submission inside a section.
type Post struct {
	ID             string         `db:"id" json:"id"`
	SectionID      string         `db:"section_id" json:"section_id"`
	SectionType    SectionType    `db:"section_type" json:"section_type"`
	Title          string         `db:"title" json:"title"`
	Content        *string        `db:"content" json:"content,omitempty"`
	FileURL        *string        `db:"file_url" json:"file_url,omitempty"`
	FileType       *FileType      `db:"file_type" json:"file_type,omitempty"`
	FileStatus     FileStatus     `db:"file_status" json:"file_status"`
	ApprovalStatus ApprovalStatus `db:"approval_status" json:"approval_status"`
	ReplyCount     int            `db:"reply_count" json:"reply_count"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// HasFile reports whether a stored file is attached.
func (p *Post) HasFile() bool {
	return p.FileURL != nil && *p.FileURL != "" && p.FileType != nil
}

// PostFilter captures filtering criteria for listing posts.
type PostFilter struct {
	SectionID   string
	SectionType *SectionType
	Statuses    []ApprovalStatus
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// PostUpdate holds a partial update; nil fields are left unchanged.
type PostUpdate struct {
	SectionID      *string
	Title          *string
	Content        *string
	ApprovalStatus *ApprovalStatus
	FileStatus     *FileStatus
}
