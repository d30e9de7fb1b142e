package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ModerationAction tags a moderation log entry. The shape of Details depends on the action.
type ModerationAction string

const (
	// ActionPostCreated details: {title, section, approvalStatus, hasFile}.
	ActionPostCreated ModerationAction = "POST_CREATED"
	// ActionPostUpdated details: {old: {...}, new: {...}} over title, content, approvalStatus, fileStatus, section.
	ActionPostUpdated ModerationAction = "POST_UPDATED"
	// ActionPostDeleted details: {title, section, replyCount, hasFile}.
	ActionPostDeleted ModerationAction = "POST_DELETED"
	// ActionPostApproved details: {reason, previousStatus, approvedAt}.
	ActionPostApproved ModerationAction = "POST_APPROVED"
	// ActionPostRejected details: {reason, previousStatus, rejectedAt}.
	ActionPostRejected ModerationAction = "POST_REJECTED"
	// ActionPostFileDeleted details: {fileName, fileUrl, deletedAt}.
	ActionPostFileDeleted ModerationAction = "POST_FILE_DELETED"

	// ActionRepostCreated details: {originalPostId, approvalStatus, hasFile}.
	ActionRepostCreated ModerationAction = "REPOST_CREATED"
	// ActionRepostUpdated details: {old: {...}, new: {...}} over content, approvalStatus, fileStatus, postId.
	ActionRepostUpdated ModerationAction = "REPOST_UPDATED"
	// ActionRepostDeleted details: {originalPostId, content, hasFile}.
	ActionRepostDeleted ModerationAction = "REPOST_DELETED"
	// ActionRepostFileDeleted details: {fileName, fileUrl, deletedAt}.
	ActionRepostFileDeleted ModerationAction = "REPOST_FILE_DELETED"

	// ActionUserCreated details: {userId, username, role, createdBy, createdAt}.
	ActionUserCreated ModerationAction = "USER_CREATED"
	// ActionUserUpdated details: {userId, changes: {field: {from, to}}}.
	ActionUserUpdated ModerationAction = "USER_UPDATED"
	// ActionUserDeleted details: {deletedUserId, deletedUsername, deletedAt}.
	ActionUserDeleted ModerationAction = "USER_DELETED"
	// ActionUserRoleChanged details: {targetUserId, oldRole, newRole, changedAt}.
	ActionUserRoleChanged ModerationAction = "USER_ROLE_CHANGED"
	// ActionUserPasswordChanged details: {userId, changedAt}.
	ActionUserPasswordChanged ModerationAction = "USER_PASSWORD_CHANGED"
)

// ModerationActions lists every action tag.
var ModerationActions = []ModerationAction{
	ActionPostCreated, ActionPostUpdated, ActionPostDeleted, ActionPostApproved, ActionPostRejected, ActionPostFileDeleted,
	ActionRepostCreated, ActionRepostUpdated, ActionRepostDeleted, ActionRepostFileDeleted,
	ActionUserCreated, ActionUserUpdated, ActionUserDeleted, ActionUserRoleChanged, ActionUserPasswordChanged,
}

// Valid reports whether a is a known action tag.
func (a ModerationAction) Valid() bool {
	for _, known := range ModerationActions {
		if a == known {
			return true
		}
	}
	return false
}

// Details is the string keyed payload of a log entry, stored as JSONB.
type Details map[string]interface{}

// Value implements driver.Valuer.
func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(map[string]interface{}(d))
	if err != nil {
		return nil, fmt.Errorf("marshal details: %w", err)
	}
	return raw, nil
}

// Scan implements sql.Scanner.
func (d *Details) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = Details{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported details type %T", src)
	}
	out := Details{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("unmarshal details: %w", err)
		}
	}
	*d = out
	return nil
}

// ModerationLog is one append-only ledger entry.
type ModerationLog struct {
	ID            string           `db:"id" json:"id"`
	Action        ModerationAction `db:"action" json:"action"`
	AdminUserID   string           `db:"admin_user_id" json:"admin_user_id"`
	AdminUsername string           `db:"admin_username" json:"admin_username"`
	PostID        *string          `db:"post_id" json:"post_id,omitempty"`
	RepostID      *string          `db:"repost_id" json:"repost_id,omitempty"`
	Details       Details          `db:"details" json:"details"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// ModerationLogFilter narrows ledger reads. Empty fields are ignored; From and To are inclusive.
type ModerationLogFilter struct {
	AdminUserID string
	PostID      string
	Action      ModerationAction
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// ActionCount is one row of a per-action breakdown.
type ActionCount struct {
	Action ModerationAction `db:"action" json:"action"`
	Count  int64            `db:"count" json:"count"`
}

// AdminLogStats summarises one admin's activity.
type AdminLogStats struct {
	AdminUserID     string                     `json:"admin_user_id"`
	TotalActions    int64                      `json:"total_actions"`
	PostsAffected   int64                      `json:"posts_affected"`
	RepostsAffected int64                      `json:"reposts_affected"`
	ActionsByType   map[ModerationAction]int64 `json:"actions_by_type"`
}

// GlobalLogStats summarises the whole ledger.
type GlobalLogStats struct {
	TotalLogs       int64                      `json:"total_logs"`
	DistinctAdmins  int64                      `json:"distinct_admins"`
	PostsAffected   int64                      `json:"posts_affected"`
	RepostsAffected int64                      `json:"reposts_affected"`
	ActionsByType   map[ModerationAction]int64 `json:"actions_by_type"`
}
