package dto

import "time"

// LogListQuery binds ledger listings.
type LogListQuery struct {
	PageQuery
}

// DateRangeQuery accepts RFC3339 timestamps or plain dates (YYYY-MM-DD).
type DateRangeQuery struct {
	PageQuery
	From string `form:"from" validate:"required"`
	To   string `form:"to" validate:"required"`
}

// ExportLogsRequest selects the ledger slice to export.
type ExportLogsRequest struct {
	Format      string `json:"format" validate:"required,oneof=csv pdf"`
	AdminUserID string `json:"admin_user_id" validate:"omitempty,uuid"`
	PostID      string `json:"post_id" validate:"omitempty,uuid"`
	Action      string `json:"action" validate:"omitempty,max=40"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// ExportResult points at a finished export.
type ExportResult struct {
	ExportID  string    `json:"export_id"`
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
