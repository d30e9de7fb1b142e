package models

import "time"

// PasswordResetCode is a single-use six digit code mailed to an admin.
type PasswordResetCode struct {
	ID          string    `db:"id" json:"id"`
	AdminUserID string    `db:"admin_user_id" json:"admin_user_id"`
	Code        string    `db:"code" json:"-"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
	IsUsed      bool      `db:"is_used" json:"is_used"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Usable reports whether the code can still be redeemed at now.
func (c *PasswordResetCode) Usable(now time.Time) bool {
	return c != nil && !c.IsUsed && now.Before(c.ExpiresAt)
}
