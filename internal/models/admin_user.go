package models

import "time"

// UserRole is the role carried by an administrative account.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleModerator UserRole = "MODERATOR"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleModerator
}

// DisplayName is the human readable role label.
func (r UserRole) DisplayName() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleModerator:
		return "Moderator"
	default:
		return string(r)
	}
}

// AdminUser is a moderator or administrator account stored in admin_users.
type AdminUser struct {
	ID                        string     `db:"id" json:"id"`
	Username                  string     `db:"username" json:"username"`
	Email                     string     `db:"email" json:"email"`
	PasswordHash              string     `db:"password_hash" json:"-"`
	Role                      UserRole   `db:"role" json:"role"`
	AccountEnabled            bool       `db:"account_enabled" json:"account_enabled"`
	EmailVerified             bool       `db:"email_verified" json:"email_verified"`
	VerificationCode          *string    `db:"verification_code" json:"-"`
	VerificationCodeExpiresAt *time.Time `db:"verification_code_expires_at" json:"-"`
	FirstLogin                *time.Time `db:"first_login" json:"first_login,omitempty"`
	LastLogin                 *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt                 time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time  `db:"updated_at" json:"updated_at"`
}

// Actor returns the acting principal view of the account.
func (u *AdminUser) Actor() *Actor {
	if u == nil {
		return nil
	}
	return &Actor{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// AdminUserFilter captures filtering criteria for listing admin users.
type AdminUserFilter struct {
	Role      *UserRole
	Enabled   *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AdminUserStats summarises the account table.
type AdminUserStats struct {
	Total               int `db:"total" json:"total"`
	Enabled             int `db:"enabled" json:"enabled"`
	PendingVerification int `db:"pending_verification" json:"pending_verification"`
	Admins              int `db:"admins" json:"admins"`
	Moderators          int `db:"moderators" json:"moderators"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
