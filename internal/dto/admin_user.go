package dto

// RegisterAdminRequest creates a new moderator or administrator.
type RegisterAdminRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=ADMIN MODERATOR"`
}

// UpdateAdminUserRequest is a partial account update.
type UpdateAdminUserRequest struct {
	Username       *string `json:"username" validate:"omitempty,min=3,max=50,alphanum"`
	Email          *string `json:"email" validate:"omitempty,email,max=100"`
	Role           *string `json:"role" validate:"omitempty,oneof=ADMIN MODERATOR"`
	AccountEnabled *bool   `json:"account_enabled"`
}

// ChangeRoleRequest sets a new role.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN MODERATOR"`
}

// DeleteAdminUserRequest requires the acting admin to confirm with their password.
type DeleteAdminUserRequest struct {
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest changes the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// VerifyEmailRequest confirms an email address with the mailed code.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// ResendVerificationRequest asks for a fresh verification code.
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// AdminUserListQuery binds account listings.
type AdminUserListQuery struct {
	PageQuery
	Role    string `form:"role" validate:"omitempty,oneof=ADMIN MODERATOR"`
	Enabled *bool  `form:"enabled"`
	Search  string `form:"search" validate:"max=100"`
}
