package dto

// LoginRequest accepts a username or an email address in Login.
type LoginRequest struct {
	Login    string `json:"login" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}
