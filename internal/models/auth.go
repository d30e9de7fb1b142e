package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the authenticated principal performing a moderation action.
// Services receive it explicitly; a nil Actor means "no authenticated admin".
type Actor struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
}

// ActorFromClaims converts verified token claims into an Actor.
func ActorFromClaims(claims *JWTClaims) *Actor {
	if claims == nil || claims.UserID == "" {
		return nil
	}
	return &Actor{ID: claims.UserID, Username: claims.Username, Email: claims.Email, Role: claims.Role}
}

// Can reports whether the actor's role grants capability.
func (a *Actor) Can(capability Capability) bool {
	return a != nil && HasCapability(a.Role, capability)
}

// LoginResponse returns the issued token and account summary.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated account in responses.
type UserInfo struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}
