package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

func newTestAuthService(t *testing.T) (*AuthService, *fakeAdminRepo) {
	repo := newFakeAdminRepo(
		models.AdminUser{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: hashPassword(t, "password123"), Role: models.RoleModerator, AccountEnabled: true},
		models.AdminUser{ID: "u2", Username: "bob", Email: "bob@example.com", PasswordHash: hashPassword(t, "password123"), Role: models.RoleAdmin, AccountEnabled: false},
	)
	svc := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "rchan"})
	return svc, repo
}

func TestLoginByUsernameOrEmail(t *testing.T) {
	svc, repo := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, dto.LoginRequest{Login: "alice", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, models.RoleModerator, res.User.Role)
	assert.Contains(t, repo.loginsByID, "u1")

	res, err = svc.Login(ctx, dto.LoginRequest{Login: "ALICE@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "rchan", claims.Issuer)
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, dto.LoginRequest{Login: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginRequest{Login: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginRequest{Login: "bob", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)

	_, err = svc.Login(ctx, dto.LoginRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestValidateTokenRejectsForeignTokens(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	claims := &models.JWTClaims{
		UserID: "u1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	expired := &models.JWTClaims{
		UserID: "u1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(stale)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestMeReturnsNotFoundForDeletedAccount(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Me(context.Background(), "gone")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAuthenticateUsesStoredAccount(t *testing.T) {
	svc, repo := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, dto.LoginRequest{Login: "alice", Password: "password123"})
	require.NoError(t, err)

	repo.users["u1"].Role = models.RoleAdmin
	repo.users["u1"].Username = "alice2"
	claims, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "alice2", claims.Username)

	repo.users["u1"].AccountEnabled = false
	_, err = svc.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)

	delete(repo.users, "u1")
	_, err = svc.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
