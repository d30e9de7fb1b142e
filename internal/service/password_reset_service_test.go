package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	"github.com/noah-isme/rchan-moderation-api/pkg/config"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

type resetFixture struct {
	svc      *PasswordResetService
	users    *fakeAdminRepo
	codes    *fakeResetCodes
	notifier *fakeNotifier
	now      time.Time
}

func newResetFixture(t *testing.T, cache *CacheService) *resetFixture {
	return newResetFixtureWithCooldown(t, cache, 0)
}

func newResetFixtureWithCooldown(t *testing.T, cache *CacheService, cooldown time.Duration) *resetFixture {
	f := &resetFixture{
		users: newFakeAdminRepo(models.AdminUser{
			ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: hashPassword(t, "oldpassword"), Role: models.RoleModerator, AccountEnabled: true,
		}),
		codes:    &fakeResetCodes{},
		notifier: &fakeNotifier{},
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewPasswordResetService(PasswordResetServiceDeps{
		Users:    f.users,
		Codes:    f.codes,
		Cache:    cache,
		Notifier: f.notifier,
		Tx:       &fakeTx{},
		Config:   config.CodesConfig{Expiration: 15 * time.Minute, ResetRequestCooldown: cooldown, Retention: 24 * time.Hour},
	})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestRequestResetInvalidatesPreviousCode(t *testing.T) {
	f := newResetFixture(t, NewCacheService(&fakeCacheRepo{}, nil, time.Minute, nil, true))
	ctx := context.Background()

	require.NoError(t, f.svc.RequestReset(ctx, dto.PasswordResetRequest{Email: "alice@example.com"}))
	require.NoError(t, f.svc.RequestReset(ctx, dto.PasswordResetRequest{Email: "alice@example.com"}))

	require.Len(t, f.codes.codes, 2)
	assert.True(t, f.codes.codes[0].IsUsed)
	assert.False(t, f.codes.codes[1].IsUsed)
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, NotifyPasswordReset, f.notifier.sent[1].Kind)

	first := f.notifier.sent[0].Code
	second := f.notifier.sent[1].Code
	if first != second {
		err := f.svc.VerifyCode(ctx, dto.VerifyResetCodeRequest{Email: "alice@example.com", Code: first})
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	}
	assert.NoError(t, f.svc.VerifyCode(ctx, dto.VerifyResetCodeRequest{Email: "alice@example.com", Code: second}))
}

func TestRequestResetUnknownEmailIsSilent(t *testing.T) {
	f := newResetFixture(t, nil)

	require.NoError(t, f.svc.RequestReset(context.Background(), dto.PasswordResetRequest{Email: "ghost@example.com"}))
	assert.Empty(t, f.codes.codes)
	assert.Empty(t, f.notifier.sent)
}

func TestRequestResetCooldown(t *testing.T) {
	cache := NewCacheService(&fakeCacheRepo{}, nil, time.Minute, nil, true)
	f := newResetFixtureWithCooldown(t, cache, time.Minute)
	ctx := context.Background()

	require.NoError(t, f.svc.RequestReset(ctx, dto.PasswordResetRequest{Email: "alice@example.com"}))
	err := f.svc.RequestReset(ctx, dto.PasswordResetRequest{Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, appErrors.ErrTooManyRequests)
	assert.Len(t, f.codes.codes, 1)
}

func TestResetPasswordConsumesCode(t *testing.T) {
	f := newResetFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.svc.RequestReset(ctx, dto.PasswordResetRequest{Email: "alice@example.com"}))
	code := f.notifier.sent[0].Code

	require.NoError(t, f.svc.ResetPassword(ctx, dto.ResetPasswordRequest{Email: "alice@example.com", Code: code, NewPassword: "brandnew123"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(f.users.users["u1"].PasswordHash), []byte("brandnew123")))

	err := f.svc.ResetPassword(ctx, dto.ResetPasswordRequest{Email: "alice@example.com", Code: code, NewPassword: "another123"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestResetPasswordRejectsExpiredCode(t *testing.T) {
	f := newResetFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.svc.RequestReset(ctx, dto.PasswordResetRequest{Email: "alice@example.com"}))
	code := f.notifier.sent[0].Code

	f.now = f.now.Add(16 * time.Minute)
	err := f.svc.ResetPassword(ctx, dto.ResetPasswordRequest{Email: "alice@example.com", Code: code, NewPassword: "brandnew123"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCleanupExpiredUsesRetention(t *testing.T) {
	f := newResetFixture(t, nil)
	f.codes.codes = []*models.PasswordResetCode{
		{ID: "old", AdminUserID: "u1", ExpiresAt: f.now.Add(-48 * time.Hour)},
		{ID: "recent", AdminUserID: "u1", ExpiresAt: f.now.Add(-time.Hour)},
	}

	n, err := f.svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, f.now.Add(-24*time.Hour), f.codes.purgeCutoff)
	require.Len(t, f.codes.codes, 1)
	assert.Equal(t, "recent", f.codes.codes[0].ID)
}
