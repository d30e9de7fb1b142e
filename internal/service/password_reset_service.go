package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	"github.com/noah-isme/rchan-moderation-api/pkg/config"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

type resetUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type resetCodeRepository interface {
	Create(ctx context.Context, code *models.PasswordResetCode) error
	FindUsable(ctx context.Context, adminUserID, value string, now time.Time) (*models.PasswordResetCode, error)
	InvalidateUnused(ctx context.Context, adminUserID string) (int64, error)
	MarkUsed(ctx context.Context, id string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PasswordResetService runs the emailed six digit code reset flow.
type PasswordResetService struct {
	users     resetUserRepository
	codes     resetCodeRepository
	cache     *CacheService
	notifier  codeNotifier
	tx        txRunner
	cfg       config.CodesConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// PasswordResetServiceDeps groups PasswordResetService collaborators.
type PasswordResetServiceDeps struct {
	Users     resetUserRepository
	Codes     resetCodeRepository
	Cache     *CacheService
	Notifier  codeNotifier
	Tx        txRunner
	Config    config.CodesConfig
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewPasswordResetService constructs the reset service.
func NewPasswordResetService(deps PasswordResetServiceDeps) *PasswordResetService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = dto.NewValidator()
	}
	if deps.Config.Expiration <= 0 {
		deps.Config.Expiration = 15 * time.Minute
	}
	if deps.Config.Retention <= 0 {
		deps.Config.Retention = 24 * time.Hour
	}
	return &PasswordResetService{
		users:     deps.Users,
		codes:     deps.Codes,
		cache:     deps.Cache,
		notifier:  deps.Notifier,
		tx:        deps.Tx,
		cfg:       deps.Config,
		validator: deps.Validator,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// RequestReset mails a new code and invalidates any earlier unused one. Unknown addresses
// succeed silently. Repeated requests for one address inside the cooldown are throttled.
func (s *PasswordResetService) RequestReset(ctx context.Context, req dto.PasswordResetRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid reset payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !s.cache.Cooldown(ctx, "password-reset:cooldown:"+email, s.cfg.ResetRequestCooldown) {
		return appErrors.Clone(appErrors.ErrTooManyRequests, "a reset code was requested recently, try again later")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return internalError(err, "failed to load user")
	}

	value, err := generateCode()
	if err != nil {
		return internalError(err, "failed to generate reset code")
	}
	now := s.now().UTC()
	code := &models.PasswordResetCode{
		ID:          uuid.NewString(),
		AdminUserID: user.ID,
		Code:        value,
		ExpiresAt:   now.Add(s.cfg.Expiration),
		CreatedAt:   now,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.codes.InvalidateUnused(ctx, user.ID); err != nil {
			return internalError(err, "failed to invalidate previous codes")
		}
		if err := s.codes.Create(ctx, code); err != nil {
			return internalError(err, "failed to store reset code")
		}
		return nil
	})
	if err != nil {
		return passthrough(err, "failed to start password reset")
	}

	if err := s.notifier.SendCode(ctx, user.Email, NotifyPasswordReset, value); err != nil {
		return internalError(err, "failed to send reset email")
	}
	s.logger.Info("password reset code issued", zap.String("user_id", user.ID))
	return nil
}

// VerifyCode checks a code without consuming it.
func (s *PasswordResetService) VerifyCode(ctx context.Context, req dto.VerifyResetCodeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid reset payload")
	}
	_, _, err := s.lookup(ctx, req.Email, req.Code)
	return err
}

// ResetPassword consumes a code and stores the new password.
func (s *PasswordResetService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid reset payload")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return internalError(err, "failed to hash password")
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, code, err := s.lookup(ctx, req.Email, req.Code)
		if err != nil {
			return err
		}
		if err := s.codes.MarkUsed(ctx, code.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return invalidResetCode()
			}
			return internalError(err, "failed to consume reset code")
		}
		if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
			return notFoundOr(err, "user not found", "failed to update password")
		}
		s.logger.Info("password reset completed", zap.String("user_id", user.ID))
		return nil
	})
	return passthroughNil(err, "failed to reset password")
}

// CleanupExpired deletes codes that expired longer ago than the retention window.
func (s *PasswordResetService) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.cfg.Retention)
	n, err := s.codes.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, internalError(err, "failed to purge reset codes")
	}
	if n > 0 {
		s.logger.Info("expired reset codes purged", zap.Int64("count", n))
	}
	return n, nil
}

func (s *PasswordResetService) lookup(ctx context.Context, email, value string) (*models.AdminUser, *models.PasswordResetCode, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, invalidResetCode()
		}
		return nil, nil, internalError(err, "failed to load user")
	}
	code, err := s.codes.FindUsable(ctx, user.ID, strings.TrimSpace(value), s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, invalidResetCode()
		}
		return nil, nil, internalError(err, "failed to load reset code")
	}
	return user, code, nil
}

func invalidResetCode() error {
	return appErrors.Clone(appErrors.ErrValidation, "invalid or expired reset code")
}
