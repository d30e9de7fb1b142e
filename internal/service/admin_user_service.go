package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

type adminUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.AdminUser, error)
	FindByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, filter models.AdminUserFilter) ([]models.AdminUser, int, error)
	Stats(ctx context.Context) (*models.AdminUserStats, error)
	Create(ctx context.Context, user *models.AdminUser) error
	Update(ctx context.Context, user *models.AdminUser) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

type resetCodePurger interface {
	DeleteByAdmin(ctx context.Context, adminUserID string) error
}

type codeNotifier interface {
	SendCode(ctx context.Context, to string, kind NotificationKind, code string) error
}

// AdminUserService manages moderator and administrator accounts.
type AdminUserService struct {
	repo       adminUserRepository
	resets     resetCodePurger
	logs       *ModerationLogService
	notifier   codeNotifier
	tx         txRunner
	validator  *validator.Validate
	logger     *zap.Logger
	codeExpiry time.Duration
	now        func() time.Time
}

// AdminUserServiceDeps groups AdminUserService collaborators.
type AdminUserServiceDeps struct {
	Repo       adminUserRepository
	Resets     resetCodePurger
	Logs       *ModerationLogService
	Notifier   codeNotifier
	Tx         txRunner
	Validator  *validator.Validate
	Logger     *zap.Logger
	CodeExpiry time.Duration
}

// NewAdminUserService constructs the account service.
func NewAdminUserService(deps AdminUserServiceDeps) *AdminUserService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = dto.NewValidator()
	}
	if deps.CodeExpiry <= 0 {
		deps.CodeExpiry = 15 * time.Minute
	}
	return &AdminUserService{
		repo:       deps.Repo,
		resets:     deps.Resets,
		logs:       deps.Logs,
		notifier:   deps.Notifier,
		tx:         deps.Tx,
		validator:  deps.Validator,
		logger:     deps.Logger,
		codeExpiry: deps.CodeExpiry,
		now:        time.Now,
	}
}

// Register creates an account with an unverified email and mails a verification code.
func (s *AdminUserService) Register(ctx context.Context, actor *models.Actor, req dto.RegisterAdminRequest) (*models.AdminUser, error) {
	if err := requireCapability(actor, models.CapCreateUsers); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid user payload")
	}
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureUnique(ctx, username, email, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}
	code, err := generateCode()
	if err != nil {
		return nil, internalError(err, "failed to generate verification code")
	}
	now := s.now().UTC()
	expires := now.Add(s.codeExpiry)
	user := &models.AdminUser{
		ID:                        uuid.NewString(),
		Username:                  username,
		Email:                     email,
		PasswordHash:              string(hash),
		Role:                      models.UserRole(req.Role),
		AccountEnabled:            true,
		EmailVerified:             false,
		VerificationCode:          &code,
		VerificationCodeExpiresAt: &expires,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, user); err != nil {
			return internalError(err, "failed to create user")
		}
		_, err := s.logs.LogUserCreated(ctx, actor, user)
		return err
	})
	if err != nil {
		return nil, passthrough(err, "failed to create user")
	}

	if err := s.notifier.SendCode(ctx, user.Email, NotifyVerification, code); err != nil {
		s.logger.Warn("failed to send verification email", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.logger.Info("admin user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)), zap.String("by", actor.Username))
	return user, nil
}

// VerifyEmail confirms an address with its code and clears the code.
func (s *AdminUserService) VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid verification payload")
	}
	invalid := appErrors.Clone(appErrors.ErrValidation, "invalid or expired verification code")

	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalid
		}
		return internalError(err, "failed to load user")
	}
	if user.EmailVerified {
		return appErrors.Clone(appErrors.ErrIllegalState, "email is already verified")
	}
	if user.VerificationCode == nil || strings.TrimSpace(*user.VerificationCode) != strings.TrimSpace(req.Code) {
		return invalid
	}
	if user.VerificationCodeExpiresAt == nil || !s.now().Before(*user.VerificationCodeExpiresAt) {
		return invalid
	}

	user.EmailVerified = true
	user.VerificationCode = nil
	user.VerificationCodeExpiresAt = nil
	if err := s.repo.Update(ctx, user); err != nil {
		return notFoundOr(err, "user not found", "failed to verify email")
	}
	return nil
}

// ResendVerification issues a fresh code. Unknown addresses succeed silently.
func (s *AdminUserService) ResendVerification(ctx context.Context, req dto.ResendVerificationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid verification payload")
	}
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalError(err, "failed to load user")
	}
	if user.EmailVerified {
		return appErrors.Clone(appErrors.ErrIllegalState, "email is already verified")
	}

	code, err := generateCode()
	if err != nil {
		return internalError(err, "failed to generate verification code")
	}
	expires := s.now().UTC().Add(s.codeExpiry)
	user.VerificationCode = &code
	user.VerificationCodeExpiresAt = &expires
	if err := s.repo.Update(ctx, user); err != nil {
		return notFoundOr(err, "user not found", "failed to store verification code")
	}
	if err := s.notifier.SendCode(ctx, user.Email, NotifyVerification, code); err != nil {
		return internalError(err, "failed to send verification email")
	}
	return nil
}

// List returns paginated accounts.
func (s *AdminUserService) List(ctx context.Context, filter models.AdminUserFilter) ([]models.AdminUser, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}
	return users, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an account by id.
func (s *AdminUserService) Get(ctx context.Context, id string) (*models.AdminUser, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	return user, nil
}

// GetByUsername returns an account by username.
func (s *AdminUserService) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	return user, nil
}

// GetByEmail returns an account by email.
func (s *AdminUserService) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	return user, nil
}

// Stats summarises the account table.
func (s *AdminUserService) Stats(ctx context.Context) (*models.AdminUserStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, internalError(err, "failed to load user stats")
	}
	return stats, nil
}

// Update changes username, email, role or the enabled flag. Changes are logged as
// USER_UPDATED, and a role change is also logged as USER_ROLE_CHANGED.
func (s *AdminUserService) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateAdminUserRequest) (*models.AdminUser, error) {
	if err := requireCapability(actor, models.CapCreateUsers); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid user payload")
	}
	if req.Role != nil && !actor.Can(models.CapChangeRoles) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions to change roles")
	}

	var updated *models.AdminUser
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "user not found", "failed to load user")
		}
		changes := map[string]interface{}{}
		oldRole := user.Role

		if req.Username != nil {
			username := strings.TrimSpace(*req.Username)
			if username != user.Username {
				if err := s.ensureUnique(ctx, username, "", user.ID); err != nil {
					return err
				}
				changes["username"] = map[string]interface{}{"from": user.Username, "to": username}
				user.Username = username
			}
		}
		if req.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*req.Email))
			if email != user.Email {
				if err := s.ensureUnique(ctx, "", email, user.ID); err != nil {
					return err
				}
				changes["email"] = map[string]interface{}{"from": user.Email, "to": email}
				user.Email = email
			}
		}
		if req.Role != nil && models.UserRole(*req.Role) != user.Role {
			if user.ID == actor.ID {
				return appErrors.Clone(appErrors.ErrIllegalState, "administrators cannot change their own role")
			}
			changes["role"] = map[string]interface{}{"from": string(user.Role), "to": *req.Role}
			user.Role = models.UserRole(*req.Role)
		}
		if req.AccountEnabled != nil && *req.AccountEnabled != user.AccountEnabled {
			if user.ID == actor.ID && !*req.AccountEnabled {
				return appErrors.Clone(appErrors.ErrIllegalState, "administrators cannot disable themselves")
			}
			changes["accountEnabled"] = map[string]interface{}{"from": user.AccountEnabled, "to": *req.AccountEnabled}
			user.AccountEnabled = *req.AccountEnabled
		}

		updated = user
		if len(changes) == 0 {
			return nil
		}
		if err := s.repo.Update(ctx, user); err != nil {
			return notFoundOr(err, "user not found", "failed to update user")
		}
		if user.Role != oldRole {
			if _, err := s.logs.LogRoleChanged(ctx, actor, user.ID, oldRole, user.Role); err != nil {
				return err
			}
		}
		_, err = s.logs.LogUserUpdated(ctx, actor, user.ID, changes)
		return err
	})
	if err != nil {
		return nil, passthrough(err, "failed to update user")
	}
	return updated, nil
}

// ChangeRole sets a new role on another account.
func (s *AdminUserService) ChangeRole(ctx context.Context, actor *models.Actor, id string, req dto.ChangeRoleRequest) (*models.AdminUser, error) {
	if err := requireCapability(actor, models.CapChangeRoles); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid role payload")
	}
	if id == actor.ID {
		return nil, appErrors.Clone(appErrors.ErrIllegalState, "administrators cannot change their own role")
	}

	var updated *models.AdminUser
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "user not found", "failed to load user")
		}
		oldRole := user.Role
		user.Role = models.UserRole(req.Role)
		updated = user
		if oldRole == user.Role {
			return nil
		}
		if err := s.repo.Update(ctx, user); err != nil {
			return notFoundOr(err, "user not found", "failed to update user")
		}
		_, err = s.logs.LogRoleChanged(ctx, actor, user.ID, oldRole, user.Role)
		return err
	})
	if err != nil {
		return nil, passthrough(err, "failed to change role")
	}
	return updated, nil
}

// Delete removes another account after the acting admin confirms their own password.
func (s *AdminUserService) Delete(ctx context.Context, actor *models.Actor, id string, req dto.DeleteAdminUserRequest) error {
	if err := requireCapability(actor, models.CapDeleteUsers); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid delete payload")
	}
	if id == actor.ID {
		return appErrors.Clone(appErrors.ErrIllegalState, "administrators cannot delete themselves")
	}

	acting, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrAuthenticationRequired, "")
		}
		return internalError(err, "failed to load acting user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acting.PasswordHash), []byte(req.Password)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "password does not match")
	}

	var deleted *models.AdminUser
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "user not found", "failed to load user")
		}
		if err := s.resets.DeleteByAdmin(ctx, user.ID); err != nil {
			return internalError(err, "failed to remove reset codes")
		}
		if err := s.repo.Delete(ctx, user.ID); err != nil {
			return notFoundOr(err, "user not found", "failed to delete user")
		}
		if _, err := s.logs.LogUserDeleted(ctx, actor, user); err != nil {
			return err
		}
		deleted = user
		return nil
	})
	if err != nil {
		return passthrough(err, "failed to delete user")
	}

	if err := s.notifier.SendCode(ctx, deleted.Email, NotifyAccountDeleted, deleted.Username); err != nil {
		s.logger.Warn("failed to send deletion notice", zap.String("user_id", deleted.ID), zap.Error(err))
	}
	s.logger.Info("admin user deleted", zap.String("user_id", deleted.ID), zap.String("by", actor.Username))
	return nil
}

// ChangePassword changes the acting admin's own password.
func (s *AdminUserService) ChangePassword(ctx context.Context, actor *models.Actor, req dto.ChangePasswordRequest) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid change password payload")
	}
	user, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		return notFoundOr(err, "user not found", "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "current password is incorrect")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.NewPassword)) == nil {
		return appErrors.Clone(appErrors.ErrIllegalState, "new password must differ from the current password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return internalError(err, "failed to hash password")
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
			return notFoundOr(err, "user not found", "failed to update password")
		}
		_, err := s.logs.LogPasswordChanged(ctx, actor, user.ID)
		return err
	})
	return passthroughNil(err, "failed to change password")
}

func (s *AdminUserService) ensureUnique(ctx context.Context, username, email, excludeID string) error {
	if username != "" {
		taken, err := s.repo.ExistsByUsername(ctx, username, excludeID)
		if err != nil {
			return internalError(err, "failed to check username")
		}
		if taken {
			return appErrors.Clone(appErrors.ErrConflict, "username already in use")
		}
	}
	if email != "" {
		taken, err := s.repo.ExistsByEmail(ctx, email, excludeID)
		if err != nil {
			return internalError(err, "failed to check email")
		}
		if taken {
			return appErrors.Clone(appErrors.ErrConflict, "email already in use")
		}
	}
	return nil
}

// generateCode returns a uniformly random six digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
