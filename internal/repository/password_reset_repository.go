package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/rchan-moderation-api/internal/models"
)

const resetCodeColumns = `id, admin_user_id, code, expires_at, is_used, created_at`

// PasswordResetRepository stores password reset codes.
type PasswordResetRepository struct {
	db *sqlx.DB
}

// NewPasswordResetRepository creates a new instance of PasswordResetRepository.
func NewPasswordResetRepository(db *sqlx.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Create inserts a new code.
func (r *PasswordResetRepository) Create(ctx context.Context, code *models.PasswordResetCode) error {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO password_reset_codes (id, admin_user_id, code, expires_at, is_used, created_at) VALUES (:id, :admin_user_id, :code, :expires_at, :is_used, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, code); err != nil {
		return fmt.Errorf("create reset code: %w", err)
	}
	return nil
}

// FindUsable returns the unused, unexpired code matching value for the account.
func (r *PasswordResetRepository) FindUsable(ctx context.Context, adminUserID, value string, now time.Time) (*models.PasswordResetCode, error) {
	query := `SELECT ` + resetCodeColumns + ` FROM password_reset_codes WHERE admin_user_id = $1 AND code = $2 AND is_used = FALSE AND expires_at > $3 ORDER BY created_at DESC LIMIT 1`
	var code models.PasswordResetCode
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &code, query, adminUserID, value, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find reset code: %w", err)
	}
	return &code, nil
}

// InvalidateUnused marks every outstanding code of the account as used.
func (r *PasswordResetRepository) InvalidateUnused(ctx context.Context, adminUserID string) (int64, error) {
	res, err := executor(ctx, r.db).ExecContext(ctx, `UPDATE password_reset_codes SET is_used = TRUE WHERE admin_user_id = $1 AND is_used = FALSE`, adminUserID)
	if err != nil {
		return 0, fmt.Errorf("invalidate reset codes: %w", err)
	}
	return res.RowsAffected()
}

// MarkUsed consumes a code. It fails with sql.ErrNoRows when the code was already used.
func (r *PasswordResetRepository) MarkUsed(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, `UPDATE password_reset_codes SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`, id)
	if err != nil {
		return fmt.Errorf("mark reset code used: %w", err)
	}
	return requireAffected(res, "mark reset code used")
}

// DeleteByAdmin removes every code owned by the account.
func (r *PasswordResetRepository) DeleteByAdmin(ctx context.Context, adminUserID string) error {
	if _, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM password_reset_codes WHERE admin_user_id = $1`, adminUserID); err != nil {
		return fmt.Errorf("delete reset codes: %w", err)
	}
	return nil
}

// DeleteExpiredBefore purges codes that expired before cutoff and returns how many were removed.
func (r *PasswordResetRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM password_reset_codes WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge reset codes: %w", err)
	}
	return res.RowsAffected()
}
