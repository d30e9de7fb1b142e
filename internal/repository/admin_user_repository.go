package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/rchan-moderation-api/internal/models"
)

const adminUserColumns = `id, username, email, password_hash, role, account_enabled, email_verified, verification_code, verification_code_expires_at, first_login, last_login, created_at, updated_at`

var adminUserSorts = map[string]string{
	"created_at": "created_at",
	"username":   "username",
	"email":      "email",
	"last_login": "last_login",
	"lastLogin":  "last_login",
}

// AdminUserRepository provides database access for admin accounts.
type AdminUserRepository struct {
	db *sqlx.DB
}

// NewAdminUserRepository creates a new instance of AdminUserRepository.
func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// FindByID returns an account by identifier.
func (r *AdminUserRepository) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	return r.findOne(ctx, "find admin user by id", `id = $1`, id)
}

// FindByUsername returns an account by username.
func (r *AdminUserRepository) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	return r.findOne(ctx, "find admin user by username", `username = $1`, username)
}

// FindByEmail returns an account by email, compared case-insensitively.
func (r *AdminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	return r.findOne(ctx, "find admin user by email", `LOWER(email) = LOWER($1)`, email)
}

func (r *AdminUserRepository) findOne(ctx context.Context, op, cond string, arg interface{}) (*models.AdminUser, error) {
	query := `SELECT ` + adminUserColumns + ` FROM admin_users WHERE ` + cond + ` LIMIT 1`
	var user models.AdminUser
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// ExistsByUsername reports whether username is taken, ignoring excludeID.
func (r *AdminUserRepository) ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error) {
	return r.exists(ctx, "check username", `username = $1`, username, excludeID)
}

// ExistsByEmail reports whether email is taken, ignoring excludeID.
func (r *AdminUserRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(ctx, "check email", `LOWER(email) = LOWER($1)`, email, excludeID)
}

func (r *AdminUserRepository) exists(ctx context.Context, op, cond, value, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM admin_users WHERE ` + cond + ` AND ($2 = '' OR id::text <> $2))`
	var exists bool
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &exists, query, value, excludeID); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// List returns accounts based on filters with total count.
func (r *AdminUserRepository) List(ctx context.Context, filter models.AdminUserFilter) ([]models.AdminUser, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Enabled != nil {
		args = append(args, *filter.Enabled)
		conditions = append(conditions, fmt.Sprintf("account_enabled = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, containsPattern(filter.Search))
		conditions = append(conditions, fmt.Sprintf(`(LOWER(username) LIKE $%d ESCAPE '\' OR LOWER(email) LIKE $%d ESCAPE '\')`, len(args), len(args)))
	}

	baseQuery := `FROM admin_users WHERE 1=1`
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	limit, offset := pageWindow(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", adminUserColumns, baseQuery, orderBy(filter.SortBy, filter.SortOrder, adminUserSorts, "created_at"), limit, offset)

	exec := executor(ctx, r.db)
	var users []models.AdminUser
	if err := sqlx.SelectContext(ctx, exec, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list admin users: %w", err)
	}

	var total int
	if err := sqlx.GetContext(ctx, exec, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count admin users: %w", err)
	}
	return users, total, nil
}

// Stats aggregates account counts.
func (r *AdminUserRepository) Stats(ctx context.Context) (*models.AdminUserStats, error) {
	const query = `SELECT COUNT(*) AS total,
		COUNT(*) FILTER (WHERE account_enabled) AS enabled,
		COUNT(*) FILTER (WHERE NOT email_verified) AS pending_verification,
		COUNT(*) FILTER (WHERE role = 'ADMIN') AS admins,
		COUNT(*) FILTER (WHERE role = 'MODERATOR') AS moderators
		FROM admin_users`
	var stats models.AdminUserStats
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &stats, query); err != nil {
		return nil, fmt.Errorf("admin user stats: %w", err)
	}
	return &stats, nil
}

// Create inserts a new account.
func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO admin_users (id, username, email, password_hash, role, account_enabled, email_verified, verification_code, verification_code_expires_at, created_at, updated_at) VALUES (:id, :username, :email, :password_hash, :role, :account_enabled, :email_verified, :verification_code, :verification_code_expires_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	return nil
}

// Update writes profile, role, flag and verification columns.
func (r *AdminUserRepository) Update(ctx context.Context, user *models.AdminUser) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE admin_users SET username = :username, email = :email, role = :role, account_enabled = :account_enabled, email_verified = :email_verified, verification_code = :verification_code, verification_code_expires_at = :verification_code_expires_at, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, user)
	if err != nil {
		return fmt.Errorf("update admin user: %w", err)
	}
	return requireAffected(res, "update admin user")
}

// UpdatePassword replaces the stored password hash.
func (r *AdminUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE admin_users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	res, err := executor(ctx, r.db).ExecContext(ctx, query, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	return requireAffected(res, "update admin password")
}

// RecordLogin sets last_login and, on the first successful login, first_login.
func (r *AdminUserRepository) RecordLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE admin_users SET first_login = COALESCE(first_login, $2), last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// Delete removes an account.
func (r *AdminUserRepository) Delete(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete admin user: %w", err)
	}
	return requireAffected(res, "delete admin user")
}
