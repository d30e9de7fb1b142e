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

const moderationLogColumns = `id, action, admin_user_id, admin_username, post_id, repost_id, details, created_at`

var moderationLogSorts = map[string]string{
	"created_at": "created_at",
	"createdAt":  "created_at",
	"action":     "action",
}

// ModerationLogRepository is the append-only store for moderation log entries.
// It exposes no update or delete.
type ModerationLogRepository struct {
	db *sqlx.DB
}

// NewModerationLogRepository creates a new instance of ModerationLogRepository.
func NewModerationLogRepository(db *sqlx.DB) *ModerationLogRepository {
	return &ModerationLogRepository{db: db}
}

// Create appends an entry.
func (r *ModerationLogRepository) Create(ctx context.Context, entry *models.ModerationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Details == nil {
		entry.Details = models.Details{}
	}
	const query = `INSERT INTO moderation_logs (id, action, admin_user_id, admin_username, post_id, repost_id, details, created_at) VALUES (:id, :action, :admin_user_id, :admin_username, :post_id, :repost_id, :details, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, entry); err != nil {
		return fmt.Errorf("create moderation log: %w", err)
	}
	return nil
}

// FindByID returns an entry by identifier.
func (r *ModerationLogRepository) FindByID(ctx context.Context, id string) (*models.ModerationLog, error) {
	query := `SELECT ` + moderationLogColumns + ` FROM moderation_logs WHERE id = $1 LIMIT 1`
	var entry models.ModerationLog
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find moderation log: %w", err)
	}
	return &entry, nil
}

// List returns a page of entries matching filter, newest first by default, with the total count.
func (r *ModerationLogRepository) List(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, int, error) {
	where, args := logConditions(filter)
	limit, offset := pageWindow(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM moderation_logs%s ORDER BY %s LIMIT %d OFFSET %d", moderationLogColumns, where, orderBy(filter.SortBy, filter.SortOrder, moderationLogSorts, "created_at"), limit, offset)

	exec := executor(ctx, r.db)
	var entries []models.ModerationLog
	if err := sqlx.SelectContext(ctx, exec, &entries, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list moderation logs: %w", err)
	}

	var total int
	if err := sqlx.GetContext(ctx, exec, &total, "SELECT COUNT(*) FROM moderation_logs"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count moderation logs: %w", err)
	}
	return entries, total, nil
}

// ListAll returns up to limit entries matching filter, newest first, without paging.
func (r *ModerationLogRepository) ListAll(ctx context.Context, filter models.ModerationLogFilter, limit int) ([]models.ModerationLog, error) {
	where, args := logConditions(filter)
	query := fmt.Sprintf("SELECT %s FROM moderation_logs%s ORDER BY created_at DESC LIMIT %d", moderationLogColumns, where, limit)
	var entries []models.ModerationLog
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &entries, query, args...); err != nil {
		return nil, fmt.Errorf("export moderation logs: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries matching filter.
func (r *ModerationLogRepository) Count(ctx context.Context, filter models.ModerationLogFilter) (int64, error) {
	where, args := logConditions(filter)
	var total int64
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &total, "SELECT COUNT(*) FROM moderation_logs"+where, args...); err != nil {
		return 0, fmt.Errorf("count moderation logs: %w", err)
	}
	return total, nil
}

// CountDistinctAdmins returns how many admins have at least one entry.
func (r *ModerationLogRepository) CountDistinctAdmins(ctx context.Context) (int64, error) {
	var total int64
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &total, `SELECT COUNT(DISTINCT admin_user_id) FROM moderation_logs`); err != nil {
		return 0, fmt.Errorf("count distinct admins: %w", err)
	}
	return total, nil
}

// CountDistinctPosts returns how many distinct posts the matching entries reference.
func (r *ModerationLogRepository) CountDistinctPosts(ctx context.Context, filter models.ModerationLogFilter) (int64, error) {
	return r.countDistinct(ctx, "post_id", filter)
}

// CountDistinctReposts returns how many distinct reposts the matching entries reference.
func (r *ModerationLogRepository) CountDistinctReposts(ctx context.Context, filter models.ModerationLogFilter) (int64, error) {
	return r.countDistinct(ctx, "repost_id", filter)
}

func (r *ModerationLogRepository) countDistinct(ctx context.Context, column string, filter models.ModerationLogFilter) (int64, error) {
	where, args := logConditions(filter)
	query := fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM moderation_logs%s", column, where)
	var total int64
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &total, query, args...); err != nil {
		return 0, fmt.Errorf("count distinct %s: %w", column, err)
	}
	return total, nil
}

// CountByAction groups matching entries by action.
func (r *ModerationLogRepository) CountByAction(ctx context.Context, filter models.ModerationLogFilter) ([]models.ActionCount, error) {
	where, args := logConditions(filter)
	query := fmt.Sprintf("SELECT action, COUNT(*) AS count FROM moderation_logs%s GROUP BY action ORDER BY action", where)
	var counts []models.ActionCount
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count logs by action: %w", err)
	}
	return counts, nil
}

func logConditions(filter models.ModerationLogFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.AdminUserID != "" {
		args = append(args, filter.AdminUserID)
		conditions = append(conditions, fmt.Sprintf("admin_user_id = $%d", len(args)))
	}
	if filter.PostID != "" {
		args = append(args, filter.PostID)
		conditions = append(conditions, fmt.Sprintf("post_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
