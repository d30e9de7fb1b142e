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
	"github.com/lib/pq"

	"github.com/noah-isme/rchan-moderation-api/internal/models"
)

const repostColumns = `id, post_id, content, file_url, file_type, file_status, approval_status, created_at, updated_at`

var repostSorts = map[string]string{
	"created_at":  "created_at",
	"createdDate": "created_at",
	"updated_at":  "updated_at",
}

// RepostRepository provides database access for reposts.
type RepostRepository struct {
	db *sqlx.DB
}

// NewRepostRepository creates a new instance of RepostRepository.
func NewRepostRepository(db *sqlx.DB) *RepostRepository {
	return &RepostRepository{db: db}
}

// FindByID returns a repost by identifier.
func (r *RepostRepository) FindByID(ctx context.Context, id string) (*models.Repost, error) {
	query := `SELECT ` + repostColumns + ` FROM reposts WHERE id = $1 LIMIT 1`
	var repost models.Repost
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &repost, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find repost by id: %w", err)
	}
	return &repost, nil
}

// List returns reposts matching filter with the total count.
func (r *RepostRepository) List(ctx context.Context, filter models.RepostFilter) ([]models.Repost, int, error) {
	var conditions []string
	var args []interface{}

	if filter.PostID != "" {
		args = append(args, filter.PostID)
		conditions = append(conditions, fmt.Sprintf("post_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		conditions = append(conditions, fmt.Sprintf("approval_status = ANY($%d)", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := pageWindow(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM reposts%s ORDER BY %s LIMIT %d OFFSET %d", repostColumns, where, orderBy(filter.SortBy, filter.SortOrder, repostSorts, "created_at"), limit, offset)

	exec := executor(ctx, r.db)
	var reposts []models.Repost
	if err := sqlx.SelectContext(ctx, exec, &reposts, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reposts: %w", err)
	}

	var total int
	if err := sqlx.GetContext(ctx, exec, &total, "SELECT COUNT(*) FROM reposts"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count reposts: %w", err)
	}
	return reposts, total, nil
}

// Create inserts a new repost.
func (r *RepostRepository) Create(ctx context.Context, repost *models.Repost) error {
	if repost.ID == "" {
		repost.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if repost.CreatedAt.IsZero() {
		repost.CreatedAt = now
	}
	repost.UpdatedAt = now

	const query = `INSERT INTO reposts (id, post_id, content, file_url, file_type, file_status, approval_status, created_at, updated_at) VALUES (:id, :post_id, :content, :file_url, :file_type, :file_status, :approval_status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, repost); err != nil {
		return fmt.Errorf("create repost: %w", err)
	}
	return nil
}

// Update writes every mutable column of repost.
func (r *RepostRepository) Update(ctx context.Context, repost *models.Repost) error {
	repost.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reposts SET post_id = :post_id, content = :content, file_url = :file_url, file_type = :file_type, file_status = :file_status, approval_status = :approval_status, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, repost)
	if err != nil {
		return fmt.Errorf("update repost: %w", err)
	}
	return requireAffected(res, "update repost")
}

// Delete removes a repost.
func (r *RepostRepository) Delete(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM reposts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete repost: %w", err)
	}
	return requireAffected(res, "delete repost")
}

// FileKeysByPost returns stored file keys of every repost under postID.
func (r *RepostRepository) FileKeysByPost(ctx context.Context, postID string) ([]string, error) {
	var keys []string
	const query = `SELECT file_url FROM reposts WHERE post_id = $1 AND file_url IS NOT NULL AND file_url <> ''`
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &keys, query, postID); err != nil {
		return nil, fmt.Errorf("list repost files: %w", err)
	}
	return keys, nil
}
