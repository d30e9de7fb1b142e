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

const postSelect = `SELECT p.id, p.section_id, s.section_type, p.title, p.content, p.file_url, p.file_type, p.file_status, p.approval_status, p.reply_count, p.created_at, p.updated_at FROM posts p JOIN sections s ON s.id = p.section_id`

var postSorts = map[string]string{
	"created_at":  "p.created_at",
	"createdDate": "p.created_at",
	"updated_at":  "p.updated_at",
	"title":       "p.title",
	"reply_count": "p.reply_count",
	"replyCount":  "p.reply_count",
}

// PostRepository provides database access for posts.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a new instance of PostRepository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// FindByID returns a post by identifier.
func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	query := postSelect + ` WHERE p.id = $1 LIMIT 1`
	var post models.Post
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &post, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return &post, nil
}

// List returns posts matching filter with the total count.
func (r *PostRepository) List(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error) {
	var conditions []string
	var args []interface{}

	if filter.SectionID != "" {
		args = append(args, filter.SectionID)
		conditions = append(conditions, fmt.Sprintf("p.section_id = $%d", len(args)))
	}
	if filter.SectionType != nil {
		args = append(args, *filter.SectionType)
		conditions = append(conditions, fmt.Sprintf("s.section_type = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		conditions = append(conditions, fmt.Sprintf("p.approval_status = ANY($%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, containsPattern(filter.Search))
		conditions = append(conditions, fmt.Sprintf(`(LOWER(p.title) LIKE $%d ESCAPE '\' OR LOWER(COALESCE(p.content, '')) LIKE $%d ESCAPE '\')`, len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := pageWindow(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", postSelect, where, orderBy(filter.SortBy, filter.SortOrder, postSorts, "p.created_at"), limit, offset)

	exec := executor(ctx, r.db)
	var posts []models.Post
	if err := sqlx.SelectContext(ctx, exec, &posts, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM posts p JOIN sections s ON s.id = p.section_id" + where
	var total int
	if err := sqlx.GetContext(ctx, exec, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	return posts, total, nil
}

// Create inserts a new post.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	const query = `INSERT INTO posts (id, section_id, title, content, file_url, file_type, file_status, approval_status, reply_count, created_at, updated_at) VALUES (:id, :section_id, :title, :content, :file_url, :file_type, :file_status, :approval_status, :reply_count, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// Update writes every mutable column of post.
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now().UTC()
	const query = `UPDATE posts SET section_id = :section_id, title = :title, content = :content, file_url = :file_url, file_type = :file_type, file_status = :file_status, approval_status = :approval_status, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, post)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return requireAffected(res, "update post")
}

// Delete removes a post; reposts cascade.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireAffected(res, "delete post")
}

// IncrementReplyCount atomically adds one to the reply counter.
func (r *PostRepository) IncrementReplyCount(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, `UPDATE posts SET reply_count = reply_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment reply count: %w", err)
	}
	return requireAffected(res, "increment reply count")
}

// DecrementReplyCount atomically subtracts one from the reply counter, never going below zero.
func (r *PostRepository) DecrementReplyCount(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, `UPDATE posts SET reply_count = GREATEST(reply_count - 1, 0) WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("decrement reply count: %w", err)
	}
	return requireAffected(res, "decrement reply count")
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func statusStrings(statuses []models.ApprovalStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
