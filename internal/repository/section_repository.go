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

const sectionColumns = `id, section_type, status, post_count, created_at, updated_at`

// SectionRepository provides database access for sections and their post counters.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new instance of SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns every section ordered by type.
func (r *SectionRepository) List(ctx context.Context) ([]models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections ORDER BY section_type ASC`
	var sections []models.Section
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &sections, query); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// ListByStatus returns sections in the given status.
func (r *SectionRepository) ListByStatus(ctx context.Context, status models.SectionStatus) ([]models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE status = $1 ORDER BY section_type ASC`
	var sections []models.Section
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &sections, query, status); err != nil {
		return nil, fmt.Errorf("list sections by status: %w", err)
	}
	return sections, nil
}

// FindByID returns a section by identifier.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE id = $1 LIMIT 1`
	var section models.Section
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &section, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find section by id: %w", err)
	}
	return &section, nil
}

// FindByType returns the section for a section type.
func (r *SectionRepository) FindByType(ctx context.Context, sectionType models.SectionType) (*models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE section_type = $1 LIMIT 1`
	var section models.Section
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &section, query, sectionType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find section by type: %w", err)
	}
	return &section, nil
}

// CreateIfMissing inserts the section unless its type already exists. It reports whether a row was written.
func (r *SectionRepository) CreateIfMissing(ctx context.Context, section *models.Section) (bool, error) {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now

	const query = `INSERT INTO sections (id, section_type, status, post_count, created_at, updated_at) VALUES (:id, :section_type, :status, :post_count, :created_at, :updated_at) ON CONFLICT (section_type) DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, section)
	if err != nil {
		return false, fmt.Errorf("create section: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create section rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateStatus changes the section status.
func (r *SectionRepository) UpdateStatus(ctx context.Context, id string, status models.SectionStatus) error {
	const query = `UPDATE sections SET status = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, "update section status", query, id, status, time.Now().UTC())
}

// IncrementPostCount atomically adds one to the post counter.
func (r *SectionRepository) IncrementPostCount(ctx context.Context, id string) error {
	const query = `UPDATE sections SET post_count = post_count + 1, updated_at = $2 WHERE id = $1`
	return r.execOne(ctx, "increment section post count", query, id, time.Now().UTC())
}

// DecrementPostCount atomically subtracts one from the post counter, never going below zero.
func (r *SectionRepository) DecrementPostCount(ctx context.Context, id string) error {
	const query = `UPDATE sections SET post_count = GREATEST(post_count - 1, 0), updated_at = $2 WHERE id = $1`
	return r.execOne(ctx, "decrement section post count", query, id, time.Now().UTC())
}

func (r *SectionRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireAffected(res, op)
}
