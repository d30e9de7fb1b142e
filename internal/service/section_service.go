package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

const activeSectionsCacheKey = "sections:active"

type sectionRepository interface {
	List(ctx context.Context) ([]models.Section, error)
	ListByStatus(ctx context.Context, status models.SectionStatus) ([]models.Section, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindByType(ctx context.Context, sectionType models.SectionType) (*models.Section, error)
	CreateIfMissing(ctx context.Context, section *models.Section) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.SectionStatus) error
	IncrementPostCount(ctx context.Context, id string) error
	DecrementPostCount(ctx context.Context, id string) error
}

// SectionService manages topical sections and their post counters.
type SectionService struct {
	repo     sectionRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewSectionService constructs a section service. cache may be nil.
func NewSectionService(repo sectionRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *SectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Initialize creates a row for every known section type that does not exist yet.
// It returns the types that were created.
func (s *SectionService) Initialize(ctx context.Context) ([]models.SectionType, error) {
	created := make([]models.SectionType, 0)
	for _, info := range models.SectionTypes {
		section := &models.Section{
			ID:          uuid.NewString(),
			SectionType: info.Type,
			Status:      models.SectionActive,
		}
		ok, err := s.repo.CreateIfMissing(ctx, section)
		if err != nil {
			return nil, internalError(err, "failed to initialize sections")
		}
		if ok {
			created = append(created, info.Type)
		}
	}
	if len(created) > 0 {
		s.logger.Info("sections initialized", zap.Int("created", len(created)))
		s.cache.Invalidate(ctx, activeSectionsCacheKey)
	}
	return created, nil
}

// List returns every section.
func (s *SectionService) List(ctx context.Context) ([]models.Section, error) {
	sections, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list sections")
	}
	return sections, nil
}

// ListActive returns ACTIVED sections, served from cache when possible.
func (s *SectionService) ListActive(ctx context.Context) ([]models.Section, error) {
	var cached []models.Section
	if s.cache.Get(ctx, activeSectionsCacheKey, &cached) {
		return cached, nil
	}
	sections, err := s.repo.ListByStatus(ctx, models.SectionActive)
	if err != nil {
		return nil, internalError(err, "failed to list active sections")
	}
	s.cache.Set(ctx, activeSectionsCacheKey, sections, s.cacheTTL)
	return sections, nil
}

// Get returns a section by id.
func (s *SectionService) Get(ctx context.Context, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "section not found", "failed to load section")
	}
	return section, nil
}

// GetByType returns the section for a type name such as "general".
func (s *SectionService) GetByType(ctx context.Context, raw string) (*models.Section, error) {
	sectionType, err := parseSectionType(raw)
	if err != nil {
		return nil, err
	}
	section, err := s.repo.FindByType(ctx, sectionType)
	if err != nil {
		return nil, notFoundOr(err, "section not found", "failed to load section")
	}
	return section, nil
}

// AvailableTypes lists every section type with its display name and description.
func (s *SectionService) AvailableTypes() []models.SectionTypeInfo {
	out := make([]models.SectionTypeInfo, len(models.SectionTypes))
	copy(out, models.SectionTypes)
	return out
}

// UpdateStatus activates or deactivates a section.
func (s *SectionService) UpdateStatus(ctx context.Context, actor *models.Actor, id string, status models.SectionStatus) (*models.Section, error) {
	if err := requireCapability(actor, models.CapManageSections); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid section status")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, notFoundOr(err, "section not found", "failed to update section")
	}
	s.cache.Invalidate(ctx, activeSectionsCacheKey)
	s.logger.Info("section status updated", zap.String("section_id", id), zap.String("status", string(status)), zap.String("by", actor.Username))
	return s.Get(ctx, id)
}

// ResolveForPosting returns the section a new post goes into. An empty name
// means GENERAL. Inactive sections do not accept posts.
func (s *SectionService) ResolveForPosting(ctx context.Context, raw string) (*models.Section, error) {
	if strings.TrimSpace(raw) == "" {
		raw = string(models.SectionGeneral)
	}
	section, err := s.GetByType(ctx, raw)
	if err != nil {
		return nil, err
	}
	if section.Status != models.SectionActive {
		return nil, appErrors.Clone(appErrors.ErrIllegalState, "section is not accepting posts")
	}
	return section, nil
}

// IncrementPostCount bumps the section counter.
func (s *SectionService) IncrementPostCount(ctx context.Context, id string) error {
	if err := s.repo.IncrementPostCount(ctx, id); err != nil {
		return notFoundOr(err, "section not found", "failed to update section post count")
	}
	return nil
}

// DecrementPostCount lowers the section counter, never below zero.
func (s *SectionService) DecrementPostCount(ctx context.Context, id string) error {
	if err := s.repo.DecrementPostCount(ctx, id); err != nil {
		return notFoundOr(err, "section not found", "failed to update section post count")
	}
	return nil
}

func parseSectionType(raw string) (models.SectionType, error) {
	t := models.SectionType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown section type")
	}
	return t, nil
}
