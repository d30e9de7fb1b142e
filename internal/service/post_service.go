package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
	"github.com/noah-isme/rchan-moderation-api/pkg/sanitize"
)

type postRepository interface {
	FindByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
	IncrementReplyCount(ctx context.Context, id string) error
	DecrementReplyCount(ctx context.Context, id string) error
}

type repostFileLister interface {
	FileKeysByPost(ctx context.Context, postID string) ([]string, error)
}

type mediaStore interface {
	Save(upload *dto.FileUpload) (string, models.FileType, error)
	Delete(name string) error
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PostService orchestrates the post lifecycle. Every mutation runs in one transaction
// covering the row, the section counter and the moderation log entry.
type PostService struct {
	repo      postRepository
	reposts   repostFileLister
	sections  *SectionService
	files     mediaStore
	logs      *ModerationLogService
	policy    *ApprovalPolicy
	tx        txRunner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// PostServiceDeps groups PostService collaborators.
type PostServiceDeps struct {
	Repo      postRepository
	Reposts   repostFileLister
	Sections  *SectionService
	Files     mediaStore
	Logs      *ModerationLogService
	Policy    *ApprovalPolicy
	Tx        txRunner
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewPostService constructs a post service.
func NewPostService(deps PostServiceDeps) *PostService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = dto.NewValidator()
	}
	return &PostService{
		repo:      deps.Repo,
		reposts:   deps.Reposts,
		sections:  deps.Sections,
		files:     deps.Files,
		logs:      deps.Logs,
		policy:    deps.Policy,
		tx:        deps.Tx,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    deps.Logger,
	}
}

// Create stores a post on behalf of a moderator and always logs it.
func (s *PostService) Create(ctx context.Context, actor *models.Actor, req dto.CreatePostRequest) (*models.Post, error) {
	if err := requireCapability(actor, models.CapModeratePosts); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, req)
}

// Submit stores a public submission. It is logged only when actor is an authenticated admin.
func (s *PostService) Submit(ctx context.Context, actor *models.Actor, req dto.CreatePostRequest) (*models.Post, error) {
	return s.create(ctx, actor, req)
}

func (s *PostService) create(ctx context.Context, actor *models.Actor, req dto.CreatePostRequest) (*models.Post, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid post payload")
	}
	title := sanitize.Text(req.Title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	content := sanitize.OptionalText(req.Content)

	section, err := s.sections.ResolveForPosting(ctx, req.Section)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		ID:          uuid.NewString(),
		SectionID:   section.ID,
		SectionType: section.SectionType,
		Title:       title,
		Content:     content,
	}
	if req.File != nil {
		name, fileType, err := s.files.Save(req.File)
		if err != nil {
			return nil, err
		}
		post.FileURL = &name
		post.FileType = &fileType
	}

	decision := s.policy.Decide(post.HasFile(), screenedText(req.Content, content), "")
	post.ApprovalStatus = decision.ApprovalStatus
	post.FileStatus = decision.FileStatus

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, post); err != nil {
			return internalError(err, "failed to create post")
		}
		if err := s.sections.IncrementPostCount(ctx, section.ID); err != nil {
			return err
		}
		if actor == nil {
			return nil
		}
		_, err := s.logs.LogPostCreated(ctx, actor, post)
		return err
	})
	if err != nil {
		if post.HasFile() {
			if cleanupErr := s.files.Delete(*post.FileURL); cleanupErr != nil {
				s.logger.Warn("orphaned upload", zap.String("file", *post.FileURL), zap.Error(cleanupErr))
			}
		}
		return nil, passthrough(err, "failed to create post")
	}

	s.metrics.RecordSubmission("post", post.ApprovalStatus)
	s.logger.Info("post created",
		zap.String("post_id", post.ID),
		zap.String("section", string(post.SectionType)),
		zap.String("approval_status", string(post.ApprovalStatus)),
	)
	return post, nil
}

// Update applies a partial update. Moving the post decrements the old section and increments the
// new one. Setting file_status DELETE removes the stored file.
func (s *PostService) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdatePostRequest) (*models.Post, error) {
	if err := requireCapability(actor, models.CapModeratePosts); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid post payload")
	}

	var updated *models.Post
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		post, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "post not found", "failed to load post")
		}
		oldValues := postSnapshot(post)

		if req.Section != nil {
			target, err := s.sections.GetByType(ctx, *req.Section)
			if err != nil {
				return err
			}
			if target.ID != post.SectionID {
				if err := s.sections.DecrementPostCount(ctx, post.SectionID); err != nil {
					return err
				}
				if err := s.sections.IncrementPostCount(ctx, target.ID); err != nil {
					return err
				}
				post.SectionID = target.ID
				post.SectionType = target.SectionType
			}
		}
		if req.Title != nil {
			title := sanitize.Text(*req.Title)
			if title == "" {
				return appErrors.Clone(appErrors.ErrValidation, "title must not be empty")
			}
			post.Title = title
		}
		if req.Content != nil {
			post.Content = sanitize.OptionalText(req.Content)
		}
		if req.ApprovalStatus != nil {
			post.ApprovalStatus = models.ApprovalStatus(*req.ApprovalStatus)
		}
		if req.FileStatus != nil {
			post.FileStatus = models.FileStatus(*req.FileStatus)
		}
		if post.FileStatus == models.FileDelete && post.HasFile() {
			name := *post.FileURL
			if err := s.files.Delete(name); err != nil {
				return err
			}
			post.FileURL = nil
			post.FileType = nil
			if _, err := s.logs.LogPostFileDeleted(ctx, actor, post.ID, name); err != nil {
				return err
			}
		}

		if err := s.repo.Update(ctx, post); err != nil {
			return notFoundOr(err, "post not found", "failed to update post")
		}
		if _, err := s.logs.LogPostUpdated(ctx, actor, post.ID, oldValues, postSnapshot(post)); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, passthrough(err, "failed to update post")
	}
	return updated, nil
}

// Delete removes a post, its stored files and its reposts. If any file cannot be deleted
// nothing is removed and nothing is logged.
func (s *PostService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if err := requireCapability(actor, models.CapModeratePosts); err != nil {
		return err
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		post, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "post not found", "failed to load post")
		}
		if post.HasFile() {
			if err := s.files.Delete(*post.FileURL); err != nil {
				return err
			}
		}
		keys, err := s.reposts.FileKeysByPost(ctx, post.ID)
		if err != nil {
			return internalError(err, "failed to load repost files")
		}
		for _, key := range keys {
			if err := s.files.Delete(key); err != nil {
				return err
			}
		}
		if err := s.sections.DecrementPostCount(ctx, post.SectionID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, post.ID); err != nil {
			return notFoundOr(err, "post not found", "failed to delete post")
		}
		_, err = s.logs.LogPostDeleted(ctx, actor, post)
		return err
	})
	if err != nil {
		return passthrough(err, "failed to delete post")
	}
	s.logger.Info("post deleted", zap.String("post_id", id), zap.String("by", actor.Username))
	return nil
}

// Approve marks a post APPROVED.
func (s *PostService) Approve(ctx context.Context, actor *models.Actor, id, reason string) (*models.Post, error) {
	return s.decide(ctx, actor, id, reason, models.ApprovalApproved)
}

// Reject marks a post REJECTED.
func (s *PostService) Reject(ctx context.Context, actor *models.Actor, id, reason string) (*models.Post, error) {
	return s.decide(ctx, actor, id, reason, models.ApprovalRejected)
}

func (s *PostService) decide(ctx context.Context, actor *models.Actor, id, reason string, status models.ApprovalStatus) (*models.Post, error) {
	if err := requireCapability(actor, models.CapModeratePosts); err != nil {
		return nil, err
	}
	reason = sanitize.Text(reason)

	var decided *models.Post
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		post, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "post not found", "failed to load post")
		}
		previous := post.ApprovalStatus
		if previous == status {
			return appErrors.Clone(appErrors.ErrIllegalState, "post is already "+strings.ToLower(string(status)))
		}
		post.ApprovalStatus = status
		if err := s.repo.Update(ctx, post); err != nil {
			return notFoundOr(err, "post not found", "failed to update post")
		}
		if status == models.ApprovalApproved {
			_, err = s.logs.LogPostApproved(ctx, actor, post.ID, reason, previous)
		} else {
			_, err = s.logs.LogPostRejected(ctx, actor, post.ID, reason, previous)
		}
		if err != nil {
			return err
		}
		decided = post
		return nil
	})
	if err != nil {
		return nil, passthrough(err, "failed to update post")
	}
	return decided, nil
}

// Get returns a post in any approval state.
func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "post not found", "failed to load post")
	}
	return post, nil
}

// GetVisible returns a post only if it is shown on public feeds.
func (s *PostService) GetVisible(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.ApprovalStatus.Visible() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
	}
	return post, nil
}

// List returns posts in any approval state.
func (s *PostService) List(ctx context.Context, filter models.PostFilter) ([]models.Post, *models.Pagination, error) {
	posts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list posts")
	}
	return posts, pagination(filter.Page, filter.PageSize, total), nil
}

// ListVisible returns APPROVED and AUTO_APPROVED posts only.
func (s *PostService) ListVisible(ctx context.Context, filter models.PostFilter) ([]models.Post, *models.Pagination, error) {
	filter.Statuses = models.VisibleStatuses
	return s.List(ctx, filter)
}

func postSnapshot(p *models.Post) map[string]interface{} {
	return map[string]interface{}{
		"title":          p.Title,
		"content":        deref(p.Content),
		"approvalStatus": string(p.ApprovalStatus),
		"fileStatus":     string(p.FileStatus),
		"section":        string(p.SectionType),
	}
}
