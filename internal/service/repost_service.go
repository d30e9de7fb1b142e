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

type repostRepository interface {
	FindByID(ctx context.Context, id string) (*models.Repost, error)
	List(ctx context.Context, filter models.RepostFilter) ([]models.Repost, int, error)
	Create(ctx context.Context, repost *models.Repost) error
	Update(ctx context.Context, repost *models.Repost) error
	Delete(ctx context.Context, id string) error
}

// RepostService orchestrates the repost lifecycle and the parent post reply counter.
type RepostService struct {
	repo      repostRepository
	posts     postRepository
	files     mediaStore
	logs      *ModerationLogService
	policy    *ApprovalPolicy
	tx        txRunner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// RepostServiceDeps groups RepostService collaborators.
type RepostServiceDeps struct {
	Repo      repostRepository
	Posts     postRepository
	Files     mediaStore
	Logs      *ModerationLogService
	Policy    *ApprovalPolicy
	Tx        txRunner
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewRepostService constructs a repost service.
func NewRepostService(deps RepostServiceDeps) *RepostService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = dto.NewValidator()
	}
	return &RepostService{
		repo:      deps.Repo,
		posts:     deps.Posts,
		files:     deps.Files,
		logs:      deps.Logs,
		policy:    deps.Policy,
		tx:        deps.Tx,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    deps.Logger,
	}
}

// Create stores a repost on behalf of a moderator and always logs it.
func (s *RepostService) Create(ctx context.Context, actor *models.Actor, req dto.CreateRepostRequest) (*models.Repost, error) {
	if err := requireCapability(actor, models.CapModeratePosts); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, req, false)
}

// Submit stores a public reply. The parent must be publicly visible, and the reply is
// logged only when actor is an authenticated admin.
func (s *RepostService) Submit(ctx context.Context, actor *models.Actor, req dto.CreateRepostRequest) (*models.Repost, error) {
	return s.create(ctx, actor, req, true)
}

func (s *RepostService) create(ctx context.Context, actor *models.Actor, req dto.CreateRepostRequest, public bool) (*models.Repost, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid repost payload")
	}
	content := sanitize.OptionalText(req.Content)
	if deref(content) == "" && req.File == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content or file is required")
	}

	parent, err := s.posts.FindByID(ctx, req.PostID)
	if err != nil {
		return nil, notFoundOr(err, "post not found", "failed to load post")
	}
	if public && !parent.ApprovalStatus.Visible() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
	}

	repost := &models.Repost{
		ID:      uuid.NewString(),
		PostID:  parent.ID,
		Content: content,
	}
	if req.File != nil {
		name, fileType, err := s.files.Save(req.File)
		if err != nil {
			return nil, err
		}
		repost.FileURL = &name
		repost.FileType = &fileType
	}

	decision := s.policy.Decide(repost.HasFile(), screenedText(req.Content, content), "")
	repost.ApprovalStatus = decision.ApprovalStatus
	repost.FileStatus = decision.FileStatus

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, repost); err != nil {
			return internalError(err, "failed to create repost")
		}
		if err := s.posts.IncrementReplyCount(ctx, parent.ID); err != nil {
			return notFoundOr(err, "post not found", "failed to update reply count")
		}
		if actor == nil {
			return nil
		}
		_, err := s.logs.LogRepostCreated(ctx, actor, repost)
		return err
	})
	if err != nil {
		if repost.HasFile() {
			if cleanupErr := s.files.Delete(*repost.FileURL); cleanupErr != nil {
				s.logger.Warn("orphaned upload", zap.String("file", *repost.FileURL), zap.Error(cleanupErr))
			}
		}
		return nil, passthrough(err, "failed to create repost")
	}

	s.metrics.RecordSubmission("repost", repost.ApprovalStatus)
	s.logger.Info("repost created",
		zap.String("repost_id", repost.ID),
		zap.String("post_id", repost.PostID),
		zap.String("approval_status", string(repost.ApprovalStatus)),
	)
	return repost, nil
}

// Update applies a partial update. Moving the repost to another post shifts the reply counters.
func (s *RepostService) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateRepostRequest) (*models.Repost, error) {
	if err := requireCapability(actor, models.CapModeratePosts); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid repost payload")
	}

	var updated *models.Repost
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		repost, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "repost not found", "failed to load repost")
		}
		oldValues := repostSnapshot(repost)

		if req.PostID != nil && *req.PostID != repost.PostID {
			target, err := s.posts.FindByID(ctx, *req.PostID)
			if err != nil {
				return notFoundOr(err, "post not found", "failed to load post")
			}
			if err := s.posts.DecrementReplyCount(ctx, repost.PostID); err != nil {
				return notFoundOr(err, "post not found", "failed to update reply count")
			}
			if err := s.posts.IncrementReplyCount(ctx, target.ID); err != nil {
				return notFoundOr(err, "post not found", "failed to update reply count")
			}
			repost.PostID = target.ID
		}
		if req.Content != nil {
			repost.Content = sanitize.OptionalText(req.Content)
		}
		dropsFile := req.FileStatus != nil && models.FileStatus(*req.FileStatus) == models.FileDelete
		if (req.Content != nil || dropsFile) && deref(repost.Content) == "" && (!repost.HasFile() || dropsFile) {
			return appErrors.Clone(appErrors.ErrValidation, "content or file is required")
		}
		if req.ApprovalStatus != nil {
			repost.ApprovalStatus = models.ApprovalStatus(*req.ApprovalStatus)
		}
		if req.FileStatus != nil {
			repost.FileStatus = models.FileStatus(*req.FileStatus)
		}
		if repost.FileStatus == models.FileDelete && repost.HasFile() {
			name := *repost.FileURL
			if err := s.files.Delete(name); err != nil {
				return err
			}
			repost.FileURL = nil
			repost.FileType = nil
			if _, err := s.logs.LogRepostFileDeleted(ctx, actor, repost.ID, name); err != nil {
				return err
			}
		}

		if err := s.repo.Update(ctx, repost); err != nil {
			return notFoundOr(err, "repost not found", "failed to update repost")
		}
		if _, err := s.logs.LogRepostUpdated(ctx, actor, repost.ID, oldValues, repostSnapshot(repost)); err != nil {
			return err
		}
		updated = repost
		return nil
	})
	if err != nil {
		return nil, passthrough(err, "failed to update repost")
	}
	return updated, nil
}

// Delete removes a repost and its stored file. A failed file deletion aborts the whole operation.
func (s *RepostService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if err := requireCapability(actor, models.CapModeratePosts); err != nil {
		return err
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		repost, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "repost not found", "failed to load repost")
		}
		if repost.HasFile() {
			if err := s.files.Delete(*repost.FileURL); err != nil {
				return err
			}
		}
		if err := s.posts.DecrementReplyCount(ctx, repost.PostID); err != nil {
			return notFoundOr(err, "post not found", "failed to update reply count")
		}
		if err := s.repo.Delete(ctx, repost.ID); err != nil {
			return notFoundOr(err, "repost not found", "failed to delete repost")
		}
		_, err = s.logs.LogRepostDeleted(ctx, actor, repost)
		return err
	})
	if err != nil {
		return passthrough(err, "failed to delete repost")
	}
	s.logger.Info("repost deleted", zap.String("repost_id", id), zap.String("by", actor.Username))
	return nil
}

// Approve marks a repost APPROVED.
func (s *RepostService) Approve(ctx context.Context, actor *models.Actor, id, reason string) (*models.Repost, error) {
	return s.decide(ctx, actor, id, reason, models.ApprovalApproved)
}

// Reject marks a repost REJECTED.
func (s *RepostService) Reject(ctx context.Context, actor *models.Actor, id, reason string) (*models.Repost, error) {
	return s.decide(ctx, actor, id, reason, models.ApprovalRejected)
}

// decide records the change as REPOST_UPDATED with a reason alongside the diff.
func (s *RepostService) decide(ctx context.Context, actor *models.Actor, id, reason string, status models.ApprovalStatus) (*models.Repost, error) {
	if err := requireCapability(actor, models.CapModeratePosts); err != nil {
		return nil, err
	}
	reason = sanitize.Text(reason)

	var decided *models.Repost
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		repost, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "repost not found", "failed to load repost")
		}
		if repost.ApprovalStatus == status {
			return appErrors.Clone(appErrors.ErrIllegalState, "repost is already "+strings.ToLower(string(status)))
		}
		oldValues := repostSnapshot(repost)
		repost.ApprovalStatus = status
		if err := s.repo.Update(ctx, repost); err != nil {
			return notFoundOr(err, "repost not found", "failed to update repost")
		}
		newValues := repostSnapshot(repost)
		if reason != "" {
			newValues["reason"] = reason
		}
		if _, err := s.logs.LogRepostUpdated(ctx, actor, repost.ID, oldValues, newValues); err != nil {
			return err
		}
		decided = repost
		return nil
	})
	if err != nil {
		return nil, passthrough(err, "failed to update repost")
	}
	return decided, nil
}

// Get returns a repost in any approval state.
func (s *RepostService) Get(ctx context.Context, id string) (*models.Repost, error) {
	repost, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "repost not found", "failed to load repost")
	}
	return repost, nil
}

// List returns reposts in any approval state.
func (s *RepostService) List(ctx context.Context, filter models.RepostFilter) ([]models.Repost, *models.Pagination, error) {
	reposts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list reposts")
	}
	return reposts, pagination(filter.Page, filter.PageSize, total), nil
}

// ListVisibleByPost returns the visible replies of a visible post.
func (s *RepostService) ListVisibleByPost(ctx context.Context, postID string, filter models.RepostFilter) ([]models.Repost, *models.Pagination, error) {
	parent, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, nil, notFoundOr(err, "post not found", "failed to load post")
	}
	if !parent.ApprovalStatus.Visible() {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
	}
	filter.PostID = postID
	filter.Statuses = models.VisibleStatuses
	return s.List(ctx, filter)
}

func repostSnapshot(r *models.Repost) map[string]interface{} {
	return map[string]interface{}{
		"content":        deref(r.Content),
		"approvalStatus": string(r.ApprovalStatus),
		"fileStatus":     string(r.FileStatus),
		"postId":         r.PostID,
	}
}
