package service

import (
	"context"
	"path"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

type moderationLogRepository interface {
	Create(ctx context.Context, entry *models.ModerationLog) error
	FindByID(ctx context.Context, id string) (*models.ModerationLog, error)
	List(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, int, error)
	Count(ctx context.Context, filter models.ModerationLogFilter) (int64, error)
	CountDistinctAdmins(ctx context.Context) (int64, error)
	CountDistinctPosts(ctx context.Context, filter models.ModerationLogFilter) (int64, error)
	CountDistinctReposts(ctx context.Context, filter models.ModerationLogFilter) (int64, error)
	CountByAction(ctx context.Context, filter models.ModerationLogFilter) ([]models.ActionCount, error)
}

// ModerationLogService is the only writer of the moderation ledger and serves its reads.
type ModerationLogService struct {
	repo    moderationLogRepository
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewModerationLogService constructs the ledger service.
func NewModerationLogService(repo moderationLogRepository, metrics *MetricsService, logger *zap.Logger) *ModerationLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationLogService{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

// LogAction persists one entry attributed to actor. A nil actor fails with
// AuthenticationRequired and nothing is written.
func (s *ModerationLogService) LogAction(ctx context.Context, actor *models.Actor, action models.ModerationAction, postID, repostID *string, details models.Details) (*models.ModerationLog, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !action.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown moderation action")
	}
	if details == nil {
		details = models.Details{}
	}
	entry := &models.ModerationLog{
		Action:        action,
		AdminUserID:   actor.ID,
		AdminUsername: actor.Username,
		PostID:        postID,
		RepostID:      repostID,
		Details:       details,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, internalError(err, "failed to write moderation log")
	}
	s.metrics.RecordModerationAction(action)
	s.logger.Info("moderation action",
		zap.String("action", string(action)),
		zap.String("admin_user_id", actor.ID),
		zap.String("log_id", entry.ID),
	)
	return entry, nil
}

// LogPostCreated records a new post.
func (s *ModerationLogService) LogPostCreated(ctx context.Context, actor *models.Actor, post *models.Post) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionPostCreated, strPtr(post.ID), nil, models.Details{
		"title":          post.Title,
		"section":        string(post.SectionType),
		"approvalStatus": string(post.ApprovalStatus),
		"hasFile":        post.HasFile(),
	})
}

// LogPostUpdated records a post edit as an {old, new} envelope.
func (s *ModerationLogService) LogPostUpdated(ctx context.Context, actor *models.Actor, postID string, oldValues, newValues map[string]interface{}) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionPostUpdated, strPtr(postID), nil, diffEnvelope(oldValues, newValues))
}

// LogPostDeleted records a removed post.
func (s *ModerationLogService) LogPostDeleted(ctx context.Context, actor *models.Actor, post *models.Post) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionPostDeleted, strPtr(post.ID), nil, models.Details{
		"title":      post.Title,
		"section":    string(post.SectionType),
		"replyCount": post.ReplyCount,
		"hasFile":    post.HasFile(),
	})
}

// LogPostApproved records a manual approval.
func (s *ModerationLogService) LogPostApproved(ctx context.Context, actor *models.Actor, postID, reason string, previous models.ApprovalStatus) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionPostApproved, strPtr(postID), nil, models.Details{
		"reason":         reason,
		"previousStatus": string(previous),
		"approvedAt":     s.now().UTC().Format(time.RFC3339),
	})
}

// LogPostRejected records a manual rejection.
func (s *ModerationLogService) LogPostRejected(ctx context.Context, actor *models.Actor, postID, reason string, previous models.ApprovalStatus) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionPostRejected, strPtr(postID), nil, models.Details{
		"reason":         reason,
		"previousStatus": string(previous),
		"rejectedAt":     s.now().UTC().Format(time.RFC3339),
	})
}

// LogPostFileDeleted records removal of a post attachment.
func (s *ModerationLogService) LogPostFileDeleted(ctx context.Context, actor *models.Actor, postID, fileName string) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionPostFileDeleted, strPtr(postID), nil, s.fileDetails(fileName))
}

// LogRepostCreated records a new repost.
func (s *ModerationLogService) LogRepostCreated(ctx context.Context, actor *models.Actor, repost *models.Repost) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionRepostCreated, nil, strPtr(repost.ID), models.Details{
		"originalPostId": repost.PostID,
		"approvalStatus": string(repost.ApprovalStatus),
		"hasFile":        repost.HasFile(),
	})
}

// LogRepostUpdated records a repost edit as an {old, new} envelope.
func (s *ModerationLogService) LogRepostUpdated(ctx context.Context, actor *models.Actor, repostID string, oldValues, newValues map[string]interface{}) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionRepostUpdated, nil, strPtr(repostID), diffEnvelope(oldValues, newValues))
}

// LogRepostDeleted records a removed repost.
func (s *ModerationLogService) LogRepostDeleted(ctx context.Context, actor *models.Actor, repost *models.Repost) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionRepostDeleted, nil, strPtr(repost.ID), models.Details{
		"originalPostId": repost.PostID,
		"content":        deref(repost.Content),
		"hasFile":        repost.HasFile(),
	})
}

// LogRepostFileDeleted records removal of a repost attachment.
func (s *ModerationLogService) LogRepostFileDeleted(ctx context.Context, actor *models.Actor, repostID, fileName string) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionRepostFileDeleted, nil, strPtr(repostID), s.fileDetails(fileName))
}

// LogUserCreated records a new account.
func (s *ModerationLogService) LogUserCreated(ctx context.Context, actor *models.Actor, user *models.AdminUser) (*models.ModerationLog, error) {
	createdBy := ""
	if actor != nil {
		createdBy = actor.Username
	}
	return s.LogAction(ctx, actor, models.ActionUserCreated, nil, nil, models.Details{
		"userId":    user.ID,
		"username":  user.Username,
		"role":      string(user.Role),
		"createdBy": createdBy,
		"createdAt": user.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// LogUserUpdated records account field changes keyed {field: {from, to}}.
func (s *ModerationLogService) LogUserUpdated(ctx context.Context, actor *models.Actor, userID string, changes map[string]interface{}) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionUserUpdated, nil, nil, models.Details{
		"userId":  userID,
		"changes": changes,
	})
}

// LogUserDeleted records a removed account.
func (s *ModerationLogService) LogUserDeleted(ctx context.Context, actor *models.Actor, user *models.AdminUser) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionUserDeleted, nil, nil, models.Details{
		"deletedUserId":   user.ID,
		"deletedUsername": user.Username,
		"deletedAt":       s.now().UTC().Format(time.RFC3339),
	})
}

// LogRoleChanged records a role change.
func (s *ModerationLogService) LogRoleChanged(ctx context.Context, actor *models.Actor, userID string, oldRole, newRole models.UserRole) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionUserRoleChanged, nil, nil, models.Details{
		"targetUserId": userID,
		"oldRole":      string(oldRole),
		"newRole":      string(newRole),
		"changedAt":    s.now().UTC().Format(time.RFC3339),
	})
}

// LogPasswordChanged records a password change.
func (s *ModerationLogService) LogPasswordChanged(ctx context.Context, actor *models.Actor, userID string) (*models.ModerationLog, error) {
	return s.LogAction(ctx, actor, models.ActionUserPasswordChanged, nil, nil, models.Details{
		"userId":    userID,
		"changedAt": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *ModerationLogService) fileDetails(fileName string) models.Details {
	return models.Details{
		"fileName":  fileName,
		"fileUrl":   path.Join("/files", fileName),
		"deletedAt": s.now().UTC().Format(time.RFC3339),
	}
}

func diffEnvelope(oldValues, newValues map[string]interface{}) models.Details {
	if oldValues == nil {
		oldValues = map[string]interface{}{}
	}
	if newValues == nil {
		newValues = map[string]interface{}{}
	}
	return models.Details{"old": oldValues, "new": newValues}
}

// Get returns a single entry.
func (s *ModerationLogService) Get(ctx context.Context, id string) (*models.ModerationLog, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "moderation log not found", "failed to load moderation log")
	}
	return entry, nil
}

// GetLogsByAdmin lists entries written by one admin, newest first.
func (s *ModerationLogService) GetLogsByAdmin(ctx context.Context, adminUserID string, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error) {
	filter.AdminUserID = adminUserID
	return s.list(ctx, filter)
}

// GetLogsByPost lists entries about one post.
func (s *ModerationLogService) GetLogsByPost(ctx context.Context, postID string, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error) {
	filter.PostID = postID
	return s.list(ctx, filter)
}

// GetLogsByAction lists entries with one action tag.
func (s *ModerationLogService) GetLogsByAction(ctx context.Context, action models.ModerationAction, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error) {
	if !action.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown moderation action")
	}
	filter.Action = action
	return s.list(ctx, filter)
}

// GetLogsByDateRange lists entries created within [from, to].
func (s *ModerationLogService) GetLogsByDateRange(ctx context.Context, from, to time.Time, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error) {
	if to.Before(from) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	filter.From = &from
	filter.To = &to
	return s.list(ctx, filter)
}

// GetAllLogs lists the whole ledger, optionally filtered.
func (s *ModerationLogService) GetAllLogs(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error) {
	return s.list(ctx, filter)
}

func (s *ModerationLogService) list(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list moderation logs")
	}
	return entries, pagination(filter.Page, filter.PageSize, total), nil
}

// CountByAdminID counts entries written by one admin.
func (s *ModerationLogService) CountByAdminID(ctx context.Context, adminUserID string) (int64, error) {
	n, err := s.repo.Count(ctx, models.ModerationLogFilter{AdminUserID: adminUserID})
	if err != nil {
		return 0, internalError(err, "failed to count moderation logs")
	}
	return n, nil
}

// CountAllLogs counts the whole ledger.
func (s *ModerationLogService) CountAllLogs(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx, models.ModerationLogFilter{})
	if err != nil {
		return 0, internalError(err, "failed to count moderation logs")
	}
	return n, nil
}

// CountDistinctAdmins counts admins with at least one entry.
func (s *ModerationLogService) CountDistinctAdmins(ctx context.Context) (int64, error) {
	n, err := s.repo.CountDistinctAdmins(ctx)
	if err != nil {
		return 0, internalError(err, "failed to count admins")
	}
	return n, nil
}

// CountPostsAffected counts distinct posts referenced by the ledger.
func (s *ModerationLogService) CountPostsAffected(ctx context.Context) (int64, error) {
	n, err := s.repo.CountDistinctPosts(ctx, models.ModerationLogFilter{})
	if err != nil {
		return 0, internalError(err, "failed to count posts")
	}
	return n, nil
}

// CountRepostsAffected counts distinct reposts referenced by the ledger.
func (s *ModerationLogService) CountRepostsAffected(ctx context.Context) (int64, error) {
	n, err := s.repo.CountDistinctReposts(ctx, models.ModerationLogFilter{})
	if err != nil {
		return 0, internalError(err, "failed to count reposts")
	}
	return n, nil
}

// AdminStats summarises one admin's activity.
func (s *ModerationLogService) AdminStats(ctx context.Context, adminUserID string) (*models.AdminLogStats, error) {
	filter := models.ModerationLogFilter{AdminUserID: adminUserID}
	stats := &models.AdminLogStats{AdminUserID: adminUserID}
	var byAction []models.ActionCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalActions, err = s.repo.Count(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		stats.PostsAffected, err = s.repo.CountDistinctPosts(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		stats.RepostsAffected, err = s.repo.CountDistinctReposts(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		byAction, err = s.repo.CountByAction(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, internalError(err, "failed to compute admin log stats")
	}
	stats.ActionsByType = actionMap(byAction)
	return stats, nil
}

// GlobalStats summarises the whole ledger.
func (s *ModerationLogService) GlobalStats(ctx context.Context) (*models.GlobalLogStats, error) {
	var filter models.ModerationLogFilter
	stats := &models.GlobalLogStats{}
	var byAction []models.ActionCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalLogs, err = s.repo.Count(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		stats.DistinctAdmins, err = s.repo.CountDistinctAdmins(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.PostsAffected, err = s.repo.CountDistinctPosts(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		stats.RepostsAffected, err = s.repo.CountDistinctReposts(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		byAction, err = s.repo.CountByAction(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, internalError(err, "failed to compute global log stats")
	}
	stats.ActionsByType = actionMap(byAction)
	return stats, nil
}

func actionMap(rows []models.ActionCount) map[models.ModerationAction]int64 {
	out := make(map[models.ModerationAction]int64, len(rows))
	for _, row := range rows {
		out[row.Action] = row.Count
	}
	return out
}
