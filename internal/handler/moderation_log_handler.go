package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/middleware"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	"github.com/noah-isme/rchan-moderation-api/internal/service"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
	"github.com/noah-isme/rchan-moderation-api/pkg/response"
)

type moderationLogService interface {
	Get(ctx context.Context, id string) (*models.ModerationLog, error)
	GetLogsByAdmin(ctx context.Context, adminUserID string, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error)
	GetLogsByPost(ctx context.Context, postID string, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error)
	GetLogsByAction(ctx context.Context, action models.ModerationAction, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error)
	GetLogsByDateRange(ctx context.Context, from, to time.Time, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error)
	GetAllLogs(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error)
	AdminStats(ctx context.Context, adminUserID string) (*models.AdminLogStats, error)
	GlobalStats(ctx context.Context) (*models.GlobalLogStats, error)
}

// ModerationLogHandler serves the moderation ledger.
type ModerationLogHandler struct {
	service moderationLogService
}

// NewModerationLogHandler builds the handler.
func NewModerationLogHandler(service moderationLogService) *ModerationLogHandler {
	return &ModerationLogHandler{service: service}
}

// Mine godoc
// @Summary Entries written by the caller
// @Tags Logs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /moderator/logs/me [get]
func (h *ModerationLogHandler) Mine(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.byAdmin(c, actor.ID)
}

// MyStats godoc
// @Summary Statistics for the caller
// @Tags Logs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /moderator/logs/stats/me [get]
func (h *ModerationLogHandler) MyStats(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.adminStats(c, actor.ID)
}

// List godoc
// @Summary List every entry
// @Tags Logs
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/logs [get]
func (h *ModerationLogHandler) List(c *gin.Context) {
	var q dto.LogListQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	entries, pagination, err := h.service.GetAllLogs(c.Request.Context(), logFilter(q.PageQuery))
	h.respondList(c, entries, pagination, err)
}

// Get godoc
// @Summary Get one entry
// @Tags Logs
// @Produce json
// @Param id path string true "Log ID"
// @Success 200 {object} response.Envelope
// @Router /admin/logs/{id} [get]
func (h *ModerationLogHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// ByAdmin godoc
// @Summary Entries written by an admin
// @Tags Logs
// @Produce json
// @Param adminId path string true "Admin user ID"
// @Success 200 {object} response.Envelope
// @Router /admin/logs/admin/{adminId} [get]
func (h *ModerationLogHandler) ByAdmin(c *gin.Context) {
	h.byAdmin(c, c.Param("adminId"))
}

func (h *ModerationLogHandler) byAdmin(c *gin.Context, adminID string) {
	var q dto.LogListQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	entries, pagination, err := h.service.GetLogsByAdmin(c.Request.Context(), adminID, logFilter(q.PageQuery))
	h.respondList(c, entries, pagination, err)
}

// ByPost godoc
// @Summary Entries about a post
// @Tags Logs
// @Produce json
// @Param postId path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /admin/logs/post/{postId} [get]
func (h *ModerationLogHandler) ByPost(c *gin.Context) {
	var q dto.LogListQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	entries, pagination, err := h.service.GetLogsByPost(c.Request.Context(), c.Param("postId"), logFilter(q.PageQuery))
	h.respondList(c, entries, pagination, err)
}

// ByAction godoc
// @Summary Entries with an action tag
// @Tags Logs
// @Produce json
// @Param action path string true "Action tag, e.g. POST_DELETED"
// @Success 200 {object} response.Envelope
// @Router /admin/logs/action/{action} [get]
func (h *ModerationLogHandler) ByAction(c *gin.Context) {
	var q dto.LogListQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	action := models.ModerationAction(strings.ToUpper(c.Param("action")))
	entries, pagination, err := h.service.GetLogsByAction(c.Request.Context(), action, logFilter(q.PageQuery))
	h.respondList(c, entries, pagination, err)
}

// ByDateRange godoc
// @Summary Entries inside a time window
// @Tags Logs
// @Produce json
// @Param from query string true "RFC3339 timestamp or YYYY-MM-DD"
// @Param to query string true "RFC3339 timestamp or YYYY-MM-DD, dates cover the whole day"
// @Success 200 {object} response.Envelope
// @Router /admin/logs/date-range [get]
func (h *ModerationLogHandler) ByDateRange(c *gin.Context) {
	var q dto.DateRangeQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	from, err := service.ParseTimeBound(q.From, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := service.ParseTimeBound(q.To, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "from", from)
	middleware.SetMeta(c, "to", to)
	entries, pagination, err := h.service.GetLogsByDateRange(c.Request.Context(), from, to, logFilter(q.PageQuery))
	h.respondList(c, entries, pagination, err)
}

// AdminStats godoc
// @Summary Activity statistics for an admin
// @Tags Logs
// @Produce json
// @Param adminId path string true "Admin user ID"
// @Success 200 {object} response.Envelope
// @Router /admin/logs/stats/admin/{adminId} [get]
func (h *ModerationLogHandler) AdminStats(c *gin.Context) {
	h.adminStats(c, c.Param("adminId"))
}

func (h *ModerationLogHandler) adminStats(c *gin.Context, adminID string) {
	stats, err := h.service.AdminStats(c.Request.Context(), adminID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// GlobalStats godoc
// @Summary Ledger wide statistics
// @Tags Logs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/logs/stats/global [get]
func (h *ModerationLogHandler) GlobalStats(c *gin.Context) {
	stats, err := h.service.GlobalStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

func (h *ModerationLogHandler) respondList(c *gin.Context, entries []models.ModerationLog, pagination *models.Pagination, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination, middleware.ResponseMeta(c))
}
