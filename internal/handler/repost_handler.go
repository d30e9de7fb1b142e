package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/middleware"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
	"github.com/noah-isme/rchan-moderation-api/pkg/response"
)

type repostService interface {
	Create(ctx context.Context, actor *models.Actor, req dto.CreateRepostRequest) (*models.Repost, error)
	Submit(ctx context.Context, actor *models.Actor, req dto.CreateRepostRequest) (*models.Repost, error)
	Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateRepostRequest) (*models.Repost, error)
	Delete(ctx context.Context, actor *models.Actor, id string) error
	Approve(ctx context.Context, actor *models.Actor, id, reason string) (*models.Repost, error)
	Reject(ctx context.Context, actor *models.Actor, id, reason string) (*models.Repost, error)
	Get(ctx context.Context, id string) (*models.Repost, error)
	List(ctx context.Context, filter models.RepostFilter) ([]models.Repost, *models.Pagination, error)
	ListVisibleByPost(ctx context.Context, postID string, filter models.RepostFilter) ([]models.Repost, *models.Pagination, error)
}

// RepostHandler exposes reply endpoints.
type RepostHandler struct {
	service repostService
}

// NewRepostHandler builds a repost handler.
func NewRepostHandler(service repostService) *RepostHandler {
	return &RepostHandler{service: service}
}

// ListPublic godoc
// @Summary List visible replies of a post
// @Tags Reposts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id}/reposts [get]
func (h *RepostHandler) ListPublic(c *gin.Context) {
	var q dto.RepostListQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	reposts, pagination, err := h.service.ListVisibleByPost(c.Request.Context(), c.Param("id"), repostFilter(q))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reposts, pagination, middleware.ResponseMeta(c))
}

// Submit godoc
// @Summary Reply to a visible post
// @Tags Reposts
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Post ID"
// @Param content formData string false "Content"
// @Param file formData file false "Image or video"
// @Success 201 {object} response.Envelope
// @Router /posts/{id}/reposts [post]
func (h *RepostHandler) Submit(c *gin.Context) {
	h.create(c, c.Param("id"), h.service.Submit)
}

// Create godoc
// @Summary Create a reply as moderator
// @Tags Moderation
// @Accept multipart/form-data
// @Produce json
// @Param post_id formData string true "Post ID"
// @Param content formData string false "Content"
// @Param file formData file false "Image or video"
// @Success 201 {object} response.Envelope
// @Router /moderator/reposts [post]
func (h *RepostHandler) Create(c *gin.Context) {
	h.create(c, c.PostForm("post_id"), h.service.Create)
}

func (h *RepostHandler) create(c *gin.Context, postID string, fn func(context.Context, *models.Actor, dto.CreateRepostRequest) (*models.Repost, error)) {
	var req dto.CreateRepostRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid repost payload"))
		return
	}
	req.PostID = postID
	upload, done, err := uploadFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer done()
	req.File = upload

	repost, err := fn(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, repost)
}

// List godoc
// @Summary List replies in any state
// @Tags Moderation
// @Produce json
// @Param status query string false "Approval status"
// @Success 200 {object} response.Envelope
// @Router /moderator/reposts [get]
func (h *RepostHandler) List(c *gin.Context) {
	var q dto.RepostListQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	reposts, pagination, err := h.service.List(c.Request.Context(), repostFilter(q))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reposts, pagination, middleware.ResponseMeta(c))
}

// ListByPost godoc
// @Summary List all replies of a post
// @Tags Moderation
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /moderator/posts/{id}/reposts [get]
func (h *RepostHandler) ListByPost(c *gin.Context) {
	var q dto.RepostListQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	filter := repostFilter(q)
	filter.PostID = c.Param("id")
	reposts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reposts, pagination, middleware.ResponseMeta(c))
}

// Get godoc
// @Summary Get a reply
// @Tags Moderation
// @Produce json
// @Param id path string true "Repost ID"
// @Success 200 {object} response.Envelope
// @Router /moderator/reposts/{id} [get]
func (h *RepostHandler) Get(c *gin.Context) {
	repost, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, repost, nil)
}

// Update godoc
// @Summary Update a reply
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Repost ID"
// @Param payload body dto.UpdateRepostRequest true "Partial update"
// @Success 200 {object} response.Envelope
// @Router /moderator/reposts/{id} [put]
func (h *RepostHandler) Update(c *gin.Context) {
	var req dto.UpdateRepostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid repost payload"))
		return
	}
	repost, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, repost, nil)
}

// Delete godoc
// @Summary Delete a reply
// @Tags Moderation
// @Param id path string true "Repost ID"
// @Success 204
// @Router /moderator/reposts/{id} [delete]
func (h *RepostHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve a reply
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Repost ID"
// @Param payload body dto.ModerationDecisionRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /moderator/reposts/{id}/approve [post]
func (h *RepostHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject a reply
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Repost ID"
// @Param payload body dto.ModerationDecisionRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /moderator/reposts/{id}/reject [post]
func (h *RepostHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

func (h *RepostHandler) decide(c *gin.Context, fn func(context.Context, *models.Actor, string, string) (*models.Repost, error)) {
	var req dto.ModerationDecisionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
			return
		}
	}
	repost, err := fn(c.Request.Context(), actorFromContext(c), c.Param("id"), strings.TrimSpace(req.Reason))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, repost, nil)
}
