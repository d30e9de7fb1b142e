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

type postService interface {
	Create(ctx context.Context, actor *models.Actor, req dto.CreatePostRequest) (*models.Post, error)
	Submit(ctx context.Context, actor *models.Actor, req dto.CreatePostRequest) (*models.Post, error)
	Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdatePostRequest) (*models.Post, error)
	Delete(ctx context.Context, actor *models.Actor, id string) error
	Approve(ctx context.Context, actor *models.Actor, id, reason string) (*models.Post, error)
	Reject(ctx context.Context, actor *models.Actor, id, reason string) (*models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	GetVisible(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, filter models.PostFilter) ([]models.Post, *models.Pagination, error)
	ListVisible(ctx context.Context, filter models.PostFilter) ([]models.Post, *models.Pagination, error)
}

// PostHandler exposes public and moderator post endpoints.
type PostHandler struct {
	service postService
}

// NewPostHandler builds a post handler.
func NewPostHandler(service postService) *PostHandler {
	return &PostHandler{service: service}
}

// ListPublic godoc
// @Summary List visible posts
// @Tags Posts
// @Produce json
// @Param section query string false "Section type"
// @Param search query string false "Search in title and content"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /posts [get]
func (h *PostHandler) ListPublic(c *gin.Context) {
	var q dto.PostListQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	filter, err := postFilter(q)
	if err != nil {
		response.Error(c, err)
		return
	}
	posts, pagination, err := h.service.ListVisible(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, pagination, middleware.ResponseMeta(c))
}

// ListBySection godoc
// @Summary List visible posts of a section
// @Tags Posts
// @Produce json
// @Param type path string true "Section type"
// @Success 200 {object} response.Envelope
// @Router /sections/{type}/posts [get]
func (h *PostHandler) ListBySection(c *gin.Context) {
	var q dto.PostListQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	q.Section = c.Param("type")
	filter, err := postFilter(q)
	if err != nil {
		response.Error(c, err)
		return
	}
	posts, pagination, err := h.service.ListVisible(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, pagination, middleware.ResponseMeta(c))
}

// GetPublic godoc
// @Summary Get a visible post
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id} [get]
func (h *PostHandler) GetPublic(c *gin.Context) {
	post, err := h.service.GetVisible(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Submit godoc
// @Summary Submit a post
// @Description Anonymous submission. Text-only posts may be auto-approved; posts with files wait for review.
// @Tags Posts
// @Accept multipart/form-data
// @Produce json
// @Param section formData string false "Section type, defaults to GENERAL"
// @Param title formData string true "Title"
// @Param content formData string false "Content"
// @Param file formData file false "Image or video"
// @Success 201 {object} response.Envelope
// @Router /posts [post]
func (h *PostHandler) Submit(c *gin.Context) {
	h.create(c, h.service.Submit)
}

// Create godoc
// @Summary Create a post as moderator
// @Tags Moderation
// @Accept multipart/form-data
// @Produce json
// @Param section formData string false "Section type"
// @Param title formData string true "Title"
// @Param content formData string false "Content"
// @Param file formData file false "Image or video"
// @Success 201 {object} response.Envelope
// @Router /moderator/posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	h.create(c, h.service.Create)
}

func (h *PostHandler) create(c *gin.Context, fn func(context.Context, *models.Actor, dto.CreatePostRequest) (*models.Post, error)) {
	var req dto.CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}
	upload, done, err := uploadFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer done()
	req.File = upload

	post, err := fn(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// List godoc
// @Summary List posts in any state
// @Tags Moderation
// @Produce json
// @Param status query string false "Approval status"
// @Param section query string false "Section type"
// @Param search query string false "Search"
// @Success 200 {object} response.Envelope
// @Router /moderator/posts [get]
func (h *PostHandler) List(c *gin.Context) {
	var q dto.PostListQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	filter, err := postFilter(q)
	if err != nil {
		response.Error(c, err)
		return
	}
	posts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, pagination, middleware.ResponseMeta(c))
}

// Get godoc
// @Summary Get a post in any state
// @Tags Moderation
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /moderator/posts/{id} [get]
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Update godoc
// @Summary Update a post
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body dto.UpdatePostRequest true "Partial update"
// @Success 200 {object} response.Envelope
// @Router /moderator/posts/{id} [put]
func (h *PostHandler) Update(c *gin.Context) {
	var req dto.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}
	post, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Delete godoc
// @Summary Delete a post with its replies and files
// @Tags Moderation
// @Param id path string true "Post ID"
// @Success 204
// @Router /moderator/posts/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve a post
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body dto.ModerationDecisionRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /moderator/posts/{id}/approve [post]
func (h *PostHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject a post
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body dto.ModerationDecisionRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /moderator/posts/{id}/reject [post]
func (h *PostHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

func (h *PostHandler) decide(c *gin.Context, fn func(context.Context, *models.Actor, string, string) (*models.Post, error)) {
	var req dto.ModerationDecisionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
			return
		}
	}
	post, err := fn(c.Request.Context(), actorFromContext(c), c.Param("id"), strings.TrimSpace(req.Reason))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}
