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

type adminUserService interface {
	Register(ctx context.Context, actor *models.Actor, req dto.RegisterAdminRequest) (*models.AdminUser, error)
	VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) error
	ResendVerification(ctx context.Context, req dto.ResendVerificationRequest) error
	List(ctx context.Context, filter models.AdminUserFilter) ([]models.AdminUser, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.AdminUser, error)
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Stats(ctx context.Context) (*models.AdminUserStats, error)
	Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateAdminUserRequest) (*models.AdminUser, error)
	ChangeRole(ctx context.Context, actor *models.Actor, id string, req dto.ChangeRoleRequest) (*models.AdminUser, error)
	Delete(ctx context.Context, actor *models.Actor, id string, req dto.DeleteAdminUserRequest) error
	ChangePassword(ctx context.Context, actor *models.Actor, req dto.ChangePasswordRequest) error
}

// AdminUserHandler manages moderator and administrator accounts.
type AdminUserHandler struct {
	service adminUserService
}

// NewAdminUserHandler builds the handler.
func NewAdminUserHandler(service adminUserService) *AdminUserHandler {
	return &AdminUserHandler{service: service}
}

// List godoc
// @Summary List accounts
// @Tags Users
// @Produce json
// @Param role query string false "ADMIN or MODERATOR"
// @Param enabled query bool false "Account enabled"
// @Param search query string false "Username or email"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *AdminUserHandler) List(c *gin.Context) {
	var q dto.AdminUserListQuery
	if err := bindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	page, size, sortBy, sortOrder := q.Resolve()
	filter := models.AdminUserFilter{
		Enabled:   q.Enabled,
		Search:    strings.TrimSpace(q.Search),
		Page:      page,
		PageSize:  size,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
	if q.Role != "" {
		role := models.UserRole(q.Role)
		filter.Role = &role
	}
	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination, middleware.ResponseMeta(c))
}

// Stats godoc
// @Summary Account statistics
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/users/stats [get]
func (h *AdminUserHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Create godoc
// @Summary Register an account
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.RegisterAdminRequest true "Account"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users [post]
func (h *AdminUserHandler) Create(c *gin.Context) {
	var req dto.RegisterAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid user payload"))
		return
	}
	user, err := h.service.Register(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Get godoc
// @Summary Get account by id
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /moderator/users/{id} [get]
func (h *AdminUserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// GetByUsername godoc
// @Summary Get account by username
// @Tags Users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} response.Envelope
// @Router /moderator/users/by-username/{username} [get]
func (h *AdminUserHandler) GetByUsername(c *gin.Context) {
	user, err := h.service.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// GetByEmail godoc
// @Summary Get account by email
// @Tags Users
// @Produce json
// @Param email path string true "Email"
// @Success 200 {object} response.Envelope
// @Router /moderator/users/by-email/{email} [get]
func (h *AdminUserHandler) GetByEmail(c *gin.Context) {
	user, err := h.service.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Update godoc
// @Summary Update an account
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.UpdateAdminUserRequest true "Partial update"
// @Success 200 {object} response.Envelope
// @Router /admin/users/{id} [put]
func (h *AdminUserHandler) Update(c *gin.Context) {
	var req dto.UpdateAdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid user payload"))
		return
	}
	user, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// ChangeRole godoc
// @Summary Change an account role
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.ChangeRoleRequest true "Role"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/users/{id}/role [put]
func (h *AdminUserHandler) ChangeRole(c *gin.Context) {
	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid role payload"))
		return
	}
	user, err := h.service.ChangeRole(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Delete an account
// @Description The acting admin confirms with their own password
// @Tags Users
// @Accept json
// @Param id path string true "User ID"
// @Param payload body dto.DeleteAdminUserRequest true "Password confirmation"
// @Success 204
// @Router /admin/users/{id} [delete]
func (h *AdminUserHandler) Delete(c *gin.Context) {
	var req dto.DeleteAdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid delete payload"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Change own password
// @Tags Users
// @Accept json
// @Param payload body dto.ChangePasswordRequest true "Current and new password"
// @Success 204
// @Router /me/change-password [post]
func (h *AdminUserHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid password payload"))
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), actorFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// VerifyEmail godoc
// @Summary Confirm an email address
// @Tags Users
// @Accept json
// @Param payload body dto.VerifyEmailRequest true "Email and code"
// @Success 204
// @Router /users/verify-email [post]
func (h *AdminUserHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verification payload"))
		return
	}
	if err := h.service.VerifyEmail(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ResendVerification godoc
// @Summary Send a fresh verification code
// @Tags Users
// @Accept json
// @Param payload body dto.ResendVerificationRequest true "Email"
// @Success 202 {object} response.Envelope
// @Router /users/resend-verification [post]
func (h *AdminUserHandler) ResendVerification(c *gin.Context) {
	var req dto.ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verification payload"))
		return
	}
	if err := h.service.ResendVerification(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "verification code sent")
}
