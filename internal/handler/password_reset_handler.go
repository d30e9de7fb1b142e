package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
	"github.com/noah-isme/rchan-moderation-api/pkg/response"
)

type passwordResetService interface {
	RequestReset(ctx context.Context, req dto.PasswordResetRequest) error
	VerifyCode(ctx context.Context, req dto.VerifyResetCodeRequest) error
	ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error
}

// PasswordResetHandler exposes the emailed-code reset flow.
type PasswordResetHandler struct {
	service passwordResetService
}

// NewPasswordResetHandler builds the handler.
func NewPasswordResetHandler(service passwordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{service: service}
}

// Request godoc
// @Summary Request a password reset code
// @Description Always answers 202 so that unknown addresses are not disclosed
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.PasswordResetRequest true "Email"
// @Success 202 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/password-reset/request [post]
func (h *PasswordResetHandler) Request(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reset payload"))
		return
	}
	if err := h.service.RequestReset(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "if the address is registered a code has been sent")
}

// Verify godoc
// @Summary Check a reset code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.VerifyResetCodeRequest true "Email and code"
// @Success 200 {object} response.Envelope
// @Router /auth/password-reset/verify [post]
func (h *PasswordResetHandler) Verify(c *gin.Context) {
	var req dto.VerifyResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reset payload"))
		return
	}
	if err := h.service.VerifyCode(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"valid": true}, nil)
}

// Reset godoc
// @Summary Set a new password with a reset code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.ResetPasswordRequest true "Email, code and new password"
// @Success 204
// @Router /auth/password-reset/reset [post]
func (h *PasswordResetHandler) Reset(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reset payload"))
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
