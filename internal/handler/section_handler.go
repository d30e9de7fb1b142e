package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
	"github.com/noah-isme/rchan-moderation-api/pkg/response"
)

type sectionService interface {
	Initialize(ctx context.Context) ([]models.SectionType, error)
	List(ctx context.Context) ([]models.Section, error)
	ListActive(ctx context.Context) ([]models.Section, error)
	Get(ctx context.Context, id string) (*models.Section, error)
	GetByType(ctx context.Context, raw string) (*models.Section, error)
	AvailableTypes() []models.SectionTypeInfo
	UpdateStatus(ctx context.Context, actor *models.Actor, id string, status models.SectionStatus) (*models.Section, error)
}

// SectionHandler exposes section endpoints.
type SectionHandler struct {
	service sectionService
}

// NewSectionHandler builds a section handler.
func NewSectionHandler(service sectionService) *SectionHandler {
	return &SectionHandler{service: service}
}

// ListActive godoc
// @Summary List active sections
// @Tags Sections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *SectionHandler) ListActive(c *gin.Context) {
	sections, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// List godoc
// @Summary List all sections
// @Tags Sections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /moderator/sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	sections, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// Get godoc
// @Summary Get section by id
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /moderator/sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// GetByType godoc
// @Summary Get section by type
// @Tags Sections
// @Produce json
// @Param type path string true "Section type"
// @Success 200 {object} response.Envelope
// @Router /moderator/sections/type/{type} [get]
func (h *SectionHandler) GetByType(c *gin.Context) {
	section, err := h.service.GetByType(c.Request.Context(), c.Param("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// AvailableTypes godoc
// @Summary List known section types
// @Tags Sections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /moderator/sections/available-types [get]
func (h *SectionHandler) AvailableTypes(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.AvailableTypes(), nil)
}

// UpdateStatus godoc
// @Summary Activate or deactivate a section
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body dto.UpdateSectionStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /moderator/sections/{id}/status [patch]
func (h *SectionHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateSectionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}
	section, err := h.service.UpdateStatus(c.Request.Context(), actorFromContext(c), c.Param("id"), models.SectionStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Initialize godoc
// @Summary Create missing sections
// @Tags Sections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /moderator/sections/initialize [post]
func (h *SectionHandler) Initialize(c *gin.Context) {
	created, err := h.service.Initialize(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	result := dto.SectionInitResult{Created: make([]string, 0, len(created)), Total: len(models.SectionTypes)}
	for _, t := range created {
		result.Created = append(result.Created, string(t))
	}
	response.JSON(c, http.StatusOK, result, nil)
}
