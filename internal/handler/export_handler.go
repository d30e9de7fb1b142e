package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
	"github.com/noah-isme/rchan-moderation-api/pkg/export"
	"github.com/noah-isme/rchan-moderation-api/pkg/response"
)

type logExportService interface {
	Export(ctx context.Context, actor *models.Actor, req dto.ExportLogsRequest) (*dto.ExportResult, error)
	Open(token string) (*os.File, export.Format, error)
}

// ExportHandler renders ledger exports and serves their signed download links.
type ExportHandler struct {
	service logExportService
}

// NewExportHandler builds the handler.
func NewExportHandler(service logExportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export moderation logs
// @Description Renders the selected entries to CSV or PDF and returns a short lived download link
// @Tags Logs
// @Accept json
// @Produce json
// @Param payload body dto.ExportLogsRequest true "Export selection"
// @Success 201 {object} response.Envelope
// @Router /admin/logs/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	var req dto.ExportLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	result, err := h.service.Export(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a rendered export
// @Tags Logs
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, format, err := h.service.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "failed to read export"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), format.ContentType(), file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", "moderation-logs-"+filepath.Base(file.Name())),
	})
}
