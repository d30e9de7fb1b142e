package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
	"github.com/noah-isme/rchan-moderation-api/pkg/response"
)

type fileService interface {
	Open(name string) (*os.File, error)
	ContentType(name string) string
}

// FileHandler streams stored media.
type FileHandler struct {
	service fileService
}

// NewFileHandler builds the handler.
func NewFileHandler(service fileService) *FileHandler {
	return &FileHandler{service: service}
}

// Serve godoc
// @Summary Fetch an uploaded file
// @Tags Files
// @Param name path string true "Stored file name"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /files/{name} [get]
func (h *FileHandler) Serve(c *gin.Context) {
	name := c.Param("name")
	file, err := h.service.Open(name)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "failed to read file"))
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Header("X-Content-Type-Options", "nosniff")
	c.DataFromReader(http.StatusOK, info.Size(), h.service.ContentType(name), file, nil)
}
