package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/middleware"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
	"github.com/noah-isme/rchan-moderation-api/pkg/export"
)

type exportServiceMock struct {
	actor *models.Actor
	req   dto.ExportLogsRequest
	path  string
	err   error
}

func (m *exportServiceMock) Export(ctx context.Context, actor *models.Actor, req dto.ExportLogsRequest) (*dto.ExportResult, error) {
	m.actor = actor
	m.req = req
	return &dto.ExportResult{ExportID: "e1", Format: req.Format, URL: "/api/exports/token"}, nil
}

func (m *exportServiceMock) Open(token string) (*os.File, export.Format, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	f, err := os.Open(m.path)
	return f, export.FormatCSV, err
}

func TestExportHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &exportServiceMock{}
	handler := NewExportHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/admin/logs/export", bytes.NewBufferString(`{"format":"csv","action":"POST_DELETED"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Export(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", svc.actor.ID)
	assert.Equal(t, "POST_DELETED", svc.req.Action)
	assert.Contains(t, w.Body.String(), "/api/exports/token")
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "e1.csv")
	require.NoError(t, os.WriteFile(path, []byte("Action\nPOST_DELETED\n"), 0o600))
	handler := NewExportHandler(&exportServiceMock{path: path})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/exports/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatCSV.ContentType(), w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "e1.csv")
	assert.Equal(t, "Action\nPOST_DELETED\n", w.Body.String())
}

func TestExportHandlerDownloadExpired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "download link expired")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/exports/token", nil)

	handler.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "download link expired")
}
