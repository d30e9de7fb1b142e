package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	"github.com/noah-isme/rchan-moderation-api/pkg/response"
)

type sectionServiceMock struct {
	status models.SectionStatus
}

func (m *sectionServiceMock) Initialize(ctx context.Context) ([]models.SectionType, error) {
	return []models.SectionType{models.SectionGeneral, models.SectionNews}, nil
}

func (m *sectionServiceMock) List(ctx context.Context) ([]models.Section, error) {
	return []models.Section{}, nil
}

func (m *sectionServiceMock) ListActive(ctx context.Context) ([]models.Section, error) {
	return []models.Section{{ID: "s1", SectionType: models.SectionGeneral, Status: models.SectionActive}}, nil
}

func (m *sectionServiceMock) Get(ctx context.Context, id string) (*models.Section, error) {
	return &models.Section{ID: id}, nil
}

func (m *sectionServiceMock) GetByType(ctx context.Context, raw string) (*models.Section, error) {
	return &models.Section{SectionType: models.SectionType(raw)}, nil
}

func (m *sectionServiceMock) AvailableTypes() []models.SectionTypeInfo {
	return models.SectionTypes
}

func (m *sectionServiceMock) UpdateStatus(ctx context.Context, actor *models.Actor, id string, status models.SectionStatus) (*models.Section, error) {
	m.status = status
	return &models.Section{ID: id, Status: status}, nil
}

func TestSectionHandlerInitialize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSectionHandler(&sectionServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/moderator/sections/initialize", nil)

	handler.Initialize(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.SectionInitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"GENERAL", "NEWS"}, envelope.Data.Created)
	assert.Equal(t, len(models.SectionTypes), envelope.Data.Total)
}

func TestSectionHandlerUpdateStatusInvalid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSectionHandler(&sectionServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPatch, "/moderator/sections/s1/status", nil)

	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSectionHandlerListActiveEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSectionHandler(&sectionServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/sections", nil)

	handler.ListActive(c)
	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Error)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
