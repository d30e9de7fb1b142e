package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/rchan-moderation-api/internal/handler"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	"github.com/noah-isme/rchan-moderation-api/internal/service"
	"github.com/noah-isme/rchan-moderation-api/pkg/config"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

type tokenStub struct{}

func (tokenStub) Authenticate(ctx context.Context, token string) (*models.JWTClaims, error) {
	switch token {
	case "admin":
		return &models.JWTClaims{UserID: "admin-1", Username: "root", Role: models.RoleAdmin}, nil
	case "mod":
		return &models.JWTClaims{UserID: "mod-1", Username: "mod", Role: models.RoleModerator}, nil
	default:
		return nil, appErrors.ErrUnauthorized
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(Deps{
		Config: &config.Config{Env: "test", APIPrefix: "/api"},
		Logger: zap.NewNop(),
		Tokens: tokenStub{},
	}, Handlers{
		Auth:          handler.NewAuthHandler(nil),
		PasswordReset: handler.NewPasswordResetHandler(nil),
		Users:         handler.NewAdminUserHandler(nil),
		Posts:         handler.NewPostHandler(nil),
		Reposts:       handler.NewRepostHandler(nil),
		Sections:      handler.NewSectionHandler(nil),
		Logs:          handler.NewModerationLogHandler(nil),
		Exports:       handler.NewExportHandler(nil),
		Files:         handler.NewFileHandler(nil),
		Metrics:       handler.NewMetricsHandler(service.NewMetricsService(), nil),
	})
}

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", "").Code)
}

func TestModeratorRoutesRequireToken(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/moderator/posts", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/moderator/posts", "forged").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/me", "").Code)
}

func TestAdminRoutesRejectModerators(t *testing.T) {
	r := newTestRouter()
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/admin/users"},
		{http.MethodPost, "/api/admin/users"},
		{http.MethodDelete, "/api/admin/users/some-id"},
		{http.MethodGet, "/api/admin/logs"},
		{http.MethodPost, "/api/admin/logs/export"},
	} {
		assert.Equal(t, http.StatusForbidden, do(r, tc.method, tc.path, "mod").Code, tc.path)
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/nope", "").Code)
}
