package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/middleware"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

type adminUserServiceMock struct {
	actor     *models.Actor
	filter    models.AdminUserFilter
	roleReq   dto.ChangeRoleRequest
	deleteErr error
}

func (m *adminUserServiceMock) Register(ctx context.Context, actor *models.Actor, req dto.RegisterAdminRequest) (*models.AdminUser, error) {
	m.actor = actor
	return &models.AdminUser{ID: "u1", Username: req.Username, Role: models.UserRole(req.Role)}, nil
}

func (m *adminUserServiceMock) VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) error {
	return nil
}

func (m *adminUserServiceMock) ResendVerification(ctx context.Context, req dto.ResendVerificationRequest) error {
	return nil
}

func (m *adminUserServiceMock) List(ctx context.Context, filter models.AdminUserFilter) ([]models.AdminUser, *models.Pagination, error) {
	m.filter = filter
	return []models.AdminUser{}, &models.Pagination{Page: filter.Page}, nil
}

func (m *adminUserServiceMock) Get(ctx context.Context, id string) (*models.AdminUser, error) {
	return &models.AdminUser{ID: id}, nil
}

func (m *adminUserServiceMock) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	return &models.AdminUser{Username: username}, nil
}

func (m *adminUserServiceMock) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}

func (m *adminUserServiceMock) Stats(ctx context.Context) (*models.AdminUserStats, error) {
	return &models.AdminUserStats{Total: 2}, nil
}

func (m *adminUserServiceMock) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateAdminUserRequest) (*models.AdminUser, error) {
	return &models.AdminUser{ID: id}, nil
}

func (m *adminUserServiceMock) ChangeRole(ctx context.Context, actor *models.Actor, id string, req dto.ChangeRoleRequest) (*models.AdminUser, error) {
	m.actor = actor
	m.roleReq = req
	return &models.AdminUser{ID: id, Role: models.UserRole(req.Role)}, nil
}

func (m *adminUserServiceMock) Delete(ctx context.Context, actor *models.Actor, id string, req dto.DeleteAdminUserRequest) error {
	return m.deleteErr
}

func (m *adminUserServiceMock) ChangePassword(ctx context.Context, actor *models.Actor, req dto.ChangePasswordRequest) error {
	m.actor = actor
	return nil
}

func TestAdminUserHandlerListFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &adminUserServiceMock{}
	handler := NewAdminUserHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/admin/users?role=MODERATOR&enabled=false&search=bob", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.filter.Role)
	assert.Equal(t, models.RoleModerator, *svc.filter.Role)
	require.NotNil(t, svc.filter.Enabled)
	assert.False(t, *svc.filter.Enabled)
	assert.Equal(t, "bob", svc.filter.Search)
}

func TestAdminUserHandlerListRejectsUnknownRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAdminUserHandler(&adminUserServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/admin/users?role=ROOT", nil)

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminUserHandlerChangeRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &adminUserServiceMock{}
	handler := NewAdminUserHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/admin/users/u2/role", bytes.NewBufferString(`{"role":"ADMIN"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "u2"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.ChangeRole(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", svc.actor.ID)
	assert.Equal(t, "ADMIN", svc.roleReq.Role)
}

func TestAdminUserHandlerDeleteSelf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAdminUserHandler(&adminUserServiceMock{deleteErr: appErrors.Clone(appErrors.ErrIllegalState, "you cannot delete your own account")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/admin/users/admin-1", bytes.NewBufferString(`{"password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "admin-1"}}

	handler.Delete(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdminUserHandlerInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAdminUserHandler(&adminUserServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/admin/users", bytes.NewBufferString(`invalid`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminUserHandlerGetByEmailNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAdminUserHandler(&adminUserServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/moderator/users/by-email/x@y.z", nil)
	c.Params = gin.Params{{Key: "email", Value: "x@y.z"}}

	handler.GetByEmail(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
