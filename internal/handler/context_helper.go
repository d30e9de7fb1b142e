package handler

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/middleware"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

var queryValidator = dto.NewValidator()

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) *models.Actor {
	return models.ActorFromClaims(claimsFromContext(c))
}

// bindQuery binds and validates query parameters into dst.
func bindQuery(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters")
	}
	if err := queryValidator.Struct(dst); err != nil {
		return appErrors.Validation(err, "invalid query parameters")
	}
	return nil
}

func logFilter(q dto.PageQuery) models.ModerationLogFilter {
	page, size, sortBy, sortOrder := q.Resolve()
	return models.ModerationLogFilter{Page: page, PageSize: size, SortBy: sortBy, SortOrder: sortOrder}
}

func postFilter(q dto.PostListQuery) (models.PostFilter, error) {
	page, size, sortBy, sortOrder := q.Resolve()
	filter := models.PostFilter{
		Search:    strings.TrimSpace(q.Search),
		Page:      page,
		PageSize:  size,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
	if q.Status != "" {
		filter.Statuses = []models.ApprovalStatus{models.ApprovalStatus(q.Status)}
	}
	if q.Section != "" {
		t := models.SectionType(strings.ToUpper(strings.TrimSpace(q.Section)))
		if !t.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown section type")
		}
		filter.SectionType = &t
	}
	return filter, nil
}

func repostFilter(q dto.RepostListQuery) models.RepostFilter {
	page, size, sortBy, sortOrder := q.Resolve()
	filter := models.RepostFilter{Page: page, PageSize: size, SortBy: sortBy, SortOrder: sortOrder}
	if q.Status != "" {
		filter.Statuses = []models.ApprovalStatus{models.ApprovalStatus(q.Status)}
	}
	return filter
}

// uploadFromForm returns the optional "file" part of a multipart request.
// The returned closer must be called once the upload has been consumed.
func uploadFromForm(c *gin.Context) (*dto.FileUpload, func(), error) {
	header, err := c.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, func() {}, nil
		}
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid file upload")
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*dto.FileUpload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read uploaded file")
	}
	upload := &dto.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}
	return upload, func() { _ = f.Close() }, nil
}
