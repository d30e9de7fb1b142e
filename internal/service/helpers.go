package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func pagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func internalError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// notFoundOr maps sql.ErrNoRows to a NotFound error and anything else to an internal error.
// Typed errors pass through untouched.
func notFoundOr(err error, notFound, internal string) error {
	var appErr *appErrors.Error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.As(err, &appErr):
		return err
	default:
		return internalError(err, internal)
	}
}

// passthrough keeps typed errors and wraps the rest as internal.
func passthrough(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return internalError(err, message)
}

func strPtr(value string) *string {
	return &value
}

// screenedText is what the restricted word list is matched against: the text as
// submitted and the text as stored, so neither markup nor entities hide a term.
func screenedText(raw, stored *string) string {
	submitted := strings.TrimSpace(deref(raw))
	clean := deref(stored)
	if submitted == clean {
		return clean
	}
	return submitted + "\n" + clean
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func requireActor(actor *models.Actor) error {
	if actor == nil || actor.ID == "" {
		return appErrors.Clone(appErrors.ErrAuthenticationRequired, "")
	}
	return nil
}

func requireCapability(actor *models.Actor, capability models.Capability) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.Can(capability) {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	return nil
}

func passthroughNil(err error, message string) error {
	if err == nil {
		return nil
	}
	return passthrough(err, message)
}

// ParseTimeBound accepts RFC3339 or YYYY-MM-DD. A plain date used as an upper bound
// covers the whole day.
func ParseTimeBound(raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q", raw))
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t.UTC(), nil
}
