package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
	"github.com/noah-isme/rchan-moderation-api/pkg/export"
	"github.com/noah-isme/rchan-moderation-api/pkg/storage"
)

const maxExportRows = 10000

type logExportSource interface {
	ListAll(ctx context.Context, filter models.ModerationLogFilter, limit int) ([]models.ModerationLog, error)
}

type exportStore interface {
	Save(key string, data []byte) (string, error)
	Open(key string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// LogExportConfig tunes export behaviour.
type LogExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// LogExportService renders ledger slices to CSV or PDF and hands out signed download links.
type LogExportService struct {
	logs      logExportSource
	store     exportStore
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       LogExportConfig
}

// NewLogExportService constructs a LogExportService. Nil renderers fall back to the defaults.
func NewLogExportService(logs logExportSource, store exportStore, signer *storage.SignedURLSigner, cfg LogExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *LogExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &LogExportService{
		logs:      logs,
		store:     store,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		validator: dto.NewValidator(),
		logger:    logger,
		cfg:       cfg,
	}
}

// Export renders the selected entries and returns a signed download link.
func (s *LogExportService) Export(ctx context.Context, actor *models.Actor, req dto.ExportLogsRequest) (*dto.ExportResult, error) {
	if err := requireCapability(actor, models.CapExportLogs); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid export payload")
	}
	filter, err := exportFilter(req)
	if err != nil {
		return nil, err
	}

	entries, err := s.logs.ListAll(ctx, filter, maxExportRows)
	if err != nil {
		return nil, internalError(err, "failed to load moderation logs")
	}
	dataset := logDataset(entries)

	format := export.Format(strings.ToLower(req.Format))
	var payload []byte
	switch format {
	case export.FormatCSV:
		payload, err = s.csv.Render(dataset)
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset, "Moderation log")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}

	exportID := uuid.NewString()
	key, err := s.store.Save(fmt.Sprintf("%s.%s", exportID, format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, key)
	if err != nil {
		return nil, internalError(err, "failed to sign export link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api"
	}

	s.logger.Info("moderation log exported",
		zap.String("export_id", exportID),
		zap.String("format", string(format)),
		zap.Int("rows", len(entries)),
		zap.String("by", actor.Username),
	)
	return &dto.ExportResult{
		ExportID:  exportID,
		Format:    string(format),
		Rows:      len(entries),
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a download token to the stored export.
func (s *LogExportService) Open(token string) (*os.File, export.Format, error) {
	_, key, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	file, err := s.store.Open(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "failed to open export")
	}
	format := export.FormatCSV
	if strings.HasSuffix(key, "."+string(export.FormatPDF)) {
		format = export.FormatPDF
	}
	return file, format, nil
}

// Cleanup removes exports older than the link lifetime.
func (s *LogExportService) Cleanup(ctx context.Context) error {
	removed, err := s.store.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		return fmt.Errorf("cleanup exports: %w", err)
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return nil
}

func exportFilter(req dto.ExportLogsRequest) (models.ModerationLogFilter, error) {
	filter := models.ModerationLogFilter{
		AdminUserID: req.AdminUserID,
		PostID:      req.PostID,
		SortBy:      "created_at",
		SortOrder:   "desc",
	}
	if req.Action != "" {
		action := models.ModerationAction(strings.ToUpper(req.Action))
		if !action.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown moderation action")
		}
		filter.Action = action
	}
	if req.From != "" {
		from, err := ParseTimeBound(req.From, false)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := ParseTimeBound(req.To, true)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	return filter, nil
}

func logDataset(entries []models.ModerationLog) export.Dataset {
	headers := []string{"Created At", "Action", "Admin", "Post", "Repost", "Details"}
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		details, err := json.Marshal(e.Details)
		if err != nil {
			details = []byte("{}")
		}
		rows = append(rows, map[string]string{
			"Created At": e.CreatedAt.UTC().Format(time.RFC3339),
			"Action":     string(e.Action),
			"Admin":      e.AdminUsername,
			"Post":       deref(e.PostID),
			"Repost":     deref(e.RepostID),
			"Details":    string(details),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
