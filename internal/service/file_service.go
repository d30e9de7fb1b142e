package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	"github.com/noah-isme/rchan-moderation-api/pkg/config"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
	"github.com/noah-isme/rchan-moderation-api/pkg/storage"
)

type fileStore interface {
	SaveStream(key string, r io.Reader) (string, error)
	Open(key string) (*os.File, error)
	Delete(key string) (bool, error)
}

// FileService stores uploaded media and enforces the extension, MIME and size allow lists.
type FileService struct {
	store      fileStore
	maxSize    int64
	extensions map[string]struct{}
	mimes      map[string]struct{}
	logger     *zap.Logger
}

// NewFileService constructs a file service over a blob store.
func NewFileService(store fileStore, cfg config.StorageConfig, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{
		store:      store,
		maxSize:    cfg.MaxFileSizeBytes,
		extensions: toSet(cfg.AllowedExtensions),
		mimes:      toSet(cfg.AllowedMIMEs),
		logger:     logger,
	}
}

// Save validates and stores upload under a fresh name. It returns the stored name and its file type.
func (s *FileService) Save(upload *dto.FileUpload) (string, models.FileType, error) {
	if upload == nil || upload.Body == nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(upload.Filename), "."))
	if _, ok := s.extensions[ext]; !ok || ext == "" {
		return "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file extension %q is not allowed", ext))
	}
	if s.maxSize > 0 && upload.Size > s.maxSize {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size")
	}

	reader := bufio.NewReaderSize(upload.Body, 512)
	mimeType := declaredMIME(upload.ContentType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		head, _ := reader.Peek(512)
		mimeType = declaredMIME(http.DetectContentType(head))
	}
	if _, ok := s.mimes[mimeType]; !ok {
		return "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("content type %q is not allowed", mimeType))
	}

	var body io.Reader = reader
	if s.maxSize > 0 {
		body = &limitedReader{r: reader, remaining: s.maxSize}
	}
	name, err := s.store.SaveStream(uuid.NewString()+"."+ext, body)
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			return "", "", appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size")
		}
		return "", "", appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "failed to store file")
	}
	s.logger.Debug("file stored", zap.String("name", name), zap.String("mime", mimeType))
	return name, models.FileTypeFromExtension(ext), nil
}

// Open returns a handle on a stored file. name is reduced to its base name first.
func (s *FileService) Open(name string) (*os.File, error) {
	key := storage.CleanKey(name)
	if key == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	file, err := s.store.Open(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "failed to open file")
	}
	return file, nil
}

// Delete removes a stored file. A file that is already gone is not an error.
func (s *FileService) Delete(name string) error {
	key := storage.CleanKey(name)
	if key == "" {
		return nil
	}
	removed, err := s.store.Delete(key)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "failed to delete file")
	}
	if !removed {
		s.logger.Warn("file already missing", zap.String("name", key))
	}
	return nil
}

// ContentType guesses the response content type for a stored name.
func (s *FileService) ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var errFileTooLarge = errors.New("file too large")

// limitedReader fails once more than remaining bytes are read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errFileTooLarge
	}
	return n, err
}

func declaredMIME(raw string) string {
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return strings.ToLower(mediaType)
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return out
}
