package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"tempspec/internal/authz"
	"tempspec/internal/storage"

	"go.uber.org/zap"
)

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

type ImageUploadResponse struct {
	Location string `json:"location"`
}

// ImageService stores images pasted into the narrative editor
type ImageService interface {
	Upload(ctx context.Context, actor authz.Actor, file UploadedFile) (*ImageUploadResponse, error)
}

type imageService struct {
	store storage.Store
	now   func() time.Time
	log   *zap.Logger
}

func NewImageService(store storage.Store, logger *zap.Logger) ImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &imageService{store: store, now: time.Now, log: logger.With(zap.String("service", "image"))}
}

// Upload saves the file as <unix>_<sanitised name> and returns the URL the
// Markdown should reference.
func (s *imageService) Upload(ctx context.Context, actor authz.Actor, file UploadedFile) (*ImageUploadResponse, error) {
	if err := authorize(actor, authz.ActionUploadImage); err != nil {
		return nil, err
	}
	if len(file.Data) == 0 {
		return nil, validationError("an image file is required")
	}
	name := sanitizeFilename(file.Name)
	ext := strings.ToLower(filepath.Ext(name))
	contentType, ok := imageTypes[ext]
	if name == "" || !ok {
		return nil, validationError("unsupported image type %q", filepath.Ext(file.Name))
	}

	key := fmt.Sprintf("%d_%s", s.now().Unix(), name)
	if err := s.store.Put(ctx, key, file.Data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	s.log.Info("image uploaded", zap.String("key", key), zap.Int("bytes", len(file.Data)))
	return &ImageUploadResponse{Location: imageURLPrefix + key}, nil
}
