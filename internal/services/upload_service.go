package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultUploadDir    = "data/uploads"
	defaultImageSize    = 512
	defaultImageQuality = 80
)

// UploadService normalizes uploaded photos: EXIF orientation is applied,
// the image is center-cropped to a square, resized to a fixed edge, and
// re-encoded as JPEG under a collision-free filename in Dir.
type UploadService struct {
	Dir     string
	Size    int
	Quality int
}

// NewUploadService constructs an UploadService writing into dir.
func NewUploadService(dir string, size, quality int) *UploadService {
	return &UploadService{Dir: dir, Size: size, Quality: quality}
}

func (s *UploadService) dir() string {
	if s.Dir != "" {
		return s.Dir
	}
	return defaultUploadDir
}

func (s *UploadService) size() int {
	if s.Size > 0 {
		return s.Size
	}
	return defaultImageSize
}

func (s *UploadService) quality() int {
	if s.Quality >= 1 && s.Quality <= 100 {
		return s.Quality
	}
	return defaultImageQuality
}

// Save runs the processing pipeline over r and returns the stored filename
// (no directory, no URL prefix). Undecodable input yields ErrNotAnImage.
func (s *UploadService) Save(ctx context.Context, r io.Reader) (string, error) {
	tr := otel.Tracer("services/UploadService")
	_, span := tr.Start(ctx, "Save")
	defer span.End()

	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrNotAnImage
	}

	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	img := imaging.CropCenter(src, side, side)
	img = imaging.Resize(img, s.size(), s.size(), imaging.Lanczos)

	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := fmt.Sprintf("%d-%s.jpg", time.Now().UnixNano(), uuid.NewString())
	path := filepath.Join(s.dir(), name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(s.quality())); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}

	span.SetAttributes(attribute.String("upload.file", name))
	return name, nil
}
