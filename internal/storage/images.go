package storage

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/skynetdev/incidentes-api/internal/apperrors"
	"github.com/sirupsen/logrus"
)

// MaxImageSize caps uploads at roughly 1.3 MB, matching what the frontend
// produces after client-side resizing.
const MaxImageSize = 1300 * 1024

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ImageStore persists uploaded incident images on local disk. Stored names
// are random UUIDs plus the original extension, so no user-controlled path
// component ever reaches the filesystem.
type ImageStore struct {
	dir string
	log *logrus.Logger
}

// NewImageStore ensures the upload directory exists and returns the store.
func NewImageStore(dir string, log *logrus.Logger) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ImageStore{dir: dir, log: log}, nil
}

// Dir returns the directory images are served from.
func (s *ImageStore) Dir() string { return s.dir }

// Save validates and writes an uploaded image, returning the stored filename.
func (s *ImageStore) Save(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > MaxImageSize {
		s.log.WithFields(logrus.Fields{
			"originalName": fileHeader.Filename,
			"size":         fileHeader.Size,
		}).Warn("upload rejected: file too large")
		return "", apperrors.TooLarge("El archivo excede el tamaño máximo permitido")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		s.log.WithFields(logrus.Fields{
			"originalName": fileHeader.Filename,
			"extension":    ext,
		}).Warn("upload rejected: file extension")
		return "", apperrors.Validation("Solo se aceptan archivos de tipo imagen")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		s.log.WithFields(logrus.Fields{
			"originalName": fileHeader.Filename,
			"mimetype":     contentType,
		}).Warn("upload rejected: invalid MIME type")
		return "", apperrors.Validation("Tipo MIME inválido: no es una imagen")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", apperrors.Internal("opening uploaded file failed", err)
	}
	defer src.Close()

	filename := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.dir, filename))
	if err != nil {
		return "", apperrors.Internal("creating image file failed", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", apperrors.Internal("writing image file failed", err)
	}
	return filename, nil
}

// Remove deletes a stored image. Failures are logged, never propagated:
// an orphaned file is a known consistency gap, not a request failure.
func (s *ImageStore) Remove(filename string) {
	if filename == "" {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, filename)); err != nil {
		s.log.WithFields(logrus.Fields{
			"image": filename,
			"error": err.Error(),
		}).Warn("could not remove image file")
	}
}

// Exists reports whether a stored image is present on disk.
func (s *ImageStore) Exists(filename string) bool {
	if filename == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(s.dir, filename))
	return err == nil
}
