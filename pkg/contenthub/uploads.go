package contenthub

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// UploadExtensions lists the image formats accepted for editor image uploads.
var UploadExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Uploads stores images embedded in article bodies. It has no index: the generated
// filename is the only handle.
type Uploads struct {
	files  FileStore
	logger *slog.Logger
}

// NewUploads creates the editor image store
func NewUploads(files FileStore, logger *slog.Logger) (*Uploads, error) {
	if files == nil {
		return nil, errors.New("file store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploads{files: files, logger: logger}, nil
}

// Save validates and stores an image, returning the generated filename.
func (u *Uploads) Save(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", &ValidationError{Field: "image", Reason: "is empty"}
	}
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, e := range UploadExtensions {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", &ValidationError{Field: "image", Reason: "invalid file type, allowed: jpeg, png, gif, webp"}
	}
	if err := sniffImage(ext, data); err != nil {
		return "", err
	}

	if err := u.files.EnsureRoot(ctx); err != nil {
		return "", err
	}
	name, err := u.files.Save(ctx, bytes.NewReader(data), ext)
	if err != nil {
		u.logger.ErrorContext(ctx, "Failed to save editor image", "error", err)
		return "", err
	}
	u.logger.InfoContext(ctx, "Editor image uploaded", "filename", name, "size", len(data))
	return name, nil
}

// Files exposes the underlying file store
func (u *Uploads) Files() FileStore {
	return u.files
}

// Open opens a stored image. A missing image is reported as ErrNotFound.
func (u *Uploads) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	return u.files.Open(ctx, filename)
}
