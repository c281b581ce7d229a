package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/content-hub/pkg/contenthub"
)

const backendName = "fs"

var (
	_ contenthub.FileStore    = (*Backend)(nil)
	_ contenthub.PathResolver = (*Backend)(nil)
)

// Backend is a filesystem implementation of the contenthub.FileStore interface
type Backend struct {
	baseDir  string
	nameFunc func(ext string) string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Directory holding the content files

	// NameFunc generates a filename for a new file (default: random UUID + ext)
	NameFunc func(ext string) string
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if config.NameFunc == nil {
		config.NameFunc = func(ext string) string {
			return uuid.NewString() + ext
		}
	}

	return &Backend{
		baseDir:  filepath.Clean(config.BaseDir),
		nameFunc: config.NameFunc,
	}, nil
}

// BaseDir returns the root directory
func (b *Backend) BaseDir() string {
	return b.baseDir
}

// EnsureRoot creates the base directory if it doesn't exist
func (b *Backend) EnsureRoot(ctx context.Context) error {
	if err := os.MkdirAll(b.baseDir, 0755); err != nil {
		return &contenthub.StorageError{Backend: backendName, Key: b.baseDir, Op: "mkdir", Err: err}
	}
	return nil
}

// ResolvePath maps a stored filename to its path. Names that could escape the base
// directory are rejected.
func (b *Backend) ResolvePath(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || filepath.Base(filename) != filename {
		return "", fmt.Errorf("%w: invalid filename %q", contenthub.ErrNotFound, filename)
	}
	return filepath.Join(b.baseDir, filename), nil
}

// Save writes content to a new file. Existing files are never overwritten.
func (b *Backend) Save(ctx context.Context, reader io.Reader, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := b.nameFunc(ext)
	filePath, err := b.ResolvePath(name)
	if err != nil {
		return "", &contenthub.StorageError{Backend: backendName, Key: name, Op: "save", Err: err}
	}

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, iofs.ErrExist) {
		return "", &contenthub.StorageError{Backend: backendName, Key: name, Op: "save", Err: contenthub.ErrStorageConflict}
	}
	if err != nil {
		return "", &contenthub.StorageError{Backend: backendName, Key: name, Op: "create", Err: err}
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(filePath)
		return "", &contenthub.StorageError{Backend: backendName, Key: name, Op: "write", Err: err}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(filePath)
		return "", &contenthub.StorageError{Backend: backendName, Key: name, Op: "sync", Err: err}
	}
	if err := file.Close(); err != nil {
		os.Remove(filePath)
		return "", &contenthub.StorageError{Backend: backendName, Key: name, Op: "close", Err: err}
	}

	return name, nil
}

// Open opens a stored file for reading
func (b *Backend) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	filePath, err := b.ResolvePath(filename)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", contenthub.ErrNotFound, filename)
	} else if err != nil {
		return nil, &contenthub.StorageError{Backend: backendName, Key: filename, Op: "open", Err: err}
	}
	return file, nil
}

// Delete deletes a file. A missing file is not an error.
func (b *Backend) Delete(ctx context.Context, filename string) error {
	filePath, err := b.ResolvePath(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return &contenthub.StorageError{Backend: backendName, Key: filename, Op: "delete", Err: err}
	}
	return nil
}

// Exists reports whether filename is present
func (b *Backend) Exists(ctx context.Context, filename string) (bool, error) {
	filePath, err := b.ResolvePath(filename)
	if err != nil {
		return false, nil
	}

	info, err := os.Stat(filePath)
	if errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, &contenthub.StorageError{Backend: backendName, Key: filename, Op: "stat", Err: err}
	}
	return info.Mode().IsRegular(), nil
}

// List returns the regular, non-hidden files in the base directory
func (b *Backend) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.baseDir)
	if errors.Is(err, iofs.ErrNotExist) {
		return []string{}, nil
	} else if err != nil {
		return nil, &contenthub.StorageError{Backend: backendName, Key: b.baseDir, Op: "list", Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
