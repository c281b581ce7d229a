package contenthub

import (
	"context"
	"io"
)

// FileStore defines the interface for content byte persistence under one content-type root.
// Implementations stay content-agnostic: extension allow-lists are enforced by the repository.
type FileStore interface {
	// EnsureRoot creates the root location if needed. Safe to call before every operation.
	EnsureRoot(ctx context.Context) error

	// Save writes the content under a freshly generated name ending in ext and returns that name.
	// It never overwrites an existing file; a collision is reported as ErrStorageConflict.
	Save(ctx context.Context, reader io.Reader, ext string) (string, error)

	// Open opens a stored file for reading. A missing file is reported as ErrNotFound.
	Open(ctx context.Context, filename string) (io.ReadCloser, error)

	// Delete removes a stored file. Deleting an absent file is not an error.
	Delete(ctx context.Context, filename string) error

	// Exists reports whether filename is present.
	Exists(ctx context.Context, filename string) (bool, error)

	// List returns the names of all stored files.
	List(ctx context.Context) ([]string, error)
}

// PathResolver is implemented by file stores that keep content on the local filesystem.
type PathResolver interface {
	ResolvePath(filename string) (string, error)
}

// EventSink receives notifications about index mutations
type EventSink interface {
	// RecordUploaded is fired after an upload has been committed to the index
	RecordUploaded(ctx context.Context, kind, id string, size int64) error

	// RecordDeleted is fired after a record has been removed from the index
	RecordDeleted(ctx context.Context, kind, id string) error
}
