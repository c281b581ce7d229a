package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/content-hub/pkg/contenthub"
)

var _ contenthub.FileStore = (*Backend)(nil)

// Backend is an in-memory implementation of the contenthub.FileStore interface
type Backend struct {
	mu       sync.RWMutex
	objects  map[string][]byte
	nameFunc func(ext string) string
}

// New creates a new in-memory storage backend
func New() *Backend {
	return NewWithNames(nil)
}

// NewWithNames creates an in-memory backend using nameFunc to generate filenames
func NewWithNames(nameFunc func(ext string) string) *Backend {
	if nameFunc == nil {
		nameFunc = func(ext string) string {
			return uuid.NewString() + ext
		}
	}
	return &Backend{
		objects:  make(map[string][]byte),
		nameFunc: nameFunc,
	}
}

// EnsureRoot is a no-op for the memory backend
func (b *Backend) EnsureRoot(ctx context.Context) error {
	return nil
}

// Save stores content under a generated name
func (b *Backend) Save(ctx context.Context, reader io.Reader, ext string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", &contenthub.StorageError{Backend: "memory", Op: "read", Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	name := b.nameFunc(ext)
	if _, exists := b.objects[name]; exists {
		return "", &contenthub.StorageError{Backend: "memory", Key: name, Op: "save", Err: contenthub.ErrStorageConflict}
	}
	b.objects[name] = data
	return name, nil
}

// Put stores content under an explicit name, replacing any previous content.
// Used to seed articles, which are written out of band.
func (b *Backend) Put(filename string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[filename] = append([]byte(nil), data...)
}

// Open returns a reader over stored content
func (b *Backend) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[filename]
	if !exists {
		return nil, fmt.Errorf("%w: %s", contenthub.ErrNotFound, filename)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes content; missing content is not an error
func (b *Backend) Delete(ctx context.Context, filename string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, filename)
	return nil
}

// Exists reports whether filename is stored
func (b *Backend) Exists(ctx context.Context, filename string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[filename]
	return exists, nil
}

// List returns all stored names in lexical order
func (b *Backend) List(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.objects))
	for name := range b.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
