package contenthub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

// Kind describes one content type: its directory and items key, its default page size,
// and how uploads are validated and turned into records.
type Kind[T Record] struct {
	// Name is both the content directory name and the index items key
	Name string

	DefaultLimit int

	// Extensions is the upload allow-list (lower case, with leading dot). Empty means read-only.
	Extensions []string

	// Sniff optionally checks the uploaded bytes against the declared extension
	Sniff func(ext string, data []byte) error

	// Build constructs the record for a committed upload
	Build func(id, filename, timestamp string, u Upload) T
}

// Repository implements list/get/upload/delete for one content type on top of an
// IndexStore (metadata) and a FileStore (bytes). Writers hold the index lock, which is
// shared with every other repository and process using the same directory.
type Repository[T Record] struct {
	kind  Kind[T]
	index *IndexStore[T]
	files FileStore
	opts  options

	mu sync.Mutex // serializes this process's writers before they contend for the file lock
}

// NewRepository creates a repository whose index lives in indexDir.
func NewRepository[T Record](kind Kind[T], indexDir string, files FileStore, opts ...Option) (*Repository[T], error) {
	if kind.Name == "" {
		return nil, errors.New("kind name is required")
	}
	if indexDir == "" {
		return nil, errors.New("index directory is required")
	}
	if files == nil {
		return nil, errors.New("file store is required")
	}
	if kind.Build == nil && len(kind.Extensions) > 0 {
		return nil, fmt.Errorf("kind %s accepts uploads but has no record builder", kind.Name)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Repository[T]{
		kind:    kind,
		index:   NewIndexStore[T](indexDir, kind.Name),
		files:   files,
		opts:  o,
	}, nil
}

// Kind returns the content type name
func (r *Repository[T]) Kind() string {
	return r.kind.Name
}

// Index exposes the underlying index store
func (r *Repository[T]) Index() *IndexStore[T] {
	return r.index
}

// Files exposes the underlying file store
func (r *Repository[T]) Files() FileStore {
	return r.files
}

// List runs q against the current index.
func (r *Repository[T]) List(ctx context.Context, q Query) (Result[T], error) {
	records, err := r.index.Load(ctx)
	if err != nil {
		r.logIndexError(ctx, "list", err)
		return Result[T]{}, err
	}
	res := Apply(records, q, r.kind.DefaultLimit)
	res.ItemsKey = r.kind.Name
	return res, nil
}

// Get looks a record up by its identity field. Absence is reported as found == false.
func (r *Repository[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	records, err := r.index.Load(ctx)
	if err != nil {
		r.logIndexError(ctx, "get", err)
		return zero, false, err
	}
	for _, rec := range records {
		if rec.Key() == key {
			return rec, true, nil
		}
	}
	return zero, false, nil
}

// Open opens the content file backing rec. A missing file is reported as ErrNotFound.
func (r *Repository[T]) Open(ctx context.Context, rec T) (io.ReadCloser, error) {
	return r.files.Open(ctx, rec.File())
}

// Create validates u, writes its bytes to the file store and appends a new record to the
// index. The file is written before the index entry: if the index commit fails the file is
// left behind as an orphan and the error is returned. The index lock is held from the file
// write to the commit, so a concurrent prune never sees the new file as an orphan.
func (r *Repository[T]) Create(ctx context.Context, u Upload) (T, error) {
	var zero T
	ext, err := r.validate(u)
	if err != nil {
		return zero, err
	}

	unlock, err := r.lock(ctx)
	if err != nil {
		r.logIndexError(ctx, "upload", err)
		return zero, err
	}
	defer unlock()

	if err := r.files.EnsureRoot(ctx); err != nil {
		return zero, err
	}
	filename, err := r.files.Save(ctx, bytes.NewReader(u.Data), ext)
	if err != nil {
		r.opts.logger.ErrorContext(ctx, "Failed to save content file", "kind", r.kind.Name, "error", err)
		return zero, err
	}
	if u.Tags == nil {
		u.Tags = []string{}
	}
	u.Title = strings.TrimSpace(u.Title)
	timestamp := r.opts.clock().UTC().Format(TimestampLayout)
	rec := r.kind.Build(r.opts.newID(), filename, timestamp, u)

	err = r.commit(ctx, func(records []T) ([]T, error) {
		return append(records, rec), nil
	})
	if err != nil {
		r.opts.logger.ErrorContext(ctx, "Failed to index uploaded file, leaving orphan",
			"kind", r.kind.Name, "id", rec.Key(), "filename", filename, "error", err)
		return zero, err
	}

	r.opts.logger.InfoContext(ctx, "Content uploaded", "kind", r.kind.Name, "id", rec.Key(), "filename", filename)
	if err := r.opts.sink.RecordUploaded(ctx, r.kind.Name, rec.Key(), int64(len(u.Data))); err != nil {
		r.opts.logger.WarnContext(ctx, "Event sink failed", "event", "uploaded", "error", err)
	}
	return rec, nil
}

// Delete removes the record identified by key from the index and then deletes its file.
// The index entry goes first: an orphan file is inert, a dangling entry is a visible 404.
func (r *Repository[T]) Delete(ctx context.Context, key string) (bool, error) {
	var removed T
	found := false

	unlock, err := r.lock(ctx)
	if err != nil {
		r.logIndexError(ctx, "delete", err)
		return false, err
	}
	defer unlock()

	err = r.commit(ctx, func(records []T) ([]T, error) {
		for i, rec := range records {
			if rec.Key() == key {
				removed, found = rec, true
				return append(records[:i:i], records[i+1:]...), nil
			}
		}
		return nil, errNoChange
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	if err != nil {
		r.logIndexError(ctx, "delete", err)
		return false, err
	}

	if err := r.files.Delete(ctx, removed.File()); err != nil {
		r.opts.logger.WarnContext(ctx, "Record removed but file delete failed, leaving orphan",
			"kind", r.kind.Name, "id", key, "filename", removed.File(), "error", err)
	}

	r.opts.logger.InfoContext(ctx, "Content deleted", "kind", r.kind.Name, "id", key)
	if err := r.opts.sink.RecordDeleted(ctx, r.kind.Name, key); err != nil {
		r.opts.logger.WarnContext(ctx, "Event sink failed", "event", "deleted", "error", err)
	}
	return found, nil
}

var errNoChange = errors.New("no change")

// lock takes the in-process mutex and then the index file lock.
func (r *Repository[T]) lock(ctx context.Context) (func(), error) {
	r.mu.Lock()
	unlock, err := r.index.Lock(ctx)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	return func() {
		unlock()
		r.mu.Unlock()
	}, nil
}

// commit runs one load-modify-save cycle; the caller holds the index lock. Only
// ErrConcurrentWrite (the file was changed by something bypassing the lock, such as a
// hand edit) is retried, each time against a fresh snapshot.
func (r *Repository[T]) commit(ctx context.Context, mutate func([]T) ([]T, error)) error {
	return retry.Do(
		func() error {
			records, version, err := r.index.Snapshot(ctx)
			if err != nil {
				return err
			}
			next, err := mutate(records)
			if err != nil {
				return err
			}
			return r.index.SaveIf(ctx, next, version)
		},
		retry.Context(ctx),
		retry.Attempts(r.opts.attempts),
		retry.RetryIf(IsRetryable),
		retry.Delay(10*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

func (r *Repository[T]) validate(u Upload) (string, error) {
	if len(r.kind.Extensions) == 0 {
		return "", &ValidationError{Field: "kind", Reason: r.kind.Name + " are read-only"}
	}
	if strings.TrimSpace(u.Title) == "" {
		return "", &ValidationError{Field: "title", Reason: "is required"}
	}
	if len(u.Data) == 0 {
		return "", &ValidationError{Field: "file", Reason: "is empty"}
	}

	ext := strings.ToLower(filepath.Ext(u.Filename))
	allowed := false
	for _, e := range r.kind.Extensions {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", &ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("extension %q not allowed (allowed: %s)", ext, strings.Join(r.kind.Extensions, ", ")),
		}
	}

	if r.kind.Sniff != nil {
		if err := r.kind.Sniff(ext, u.Data); err != nil {
			return "", err
		}
	}
	return ext, nil
}

func (r *Repository[T]) logIndexError(ctx context.Context, op string, err error) {
	level := slog.LevelWarn
	if errors.Is(err, ErrCorruptIndex) {
		level = slog.LevelError
	}
	r.opts.logger.Log(ctx, level, "Index operation failed", "kind", r.kind.Name, "op", op, "path", r.index.Path(), "error", err)
}
