package contenthub

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// IndexFilename is the name of the index document inside a content-type directory.
const IndexFilename = "index.json"

// LockFilename is the lock file guarding writes to the index of a content-type directory.
// It is hidden so file stores sharing the directory never list it.
const LockFilename = ".index.lock"

const lockRetryDelay = 5 * time.Millisecond

// linkFile is swapped out in tests to simulate filesystems without hard links.
var linkFile = os.Link

// Version identifies the exact bytes of an index document as they were loaded.
type Version string

// IndexStore persists the metadata index of one content type as a pretty-printed JSON document
// of the form {"<key>": [record, ...]}. Callers always read-modify-write the whole list.
type IndexStore[T any] struct {
	path string
	key  string
}

// NewIndexStore creates an index store for dir/index.json holding records under key.
func NewIndexStore[T any](dir, key string) *IndexStore[T] {
	return &IndexStore[T]{
		path: filepath.Join(dir, IndexFilename),
		key:  key,
	}
}

// Path returns the location of the index document.
func (s *IndexStore[T]) Path() string {
	return s.path
}

// Load returns all records. A missing index is created empty; an unparsable one is
// reported as ErrCorruptIndex.
func (s *IndexStore[T]) Load(ctx context.Context) ([]T, error) {
	records, _, err := s.Snapshot(ctx)
	return records, err
}

// Snapshot is Load plus the version of the document the records were read from.
func (s *IndexStore[T]) Snapshot(ctx context.Context) ([]T, Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.bootstrap(); err != nil {
			return nil, "", err
		}
		data, err = os.ReadFile(s.path)
	}
	if err != nil {
		return nil, "", &IndexError{Path: s.path, Op: "read", Err: err}
	}

	records, err := s.decode(data)
	if err != nil {
		return nil, "", err
	}
	return records, versionOf(data), nil
}

// Lock blocks until it holds the exclusive lock on the index directory, or ctx is done.
// The lock is an OS file lock, so it excludes writers in other processes and writers using
// another IndexStore for the same directory. The returned function releases it.
func (s *IndexStore[T]) Lock(ctx context.Context) (func(), error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &IndexError{Path: s.path, Op: "mkdir", Err: err}
	}

	fl := flock.New(filepath.Join(dir, LockFilename))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, &IndexError{Path: s.path, Op: "lock", Err: err}
	}
	if !locked {
		return nil, &IndexError{Path: s.path, Op: "lock", Err: ErrConcurrentWrite}
	}
	return func() { fl.Unlock() }, nil
}

// Save overwrites the index with records. The replacement is written to a temporary file
// and renamed into place, so a crash never leaves a truncated document behind.
func (s *IndexStore[T]) Save(ctx context.Context, records []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(records)
}

// SaveIf is Save guarded by an optimistic check: if the document on disk no longer matches
// version, nothing is written and ErrConcurrentWrite is returned.
func (s *IndexStore[T]) SaveIf(ctx context.Context, records []T, version Version) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	current, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IndexError{Path: s.path, Op: "read", Err: err}
	}
	if versionOf(current) != version {
		return &IndexError{Path: s.path, Op: "save", Err: ErrConcurrentWrite}
	}
	return s.write(records)
}

func (s *IndexStore[T]) decode(data []byte) ([]T, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &IndexError{Path: s.path, Op: "parse", Err: fmt.Errorf("%w: %v", ErrCorruptIndex, err)}
	}

	raw, ok := doc[s.key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, &IndexError{Path: s.path, Op: "parse", Err: fmt.Errorf("%w: missing %q list", ErrCorruptIndex, s.key)}
	}

	records := []T{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &IndexError{Path: s.path, Op: "parse", Err: fmt.Errorf("%w: %v", ErrCorruptIndex, err)}
	}
	return records, nil
}

func (s *IndexStore[T]) encode(records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	return json.MarshalIndent(map[string][]T{s.key: records}, "", "  ")
}

func (s *IndexStore[T]) write(records []T) error {
	data, err := s.encode(records)
	if err != nil {
		return &IndexError{Path: s.path, Op: "encode", Err: err}
	}

	tmp, err := s.writeTemp(data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return &IndexError{Path: s.path, Op: "rename", Err: err}
	}
	return nil
}

// bootstrap creates an empty index without ever replacing one that appeared concurrently.
func (s *IndexStore[T]) bootstrap() error {
	data, err := s.encode(nil)
	if err != nil {
		return &IndexError{Path: s.path, Op: "encode", Err: err}
	}

	tmp, err := s.writeTemp(data)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	linkErr := linkFile(tmp, s.path)
	if linkErr == nil || errors.Is(linkErr, fs.ErrExist) {
		return nil
	}

	// no hard links on this filesystem: create exclusively and write in place
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return &IndexError{Path: s.path, Op: "create", Err: errors.Join(linkErr, err)}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(s.path)
		return &IndexError{Path: s.path, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(s.path)
		return &IndexError{Path: s.path, Op: "close", Err: err}
	}
	return nil
}

func (s *IndexStore[T]) writeTemp(data []byte) (string, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &IndexError{Path: s.path, Op: "mkdir", Err: err}
	}

	f, err := os.CreateTemp(dir, ".index-*.tmp")
	if err != nil {
		return "", &IndexError{Path: s.path, Op: "create", Err: err}
	}
	name := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", &IndexError{Path: s.path, Op: "write", Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", &IndexError{Path: s.path, Op: "sync", Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", &IndexError{Path: s.path, Op: "close", Err: err}
	}
	return name, nil
}

func versionOf(data []byte) Version {
	if data == nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return Version(hex.EncodeToString(sum[:]))
}
