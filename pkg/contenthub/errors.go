package contenthub

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNotFound indicates a record (or its backing file) does not exist
	ErrNotFound = errors.New("record not found")

	// ErrValidation indicates an upload was rejected before any I/O happened
	ErrValidation = errors.New("validation failed")

	// ErrCorruptIndex indicates the index document could not be parsed
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrStorageConflict indicates a generated filename already exists in the file store
	ErrStorageConflict = errors.New("storage conflict")

	// ErrConcurrentWrite indicates the index changed between load and save.
	// Callers should re-issue the operation.
	ErrConcurrentWrite = errors.New("concurrent write conflict")
)

// ValidationError describes a rejected upload field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IndexError represents an error related to index file operations
type IndexError struct {
	Path string
	Op   string
	Err  error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index operation %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to file store operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err signals a conflict that may succeed when re-issued.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentWrite)
}
