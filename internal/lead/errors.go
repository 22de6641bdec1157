package lead

import (
	"errors"
	"fmt"
)

// Sentinel errors used to classify pipeline failures with errors.Is.
var (
	// ErrFetch marks a page that could not be retrieved.
	ErrFetch = errors.New("fetch failed")
	// ErrExtract marks a page that yielded no usable content.
	ErrExtract = errors.New("no extractable content")
	// ErrStorage marks a database failure that is not a uniqueness conflict.
	ErrStorage = errors.New("storage failure")
	// ErrNotFound is returned when a candidate does not exist.
	ErrNotFound = errors.New("lead not found")
	// ErrClaimLost is returned when a status update finds the candidate no longer owned
	// by the caller.
	ErrClaimLost = errors.New("claim lost")
)

// FetchError describes a failed navigation.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode > 0:
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
}

// Unwrap exposes both ErrFetch and the underlying cause.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}

// StorageError wraps a database failure with the operation that produced it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrStorage and the underlying cause.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// NewStorageError wraps err for op, or returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
