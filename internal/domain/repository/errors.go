package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a market has never been seen.
	// Empty windows are not NotFound; they are empty results.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed parameters, before storage is touched.
	ErrInvalidInput = errors.New("invalid input")
)

// StorageError is a persistence-layer fault. It is always propagated.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err, or returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
