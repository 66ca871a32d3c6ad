package bot

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a game name normalizes to nothing,
	// a scope id is empty, or a non-positive limit is requested.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable is returned when the persistence backend could
	// not be reached or did not durably commit a write.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StoreError wraps a backend failure with the operation and server it
// happened on. It always matches ErrStorageUnavailable with errors.Is.
type StoreError struct {
	Op       string
	ServerID string
	Err      error
}

func (e *StoreError) Error() string {
	if e.ServerID != "" {
		return fmt.Sprintf("store %s (server %s): %v", e.Op, e.ServerID, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports ErrStorageUnavailable for every StoreError.
func (e *StoreError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// NewStoreError wraps err for op on serverID.
func NewStoreError(op, serverID string, err error) error {
	return &StoreError{Op: op, ServerID: serverID, Err: err}
}

// InvalidInputf formats a validation error that matches ErrInvalidInput.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
