package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no store host/port was supplied.
// This condition is permanent for the process lifetime.
var ErrNotConfigured = errors.New("store is not configured")

// ErrNotReady is returned when a store handle exists but is not currently
// connected.
var ErrNotReady = errors.New("store handle is not ready")

// ErrSetupFailed is returned when the one-time metrics database setup
// (database selection and writability check) failed. Unlike ErrNotConfigured
// it is retryable: the next metrics operation restarts setup.
var ErrSetupFailed = errors.New("metrics store setup failed")

// StoreError wraps a transport or protocol failure on a specific store call.
type StoreError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying transport error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *StoreError) Is(target error) bool {
	_, ok := target.(*StoreError)
	return ok
}

// NewStoreError wraps err as a StoreError for the named operation.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// DecodeError is returned when a stored cache payload could not be parsed.
// Callers treat it as a cache miss rather than surfacing it.
type DecodeError struct {
	Key   string
	Field string
	Err   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed payload at %s/%s: %v", e.Key, e.Field, e.Err)
}

// Unwrap exposes the underlying decoding error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *DecodeError) Is(target error) bool {
	_, ok := target.(*DecodeError)
	return ok
}

// NewDecodeError wraps err as a DecodeError for the given hash key and field.
func NewDecodeError(key, field string, err error) *DecodeError {
	return &DecodeError{Key: key, Field: field, Err: err}
}
