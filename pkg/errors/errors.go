// Package errors provides custom error types for the wayfarer system.
// These errors enable programmatic error checking across the merge,
// optimistic-mutation, and sync paths, where callers need to distinguish
// "retry later" failures from permanent rejections.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's chain matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// Common sentinel errors for the wayfarer system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrOffline indicates that the device has no connectivity
	ErrOffline = errors.New("offline")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrServerUnavailable indicates that the server of record is temporarily unavailable
	ErrServerUnavailable = errors.New("server unavailable")

	// ErrConflict indicates that the server rejected a mutation
	ErrConflict = errors.New("conflict")

	// ErrMutationPending indicates that an optimistic mutation is already outstanding
	ErrMutationPending = errors.New("optimistic mutation pending")

	// ErrUnclassifiable indicates that a raw record matched no known source shape
	ErrUnclassifiable = errors.New("unclassifiable record")
)

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NetworkError represents a transient network failure: the device is offline,
// the connection dropped, or the call timed out. Queueable mutations are
// enqueued rather than failed when they hit one of these.
type NetworkError struct {
	Op      string
	Message string
	Err     error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("network error during %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("network error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *NetworkError) Is(target error) bool {
	return target == ErrOffline || target == ErrTimeout
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(op string, err error) *NetworkError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &NetworkError{Op: op, Message: message, Err: err}
}

// ServerError represents a definitive 4xx/5xx response from the server of
// record. These always trigger rollback and surface to the caller.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("server error during %s (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server error during %s: %s", e.Op, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ServerError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ServerError) Is(target error) bool {
	if e.StatusCode >= 500 {
		return target == ErrServerUnavailable
	}
	if e.StatusCode == 409 {
		return target == ErrConflict
	}
	return false
}

// NewServerError creates a new ServerError
func NewServerError(op string, statusCode int, message string) *ServerError {
	return &ServerError{Op: op, StatusCode: statusCode, Message: message}
}

// MergeError represents a rejected record during a merge operation
type MergeError struct {
	ExternalID string
	Source     string
	Err        error
}

// Error implements the error interface
func (e *MergeError) Error() string {
	if e.ExternalID != "" {
		return fmt.Sprintf("merge rejected record %s from %s: %v", e.ExternalID, e.Source, e.Err)
	}
	return fmt.Sprintf("merge rejected record from %s: %v", e.Source, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *MergeError) Unwrap() error {
	return e.Err
}

// NewMergeError creates a new MergeError
func NewMergeError(externalID, source string, err error) *MergeError {
	return &MergeError{ExternalID: externalID, Source: source, Err: err}
}

// SyncError represents a failed replay of a queued mutation
type SyncError struct {
	TempID string
	Kind   string
	Err    error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	return fmt.Sprintf("sync error replaying %s mutation %s: %v", e.Kind, e.TempID, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a new SyncError
func NewSyncError(tempID, kind string, err error) *SyncError {
	return &SyncError{TempID: tempID, Kind: kind, Err: err}
}

// StorageError represents an error in the durable local store or blob store
type StorageError struct {
	Operation string // "read", "write", "delete", "open"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("storage error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError
func NewStorageError(operation, path string, err error) *StorageError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &StorageError{Operation: operation, Path: path, Message: message, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTransient checks if an error is a transient network failure. Transient
// failures leave queued mutations queued; everything else reverts them.
func IsTransient(err error) bool {
	return errors.Is(err, ErrOffline) || errors.Is(err, ErrTimeout)
}

// IsConflict checks if an error is a server-side conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsMutationPending checks if an error is the outstanding-mutation guard
func IsMutationPending(err error) bool {
	return errors.Is(err, ErrMutationPending)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapStorage wraps an error as a StorageError
func WrapStorage(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewStorageError(operation, path, err)
}

// WrapNetwork wraps an error as a NetworkError
func WrapNetwork(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewNetworkError(op, err)
}
