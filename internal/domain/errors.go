// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrNoTrackLoaded is returned when an operation needs a current track.
	ErrNoTrackLoaded = errors.New("no track loaded")

	// ErrInvalidMediaHandle is returned when an unknown or released handle is used.
	ErrInvalidMediaHandle = errors.New("invalid media handle")

	// ErrPlaybackFailed is returned when the media service rejects a source.
	ErrPlaybackFailed = errors.New("playback failed")

	// ErrInvalidPosition is returned when seeking outside a source.
	ErrInvalidPosition = errors.New("invalid playback position")

	// ErrInvalidSource is returned when a track has no playable source.
	ErrInvalidSource = errors.New("invalid media source")

	// ErrUnsupportedFormat is returned when an audio format cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrNotInitialized is returned when an operation is attempted on an uninitialized component.
	ErrNotInitialized = errors.New("component not initialized")

	// ErrClosed is returned when an operation is attempted after shutdown.
	ErrClosed = errors.New("component closed")

	// ErrRecordNotFound is returned when a play-count record does not exist.
	ErrRecordNotFound = errors.New("play count record not found")

	// ErrRecordExists is returned when inserting a record whose key is already stored.
	ErrRecordExists = errors.New("play count record already exists")

	// ErrScanInProgress is returned when a library refresh is already running.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrAudioUnavailable is returned when the build has no audio output support.
	ErrAudioUnavailable = errors.New("audio output not available in this build")
)

// EngineErrorReason classifies player engine failures reported to observers.
type EngineErrorReason string

const (
	// ReasonPlaybackFailed means the media service rejected or failed to prepare the source.
	ReasonPlaybackFailed EngineErrorReason = "PlaybackFailed"
)

// EngineError is reported to observers when the player engine cannot fulfil a request.
// It never propagates to the caller of a transport operation.
type EngineError struct {
	Reason EngineErrorReason
	Op     string // Operation that failed (e.g., "load", "start")
	Source string // Media source (if applicable)
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("player %s failed for '%s': %s: %v", e.Op, e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("player %s failed: %s: %v", e.Op, e.Reason, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is reports PlaybackFailed engine errors as ErrPlaybackFailed.
func (e *EngineError) Is(target error) bool {
	return target == ErrPlaybackFailed && e.Reason == ReasonPlaybackFailed
}

// NewEngineError creates a new EngineError.
func NewEngineError(reason EngineErrorReason, op, source string, err error) *EngineError {
	return &EngineError{
		Reason: reason,
		Op:     op,
		Source: source,
		Err:    err,
	}
}

// MediaError represents an error from a media service adapter.
type MediaError struct {
	Op      string // Operation that failed (e.g., "load", "seek")
	Source  string // Media source (if applicable)
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *MediaError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("media %s failed for '%s': %s", e.Op, e.Source, e.Message)
	}
	return fmt.Sprintf("media %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *MediaError) Unwrap() error {
	return e.Err
}

// NewMediaError creates a new MediaError.
func NewMediaError(op, source, message string, err error) *MediaError {
	return &MediaError{
		Op:      op,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

// RepositoryError represents an error from a repository.
// This wraps persistence layer errors with additional context.
type RepositoryError struct {
	Op      string // Operation that failed (e.g., "find", "insert", "upsert")
	Type    string // Repository type (e.g., "sql", "redis", "preferences")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string      // Field that failed validation
	Value   interface{} // Value that failed validation
	Message string      // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "StatsService", "LibraryService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
