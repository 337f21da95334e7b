// Package errors provides centralized error definitions and error handling
// utilities for the coordination core. It defines domain-specific errors,
// semantic error types, constructors with context wrapping, and
// classification helpers.
//
// The races that are part of the coordination core's normal operating
// envelope (a response arriving after its timeout fired, losing a window
// claim, an ambiguous fallback match) are deliberately NOT errors in this
// package: those paths are logged and dropped, or reported through typed
// results. Only genuine misuse (a duplicate upload key) and resource
// limits surface here as hard errors.
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrDuplicateUploadKey) { ... }
//
//	var uploadErr *errors.UploadError
//	if errors.As(err, &uploadErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Upload-related sentinel errors
var (
	// ErrDuplicateUploadKey indicates a second upload was registered under a
	// key that already has a pending completion. Callers must serialize
	// uploads per key; this is a programming error, not a race.
	ErrDuplicateUploadKey = New("upload key already pending")
	// ErrUploadTimeout indicates no acknowledgment arrived within the
	// configured window. Terminal; retry policy belongs to the caller.
	ErrUploadTimeout = New("upload timed out")
	// ErrTransportFailure indicates the transport rejected the outbound message.
	ErrTransportFailure = New("transport send failed")
	// ErrPayloadTooLarge indicates the payload exceeds the configured size limit.
	ErrPayloadTooLarge = New("payload exceeds size limit")
	// ErrPayloadMissing indicates the file to upload does not exist.
	ErrPayloadMissing = New("payload file not found")
)

// Queue-related sentinel errors
var (
	// ErrEntryNotFound indicates a session is not present in the priority queue.
	ErrEntryNotFound = New("queue entry not found")
	// ErrEntryExists indicates a session is already present in the priority queue.
	ErrEntryExists = New("queue entry already exists")
	// ErrStoreWrite indicates the persistent store rejected a write-through.
	ErrStoreWrite = New("store write failed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// CoreError is the base interface for all coordination core errors.
// It extends the standard error interface with methods for error
// handling and classification.
type CoreError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }
func (e *baseError) IsUserFacing() bool { return e.userFacing }

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// UploadError represents errors related to upload acknowledgment handling.
//
// Example:
//
//	err := errors.NewUploadError("no acknowledgment received", errors.ErrUploadTimeout)
//	err = err.WithKey("notes.txt").WithRequestID("req-1")
type UploadError struct {
	baseError
	Key       string
	RequestID string
}

// NewUploadError creates a new UploadError. Upload failures are reported
// per item with a retryable status, so the default is retryable.
func NewUploadError(message string, cause error) *UploadError {
	return &UploadError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithKey adds the upload key to the error context.
func (e *UploadError) WithKey(key string) *UploadError {
	e.Key = key
	return e
}

// WithRequestID adds the generated request id to the error context.
func (e *UploadError) WithRequestID(id string) *UploadError {
	e.RequestID = id
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *UploadError) WithRetryable(r bool) *UploadError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *UploadError) Error() string {
	var parts []string
	if e.Key != "" {
		parts = append(parts, fmt.Sprintf("key=%s", e.Key))
	}
	if e.RequestID != "" {
		parts = append(parts, fmt.Sprintf("request=%s", e.RequestID))
	}

	prefix := "upload error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("upload error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *UploadError) Is(target error) bool {
	if _, ok := target.(*UploadError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// QueueError represents errors related to the reorderable priority queue.
//
// Example:
//
//	err := errors.NewQueueError("write-through failed", errors.ErrStoreWrite)
//	err = err.WithSessionID("sess-1")
type QueueError struct {
	baseError
	SessionID string
}

// NewQueueError creates a new QueueError.
func NewQueueError(message string, cause error) *QueueError {
	return &QueueError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *QueueError) WithSessionID(id string) *QueueError {
	e.SessionID = id
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *QueueError) WithRetryable(r bool) *QueueError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *QueueError) Error() string {
	prefix := "queue error"
	if e.SessionID != "" {
		prefix = fmt.Sprintf("queue error [session=%s]", e.SessionID)
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *QueueError) Is(target error) bool {
	if _, ok := target.(*QueueError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state, such as an upload
// payload that fails the caller-side size check.
//
// Example:
//
//	err := errors.NewValidationError("payload exceeds limit")
//	err = err.WithField("size").WithValue(sizeBytes)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for upload acknowledgment", 30*time.Second)
//	fmt.Println(err) // "timeout error: waiting for upload acknowledgment (timeout: 30s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. Upload timeouts and transport failures are
// retryable (per item, by the caller); duplicate keys and validation
// failures are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var coreErr CoreError
	if As(err, &coreErr) {
		return coreErr.IsRetryable()
	}

	if Is(err, ErrTimeout) || Is(err, ErrUploadTimeout) || Is(err, ErrTransportFailure) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to
// end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var coreErr CoreError
	if As(err, &coreErr) {
		return coreErr.IsUserFacing()
	}

	// Semantic errors are always user-facing.
	var validation *ValidationError
	var timeout *TimeoutError
	return As(err, &validation) || As(err, &timeout)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement CoreError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var coreErr CoreError
	if As(err, &coreErr) {
		return coreErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with an additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to persist queue entry")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to persist entry %s", sessionID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
