package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// UploadError Tests
// -----------------------------------------------------------------------------

func TestNewUploadError(t *testing.T) {
	cause := ErrUploadTimeout
	err := NewUploadError("no acknowledgment received", cause)

	if err.message != "no acknowledgment received" {
		t.Errorf("message = %q, want %q", err.message, "no acknowledgment received")
	}
	if err.cause != cause {
		t.Errorf("cause = %v, want %v", err.cause, cause)
	}
	if err.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityWarning)
	}
	if !err.IsRetryable() {
		t.Error("IsRetryable() = false, want true")
	}
	if !err.IsUserFacing() {
		t.Error("IsUserFacing() = false, want true")
	}
}

func TestUploadError_WithMethods(t *testing.T) {
	err := NewUploadError("test", nil).
		WithKey("notes.txt").
		WithRequestID("req-1").
		WithRetryable(false)

	if err.Key != "notes.txt" {
		t.Errorf("Key = %q, want %q", err.Key, "notes.txt")
	}
	if err.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want %q", err.RequestID, "req-1")
	}
	if err.IsRetryable() {
		t.Error("IsRetryable() = true, want false")
	}
}

func TestUploadError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *UploadError
		want string
	}{
		{
			name: "bare message",
			err:  NewUploadError("send failed", nil),
			want: "upload error: send failed",
		},
		{
			name: "with key",
			err:  NewUploadError("send failed", nil).WithKey("a.txt"),
			want: "upload error [key=a.txt]: send failed",
		},
		{
			name: "with key and cause",
			err:  NewUploadError("send failed", ErrTransportFailure).WithKey("a.txt"),
			want: "upload error [key=a.txt]: send failed: transport send failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUploadError_Is(t *testing.T) {
	err := NewUploadError("no ack", ErrUploadTimeout)

	if !errors.Is(err, ErrUploadTimeout) {
		t.Error("errors.Is(err, ErrUploadTimeout) = false, want true")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	var uploadErr *UploadError
	if !errors.As(wrapped, &uploadErr) {
		t.Error("errors.As failed to find UploadError in wrapped chain")
	}
}

// -----------------------------------------------------------------------------
// QueueError Tests
// -----------------------------------------------------------------------------

func TestQueueError(t *testing.T) {
	err := NewQueueError("write-through failed", ErrStoreWrite).WithSessionID("sess-9")

	want := "queue error [session=sess-9]: write-through failed: store write failed"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrStoreWrite) {
		t.Error("errors.Is(err, ErrStoreWrite) = false, want true")
	}
	if err.IsRetryable() {
		t.Error("IsRetryable() = true, want false")
	}
}

// -----------------------------------------------------------------------------
// Semantic Error Tests
// -----------------------------------------------------------------------------

func TestValidationError(t *testing.T) {
	err := NewValidationError("payload exceeds limit").
		WithField("size").
		WithValue(200)

	want := "validation error [field=size, value=200]: payload exceeds limit"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is(err, ErrInvalidInput) = false, want true")
	}
	if err.IsRetryable() {
		t.Error("validation errors should not be retryable")
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("waiting for upload acknowledgment", 30*time.Second)

	want := "timeout error: waiting for upload acknowledgment (timeout: 30s)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("errors.Is(err, ErrTimeout) = false, want true")
	}
	if !err.IsRetryable() {
		t.Error("timeouts should default to retryable")
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"upload error default", NewUploadError("x", nil), true},
		{"upload error opted out", NewUploadError("x", nil).WithRetryable(false), false},
		{"timeout error", NewTimeoutError("op", time.Second), true},
		{"wrapped sentinel timeout", fmt.Errorf("ctx: %w", ErrUploadTimeout), true},
		{"wrapped transport failure", fmt.Errorf("ctx: %w", ErrTransportFailure), true},
		{"duplicate key", fmt.Errorf("ctx: %w", ErrDuplicateUploadKey), false},
		{"queue error", NewQueueError("x", nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"upload error", NewUploadError("x", nil), true},
		{"validation error", NewValidationError("x"), true},
		{"timeout error", NewTimeoutError("op", time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v, want %v", got, SeverityDebug)
	}
	if got := GetSeverity(errors.New("boom")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v, want %v", got, SeverityError)
	}
	if got := GetSeverity(NewQueueError("x", nil)); got != SeverityError {
		t.Errorf("GetSeverity(queue) = %v, want %v", got, SeverityError)
	}
	if got := GetSeverity(NewUploadError("x", nil)); got != SeverityWarning {
		t.Errorf("GetSeverity(upload) = %v, want %v", got, SeverityWarning)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	err := Wrap(ErrEntryNotFound, "moving entry")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Error("wrapped error lost its sentinel")
	}
	want := "moving entry: queue entry not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	err = Wrapf(ErrEntryNotFound, "moving entry %s", "sess-1")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Error("Wrapf error lost its sentinel")
	}
}
