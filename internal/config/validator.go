package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "upload.timeout_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidPriorities returns the list of valid queue priority names
func ValidPriorities() []string {
	return []string{"high", "medium", "low"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateUpload()...)
	errors = append(errors, c.validateQueue()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateUpload validates the UploadConfig
func (c *Config) validateUpload() []ValidationError {
	var errors []ValidationError

	if c.Upload.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "upload.timeout_seconds",
			Value:   c.Upload.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	if c.Upload.ConnectionTestTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "upload.connection_test_timeout_seconds",
			Value:   c.Upload.ConnectionTestTimeoutSeconds,
			Message: "must be positive",
		})
	}

	if c.Upload.MaxPayloadMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "upload.max_payload_mb",
			Value:   c.Upload.MaxPayloadMB,
			Message: "must be positive",
		})
	}

	return errors
}

// validateQueue validates the QueueConfig
func (c *Config) validateQueue() []ValidationError {
	var errors []ValidationError

	if c.Queue.DefaultPriority != "" && !slices.Contains(ValidPriorities(), c.Queue.DefaultPriority) {
		errors = append(errors, ValidationError{
			Field:   "queue.default_priority",
			Value:   c.Queue.DefaultPriority,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidPriorities(), ", ")),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be at least 1",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
