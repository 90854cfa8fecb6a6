// Package utils provides the shared logging, error and retry plumbing used
// across the extraction service.
package utils

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes failures so callers can map them to retry decisions
// and API status codes without string matching.
type ErrorCode string

const (
	// ErrCodeInvalidURL marks input that fails normalization. Never retried.
	ErrCodeInvalidURL ErrorCode = "INVALID_URL"

	// ErrCodeUnsupportedPlatform marks URLs no registered profile matches.
	// Never retried.
	ErrCodeUnsupportedPlatform ErrorCode = "UNSUPPORTED_PLATFORM"

	// ErrCodeRenderFailure marks timeouts, navigation errors and transient
	// network faults during page rendering. Retryable.
	ErrCodeRenderFailure ErrorCode = "RENDER_FAILURE"

	// ErrCodeUnauthorized marks access to a job or result owned by a
	// different identity.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeNotFound marks lookups of nonexistent jobs.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeStorage marks persistence faults. Fatal to the affected job.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

// ServiceError is the structured error carried through the processing
// pipeline. Retryable drives the retry wrapper; Code drives API mapping.
type ServiceError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works with sentinel-style targets.
func (e *ServiceError) Is(target error) bool {
	var se *ServiceError
	if errors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

// NewInvalidURL builds a non-retryable invalid-URL error.
func NewInvalidURL(url string, cause error) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeInvalidURL,
		Message: fmt.Sprintf("invalid URL %q", url),
		Cause:   cause,
	}
}

// NewUnsupportedPlatform builds a non-retryable unsupported-platform error.
func NewUnsupportedPlatform(url string) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeUnsupportedPlatform,
		Message: fmt.Sprintf("no registered platform matches %q", url),
	}
}

// NewRenderFailure builds a retryable render error.
func NewRenderFailure(url string, cause error) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeRenderFailure,
		Message:   fmt.Sprintf("rendering %q failed", url),
		Retryable: true,
		Cause:     cause,
	}
}

// NewUnauthorized builds an owner-mismatch error.
func NewUnauthorized(jobID string) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeUnauthorized,
		Message: fmt.Sprintf("job %s belongs to a different owner", jobID),
	}
}

// NewNotFound builds a missing-job error.
func NewNotFound(jobID string) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("job %s does not exist", jobID),
	}
}

// NewStorageError wraps a persistence fault.
func NewStorageError(op string, cause error) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeStorage,
		Message: fmt.Sprintf("storage operation %s failed", op),
		Cause:   cause,
	}
}

// IsRetryable reports whether err (or anything it wraps) is a transient
// failure worth another attempt. Unclassified errors default to retryable so
// unknown renderer faults still get the retry budget.
func IsRetryable(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return true
}

// CodeOf extracts the error code, or empty string for unclassified errors.
func CodeOf(err error) ErrorCode {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
