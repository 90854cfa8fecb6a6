// internal/utils/errors_test.go
package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestServiceError_Codes(t *testing.T) {
	tests := []struct {
		err       error
		code      ErrorCode
		retryable bool
	}{
		{NewInvalidURL("not-a-url", errors.New("parse")), ErrCodeInvalidURL, false},
		{NewUnsupportedPlatform("https://unknown.example"), ErrCodeUnsupportedPlatform, false},
		{NewRenderFailure("https://example.com", errors.New("timeout")), ErrCodeRenderFailure, true},
		{NewUnauthorized("job-1"), ErrCodeUnauthorized, false},
		{NewNotFound("job-2"), ErrCodeNotFound, false},
		{NewStorageError("insert", errors.New("locked")), ErrCodeStorage, false},
	}

	for _, tt := range tests {
		if CodeOf(tt.err) != tt.code {
			t.Errorf("CodeOf(%v) = %s, want %s", tt.err, CodeOf(tt.err), tt.code)
		}
		if IsRetryable(tt.err) != tt.retryable {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, IsRetryable(tt.err), tt.retryable)
		}
	}
}

func TestServiceError_UnwrapAndWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewRenderFailure("https://example.com", cause)

	if !errors.Is(err, cause) {
		t.Error("ServiceError should unwrap to its cause")
	}

	wrapped := fmt.Errorf("processing: %w", err)
	if CodeOf(wrapped) != ErrCodeRenderFailure {
		t.Error("CodeOf should see through fmt.Errorf wrapping")
	}
	if !IsRetryable(wrapped) {
		t.Error("IsRetryable should see through fmt.Errorf wrapping")
	}
}

func TestIsRetryable_UnclassifiedDefaultsTrue(t *testing.T) {
	if !IsRetryable(errors.New("some renderer fault")) {
		t.Error("unclassified errors should stay within the retry budget")
	}
}

func TestServiceError_IsMatchesByCode(t *testing.T) {
	a := NewNotFound("job-1")
	b := NewNotFound("job-2")
	if !errors.Is(a, b) {
		t.Error("errors with the same code should match")
	}
	if errors.Is(a, NewUnauthorized("job-1")) {
		t.Error("errors with different codes should not match")
	}
}
