// Package apperror provides tests for the custom error types and utility functions.
package apperror

import (
	"errors"
	"net/http"
	"testing"
)

// TestError_Error verifies that the Error() method returns the correct string format.
func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeValidation, "request is invalid"),
			expected: "[VALIDATION_ERROR] request is invalid",
		},
		{
			name:     "with field",
			err:      NewWithField(CodeInvalidPortCode, "not a UN/LOCODE", "origin_port"),
			expected: "[INVALID_PORT_CODE] not a UN/LOCODE (field: origin_port)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestError_Unwrap verifies that the Unwrap() method correctly returns the underlying cause.
func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, CodeInternal, "wrapped error")

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
}

// TestError_HTTPStatus verifies that ErrorCodes map onto the documented HTTP statuses.
func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrorCode
		expected int
	}{
		{"validation", CodeValidation, http.StatusBadRequest},
		{"invalid port code", CodeInvalidPortCode, http.StatusBadRequest},
		{"same port", CodeSamePort, http.StatusBadRequest},
		{"port not found", CodePortNotFound, http.StatusNotFound},
		{"deadline", CodeDeadline, http.StatusRequestTimeout},
		{"cancelled", CodeCancelled, http.StatusRequestTimeout},
		{"overloaded", CodeOverloaded, http.StatusTooManyRequests},
		{"rate limited", CodeRateLimited, http.StatusTooManyRequests},
		{"unauthenticated", CodeUnauthenticated, http.StatusUnauthorized},
		{"repository unavailable", CodeRepositoryUnavailable, http.StatusServiceUnavailable},
		{"graph not ready", CodeGraphNotReady, http.StatusServiceUnavailable},
		{"internal", CodeInternal, http.StatusInternalServerError},
		{"graph build failed", CodeGraphBuild, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "test message")
			if got := err.HTTPStatus(); got != tt.expected {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestHTTPStatus_PlainError verifies that non-application errors map to 500.
func TestHTTPStatus_PlainError(t *testing.T) {
	if got := HTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus() = %v, want %v", got, http.StatusInternalServerError)
	}
	if got := HTTPStatus(Wrap(errors.New("boom"), CodeOverloaded, "busy")); got != http.StatusTooManyRequests {
		t.Errorf("HTTPStatus() = %v, want %v", got, http.StatusTooManyRequests)
	}
}

// TestNew verifies the New function correctly initializes an Error.
func TestNew(t *testing.T) {
	err := New(CodeNoRouteFound, "no route")

	if err.Code != CodeNoRouteFound {
		t.Errorf("Code = %v, want %v", err.Code, CodeNoRouteFound)
	}
	if err.Severity != SeverityError {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityError)
	}
	if err.Details == nil {
		t.Error("Details map is nil")
	}
}

// TestWithDetails verifies that details are chainable and preserved.
func TestWithDetails(t *testing.T) {
	err := New(CodePortNotFound, "unknown port").
		WithDetails("code", "ZZZZZ").
		WithField("destination_port")

	if err.Details["code"] != "ZZZZZ" {
		t.Errorf("Details[code] = %v, want ZZZZZ", err.Details["code"])
	}
	if err.Field != "destination_port" {
		t.Errorf("Field = %v, want destination_port", err.Field)
	}
}

// TestIs verifies error code matching through wrapped chains.
func TestIs(t *testing.T) {
	base := New(CodeDeadline, "took too long")
	wrapped := Wrap(base, CodeInternal, "calculation failed")

	if !Is(base, CodeDeadline) {
		t.Error("Is() should match direct error")
	}
	// errors.As stops at the outermost *Error in the chain
	if !Is(wrapped, CodeInternal) {
		t.Error("Is() should match the outermost application error")
	}
	if Is(errors.New("plain"), CodeDeadline) {
		t.Error("Is() should not match plain errors")
	}
}

// TestCode verifies ErrorCode extraction.
func TestCode(t *testing.T) {
	if got := Code(New(CodeOverloaded, "busy")); got != CodeOverloaded {
		t.Errorf("Code() = %v, want %v", got, CodeOverloaded)
	}
	if got := Code(errors.New("plain")); got != CodeInternal {
		t.Errorf("Code() = %v, want %v", got, CodeInternal)
	}
}

// TestSeverityHelpers verifies IsWarning and IsCritical.
func TestSeverityHelpers(t *testing.T) {
	if !IsWarning(NewWarning(CodePortInactive, "restricted port on route")) {
		t.Error("IsWarning() = false, want true")
	}
	if !IsCritical(NewCritical(CodeGraphBuild, "graph disconnected")) {
		t.Error("IsCritical() = false, want true")
	}
	if IsCritical(New(CodeValidation, "bad input")) {
		t.Error("IsCritical() = true for SeverityError")
	}
}

// TestValidationErrors verifies the aggregation collection behavior.
func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()

	if !v.IsValid() {
		t.Error("empty collection should be valid")
	}

	v.AddWarning(CodePortInactive, "destination is restricted")
	if !v.IsValid() || !v.HasWarnings() {
		t.Error("warnings must not affect validity")
	}

	v.AddErrorWithField(CodeInvalidVessel, "beam exceeds length", "vessel.beam")
	if v.IsValid() || !v.HasErrors() {
		t.Error("errors must invalidate the collection")
	}

	other := NewValidationErrors()
	other.AddError(CodeInvalidCriterion, "unknown criterion")
	v.Merge(other)

	if len(v.Errors) != 2 {
		t.Errorf("Errors count = %d, want 2", len(v.Errors))
	}
	if len(v.ErrorMessages()) != 2 {
		t.Errorf("ErrorMessages count = %d, want 2", len(v.ErrorMessages()))
	}
	if len(v.WarningMessages()) != 1 {
		t.Errorf("WarningMessages count = %d, want 1", len(v.WarningMessages()))
	}
}
