// Package apperror provides a structured way to handle application errors
// with specific codes, severity levels, and additional details. It also
// includes utilities for mapping errors onto HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific application error code.
type ErrorCode string

const (
	// Validation
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
	CodeInvalidPortCode  ErrorCode = "INVALID_PORT_CODE"
	CodeInvalidVessel    ErrorCode = "INVALID_VESSEL"
	CodeInvalidCriterion ErrorCode = "INVALID_CRITERION"
	CodeSamePort         ErrorCode = "SAME_ORIGIN_DESTINATION"
	CodeNilInput         ErrorCode = "NIL_INPUT"

	// Catalog
	CodePortNotFound ErrorCode = "PORT_NOT_FOUND"
	CodePortInactive ErrorCode = "PORT_INACTIVE"

	// Routing
	CodeNoRouteFound   ErrorCode = "NO_ROUTE_FOUND"
	CodeGraphBuild     ErrorCode = "GRAPH_BUILD_FAILED"
	CodeGraphNotReady  ErrorCode = "GRAPH_NOT_READY"
	CodeHopLimit       ErrorCode = "HOP_LIMIT_EXCEEDED"
	CodeCancelled      ErrorCode = "CALCULATION_CANCELLED"
	CodeDeadline       ErrorCode = "CALCULATION_TIMEOUT"
	CodeOverloaded     ErrorCode = "SERVICE_OVERLOADED"
	CodeRateLimited    ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Backends
	CodeCacheUnavailable      ErrorCode = "CACHE_UNAVAILABLE"
	CodeRepositoryUnavailable ErrorCode = "REPOSITORY_UNAVAILABLE"

	// General
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	CodeUnimplemented   ErrorCode = "UNIMPLEMENTED"
)

// Severity defines the criticality level of an error.
type Severity int

const (
	// SeverityWarning indicates a non-critical issue that can be ignored or automatically resolved.
	SeverityWarning Severity = iota
	// SeverityError indicates a standard error that requires attention.
	SeverityError
	// SeverityCritical indicates a severe error that might require immediate human intervention.
	SeverityCritical
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
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

// Error is a custom error type that includes an ErrorCode, message,
// an optional field, additional details, an underlying cause, and a severity level.
type Error struct {
	Code     ErrorCode      // Code is a unique identifier for the type of error.
	Message  string         // Message is a human-readable description of the error.
	Field    string         // Field indicates which input field caused the error, if applicable.
	Details  map[string]any // Details provides additional structured information about the error.
	Cause    error          // Cause is the underlying error that triggered this application error.
	Severity Severity       // Severity indicates the criticality level of the error.
}

// Error implements the error interface, returning a string representation of the error.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error, allowing for error chain introspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps an ErrorCode to the HTTP status code of the public contract.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeInvalidPortCode, CodeInvalidVessel, CodeInvalidCriterion,
		CodeSamePort, CodeNilInput, CodeInvalidArgument:
		return http.StatusBadRequest

	case CodePortNotFound, CodeNotFound:
		return http.StatusNotFound

	case CodeDeadline, CodeCancelled:
		return http.StatusRequestTimeout

	case CodeOverloaded, CodeRateLimited:
		return http.StatusTooManyRequests

	case CodeUnauthenticated:
		return http.StatusUnauthorized

	case CodeRepositoryUnavailable, CodeCacheUnavailable, CodeGraphNotReady:
		return http.StatusServiceUnavailable

	case CodeUnimplemented:
		return http.StatusNotImplemented

	default:
		return http.StatusInternalServerError
	}
}

// New creates a new application error with the given code and message.
// The default severity is SeverityError.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWithField creates a new application error with the given code, message, and field.
// The default severity is SeverityError.
func NewWithField(code ErrorCode, message, field string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Field:    field,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWarning creates a new application error with SeverityWarning.
func NewWarning(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityWarning,
	}
}

// NewCritical creates a new application error with SeverityCritical.
func NewCritical(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityCritical,
	}
}

// Wrap creates a new application error that wraps an existing error,
// providing additional context with a code and message.
// The default severity is SeverityError.
func Wrap(cause error, code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Cause:    cause,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// WithDetails adds a key-value pair to the error's details map and returns the modified error.
func (e *Error) WithDetails(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// WithField sets the field associated with the error and returns the modified error.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithSeverity sets the severity level of the error and returns the modified error.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// Is checks if the given error is an application error with a matching ErrorCode.
// It uses errors.As to unwrap the error chain.
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code extracts the ErrorCode from an error. If the error is not an *Error,
// it returns CodeInternal.
func Code(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus extracts the HTTP status for any error. Non-application
// errors map to 500.
func HTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsWarning checks if the given error is an application error with SeverityWarning.
func IsWarning(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityWarning
	}
	return false
}

// IsCritical checks if the given error is an application error with SeverityCritical.
func IsCritical(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// Predefined errors for common scenarios.
var (
	ErrNilRequest    = New(CodeNilInput, "request is nil")
	ErrSamePort      = New(CodeSamePort, "origin and destination must be distinct ports")
	ErrNoRouteFound  = New(CodeNoRouteFound, "no feasible route between the requested ports")
	ErrCancelled     = New(CodeCancelled, "route calculation cancelled")
	ErrDeadline      = New(CodeDeadline, "route calculation exceeded the deadline")
	ErrOverloaded    = New(CodeOverloaded, "too many concurrent calculations, retry later")
	ErrGraphNotReady = New(CodeGraphNotReady, "port graph is not built yet")
)

// ValidationErrors is a collection of application errors and warnings,
// typically used for aggregating results of multiple validation checks.
type ValidationErrors struct {
	Errors   []*Error // Errors contains all collected errors (SeverityError and SeverityCritical).
	Warnings []*Error // Warnings contains all collected warnings (SeverityWarning).
}

// NewValidationErrors creates and returns a new empty ValidationErrors collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors:   make([]*Error, 0),
		Warnings: make([]*Error, 0),
	}
}

// Add appends an *Error to the appropriate slice (Errors or Warnings)
// based on its Severity.
func (v *ValidationErrors) Add(err *Error) {
	if err.Severity == SeverityWarning {
		v.Warnings = append(v.Warnings, err)
	} else {
		v.Errors = append(v.Errors, err)
	}
}

// AddError creates and adds a new application error with SeverityError.
func (v *ValidationErrors) AddError(code ErrorCode, message string) {
	v.Errors = append(v.Errors, New(code, message))
}

// AddWarning creates and adds a new application error with SeverityWarning.
func (v *ValidationErrors) AddWarning(code ErrorCode, message string) {
	v.Warnings = append(v.Warnings, NewWarning(code, message))
}

// AddErrorWithField creates and adds a new application error with a specific field.
func (v *ValidationErrors) AddErrorWithField(code ErrorCode, message, field string) {
	v.Errors = append(v.Errors, NewWithField(code, message, field))
}

// HasErrors returns true if the collection contains any errors (non-warning severity).
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// HasWarnings returns true if the collection contains any warnings.
func (v *ValidationErrors) HasWarnings() bool {
	return len(v.Warnings) > 0
}

// IsValid returns true if the collection contains no errors (warnings do not affect validity).
func (v *ValidationErrors) IsValid() bool {
	return !v.HasErrors()
}

// Merge combines the current ValidationErrors collection with another one.
// All errors and warnings from the 'other' collection are appended to the current one.
func (v *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
}

// ErrorMessages returns a slice of string messages for all collected errors.
func (v *ValidationErrors) ErrorMessages() []string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Error()
	}
	return messages
}

// WarningMessages returns a slice of string messages for all collected warnings.
func (v *ValidationErrors) WarningMessages() []string {
	messages := make([]string, len(v.Warnings))
	for i, warn := range v.Warnings {
		messages[i] = warn.Message
	}
	return messages
}
