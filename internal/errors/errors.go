package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a countrycache error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrRateLimited       ErrorCode = "RATE_LIMITED"       // 429
	ErrInternal          ErrorCode = "INTERNAL"           // 500
	ErrSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE" // 503
)

// AppError represents a structured error with code, status, and details.
// Cause is kept for logging and errors.Is; it is never rendered to clients.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidSort creates a 400 error for an unsupported sort parameter.
func NewInvalidSort(sort string, allowed ...string) *AppError {
	return &AppError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: fmt.Sprintf("invalid sort parameter %q", sort),
		Details: map[string]any{"sort": sort, "allowed": allowed},
	}
}

// NewNotFound creates a 404 error for when a country cannot be found.
func NewNotFound(name string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("country not found: %s", name),
		Details: map[string]any{"name": name},
	}
}

// NewSummaryNotGenerated creates a 404 error for a summary image that does not exist yet.
func NewSummaryNotGenerated() *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "summary image has not been generated yet; run a refresh first",
	}
}

// NewRateLimited creates a 429 error when a caller exceeds the refresh budget.
func NewRateLimited(perMinute int) *AppError {
	return &AppError{
		Code:    ErrRateLimited,
		Status:  429,
		Message: fmt.Sprintf("refresh rate limit exceeded (%d per minute)", perMinute),
		Details: map[string]any{"per_minute": perMinute},
	}
}

// NewSourceUnavailable creates a 503 error for an upstream data source failure.
func NewSourceUnavailable(source string, cause error) *AppError {
	return &AppError{
		Code:    ErrSourceUnavailable,
		Status:  503,
		Message: fmt.Sprintf("could not fetch data from %s", source),
		Details: map[string]any{"source": source},
		Cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AppError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// As returns err as an *AppError, wrapping unknown errors as INTERNAL.
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}

// Is checks if an error is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
