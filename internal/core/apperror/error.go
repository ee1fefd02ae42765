// Package apperror provides structured error handling for API responses.
// Errors crossing the transport boundary must be AppError.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal           = "INTERNAL_ERROR"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeTryAgain           = "TRY_AGAIN"
	CodeCorrupt            = "CORRUPT_DATA"

	// Validation errors (400)
	CodeValidation    = "VALIDATION_ERROR"
	CodeInvalidFormat = "INVALID_FORMAT"

	// Not found (404)
	CodeNotFound            = "NOT_FOUND"
	CodePrefixNotRegistered = "PREFIX_NOT_REGISTERED"

	// Conflict (409)
	CodeAlreadyExists = "ALREADY_EXISTS"
)

// AppError is the standard error type of the service.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (prefix, field errors, ...)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// RetryAfter hints when a retry may succeed (zero: no hint)
	RetryAfter time.Duration `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidFormat creates a rule validation error (400)
func NewInvalidFormat(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidFormat,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewPrefixNotRegistered is returned when numbers are requested for an unknown prefix (404)
func NewPrefixNotRegistered(prefix string) *AppError {
	return &AppError{
		Code:       CodePrefixNotRegistered,
		Message:    "Prefix not registered",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"prefix_key": prefix},
	}
}

// NewAlreadyExists creates a conflict error for a duplicate registration (409)
func NewAlreadyExists(entity, id string) *AppError {
	return &AppError{
		Code:       CodeAlreadyExists,
		Message:    fmt.Sprintf("%s already exists", entity),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBackendUnavailable creates a transient backend error (503)
func NewBackendUnavailable(err error) *AppError {
	return &AppError{
		Code:       CodeBackendUnavailable,
		Message:    "Storage backend unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		RetryAfter: time.Second,
		Err:        err,
	}
}

// NewTryAgain creates a contention error the caller should retry with backoff (503)
func NewTryAgain(retryAfter time.Duration) *AppError {
	return &AppError{
		Code:       CodeTryAgain,
		Message:    "Sequence busy, retry later",
		HTTPStatus: http.StatusServiceUnavailable,
		RetryAfter: retryAfter,
	}
}

// NewCorrupt creates an error for undecodable stored data (500)
func NewCorrupt(err error) *AppError {
	return &AppError{
		Code:       CodeCorrupt,
		Message:    "Stored data is corrupt",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode checks if err is an AppError with the given code
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound or CodePrefixNotRegistered
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound) || HasCode(err, CodePrefixNotRegistered)
}
