// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes of the ledger and audit engine.
const (
	// Infrastructure errors (5xx)
	CodeInternal    = "INTERNAL_ERROR"
	CodeConsistency = "CONSISTENCY_ERROR"

	// Malformed input (400)
	CodeValidation = "VALIDATION_ERROR"

	// Lifecycle violations (409)
	CodeInvalidState  = "INVALID_STATE"
	CodeReversalOrder = "REVERSAL_ORDER"

	// Permanent business rule violations (422)
	CodeImmutableMovement = "IMMUTABLE_MOVEMENT"
	CodeIncompleteCount   = "INCOMPLETE_COUNT"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeIdempotency = "IDEMPOTENCY_CONFLICT"

	// Throttling (429)
	CodeRateLimited = "RATE_LIMITED"
)

// AppError is the standard error type of the service.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, ids, counts)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

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

// --- Factory functions ---

// NewValidation creates a validation error (400).
// Always recoverable: the caller fixes the input and retries.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
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

// NewInvalidState reports an operation that is not valid for the current
// lifecycle state. The caller must re-fetch state before retrying.
func NewInvalidState(entity string, current any, message string) *AppError {
	return &AppError{
		Code:       CodeInvalidState,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "status": current},
	}
}

// NewReversalOrder reports an unpost of a movement that is not the latest
// posted movement of its variant.
func NewReversalOrder(movementID, latestID any) *AppError {
	return &AppError{
		Code:       CodeReversalOrder,
		Message:    "Only the most recently posted movement of a variant can be unposted",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"movement_id": movementID, "latest_posted_id": latestID},
	}
}

// NewImmutableMovement reports an unpost attempt on a system-generated movement.
func NewImmutableMovement(movementID any, movementType string) *AppError {
	return &AppError{
		Code:       CodeImmutableMovement,
		Message:    fmt.Sprintf("%s movements cannot be unposted", movementType),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"movement_id": movementID, "movement_type": movementType},
	}
}

// NewIncompleteCount reports an audit completion with uncounted lines.
func NewIncompleteCount(auditID any, uncounted int) *AppError {
	return &AppError{
		Code:       CodeIncompleteCount,
		Message:    "All audit lines must be counted before completing",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"audit_id": auditID, "uncounted": uncounted},
	}
}

// NewConsistency wraps a failure to commit an atomic unit of work.
// Nothing was applied; the caller may retry.
func NewConsistency(err error) *AppError {
	return &AppError{
		Code:       CodeConsistency,
		Message:    "Operation could not be committed atomically, retry later",
		HTTPStatus: http.StatusServiceUnavailable,
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

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request (different actor/operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewRateLimited reports a client over its request quota.
func NewRateLimited(limit int64) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "Too many requests",
		HTTPStatus: http.StatusTooManyRequests,
		Details:    map[string]any{"limit": limit},
	}
}

// --- Helper functions ---

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

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// Retryable reports whether the operation may succeed if repeated unchanged.
func Retryable(err error) bool {
	return HasCode(err, CodeConsistency)
}
