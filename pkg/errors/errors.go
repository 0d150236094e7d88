package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Every AppError wraps exactly one of them so callers can
// branch with errors.Is regardless of the message. An AlreadyExists error
// also matches ErrConflict.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrSlotsFull          = errors.New("featured slots full")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrStorage            = errors.New("storage failure")
	ErrInternal           = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
// Count and Limit carry the numbers behind PreconditionFailed and SlotsFull.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Count   int    `json:"-"`
	Limit   int    `json:"-"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports a unique-field violation as a conflict as well.
func (e *AppError) Is(target error) bool {
	return target == ErrConflict && errors.Is(e.Err, ErrAlreadyExists)
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error for a uniqueness violation.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// Conflict creates a 409 error that is not tied to a single unique field.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// PreconditionFailed creates a 412 error for a deletion blocked by count
// live dependents.
func PreconditionFailed(resource, id string, count int, dependents string) *AppError {
	return &AppError{
		Code:    "PRECONDITION_FAILED",
		Message: fmt.Sprintf("%s %s still has %d %s", resource, id, count, dependents),
		Count:   count,
		Status:  http.StatusPreconditionFailed,
		Err:     ErrPreconditionFailed,
	}
}

// SlotsFull creates a 409 error reporting how many of the limit slots are
// already taken.
func SlotsFull(count, limit int) *AppError {
	return &AppError{
		Code:    "SLOTS_FULL",
		Message: fmt.Sprintf("featured slots full: %d of %d in use", count, limit),
		Count:   count,
		Limit:   limit,
		Status:  http.StatusConflict,
		Err:     ErrSlotsFull,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// StorageFailure creates a 500 error around a persistence error. The cause
// is kept in the chain for logging but never rendered to clients.
func StorageFailure(op string, err error) *AppError {
	return &AppError{
		Code:    "STORAGE_FAILURE",
		Message: op + " failed",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrStorage, err),
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict), errors.Is(err, ErrSlotsFull):
		return http.StatusConflict
	case errors.Is(err, ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
