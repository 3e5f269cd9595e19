package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors, one per failure kind the marketplace core can report.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrRoleViolation      = errors.New("role violation")
	ErrOwnershipViolation = errors.New("ownership violation")
	ErrInvalidState       = errors.New("invalid state")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInternal           = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
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

// NotFound creates a 404 error for a missing entity.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// RoleViolation creates a 403 error for an actor whose role forbids the action.
func RoleViolation(message string) *AppError {
	return &AppError{
		Code:    "ROLE_VIOLATION",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrRoleViolation,
	}
}

// OwnershipViolation creates a 403 error for an actor who is not the
// entity's authorized party.
func OwnershipViolation(message string) *AppError {
	return &AppError{
		Code:    "OWNERSHIP_VIOLATION",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrOwnershipViolation,
	}
}

// InvalidState creates a 422 error for an action attempted from a state that
// forbids it.
func InvalidState(message string) *AppError {
	return &AppError{
		Code:    "INVALID_STATE",
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrInvalidState,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Validation creates a 400 error for input outside its allowed bounds.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// Unauthenticated creates a 401 error.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHENTICATED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthenticated,
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

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRoleViolation), errors.Is(err, ErrOwnershipViolation):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidState):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable code for err, or INTERNAL_ERROR when err
// carries no recognised kind.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrRoleViolation):
		return "ROLE_VIOLATION"
	case errors.Is(err, ErrOwnershipViolation):
		return "OWNERSHIP_VIOLATION"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	default:
		return "INTERNAL_ERROR"
	}
}
