package apperror

import (
	"fmt"
	"net/http"
)

var (
	ErrNotFound = New(
		CodeNotFound,
		"Resource not found",
		http.StatusNotFound,
	)

	ErrForbidden = New(
		CodeForbidden,
		"You do not have permission to access this resource",
		http.StatusForbidden,
	)

	ErrInternal = New(
		CodeInternalError,
		"An unexpected error occurred",
		http.StatusInternalServerError,
	)

	ErrUnauthorized = New(
		CodeUnauthorized,
		"Authentication is required",
		http.StatusUnauthorized,
	)

	ErrInvalidInput = New(
		CodeInvalidInput,
		"The provided input is invalid",
		http.StatusBadRequest,
	)

	ErrValidationFailed = New(
		CodeValidationFailed,
		"Validation failed",
		http.StatusBadRequest,
	)

	ErrTooManyRequests = New(
		CodeTooManyRequests,
		"Too many requests",
		http.StatusTooManyRequests,
	)
)

// FieldError is one entry of a ValidationFailed detail list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RequiredField(field string) *AppError {
	return ErrValidationFailed.WithDetails([]FieldError{
		{Field: field, Message: fmt.Sprintf("%s is required", field)},
	})
}

func InvalidField(field string) *AppError {
	return ErrValidationFailed.WithDetails([]FieldError{
		{Field: field, Message: fmt.Sprintf("%s is invalid", field)},
	})
}

// Validation builds a ValidationFailed error from a list of field errors.
func Validation(fields ...FieldError) *AppError {
	return ErrValidationFailed.WithDetails(fields)
}
