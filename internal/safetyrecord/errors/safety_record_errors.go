package safetyrecorderrors

import (
	"go-safety/internal/shared/apperror"
	"net/http"
)

var (
	ErrRecordNotFound = apperror.New(
		apperror.CodeNotFound,
		"Record not found",
		http.StatusNotFound,
	)
	ErrRecordAlreadyExists = apperror.New(
		apperror.CodeConflict,
		"Record already exists",
		http.StatusConflict,
	)
	ErrInvalidDate = apperror.New(
		apperror.CodeValidationFailed,
		"Validation failed",
		http.StatusBadRequest,
	).WithDetails([]apperror.FieldError{{Field: "date", Message: "Date must be YYYY-MM-DD or RFC 3339"}})
)
