package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"go-safety/internal/shared/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestToHTTP(t *testing.T) {
	t.Run("app error keeps status and details", func(t *testing.T) {
		err := apperror.Validation(apperror.FieldError{Field: "name", Message: "Name is required"})

		httpErr := apperror.ToHTTP(err)

		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
		assert.Equal(t, apperror.CodeValidationFailed, httpErr.Code)
		assert.Len(t, httpErr.Details, 1)
	})

	t.Run("wrapped app error is found", func(t *testing.T) {
		err := fmt.Errorf("lookup: %w", apperror.ErrNotFound)

		httpErr := apperror.ToHTTP(err)

		assert.Equal(t, http.StatusNotFound, httpErr.Status)
		assert.Equal(t, apperror.CodeNotFound, httpErr.Code)
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		httpErr := apperror.ToHTTP(errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
		assert.Equal(t, apperror.CodeInternalError, httpErr.Code)
		assert.NotContains(t, httpErr.Message, "pq")
	})
}

func TestAppError_IsMatchesSentinelWithDetails(t *testing.T) {
	err := apperror.ErrValidationFailed.WithDetails("x")

	assert.ErrorIs(t, err, apperror.ErrValidationFailed)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
}

func TestMapValidationError(t *testing.T) {
	type payload struct {
		Name     string `json:"name" validate:"required,min=2"`
		Strength int    `json:"strength" validate:"max=1000"`
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return f.Tag.Get("json") })
	err := v.Struct(payload{Name: "", Strength: 5000})

	mapped := apperror.MapValidationError(err)

	assert.ErrorIs(t, mapped, apperror.ErrValidationFailed)
	httpErr := apperror.ToHTTP(mapped)
	fields, ok := httpErr.Details.([]apperror.FieldError)
	assert.True(t, ok)
	assert.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0].Field)
	assert.Equal(t, "Name is required", fields[0].Message)
	assert.Equal(t, "strength", fields[1].Field)
}
