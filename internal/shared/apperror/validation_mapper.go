package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func formatFieldName(s string) string {
	// safety_shoes -> safety shoes -> Safety Shoes
	s = strings.ReplaceAll(s, "_", " ")
	caser := cases.Title(language.English)
	return caser.String(s)
}

func describe(e validator.FieldError) string {
	name := formatFieldName(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "min":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", name, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, e.Param())
	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", name, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, e.Param())
	case "area":
		return fmt.Sprintf("%s must be a known area", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// MapValidationError turns a gin binding error into a ValidationFailed AppError
// that lists every offending field.
func MapValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		fields := make([]FieldError, 0, len(errs))
		for _, e := range errs {
			// e.Field() is already the json name, see Init()
			fields = append(fields, FieldError{Field: e.Field(), Message: describe(e)})
		}
		return Validation(fields...)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return Validation(FieldError{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("%s must be %s", formatFieldName(typeErr.Field), typeErr.Type.String()),
		})
	}

	return ErrValidationFailed.WithDetails([]FieldError{{Field: "body", Message: "Invalid input"}})
}
