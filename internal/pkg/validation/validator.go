// Package validation wraps go-playground/validator and converts its
// failures into the field-level errors returned to clients.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

// New returns a Validator that reports fields by their json (or yaml) name.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "yaml"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return field.Name
	})
	return &Validator{validate: validate}
}

// Validate checks s against its validate tags. Rule failures come back as
// *errors.ValidationError; anything else is returned unchanged.
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var validateErrs validator.ValidationErrors
	if errors.As(err, &validateErrs) {
		return formatValidationErrors(validateErrs)
	}
	return err
}

// ValidateVar checks one value against tag and names it field in the
// resulting error.
func (v *Validator) ValidateVar(field string, value any, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var validateErrs validator.ValidationErrors
	if !errors.As(err, &validateErrs) {
		return err
	}
	details := make([]e.FieldError, 0, len(validateErrs))
	for _, fe := range validateErrs {
		details = append(details, e.FieldError{
			Field:   field,
			Message: strings.Replace(errorMessage(fe), "Field ''", "Field '"+field+"'", 1),
		})
	}
	return &e.ValidationError{Message: "Validation failed", Details: details}
}

func formatValidationErrors(errs validator.ValidationErrors) *e.ValidationError {
	details := make([]e.FieldError, 0, len(errs))
	for _, err := range errs {
		details = append(details, e.FieldError{
			Field:   err.Field(),
			Message: errorMessage(err),
		})
	}
	return &e.ValidationError{Message: "Validation failed", Details: details}
}

func errorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' required", err.Field())
	case "email":
		return fmt.Sprintf("Field '%s' must contain a valid email address", err.Field())
	case "min":
		return fmt.Sprintf("Field '%s' must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("Field '%s' must contain a maximum of %s characters", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of: %s", err.Field(), err.Param())
	case "url":
		return fmt.Sprintf("Field '%s' must be a valid URL", err.Field())
	default:
		return fmt.Sprintf("Field '%s' contains an incorrect value", err.Field())
	}
}
