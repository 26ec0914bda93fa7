// Package errors defines the error taxonomy shared by the store, the
// services and the transport layer.
package errors

import (
	"fmt"
	"strings"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrConflict     = fmt.Errorf("already exists")
	ErrUnauthorized = fmt.Errorf("unauthorized")

	// ErrSelfManager is returned by every layer that sees an employee
	// assigned as its own manager.
	ErrSelfManager = fmt.Errorf("%w: employee cannot be their own manager", ErrInvalidInput)
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed or missing client input.
type ValidationError struct {
	Message string
	Details []FieldError
}

func (v *ValidationError) Error() string {
	if len(v.Details) == 0 {
		return v.Message
	}
	msgs := make([]string, 0, len(v.Details))
	for _, d := range v.Details {
		msgs = append(msgs, d.Message)
	}
	return v.Message + ": " + strings.Join(msgs, "; ")
}

func (v *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid builds a ValidationError for one field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: []FieldError{{Field: field, Message: message}},
	}
}

// ConflictError reports a unique field that is already taken.
// Field carries the JSON name of the offending attribute.
type ConflictError struct {
	Field string
}

func (c *ConflictError) Error() string {
	switch c.Field {
	case "email":
		return "Email already exists"
	case "employeeNumber":
		return "Employee number already exists"
	case "":
		return "Duplicate value"
	default:
		return c.Field + " already exists"
	}
}

func (c *ConflictError) Unwrap() error { return ErrConflict }
