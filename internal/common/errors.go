package common

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation is the sentinel behind every ValidationError.
	ErrValidation = errors.New("validation error")
)

// ValidationError is a local, pre-network failure scoped to input fields.
// Fields maps a field name (title, due_date, password, ...) to a message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Field returns the message for a field, or "" if the field is valid.
func (e *ValidationError) Field(name string) string {
	return e.Fields[name]
}

// FieldError builds a ValidationError with a single field.
func FieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
