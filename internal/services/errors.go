package services

import "fmt"

// ValidationError is returned for client input that can never succeed, such
// as a malformed notification id. Handlers map it to 422.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message for a ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, formatString string, a ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(formatString, a...)}
}
