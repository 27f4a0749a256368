package models

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped to HTTP statuses by the handler layer.
var (
	// ErrEmailTaken indicates a registration attempt with an email that
	// already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials indicates a failed login. The cause (unknown
	// email vs. wrong password) is deliberately not exposed.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrInvalidToken indicates a bearer token that is malformed, has a
	// bad signature, carries the wrong type claim, or is expired.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// ValidationError reports a malformed field in a request payload.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a field-level validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
