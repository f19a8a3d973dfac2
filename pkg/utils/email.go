package utils

import (
	"regexp"
	"strings"
)

const MaxEmailLength = 255

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)

	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}

	if len(email) > MaxEmailLength {
		return &ValidationError{Field: "email", Message: "Email must be at most 255 characters"}
	}

	if !emailRegex.MatchString(email) {
		return &ValidationError{Field: "email", Message: "Email format is invalid"}
	}

	return nil
}

// NormalizeEmail converts an email to its canonical lowercase form for
// storage and lookups. Uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
