package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or empty input. Never recovered inside the engine.
	ErrValidation = errors.New("validation failed")
	// ErrConfiguration marks an out-of-range threshold supplied at construction.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrInvariant marks an internal defect. Only ever carried by a panic.
	ErrInvariant = errors.New("invariant violation")
)

// ValidationError describes a single malformed input field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConfigurationError describes a threshold that cannot be used.
type ConfigurationError struct {
	Field   string
	Value   any
	Message string
}

func NewConfigurationError(field string, value any, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Message: message}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s=%v: %s", e.Field, e.Value, e.Message)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// InvariantViolation is the panic value raised when engine output breaks its
// own contract (e.g. a negative score). It must not be recovered and ignored.
type InvariantViolation struct {
	Message string
}

func (e *InvariantViolation) Error() string { return "invariant violation: " + e.Message }

func (e *InvariantViolation) Is(target error) bool { return target == ErrInvariant }

// Invariantf panics with an *InvariantViolation.
func Invariantf(format string, args ...any) {
	panic(&InvariantViolation{Message: fmt.Sprintf(format, args...)})
}
