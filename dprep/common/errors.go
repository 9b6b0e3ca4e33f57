package common

import (
	"errors"
	"fmt"
)

// Common error types used across dprep packages
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrCorpusUnavailable = errors.New("corpus unavailable")
)

// InvalidInputf returns an error wrapping ErrInvalidInput with a formatted detail.
func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// InvalidConfigf returns an error wrapping ErrInvalidConfig with a formatted detail.
func InvalidConfigf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// WrapError wraps an error with additional context
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	context := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", context, err)
}
