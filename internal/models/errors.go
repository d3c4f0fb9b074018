package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad caller input. Surfaced as-is, never auto-corrected.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an unknown game, season, contest or participant.
	ErrNotFound = errors.New("not found")
	// ErrConsistency marks a broken internal invariant, e.g. a round with the wrong game count.
	ErrConsistency = errors.New("consistency error")
)

// Validationf wraps ErrValidation with a formatted message
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted message
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Consistencyf wraps ErrConsistency with a formatted message
func Consistencyf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
}
