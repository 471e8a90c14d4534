// Package apperr defines the error taxonomy shared across the service.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation_error")
	ErrCalculation = errors.New("calculation_error")
	ErrResource    = errors.New("resource_error")
	ErrNotFound    = errors.New("not_found")
	ErrConflict    = errors.New("conflict")
)

// ValidationError carries every violated input constraint for one request.
// It is raised before any side effect takes place.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Violations)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidation(violations []string) error {
	return &ValidationError{Violations: violations}
}

// ResourceError marks a storage or rendering-engine failure that is
// retryable at the job level.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return ErrResource }

func NewResource(op string, err error) error {
	return &ResourceError{Op: op, Err: err}
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsResource(err error) bool   { return errors.Is(err, ErrResource) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
