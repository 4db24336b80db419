// Package apperr holds the error kinds the HTTP layer knows how to render.
// Storage and directory errors stay plain wrapped errors and surface as 500s.
package apperr

import (
	"errors"
	"fmt"
)

// NotFoundError names the missing entity and its id.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Entity, e.ID)
}

func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError carries a field-level message safe to show to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Invalid(format string, a ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, a...)}
}

// ConflictError rejects a request that is valid but blocked by current state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
