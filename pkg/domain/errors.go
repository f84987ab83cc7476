package domain

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when an operation runs without a signed-in owner.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrForbidden is returned when a signed-in account lacks the role an
// operation needs, e.g. a student account attempting an owner write.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned when a referenced record does not exist or belongs
// to another owner.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StorageError wraps a backend failure (network, permission, persistence).
type StorageError struct {
	Op     string
	Entity EntityType
	Err    error
}

func (e *StorageError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationError reports malformed or missing input caught before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var s *StorageError
	return errors.As(err, &s)
}
