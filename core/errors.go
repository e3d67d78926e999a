package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")

	// ErrPersistence marks a failure of the durable medium. It is logged and
	// absorbed, never returned from a repository mutation. Two sessions writing
	// the same key are not reconciled: the last writer wins and the other
	// session's working set goes stale until its next Load.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError reports user input that cannot be stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an operation on an id that is not in the collection.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("food item with id %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceFailure wraps an error from the durable medium.
type PersistenceFailure struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceFailure) Unwrap() error { return e.Err }

func (e *PersistenceFailure) Is(target error) bool { return target == ErrPersistence }
