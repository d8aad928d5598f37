package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConcurrentLift     = errors.New("punishment was lifted concurrently")
	ErrAlreadyLifted      = errors.New("punishment is already lifted")
	ErrNotLiftable        = errors.New("punishment type cannot be lifted")
	ErrNoActivePunishment = errors.New("no active punishment")
	ErrInvalidPunishment  = errors.New("invalid punishment")
)

// StorageError reports that the persistence layer was unreachable or rejected an operation.
// No partial record exists when it is returned from a write.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IdentityUnresolvedError reports that a required identity has no durable record.
type IdentityUnresolvedError struct {
	Identifier string
}

func (e *IdentityUnresolvedError) Error() string {
	return fmt.Sprintf("identity %q could not be resolved", e.Identifier)
}

// IsStorageError reports whether err is, or wraps, a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
