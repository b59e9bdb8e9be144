package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is the generic version of the entity-specific not found
	// errors (e.g., ErrTaskNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate of
	// a unique entity. Lock acquisition relies on this: an insert that maps
	// to ErrDuplicate means the key is currently locked.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored, or violates a database constraint other than uniqueness.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails to
	// commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrTaskNotFound indicates that the requested task does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrStatusNotFound indicates that the requested task status does not exist.
	ErrStatusNotFound = fmt.Errorf("%w: task status", ErrNotFound)

	// ErrProjectionNotFound indicates that no availability projection exists
	// for the requested key.
	ErrProjectionNotFound = fmt.Errorf("%w: availability projection", ErrNotFound)

	// ErrJobNotFound indicates that the requested reconciliation job row
	// does not exist.
	ErrJobNotFound = fmt.Errorf("%w: reconciliation job", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrLockHeld indicates that an active availability lock already exists
	// for the user key. This is the store-level mapping of the lock table's
	// unique constraint violation.
	ErrLockHeld = fmt.Errorf("%w: availability lock", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
