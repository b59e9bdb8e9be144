package availability

import "errors"

// Errors surfaced by the lock manager. Both are recoverable conditions the
// caller turns into a "try again shortly" response, never a 5xx.
var (
	// ErrLocked indicates that another writer currently holds the user's
	// availability lock.
	ErrLocked = errors.New("user availability is locked by another request")

	// ErrLockTimeout indicates that the bounded wait-to-acquire budget was
	// exhausted without the lock becoming free.
	ErrLockTimeout = errors.New("timed out waiting for availability lock")
)
