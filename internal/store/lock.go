package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/domain"
)

// LockStore defines the interface for availability lock persistence. The
// lock table is the cross-process coordination point: acquisition must be a
// single atomic insert so that the unique constraint, not a read-then-write
// sequence, arbitrates between concurrent writers.
type LockStore interface {
	// Insert persists a new lock row. Returns ErrLockHeld if an active lock
	// for the same user already exists (unique constraint violation).
	Insert(ctx context.Context, lock *domain.AvailabilityLock) error

	// Exists reports whether an active lock row exists for the user.
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)

	// DeleteByID removes the lock row with the given ID. Removing an absent
	// row is not an error, so release stays idempotent.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// DeleteLockedBefore removes all lock rows whose locked_at is strictly
	// before the cutoff and returns the number removed. Used by the stale
	// sweep to reclaim locks abandoned by crashed holders.
	DeleteLockedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteCreatedBefore removes all lock rows created strictly before the
	// cutoff, independent of state, and returns the number removed. A
	// last-resort cleanup behind the stale sweep.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
