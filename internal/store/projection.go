package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/domain"
)

// ProjectionStore defines the interface for availability projection
// persistence. Projection rows are owned exclusively by the reconciliation
// worker; the rest of the system only reads them.
type ProjectionStore interface {
	// Rebuild atomically replaces the projection row for a task: any prior
	// row for the task is deleted and a fresh one inserted with the given
	// fields, inside a single transaction. Re-running with identical inputs
	// yields the same end state, which makes the reconciliation worker safe
	// under at-least-once delivery.
	Rebuild(ctx context.Context, taskID, userID uuid.UUID, startDate, endDate time.Time) error

	// DeleteByTask removes the projection row for a task, if one exists.
	// Deleting an absent row is not an error.
	DeleteByTask(ctx context.Context, taskID uuid.UUID) error

	// FindByTask retrieves the projection row for a task.
	// Returns ErrProjectionNotFound if none exists.
	FindByTask(ctx context.Context, taskID uuid.UUID) (*domain.AvailabilityProjection, error)

	// FindByUser retrieves all projection rows for a user ordered by start
	// date, for read-side display and debugging.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.AvailabilityProjection, error)

	// FindOverlapping returns a projection row for the user whose closed
	// interval intersects [startDate, endDate], excluding excludeTaskID's
	// own row when non-nil. Ties have no defined order; any conflicting row
	// may be returned. Returns ErrProjectionNotFound when the interval is
	// free.
	FindOverlapping(
		ctx context.Context,
		userID uuid.UUID,
		startDate, endDate time.Time,
		excludeTaskID *uuid.UUID,
	) (*domain.AvailabilityProjection, error)

	// WithTx returns a new ProjectionStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) ProjectionStore
}
