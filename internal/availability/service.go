package availability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// Service answers availability questions against the projection store. It is
// side-effect free and safe to call inside or outside a lock: the write
// orchestrator calls it after acquisition, read-side callers may use it
// directly for advisory checks.
type Service struct {
	projections store.ProjectionStore
	tasks       store.TaskStore
}

// NewService creates a new availability service.
func NewService(projections store.ProjectionStore, tasks store.TaskStore) *Service {
	return &Service{
		projections: projections,
		tasks:       tasks,
	}
}

// FindOverlapping returns a projection row for the user intersecting the
// closed interval [startDate, endDate], excluding excludeTaskID's own row
// when non-nil. Returns store.ErrProjectionNotFound when the interval is
// free.
func (s *Service) FindOverlapping(
	ctx context.Context,
	userID uuid.UUID,
	startDate, endDate time.Time,
	excludeTaskID *uuid.UUID,
) (*domain.AvailabilityProjection, error) {
	return s.projections.FindOverlapping(
		ctx,
		userID,
		domain.NormalizeDate(startDate),
		domain.NormalizeDate(endDate),
		excludeTaskID,
	)
}

// ValidateAvailability checks whether the user is free for the requested
// interval and, when not, identifies the conflicting booking.
func (s *Service) ValidateAvailability(
	ctx context.Context,
	userID uuid.UUID,
	startDate, endDate time.Time,
	excludeTaskID *uuid.UUID,
) (domain.AvailabilityCheck, error) {
	projection, err := s.FindOverlapping(ctx, userID, startDate, endDate, excludeTaskID)
	if err != nil {
		if errors.Is(err, store.ErrProjectionNotFound) {
			return domain.AvailableCheck(), nil
		}
		return domain.AvailabilityCheck{}, fmt.Errorf("failed to check for overlapping bookings: %w", err)
	}

	conflict := domain.AvailabilityConflict{
		TaskID:    projection.TaskID,
		StartDate: projection.StartDate,
		EndDate:   projection.EndDate,
	}

	// The projection row only carries the task reference; resolve the title
	// for the user-facing message. A concurrently deleted task leaves the
	// title blank rather than failing the check.
	task, err := s.tasks.GetByID(ctx, projection.TaskID)
	if err == nil {
		conflict.TaskTitle = task.Title
	} else if !errors.Is(err, store.ErrTaskNotFound) {
		return domain.AvailabilityCheck{}, fmt.Errorf("failed to resolve conflicting task: %w", err)
	}

	return domain.UnavailableCheck(conflict), nil
}

// ListForUser returns the user's projection rows ordered by start date, for
// read-side display and debugging.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.AvailabilityProjection, error) {
	return s.projections.FindByUser(ctx, userID)
}

// DeleteProjection removes the task's projection row inside the caller's
// transaction. Task deletion is the one write that bypasses the
// reconciliation worker: removing a booking only frees the schedule, so the
// row can go synchronously with the task itself.
func (s *Service) DeleteProjection(ctx context.Context, tx *sql.Tx, taskID uuid.UUID) error {
	return s.projections.WithTx(tx).DeleteByTask(ctx, taskID)
}
