package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for AvailabilityProjection
var (
	ErrEmptyProjectionID     = errors.New("projection ID cannot be empty")
	ErrEmptyProjectionUserID = errors.New("projection user ID cannot be empty")
	ErrEmptyProjectionTaskID = errors.New("projection task ID cannot be empty")
)

// AvailabilityProjection is the materialized "this user is busy on
// [start,end] because of task T" fact. At most one row exists per task;
// rows are only ever written by the reconciliation worker, which deletes
// and recreates them rather than updating in place. The projection is a
// lagging view of task state: it reflects the last successfully completed
// reconciliation, not necessarily the latest task write.
type AvailabilityProjection struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TaskID    uuid.UUID `json:"task_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAvailabilityProjection creates a projection row from a task's
// authoritative fields. Returns an error if validation fails.
func NewAvailabilityProjection(task *Task) (*AvailabilityProjection, error) {
	now := time.Now().UTC()
	p := &AvailabilityProjection{
		ID:        uuid.New(),
		UserID:    task.UserID,
		TaskID:    task.ID,
		StartDate: NormalizeDate(task.StartDate),
		EndDate:   NormalizeDate(task.EndDate),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate checks if the AvailabilityProjection has valid data.
func (p *AvailabilityProjection) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyProjectionID
	}

	if p.UserID == uuid.Nil {
		return ErrEmptyProjectionUserID
	}

	if p.TaskID == uuid.Nil {
		return ErrEmptyProjectionTaskID
	}

	if p.EndDate.Before(p.StartDate) {
		return ErrInvalidDateRange
	}

	return nil
}

// IntervalsOverlap reports whether two closed date intervals intersect.
// Boundaries are inclusive: a task ending the same day another starts
// counts as an overlap.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// AvailabilityConflict identifies the booking that blocks a requested
// interval.
type AvailabilityConflict struct {
	TaskID    uuid.UUID `json:"task_id"`
	TaskTitle string    `json:"task_title"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// AvailabilityCheck is the result of validating a user's availability for a
// requested interval.
type AvailabilityCheck struct {
	Available bool                  `json:"available"`
	Message   string                `json:"message"`
	Conflict  *AvailabilityConflict `json:"conflict,omitempty"`
}

// AvailableCheck returns a positive availability result.
func AvailableCheck() AvailabilityCheck {
	return AvailabilityCheck{
		Available: true,
		Message:   "User is available during this period.",
	}
}

// UnavailableCheck returns a negative availability result describing the
// conflicting booking.
func UnavailableCheck(conflict AvailabilityConflict) AvailabilityCheck {
	return AvailabilityCheck{
		Available: false,
		Message: fmt.Sprintf(
			"User is unavailable during this period. They have an overlapping task: %q (%s - %s)",
			conflict.TaskTitle,
			conflict.StartDate.Format("Jan 02, 2006"),
			conflict.EndDate.Format("Jan 02, 2006"),
		),
		Conflict: &conflict,
	}
}
