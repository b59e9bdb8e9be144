package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/domain"
)

// DueDateFilter narrows a task listing by end date relative to "now".
type DueDateFilter string

// Recognized due-date filters.
const (
	DueDateAny       DueDateFilter = ""
	DueDateOverdue   DueDateFilter = "overdue"
	DueDateToday     DueDateFilter = "today"
	DueDateThisWeek  DueDateFilter = "this_week"
	DueDateThisMonth DueDateFilter = "this_month"
)

// Valid reports whether the filter value is one of the recognized filters.
func (f DueDateFilter) Valid() bool {
	switch f {
	case DueDateAny, DueDateOverdue, DueDateToday, DueDateThisWeek, DueDateThisMonth:
		return true
	}
	return false
}

// TaskFilter restricts the results of TaskStore.List. Zero values mean
// "no restriction".
type TaskFilter struct {
	// Search matches case-insensitively against title and description.
	Search string

	// StatusID restricts to tasks in the given status.
	StatusID *uuid.UUID

	// UserID restricts to tasks assigned to the given user.
	UserID *uuid.UUID

	// DueDate restricts by end date relative to the reference time passed
	// to List.
	DueDate DueDateFilter
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns ErrInvalidEntity if a referenced user or status does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update saves changes to an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task from the store by its ID. The task's
	// availability projection row is removed by the ON DELETE CASCADE
	// constraint on the projection table.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// List retrieves tasks matching the filter, newest first. The now
	// argument anchors the due-date filters.
	List(ctx context.Context, filter TaskFilter, now time.Time) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}

// StatusStore provides read access to the seeded task statuses. Status
// administration belongs to an external layer; the engine only resolves
// references.
type StatusStore interface {
	// List retrieves all task statuses ordered by name.
	List(ctx context.Context) ([]*domain.TaskStatus, error)

	// GetByID retrieves a status by its ID.
	// Returns ErrStatusNotFound if the status does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskStatus, error)

	// GetDefault retrieves the status flagged as the default for new tasks.
	// Returns ErrStatusNotFound if no default is configured.
	GetDefault(ctx context.Context) (*domain.TaskStatus, error)
}
