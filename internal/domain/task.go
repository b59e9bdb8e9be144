package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID      = errors.New("task ID cannot be empty")
	ErrEmptyTaskTitle   = errors.New("task title cannot be empty")
	ErrEmptyTaskUserID  = errors.New("task user ID cannot be empty")
	ErrEmptyTaskStatus  = errors.New("task status ID cannot be empty")
	ErrInvalidDateRange = errors.New("task end date cannot precede start date")
)

// Task represents a booking of a user for a date interval. The availability
// engine treats it as authoritative input: every create/update/delete of a
// task triggers a rebuild of the user's availability projection.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	UserID      uuid.UUID `json:"user_id"`
	StatusID    uuid.UUID `json:"status_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask creates a new Task with the given fields. It generates a new UUID
// for the task ID, normalizes the dates to UTC day precision, and sets the
// creation/update timestamps. Returns an error if validation fails.
func NewTask(
	title, description string,
	userID, statusID uuid.UUID,
	startDate, endDate time.Time,
) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		UserID:      userID,
		StatusID:    statusID,
		StartDate:   NormalizeDate(startDate),
		EndDate:     NormalizeDate(endDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.Title == "" {
		return ErrEmptyTaskTitle
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTaskUserID
	}

	if t.StatusID == uuid.Nil {
		return ErrEmptyTaskStatus
	}

	if t.EndDate.Before(t.StartDate) {
		return ErrInvalidDateRange
	}

	return nil
}

// NormalizeDate truncates a timestamp to UTC day precision. Bookings are
// day-granular, so all interval comparisons happen on normalized dates.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TaskStatus represents a workflow state a task can be in (e.g. "To Do",
// "In Progress"). Statuses are seeded data; the availability engine only
// reads them to satisfy the task's status reference.
type TaskStatus struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
