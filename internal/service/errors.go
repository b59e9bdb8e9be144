package service

import (
	"fmt"

	"github.com/pmorneau/taskboard-api/internal/domain"
)

// TaskServiceError is a custom error type for task service errors.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// UnavailableError is returned when a write is rejected because the assigned
// user already has an overlapping booking. It carries the full availability
// check so handlers can surface the conflicting task to the client.
type UnavailableError struct {
	Check domain.AvailabilityCheck
}

// Error implements the error interface for UnavailableError.
func (e *UnavailableError) Error() string {
	return e.Check.Message
}
