package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/service"
)

// DateLayout is the wire format for booking dates. Bookings are day-granular.
const DateLayout = "2006-01-02"

// CreateTaskRequest defines the payload for the task creation endpoint.
type CreateTaskRequest struct {
	Title       string `json:"title"       validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
	UserID      string `json:"user_id"     validate:"required,uuid"`
	StatusID    string `json:"status_id"   validate:"omitempty,uuid"`
	StartDate   string `json:"start_date"  validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date"    validate:"required,datetime=2006-01-02"`
}

// ToInput converts the request into a service input. Validation must have
// passed before calling.
func (req CreateTaskRequest) ToInput() (service.CreateTaskInput, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return service.CreateTaskInput{}, fmt.Errorf("invalid user_id: %w", err)
	}

	startDate, err := time.Parse(DateLayout, req.StartDate)
	if err != nil {
		return service.CreateTaskInput{}, fmt.Errorf("invalid start_date: %w", err)
	}

	endDate, err := time.Parse(DateLayout, req.EndDate)
	if err != nil {
		return service.CreateTaskInput{}, fmt.Errorf("invalid end_date: %w", err)
	}

	input := service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		UserID:      userID,
		StartDate:   startDate,
		EndDate:     endDate,
	}

	if req.StatusID != "" {
		statusID, err := uuid.Parse(req.StatusID)
		if err != nil {
			return service.CreateTaskInput{}, fmt.Errorf("invalid status_id: %w", err)
		}
		input.StatusID = &statusID
	}

	return input, nil
}

// UpdateTaskRequest defines the payload for the task update endpoint. Absent
// fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"       validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	UserID      *string `json:"user_id,omitempty"     validate:"omitempty,uuid"`
	StatusID    *string `json:"status_id,omitempty"   validate:"omitempty,uuid"`
	StartDate   *string `json:"start_date,omitempty"  validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date,omitempty"    validate:"omitempty,datetime=2006-01-02"`
}

// ToInput converts the request into a service input. Validation must have
// passed before calling.
func (req UpdateTaskRequest) ToInput() (service.UpdateTaskInput, error) {
	input := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	}

	if req.UserID != nil {
		userID, err := uuid.Parse(*req.UserID)
		if err != nil {
			return service.UpdateTaskInput{}, fmt.Errorf("invalid user_id: %w", err)
		}
		input.UserID = &userID
	}

	if req.StatusID != nil {
		statusID, err := uuid.Parse(*req.StatusID)
		if err != nil {
			return service.UpdateTaskInput{}, fmt.Errorf("invalid status_id: %w", err)
		}
		input.StatusID = &statusID
	}

	if req.StartDate != nil {
		startDate, err := time.Parse(DateLayout, *req.StartDate)
		if err != nil {
			return service.UpdateTaskInput{}, fmt.Errorf("invalid start_date: %w", err)
		}
		input.StartDate = &startDate
	}

	if req.EndDate != nil {
		endDate, err := time.Parse(DateLayout, *req.EndDate)
		if err != nil {
			return service.UpdateTaskInput{}, fmt.Errorf("invalid end_date: %w", err)
		}
		input.EndDate = &endDate
	}

	return input, nil
}

// ValidateAvailabilityRequest defines the payload for the availability
// validation endpoint.
type ValidateAvailabilityRequest struct {
	UserID        string `json:"user_id"         validate:"required,uuid"`
	StartDate     string `json:"start_date"      validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"end_date"        validate:"required,datetime=2006-01-02"`
	ExcludeTaskID string `json:"exclude_task_id" validate:"omitempty,uuid"`
}

// TaskResponse represents the response data for a task.
type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	UserID      string    `json:"user_id"`
	StatusID    string    `json:"status_id"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// taskToResponse converts a domain.Task to a TaskResponse.
func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		UserID:      task.UserID.String(),
		StatusID:    task.StatusID.String(),
		StartDate:   task.StartDate.Format(DateLayout),
		EndDate:     task.EndDate.Format(DateLayout),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// StatusResponse represents the response data for a task status.
type StatusResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	IsDefault bool   `json:"is_default"`
}

func statusToResponse(status *domain.TaskStatus) StatusResponse {
	return StatusResponse{
		ID:        status.ID.String(),
		Name:      status.Name,
		Color:     status.Color,
		IsDefault: status.IsDefault,
	}
}

// AvailabilityResponse represents a single busy interval for a user.
type AvailabilityResponse struct {
	TaskID    string `json:"task_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func projectionToResponse(projection *domain.AvailabilityProjection) AvailabilityResponse {
	return AvailabilityResponse{
		TaskID:    projection.TaskID.String(),
		StartDate: projection.StartDate.Format(DateLayout),
		EndDate:   projection.EndDate.Format(DateLayout),
	}
}
