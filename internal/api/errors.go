package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pmorneau/taskboard-api/internal/availability"
	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/service"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var unavailable *service.UnavailableError
	if errors.As(err, &unavailable) {
		return http.StatusUnprocessableEntity
	}

	switch {
	// Contention errors: the user's schedule lock is busy
	case errors.Is(err, availability.ErrLocked),
		errors.Is(err, availability.ErrLockTimeout):
		return http.StatusConflict

	// Not found errors
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrStatusNotFound),
		errors.Is(err, store.ErrProjectionNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrEmptyTaskTitle),
		errors.Is(err, domain.ErrEmptyTaskUserID):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	// Availability rejections carry their own user-facing message, including
	// the conflicting booking.
	var unavailable *service.UnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Check.Message
	}

	switch {
	case errors.Is(err, availability.ErrLocked),
		errors.Is(err, availability.ErrLockTimeout):
		return "The user's schedule is being updated, please try again shortly"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrStatusNotFound):
		return "Task status not found"

	case errors.Is(err, store.ErrProjectionNotFound):
		return "Availability record not found"

	case errors.Is(err, store.ErrDuplicate):
		return "Entity already exists"

	case errors.Is(err, domain.ErrInvalidDateRange):
		return "End date cannot precede start date"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'CreateTaskRequest.Title' Error:Field validation
	// for 'Title' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "uuid":
		return "invalid identifier format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "datetime":
		return "invalid date format"
	default:
		return "validation failed"
	}
}
