package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/api/shared"
	"github.com/pmorneau/taskboard-api/internal/availability"
	"github.com/pmorneau/taskboard-api/internal/platform/logger"
	"github.com/pmorneau/taskboard-api/internal/redact"
)

// AvailabilityHandler handles read-side availability HTTP requests.
type AvailabilityHandler struct {
	availability *availability.Service
	locks        *availability.LockManager
	logger       *slog.Logger
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(
	svc *availability.Service,
	locks *availability.LockManager,
	log *slog.Logger,
) *AvailabilityHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AvailabilityHandler")
	}

	return &AvailabilityHandler{
		availability: svc,
		locks:        locks,
		logger:       log.With(slog.String("component", "availability_handler")),
	}
}

// UserAvailabilityResponse is the read-side view of a user's schedule.
type UserAvailabilityResponse struct {
	UserID    string                 `json:"user_id"`
	Locked    bool                   `json:"locked"`
	Intervals []AvailabilityResponse `json:"intervals"`
}

// GetUserAvailability handles GET /users/{id}/availability requests. It
// returns the user's busy intervals from the projection plus the current
// lock state. The view is eventually consistent: a write that has not been
// reconciled yet is not reflected.
func (h *AvailabilityHandler) GetUserAvailability(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	raw := chi.URLParam(r, "id")
	userID, err := uuid.Parse(raw)
	if err != nil {
		log.Warn("invalid user ID format", slog.String("user_id", raw))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	projections, err := h.availability.ListForUser(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	locked, err := h.locks.IsLocked(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	intervals := make([]AvailabilityResponse, 0, len(projections))
	for _, projection := range projections {
		intervals = append(intervals, projectionToResponse(projection))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UserAvailabilityResponse{
		UserID:    userID.String(),
		Locked:    locked,
		Intervals: intervals,
	})
}

// ValidateAvailability handles POST /availability/validate requests. This is
// an advisory check against the projection; it takes no lock and can go
// stale the moment it returns.
func (h *AvailabilityHandler) ValidateAvailability(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ValidateAvailabilityRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.Validate.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	startDate, err := time.Parse(DateLayout, req.StartDate)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid start date format")
		return
	}

	endDate, err := time.Parse(DateLayout, req.EndDate)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid end date format")
		return
	}

	var excludeTaskID *uuid.UUID
	if req.ExcludeTaskID != "" {
		id, err := uuid.Parse(req.ExcludeTaskID)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID format")
			return
		}
		excludeTaskID = &id
	}

	check, err := h.availability.ValidateAvailability(r.Context(), userID, startDate, endDate, excludeTaskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, check)
}
