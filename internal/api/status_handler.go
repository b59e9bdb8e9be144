package api

import (
	"log/slog"
	"net/http"

	"github.com/pmorneau/taskboard-api/internal/api/shared"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// StatusHandler serves the seeded task statuses.
type StatusHandler struct {
	statuses store.StatusStore
	logger   *slog.Logger
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(statuses store.StatusStore, log *slog.Logger) *StatusHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for StatusHandler")
	}

	return &StatusHandler{
		statuses: statuses,
		logger:   log.With(slog.String("component", "status_handler")),
	}
}

// ListStatuses handles GET /statuses requests.
func (h *StatusHandler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statuses.List(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]StatusResponse, 0, len(statuses))
	for _, status := range statuses {
		responses = append(responses, statusToResponse(status))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}
