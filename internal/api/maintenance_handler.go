package api

import (
	"log/slog"
	"net/http"

	"github.com/pmorneau/taskboard-api/internal/api/shared"
	"github.com/pmorneau/taskboard-api/internal/availability"
)

// MaintenanceHandler exposes operational endpoints. These mirror what the
// background sweeper does on its own cadence, so an external scheduler can
// drive lock cleanup explicitly.
type MaintenanceHandler struct {
	sweeper *availability.Sweeper
	logger  *slog.Logger
}

// NewMaintenanceHandler creates a new MaintenanceHandler.
func NewMaintenanceHandler(sweeper *availability.Sweeper, log *slog.Logger) *MaintenanceHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for MaintenanceHandler")
	}

	return &MaintenanceHandler{
		sweeper: sweeper,
		logger:  log.With(slog.String("component", "maintenance_handler")),
	}
}

// SweepLocks handles POST /maintenance/lock-sweep requests. It runs the
// stale and (when due) old lock sweeps once and reports the counts.
func (h *MaintenanceHandler) SweepLocks(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.RunOnce(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Lock sweep failed", err)
		return
	}

	h.logger.Info("manual lock sweep completed",
		slog.Int64("stale_removed", result.StaleRemoved),
		slog.Int64("old_removed", result.OldRemoved))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
