package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pmorneau/taskboard-api/internal/api"
	apiMiddleware "github.com/pmorneau/taskboard-api/internal/api/middleware"
	"github.com/pmorneau/taskboard-api/internal/metrics"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)
	r.Use(metrics.Middleware())

	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	availabilityHandler := api.NewAvailabilityHandler(
		app.availabilityService,
		app.lockManager,
		app.logger,
	)
	statusHandler := api.NewStatusHandler(app.statusStore, app.logger)
	maintenanceHandler := api.NewMaintenanceHandler(app.sweeper, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks", taskHandler.ListTasks)
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Patch("/tasks/{id}", taskHandler.UpdateTask)
		r.Delete("/tasks/{id}", taskHandler.DeleteTask)

		r.Get("/statuses", statusHandler.ListStatuses)

		r.Get("/users/{id}/availability", availabilityHandler.GetUserAvailability)
		r.Post("/availability/validate", availabilityHandler.ValidateAvailability)

		r.Post("/maintenance/lock-sweep", maintenanceHandler.SweepLocks)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	r.Handle("/metrics", metrics.Handler())

	return r
}
