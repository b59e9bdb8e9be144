package jobs

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// RebuildJobFactory creates AvailabilityRebuildJob instances for the write
// path and rehydrates recovered job records at startup.
type RebuildJobFactory struct {
	tasks       TaskReader
	projections ProjectionRebuilder
	locks       LockReleaser
	clock       clockwork.Clock
	retry       RetryPolicy
	logger      *slog.Logger
}

// NewRebuildJobFactory creates a new factory for availability rebuild jobs.
func NewRebuildJobFactory(
	tasks TaskReader,
	projections ProjectionRebuilder,
	locks LockReleaser,
	clock clockwork.Clock,
	retry RetryPolicy,
	logger *slog.Logger,
) *RebuildJobFactory {
	return &RebuildJobFactory{
		tasks:       tasks,
		projections: projections,
		locks:       locks,
		clock:       clock,
		retry:       retry,
		logger:      logger.With("component", "rebuild_job_factory"),
	}
}

// NewJob creates a fresh rebuild job for the given task carrying the lock
// acquired by the write path.
func (f *RebuildJobFactory) NewJob(taskID, lockID uuid.UUID) (Job, error) {
	return NewAvailabilityRebuildJob(
		taskID,
		lockID,
		f.tasks,
		f.projections,
		f.locks,
		f.clock,
		f.retry,
		f.logger,
	)
}

// FromRecord rehydrates a persisted job row into a runnable job. Only
// availability rebuild records are recognized.
func (f *RebuildJobFactory) FromRecord(record *JobRecord) (Job, error) {
	if record.Type != JobTypeAvailabilityRebuild {
		return nil, fmt.Errorf("unknown job type %q", record.Type)
	}

	var payload rebuildPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rebuild payload: %w", err)
	}

	job, err := NewAvailabilityRebuildJob(
		payload.TaskID,
		payload.LockID,
		f.tasks,
		f.projections,
		f.locks,
		f.clock,
		f.retry,
		f.logger,
	)
	if err != nil {
		return nil, err
	}

	// Keep the persisted identity so status updates land on the original row.
	job.id = record.ID
	return job, nil
}
