package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/metrics"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// Common errors
var (
	ErrNilTaskReader   = errors.New("task reader cannot be nil")
	ErrNilProjections  = errors.New("projection store cannot be nil")
	ErrNilLockReleaser = errors.New("lock releaser cannot be nil")
	ErrNilClock        = errors.New("clock cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrEmptyTaskID     = errors.New("task ID cannot be empty")
	ErrEmptyLockID     = errors.New("lock ID cannot be empty")
)

// TaskReader provides read access to authoritative task state.
type TaskReader interface {
	// GetByID retrieves a task by its unique ID.
	// Returns store.ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// ProjectionRebuilder is the slice of the projection store the rebuild job
// needs.
type ProjectionRebuilder interface {
	// Rebuild atomically replaces the projection row for a task
	Rebuild(ctx context.Context, taskID, userID uuid.UUID, startDate, endDate time.Time) error

	// DeleteByTask removes the projection row for a task
	DeleteByTask(ctx context.Context, taskID uuid.UUID) error
}

// LockReleaser releases the availability lock handed to the job by the
// write path.
type LockReleaser interface {
	// Release deletes the lock row with the given ID. Must be idempotent.
	Release(ctx context.Context, lockID uuid.UUID) error
}

// RetryPolicy bounds the rebuild job's retries on transient failure.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, including the first try
	MaxAttempts int

	// Backoff is the fixed pause between attempts
	Backoff time.Duration
}

// DefaultRetryPolicy returns the standard rebuild retry budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     3 * time.Second,
	}
}

// rebuildPayload is the serialized instruction carried by the job row.
type rebuildPayload struct {
	TaskID uuid.UUID `json:"task_id"`
	LockID uuid.UUID `json:"lock_id"`
}

// AvailabilityRebuildJob implements the Job interface. It re-reads the
// task's authoritative state, replaces the availability projection row
// via delete-then-insert, and releases the availability lock no matter
// how execution ends. On permanent failure the projection stays stale
// until the next successful write for the task.
type AvailabilityRebuildJob struct {
	id          uuid.UUID
	taskID      uuid.UUID
	lockID      uuid.UUID
	tasks       TaskReader
	projections ProjectionRebuilder
	locks       LockReleaser
	clock       clockwork.Clock
	retry       RetryPolicy
	logger      *slog.Logger
	status      JobStatus
}

// NewAvailabilityRebuildJob creates a rebuild job for the given task,
// carrying the lock the write path acquired.
func NewAvailabilityRebuildJob(
	taskID, lockID uuid.UUID,
	tasks TaskReader,
	projections ProjectionRebuilder,
	locks LockReleaser,
	clock clockwork.Clock,
	retry RetryPolicy,
	logger *slog.Logger,
) (*AvailabilityRebuildJob, error) {
	if tasks == nil {
		return nil, ErrNilTaskReader
	}
	if projections == nil {
		return nil, ErrNilProjections
	}
	if locks == nil {
		return nil, ErrNilLockReleaser
	}
	if clock == nil {
		return nil, ErrNilClock
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}
	if lockID == uuid.Nil {
		return nil, ErrEmptyLockID
	}
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}

	return &AvailabilityRebuildJob{
		id:          uuid.New(),
		taskID:      taskID,
		lockID:      lockID,
		tasks:       tasks,
		projections: projections,
		locks:       locks,
		clock:       clock,
		retry:       retry,
		logger:      logger.With("job_type", JobTypeAvailabilityRebuild, "task_id", taskID),
		status:      JobStatusPending,
	}, nil
}

// ID returns the job's unique identifier
func (j *AvailabilityRebuildJob) ID() uuid.UUID {
	return j.id
}

// Type returns the job type identifier
func (j *AvailabilityRebuildJob) Type() string {
	return JobTypeAvailabilityRebuild
}

// Payload returns the job data as a byte slice
func (j *AvailabilityRebuildJob) Payload() []byte {
	payload := rebuildPayload{
		TaskID: j.taskID,
		LockID: j.lockID,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		j.logger.Error("failed to marshal job payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current job status
func (j *AvailabilityRebuildJob) Status() JobStatus {
	return JobStatus(j.status)
}

// Execute rebuilds the projection row with bounded retries. The lock is
// released in a deferred path on every outcome, success or failure.
func (j *AvailabilityRebuildJob) Execute(ctx context.Context) (err error) {
	j.status = JobStatusProcessing
	j.logger.Info("starting availability rebuild")

	defer func() {
		if releaseErr := j.locks.Release(ctx, j.lockID); releaseErr != nil {
			j.logger.Error("failed to release availability lock",
				"lock_id", j.lockID,
				"error", releaseErr)
			if err == nil {
				err = fmt.Errorf("failed to release availability lock: %w", releaseErr)
			}
		}
	}()

	for attempt := 1; attempt <= j.retry.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			j.status = JobStatusFailed
			return fmt.Errorf("rebuild cancelled by context: %w", ctxErr)
		}

		err = j.rebuildOnce(ctx)
		if err == nil {
			j.status = JobStatusCompleted
			metrics.RecordRebuild(metrics.RebuildOutcomeSuccess)
			j.logger.Info("availability rebuild completed", "attempt", attempt)
			return nil
		}

		if attempt < j.retry.MaxAttempts {
			metrics.RecordRebuild(metrics.RebuildOutcomeRetried)
			j.logger.Warn("availability rebuild attempt failed, retrying",
				"attempt", attempt,
				"max_attempts", j.retry.MaxAttempts,
				"backoff", j.retry.Backoff,
				"error", err)

			select {
			case <-ctx.Done():
				j.status = JobStatusFailed
				return fmt.Errorf("rebuild cancelled by context: %w", ctx.Err())
			case <-j.clock.After(j.retry.Backoff):
			}
		}
	}

	// Retries exhausted. The task row and projection may now disagree until
	// the next successful write for this task triggers a fresh rebuild.
	j.status = JobStatusFailed
	metrics.RecordRebuild(metrics.RebuildOutcomePermanentFailure)
	j.logger.Error("availability rebuild failed permanently",
		"attempts", j.retry.MaxAttempts,
		"error", err)
	return fmt.Errorf("availability rebuild failed after %d attempts: %w", j.retry.MaxAttempts, err)
}

// rebuildOnce performs a single reconciliation pass.
func (j *AvailabilityRebuildJob) rebuildOnce(ctx context.Context) error {
	task, err := j.tasks.GetByID(ctx, j.taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			// The task was destroyed before this instruction ran. Remove
			// any residual projection row and finish.
			if delErr := j.projections.DeleteByTask(ctx, j.taskID); delErr != nil {
				return fmt.Errorf("failed to delete projection for removed task: %w", delErr)
			}
			j.logger.Info("task no longer exists, projection removed")
			return nil
		}
		return fmt.Errorf("failed to read task: %w", err)
	}

	if err := j.projections.Rebuild(ctx, task.ID, task.UserID, task.StartDate, task.EndDate); err != nil {
		return fmt.Errorf("failed to rebuild projection: %w", err)
	}

	return nil
}
