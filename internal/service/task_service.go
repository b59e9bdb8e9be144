package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pmorneau/taskboard-api/internal/availability"
	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/jobs"
	"github.com/pmorneau/taskboard-api/internal/platform/logger"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// RebuildJobFactory builds projection rebuild jobs for the write path.
type RebuildJobFactory interface {
	// NewJob creates a rebuild job for the task, carrying the lock the
	// write path acquired
	NewJob(taskID, lockID uuid.UUID) (jobs.Job, error)
}

// JobSubmitter accepts reconciliation jobs for asynchronous processing.
type JobSubmitter interface {
	// Submit persists a job and queues it for execution
	Submit(ctx context.Context, job jobs.Job) error
}

// CreateTaskInput carries the fields for a new task. A nil StatusID selects
// the default status.
type CreateTaskInput struct {
	Title       string
	Description string
	UserID      uuid.UUID
	StatusID    *uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
}

// UpdateTaskInput carries partial changes to an existing task. Nil fields
// are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	UserID      *uuid.UUID
	StatusID    *uuid.UUID
	StartDate   *time.Time
	EndDate     *time.Time
}

// TaskService provides task write orchestration and reads.
type TaskService interface {
	// CreateTask validates the assigned user's availability under their lock,
	// persists the task, and submits the asynchronous projection rebuild.
	// Returns *UnavailableError if the user has an overlapping booking,
	// availability.ErrLocked or availability.ErrLockTimeout if the user's
	// schedule lock could not be acquired.
	CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error)

	// UpdateTask applies partial changes to a task. Changes that affect the
	// user's schedule (assignee or dates) follow the same lock-validate-
	// write-rebuild sequence as creation; other changes are plain writes.
	UpdateTask(ctx context.Context, id uuid.UUID, input UpdateTaskInput) (*domain.Task, error)

	// DeleteTask removes a task and its projection row in one transaction.
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListTasks retrieves tasks matching the filter, newest first.
	ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	runTx    func(ctx context.Context, fn store.TxFn) error
	tasks    store.TaskStore
	statuses store.StatusStore
	checker  *availability.Service
	locks    *availability.LockManager
	factory  RebuildJobFactory
	runner   JobSubmitter
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	statuses store.StatusStore,
	checker *availability.Service,
	locks *availability.LockManager,
	factory RebuildJobFactory,
	runner JobSubmitter,
	clock clockwork.Clock,
	log *slog.Logger,
) TaskService {
	return &taskServiceImpl{
		runTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
		tasks:    tasks,
		statuses: statuses,
		checker:  checker,
		locks:    locks,
		factory:  factory,
		runner:   runner,
		clock:    clock,
		logger:   log.With(slog.String("component", "task_service")),
	}
}

// CreateTask implements TaskService.CreateTask. The ordering is fixed:
// acquire the user's lock first, then validate against the projection, then
// write. Validating before acquisition would let two writers pass the same
// check concurrently and double-book the user.
func (s *taskServiceImpl) CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	statusID, err := s.resolveStatus(ctx, input.StatusID)
	if err != nil {
		return nil, err
	}

	task, err := domain.NewTask(
		input.Title,
		input.Description,
		input.UserID,
		statusID,
		input.StartDate,
		input.EndDate,
	)
	if err != nil {
		return nil, NewTaskServiceError("create", "invalid task data", err)
	}

	lock, err := s.locks.WaitAcquire(ctx, task.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.validateUnderLock(ctx, lock, task.UserID, task.StartDate, task.EndDate, nil); err != nil {
		return nil, err
	}

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		s.releaseQuietly(ctx, lock.ID)
		return nil, NewTaskServiceError("create", "failed to persist task", err)
	}

	if err := s.submitRebuild(ctx, task.ID, lock.ID); err != nil {
		return nil, err
	}

	log.Info("task created",
		"task_id", task.ID,
		"user_id", task.UserID)
	return task, nil
}

// UpdateTask implements TaskService.UpdateTask.
func (s *taskServiceImpl) UpdateTask(ctx context.Context, id uuid.UUID, input UpdateTaskInput) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	scheduleChanged := applyUpdate(task, input)

	if input.StatusID != nil {
		if _, err := s.statuses.GetByID(ctx, *input.StatusID); err != nil {
			return nil, err
		}
	}

	if err := task.Validate(); err != nil {
		return nil, NewTaskServiceError("update", "invalid task data", err)
	}

	if !scheduleChanged {
		err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			return s.tasks.WithTx(tx).Update(ctx, task)
		})
		if err != nil {
			return nil, NewTaskServiceError("update", "failed to persist task", err)
		}
		return task, nil
	}

	// The lock key is the task's (possibly new) assignee. Reassignment is
	// still covered by a single rebuild because the projection row is keyed
	// by task: the rebuild deletes the old user's row and inserts the new
	// user's in one pass.
	lock, err := s.locks.WaitAcquire(ctx, task.UserID)
	if err != nil {
		return nil, err
	}

	excludeID := task.ID
	if err := s.validateUnderLock(ctx, lock, task.UserID, task.StartDate, task.EndDate, &excludeID); err != nil {
		return nil, err
	}

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		s.releaseQuietly(ctx, lock.ID)
		return nil, NewTaskServiceError("update", "failed to persist task", err)
	}

	if err := s.submitRebuild(ctx, task.ID, lock.ID); err != nil {
		return nil, err
	}

	log.Info("task updated",
		"task_id", task.ID,
		"user_id", task.UserID)
	return task, nil
}

// DeleteTask implements TaskService.DeleteTask. Deletion frees the user's
// schedule rather than constraining it, so it takes no lock: the projection
// row and the task row are removed together in one transaction.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.checker.DeleteProjection(ctx, tx, id); err != nil {
			return err
		}
		return s.tasks.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return err
		}
		return NewTaskServiceError("delete", "failed to delete task", err)
	}

	log.Info("task deleted", "task_id", id)
	return nil
}

// GetTask implements TaskService.GetTask.
func (s *taskServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// ListTasks implements TaskService.ListTasks.
func (s *taskServiceImpl) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	return s.tasks.List(ctx, filter, s.clock.Now())
}

// resolveStatus returns the requested status ID after verifying it exists,
// or the default status when none was requested.
func (s *taskServiceImpl) resolveStatus(ctx context.Context, statusID *uuid.UUID) (uuid.UUID, error) {
	if statusID != nil {
		status, err := s.statuses.GetByID(ctx, *statusID)
		if err != nil {
			return uuid.Nil, err
		}
		return status.ID, nil
	}

	status, err := s.statuses.GetDefault(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return status.ID, nil
}

// validateUnderLock runs the availability check while holding the lock and
// releases it on every non-success path.
func (s *taskServiceImpl) validateUnderLock(
	ctx context.Context,
	lock *domain.AvailabilityLock,
	userID uuid.UUID,
	startDate, endDate time.Time,
	excludeTaskID *uuid.UUID,
) error {
	check, err := s.checker.ValidateAvailability(ctx, userID, startDate, endDate, excludeTaskID)
	if err != nil {
		s.releaseQuietly(ctx, lock.ID)
		return NewTaskServiceError("validate", "availability check failed", err)
	}

	if !check.Available {
		s.releaseQuietly(ctx, lock.ID)
		return &UnavailableError{Check: check}
	}

	return nil
}

// submitRebuild hands the projection rebuild to the runner. On submission
// failure the lock is released immediately; the job row, if it was
// persisted, is picked up by recovery and its own release is idempotent.
func (s *taskServiceImpl) submitRebuild(ctx context.Context, taskID, lockID uuid.UUID) error {
	job, err := s.factory.NewJob(taskID, lockID)
	if err != nil {
		s.releaseQuietly(ctx, lockID)
		return NewTaskServiceError("rebuild", "failed to build rebuild job", err)
	}

	if err := s.runner.Submit(ctx, job); err != nil {
		s.releaseQuietly(ctx, lockID)
		return NewTaskServiceError("rebuild", "failed to submit rebuild job", err)
	}

	return nil
}

// releaseQuietly releases the lock and logs instead of failing: every error
// path that reaches it is already carrying a more useful error for the
// caller, and an unreleased row is reclaimed by the stale sweep.
func (s *taskServiceImpl) releaseQuietly(ctx context.Context, lockID uuid.UUID) {
	if err := s.locks.Release(ctx, lockID); err != nil {
		s.logger.Error("failed to release availability lock",
			"lock_id", lockID,
			"error", err)
	}
}

// applyUpdate copies non-nil input fields onto the task and reports whether
// the user's schedule (assignee or date range) changed.
func applyUpdate(task *domain.Task, input UpdateTaskInput) bool {
	scheduleChanged := false

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.StatusID != nil {
		task.StatusID = *input.StatusID
	}
	if input.UserID != nil && *input.UserID != task.UserID {
		task.UserID = *input.UserID
		scheduleChanged = true
	}
	if input.StartDate != nil {
		normalized := domain.NormalizeDate(*input.StartDate)
		if !normalized.Equal(task.StartDate) {
			task.StartDate = normalized
			scheduleChanged = true
		}
	}
	if input.EndDate != nil {
		normalized := domain.NormalizeDate(*input.EndDate)
		if !normalized.Equal(task.EndDate) {
			task.EndDate = normalized
			scheduleChanged = true
		}
	}

	return scheduleChanged
}
