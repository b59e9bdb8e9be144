package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/jobs"
	"github.com/pmorneau/taskboard-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passthroughTx invokes the transactional function without a real database.
// The in-memory stores ignore the nil transaction handle.
func passthroughTx(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

// memTaskStore is an in-memory store.TaskStore.
type memTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (s *memTaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *memTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *memTaskStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *memTaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *memTaskStore) List(_ context.Context, filter store.TaskFilter, _ time.Time) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Task
	for _, task := range s.tasks {
		if filter.UserID != nil && task.UserID != *filter.UserID {
			continue
		}
		if filter.StatusID != nil && task.StatusID != *filter.StatusID {
			continue
		}
		copied := *task
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memTaskStore) WithTx(_ *sql.Tx) store.TaskStore { return s }

func (s *memTaskStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// memStatusStore serves a fixed set of statuses.
type memStatusStore struct {
	statuses []*domain.TaskStatus
}

func newMemStatusStore() *memStatusStore {
	now := time.Now().UTC()
	return &memStatusStore{
		statuses: []*domain.TaskStatus{
			{ID: uuid.New(), Name: "To Do", IsDefault: true, CreatedAt: now, UpdatedAt: now},
			{ID: uuid.New(), Name: "In Progress", CreatedAt: now, UpdatedAt: now},
			{ID: uuid.New(), Name: "Done", CreatedAt: now, UpdatedAt: now},
		},
	}
}

func (s *memStatusStore) List(_ context.Context) ([]*domain.TaskStatus, error) {
	return s.statuses, nil
}

func (s *memStatusStore) GetByID(_ context.Context, id uuid.UUID) (*domain.TaskStatus, error) {
	for _, status := range s.statuses {
		if status.ID == id {
			return status, nil
		}
	}
	return nil, store.ErrStatusNotFound
}

func (s *memStatusStore) GetDefault(_ context.Context) (*domain.TaskStatus, error) {
	for _, status := range s.statuses {
		if status.IsDefault {
			return status, nil
		}
	}
	return nil, store.ErrStatusNotFound
}

// memProjectionStore is an in-memory store.ProjectionStore keyed by task.
// Setting rebuildErr makes every Rebuild call fail, for failure-path tests.
type memProjectionStore struct {
	mu         sync.Mutex
	byTask     map[uuid.UUID]*domain.AvailabilityProjection
	rebuildErr error
}

func newMemProjectionStore() *memProjectionStore {
	return &memProjectionStore{byTask: make(map[uuid.UUID]*domain.AvailabilityProjection)}
}

func (s *memProjectionStore) Rebuild(_ context.Context, taskID, userID uuid.UUID, startDate, endDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rebuildErr != nil {
		return s.rebuildErr
	}
	now := time.Now().UTC()
	s.byTask[taskID] = &domain.AvailabilityProjection{
		ID:        uuid.New(),
		UserID:    userID,
		TaskID:    taskID,
		StartDate: domain.NormalizeDate(startDate),
		EndDate:   domain.NormalizeDate(endDate),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *memProjectionStore) DeleteByTask(_ context.Context, taskID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byTask, taskID)
	return nil
}

func (s *memProjectionStore) FindByTask(_ context.Context, taskID uuid.UUID) (*domain.AvailabilityProjection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	projection, ok := s.byTask[taskID]
	if !ok {
		return nil, store.ErrProjectionNotFound
	}
	copied := *projection
	return &copied, nil
}

func (s *memProjectionStore) FindByUser(_ context.Context, userID uuid.UUID) ([]*domain.AvailabilityProjection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.AvailabilityProjection
	for _, projection := range s.byTask {
		if projection.UserID == userID {
			copied := *projection
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

func (s *memProjectionStore) FindOverlapping(
	_ context.Context,
	userID uuid.UUID,
	startDate, endDate time.Time,
	excludeTaskID *uuid.UUID,
) (*domain.AvailabilityProjection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, projection := range s.byTask {
		if projection.UserID != userID {
			continue
		}
		if excludeTaskID != nil && projection.TaskID == *excludeTaskID {
			continue
		}
		if domain.IntervalsOverlap(projection.StartDate, projection.EndDate, startDate, endDate) {
			copied := *projection
			return &copied, nil
		}
	}
	return nil, store.ErrProjectionNotFound
}

func (s *memProjectionStore) WithTx(_ *sql.Tx) store.ProjectionStore { return s }

func (s *memProjectionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byTask)
}

// memLockStore enforces per-user uniqueness like the real lock table.
type memLockStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.AvailabilityLock
	inserts int
}

func newMemLockStore() *memLockStore {
	return &memLockStore{byID: make(map[uuid.UUID]*domain.AvailabilityLock)}
}

func (s *memLockStore) Insert(_ context.Context, lock *domain.AvailabilityLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	for _, held := range s.byID {
		if held.UserID == lock.UserID {
			return fmt.Errorf("%w: user %s", store.ErrLockHeld, lock.UserID)
		}
	}
	copied := *lock
	s.byID[lock.ID] = &copied
	return nil
}

func (s *memLockStore) Exists(_ context.Context, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, held := range s.byID {
		if held.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memLockStore) DeleteByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *memLockStore) DeleteLockedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return s.deleteBefore(cutoff, func(l *domain.AvailabilityLock) time.Time { return l.LockedAt })
}

func (s *memLockStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return s.deleteBefore(cutoff, func(l *domain.AvailabilityLock) time.Time { return l.CreatedAt })
}

func (s *memLockStore) deleteBefore(cutoff time.Time, at func(*domain.AvailabilityLock) time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, lock := range s.byID {
		if at(lock).Before(cutoff) {
			delete(s.byID, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memLockStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *memLockStore) insertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts
}

var _ store.LockStore = (*memLockStore)(nil)

// inlineRunner executes submitted jobs synchronously, making the
// asynchronous reconciliation path deterministic in tests.
type inlineRunner struct {
	mu        sync.Mutex
	submitted int
}

func (r *inlineRunner) Submit(ctx context.Context, job jobs.Job) error {
	r.mu.Lock()
	r.submitted++
	r.mu.Unlock()
	return job.Execute(ctx)
}

func (r *inlineRunner) submissions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitted
}

// errIntentional marks injected failures in tests.
var errIntentional = errors.New("intentional test failure")
