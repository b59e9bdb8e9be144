package availability

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// memLockStore is an in-memory LockStore enforcing the same one-active-
// lock-per-user uniqueness the real table does.
type memLockStore struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*domain.AvailabilityLock
}

func newMemLockStore() *memLockStore {
	return &memLockStore{locks: make(map[uuid.UUID]*domain.AvailabilityLock)}
}

func (s *memLockStore) Insert(_ context.Context, lock *domain.AvailabilityLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.locks {
		if existing.UserID == lock.UserID {
			return store.ErrLockHeld
		}
	}

	clone := *lock
	s.locks[lock.ID] = &clone
	return nil
}

func (s *memLockStore) Exists(_ context.Context, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.locks {
		if existing.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memLockStore) DeleteByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, id)
	return nil
}

func (s *memLockStore) DeleteLockedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, lock := range s.locks {
		if lock.LockedAt.Before(cutoff) {
			delete(s.locks, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memLockStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, lock := range s.locks {
		if lock.CreatedAt.Before(cutoff) {
			delete(s.locks, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memLockStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

// memProjectionStore is an in-memory ProjectionStore keyed by task.
type memProjectionStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.AvailabilityProjection
}

func newMemProjectionStore() *memProjectionStore {
	return &memProjectionStore{rows: make(map[uuid.UUID]*domain.AvailabilityProjection)}
}

func (s *memProjectionStore) Rebuild(
	_ context.Context,
	taskID, userID uuid.UUID,
	startDate, endDate time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.rows[taskID] = &domain.AvailabilityProjection{
		ID:        uuid.New(),
		UserID:    userID,
		TaskID:    taskID,
		StartDate: startDate,
		EndDate:   endDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *memProjectionStore) DeleteByTask(_ context.Context, taskID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows, taskID)
	return nil
}

func (s *memProjectionStore) FindByTask(_ context.Context, taskID uuid.UUID) (*domain.AvailabilityProjection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[taskID]
	if !ok {
		return nil, store.ErrProjectionNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *memProjectionStore) FindByUser(_ context.Context, userID uuid.UUID) ([]*domain.AvailabilityProjection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []*domain.AvailabilityProjection
	for _, row := range s.rows {
		if row.UserID == userID {
			clone := *row
			rows = append(rows, &clone)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].StartDate.Before(rows[j].StartDate)
	})
	return rows, nil
}

func (s *memProjectionStore) FindOverlapping(
	_ context.Context,
	userID uuid.UUID,
	startDate, endDate time.Time,
	excludeTaskID *uuid.UUID,
) (*domain.AvailabilityProjection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.UserID != userID {
			continue
		}
		if excludeTaskID != nil && row.TaskID == *excludeTaskID {
			continue
		}
		if domain.IntervalsOverlap(row.StartDate, row.EndDate, startDate, endDate) {
			clone := *row
			return &clone, nil
		}
	}
	return nil, store.ErrProjectionNotFound
}

func (s *memProjectionStore) WithTx(_ *sql.Tx) store.ProjectionStore {
	return s
}

func (s *memProjectionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// memTaskStore is an in-memory TaskStore, just enough for title resolution
// and orchestrator tests.
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

	clone := *task
	s.tasks[task.ID] = &clone
	return nil
}

func (s *memTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

func (s *memTaskStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	clone := *task
	s.tasks[task.ID] = &clone
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

func (s *memTaskStore) List(_ context.Context, _ store.TaskFilter, _ time.Time) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []*domain.Task
	for _, task := range s.tasks {
		clone := *task
		tasks = append(tasks, &clone)
	}
	return tasks, nil
}

func (s *memTaskStore) WithTx(_ *sql.Tx) store.TaskStore {
	return s
}
