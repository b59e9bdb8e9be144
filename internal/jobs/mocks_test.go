package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockTaskReader returns a fixed task or error.
type mockTaskReader struct {
	mu    sync.Mutex
	task  *domain.Task
	err   error
	calls int
}

func (m *mockTaskReader) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.task == nil || m.task.ID != id {
		return nil, fmt.Errorf("unexpected task ID %s", id)
	}
	return m.task, nil
}

// mockProjectionRebuilder records rebuild and delete calls, failing the
// first failBefore rebuild attempts.
type mockProjectionRebuilder struct {
	mu           sync.Mutex
	rebuildCalls int
	deleteCalls  int
	failBefore   int
	rebuildErr   error
	deleteErr    error
	lastTaskID   uuid.UUID
	lastUserID   uuid.UUID
	lastStart    time.Time
	lastEnd      time.Time
}

func (m *mockProjectionRebuilder) Rebuild(_ context.Context, taskID, userID uuid.UUID, startDate, endDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuildCalls++
	if m.rebuildCalls <= m.failBefore {
		if m.rebuildErr != nil {
			return m.rebuildErr
		}
		return fmt.Errorf("transient rebuild failure %d", m.rebuildCalls)
	}
	m.lastTaskID = taskID
	m.lastUserID = userID
	m.lastStart = startDate
	m.lastEnd = endDate
	return nil
}

func (m *mockProjectionRebuilder) DeleteByTask(_ context.Context, taskID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	m.lastTaskID = taskID
	return m.deleteErr
}

func (m *mockProjectionRebuilder) rebuildCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rebuildCalls
}

// mockLockReleaser records released lock IDs.
type mockLockReleaser struct {
	mu       sync.Mutex
	released []uuid.UUID
	err      error
}

func (m *mockLockReleaser) Release(_ context.Context, lockID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, lockID)
	return m.err
}

func (m *mockLockReleaser) releasedIDs() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uuid.UUID, len(m.released))
	copy(out, m.released)
	return out
}

// memJobStore is an in-memory JobStore for runner tests.
type memJobStore struct {
	mu      sync.Mutex
	order   []uuid.UUID
	records map[uuid.UUID]*JobRecord
	saveErr error
}

func newMemJobStore() *memJobStore {
	return &memJobStore{records: make(map[uuid.UUID]*JobRecord)}
}

func (s *memJobStore) Save(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	now := time.Now().UTC()
	s.records[job.ID()] = &JobRecord{
		ID:        job.ID(),
		Type:      job.Type(),
		Payload:   job.Payload(),
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.order = append(s.order, job.ID())
	return nil
}

// seed installs a record directly, for recovery tests.
func (s *memJobStore) seed(record *JobRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	s.order = append(s.order, record.ID)
}

func (s *memJobStore) UpdateStatus(_ context.Context, jobID uuid.UUID, status JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[jobID]
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}
	record.Status = status
	record.ErrorMessage = errorMsg
	record.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memJobStore) GetPending(_ context.Context) ([]*JobRecord, error) {
	return s.byStatus(JobStatusPending, 0), nil
}

func (s *memJobStore) GetProcessing(_ context.Context, olderThan time.Duration) ([]*JobRecord, error) {
	return s.byStatus(JobStatusProcessing, olderThan), nil
}

func (s *memJobStore) byStatus(status JobStatus, olderThan time.Duration) []*JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var out []*JobRecord
	for _, id := range s.order {
		record := s.records[id]
		if record.Status != status {
			continue
		}
		if olderThan > 0 && record.UpdatedAt.After(cutoff) {
			continue
		}
		copied := *record
		out = append(out, &copied)
	}
	return out
}

func (s *memJobStore) WithTx(_ *sql.Tx) JobStore {
	return s
}

func (s *memJobStore) status(jobID uuid.UUID) JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[jobID]; ok {
		return record.Status
	}
	return ""
}

// stubJob is a minimal Job whose Execute behavior is injectable.
type stubJob struct {
	id        uuid.UUID
	jobType   string
	payload   []byte
	executeFn func(ctx context.Context) error
	mu        sync.Mutex
	execCount int
}

func newStubJob(executeFn func(ctx context.Context) error) *stubJob {
	return &stubJob{
		id:        uuid.New(),
		jobType:   "stub",
		payload:   []byte(`{}`),
		executeFn: executeFn,
	}
}

func (j *stubJob) ID() uuid.UUID     { return j.id }
func (j *stubJob) Type() string      { return j.jobType }
func (j *stubJob) Payload() []byte   { return j.payload }
func (j *stubJob) Status() JobStatus { return JobStatusPending }

func (j *stubJob) Execute(ctx context.Context) error {
	j.mu.Lock()
	j.execCount++
	j.mu.Unlock()
	if j.executeFn != nil {
		return j.executeFn(ctx)
	}
	return nil
}

func (j *stubJob) executions() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.execCount
}

// stubFactory rehydrates records into stubJobs, preserving record IDs.
// When gate is non-nil, rehydrated jobs block mid-execution until it is
// closed, so tests can observe a job while it is in flight.
type stubFactory struct {
	mu         sync.Mutex
	rebuilt    []uuid.UUID
	failFor    map[uuid.UUID]error
	execCounts map[uuid.UUID]int
	gate       chan struct{}
}

func newStubFactory() *stubFactory {
	return &stubFactory{
		failFor:    make(map[uuid.UUID]error),
		execCounts: make(map[uuid.UUID]int),
	}
}

func (f *stubFactory) FromRecord(record *JobRecord) (Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[record.ID]; ok {
		return nil, err
	}
	f.rebuilt = append(f.rebuilt, record.ID)
	gate := f.gate
	job := newStubJob(func(context.Context) error {
		f.mu.Lock()
		f.execCounts[record.ID]++
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		return nil
	})
	job.id = record.ID
	return job, nil
}

func (f *stubFactory) wasExecuted(id uuid.UUID) bool {
	return f.executionCount(id) > 0
}

func (f *stubFactory) executionCount(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.execCounts[id]
}
