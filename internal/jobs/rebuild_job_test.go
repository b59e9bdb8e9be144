package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// fastRetry keeps retry pauses negligible under the real clock.
func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}
}

func testTask(t *testing.T) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(
		"Install fixtures",
		"",
		uuid.New(),
		uuid.New(),
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return task
}

func newTestRebuildJob(
	t *testing.T,
	task *domain.Task,
	tasks *mockTaskReader,
	projections *mockProjectionRebuilder,
	locks *mockLockReleaser,
) (*AvailabilityRebuildJob, uuid.UUID) {
	t.Helper()
	lockID := uuid.New()
	job, err := NewAvailabilityRebuildJob(
		task.ID,
		lockID,
		tasks,
		projections,
		locks,
		clockwork.NewRealClock(),
		fastRetry(),
		testLogger(),
	)
	require.NoError(t, err)
	return job, lockID
}

func TestRebuildJobSuccess(t *testing.T) {
	task := testTask(t)
	tasks := &mockTaskReader{task: task}
	projections := &mockProjectionRebuilder{}
	locks := &mockLockReleaser{}

	job, lockID := newTestRebuildJob(t, task, tasks, projections, locks)

	err := job.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, JobStatusCompleted, job.Status())
	assert.Equal(t, 1, projections.rebuildCount())
	assert.Equal(t, task.ID, projections.lastTaskID)
	assert.Equal(t, task.UserID, projections.lastUserID)
	assert.Equal(t, task.StartDate, projections.lastStart)
	assert.Equal(t, task.EndDate, projections.lastEnd)
	assert.Equal(t, []uuid.UUID{lockID}, locks.releasedIDs())
}

func TestRebuildJobRetriesThenSucceeds(t *testing.T) {
	task := testTask(t)
	tasks := &mockTaskReader{task: task}
	projections := &mockProjectionRebuilder{failBefore: 2}
	locks := &mockLockReleaser{}

	job, lockID := newTestRebuildJob(t, task, tasks, projections, locks)

	err := job.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, JobStatusCompleted, job.Status())
	assert.Equal(t, 3, projections.rebuildCount())
	assert.Equal(t, []uuid.UUID{lockID}, locks.releasedIDs(),
		"lock must be released exactly once")
}

func TestRebuildJobPermanentFailure(t *testing.T) {
	task := testTask(t)
	tasks := &mockTaskReader{task: task}
	projections := &mockProjectionRebuilder{failBefore: 100}
	locks := &mockLockReleaser{}

	job, lockID := newTestRebuildJob(t, task, tasks, projections, locks)

	err := job.Execute(context.Background())
	require.Error(t, err)

	assert.Equal(t, JobStatusFailed, job.Status())
	assert.Equal(t, 3, projections.rebuildCount(), "attempts must stop at the budget")
	assert.Equal(t, []uuid.UUID{lockID}, locks.releasedIDs(),
		"lock must be released even when every attempt fails")
}

func TestRebuildJobTaskDeleted(t *testing.T) {
	task := testTask(t)
	tasks := &mockTaskReader{err: store.ErrTaskNotFound}
	projections := &mockProjectionRebuilder{}
	locks := &mockLockReleaser{}

	job, lockID := newTestRebuildJob(t, task, tasks, projections, locks)

	err := job.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, JobStatusCompleted, job.Status())
	assert.Equal(t, 0, projections.rebuildCount())
	assert.Equal(t, 1, projections.deleteCalls, "residual projection must be removed")
	assert.Equal(t, []uuid.UUID{lockID}, locks.releasedIDs())
}

func TestRebuildJobReleaseFailureSurfaces(t *testing.T) {
	task := testTask(t)
	tasks := &mockTaskReader{task: task}
	projections := &mockProjectionRebuilder{}
	locks := &mockLockReleaser{err: errors.New("connection reset")}

	job, _ := newTestRebuildJob(t, task, tasks, projections, locks)

	err := job.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to release availability lock")
}

func TestRebuildJobContextCancelled(t *testing.T) {
	task := testTask(t)
	tasks := &mockTaskReader{task: task}
	projections := &mockProjectionRebuilder{failBefore: 100}
	locks := &mockLockReleaser{}

	lockID := uuid.New()
	clock := clockwork.NewFakeClock()
	job, err := NewAvailabilityRebuildJob(
		task.ID, lockID, tasks, projections, locks,
		clock, RetryPolicy{MaxAttempts: 3, Backoff: time.Second}, testLogger(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- job.Execute(ctx)
	}()

	// Cancel while the job sits in its first backoff pause.
	clock.BlockUntil(1)
	cancel()

	select {
	case execErr := <-done:
		require.Error(t, execErr)
		assert.ErrorIs(t, execErr, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("job did not return after cancellation")
	}

	assert.Equal(t, []uuid.UUID{lockID}, locks.releasedIDs(),
		"lock must be released on cancellation too")
}

func TestNewAvailabilityRebuildJobValidation(t *testing.T) {
	task := testTask(t)
	tasks := &mockTaskReader{task: task}
	projections := &mockProjectionRebuilder{}
	locks := &mockLockReleaser{}
	clock := clockwork.NewRealClock()
	logger := testLogger()

	tests := []struct {
		name    string
		build   func() (*AvailabilityRebuildJob, error)
		wantErr error
	}{
		{
			name: "nil task reader",
			build: func() (*AvailabilityRebuildJob, error) {
				return NewAvailabilityRebuildJob(task.ID, uuid.New(), nil, projections, locks, clock, fastRetry(), logger)
			},
			wantErr: ErrNilTaskReader,
		},
		{
			name: "nil projections",
			build: func() (*AvailabilityRebuildJob, error) {
				return NewAvailabilityRebuildJob(task.ID, uuid.New(), tasks, nil, locks, clock, fastRetry(), logger)
			},
			wantErr: ErrNilProjections,
		},
		{
			name: "nil lock releaser",
			build: func() (*AvailabilityRebuildJob, error) {
				return NewAvailabilityRebuildJob(task.ID, uuid.New(), tasks, projections, nil, clock, fastRetry(), logger)
			},
			wantErr: ErrNilLockReleaser,
		},
		{
			name: "empty task ID",
			build: func() (*AvailabilityRebuildJob, error) {
				return NewAvailabilityRebuildJob(uuid.Nil, uuid.New(), tasks, projections, locks, clock, fastRetry(), logger)
			},
			wantErr: ErrEmptyTaskID,
		},
		{
			name: "empty lock ID",
			build: func() (*AvailabilityRebuildJob, error) {
				return NewAvailabilityRebuildJob(task.ID, uuid.Nil, tasks, projections, locks, clock, fastRetry(), logger)
			},
			wantErr: ErrEmptyLockID,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			job, err := tc.build()
			assert.Nil(t, job)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRebuildJobFactoryRoundTrip(t *testing.T) {
	task := testTask(t)
	factory := NewRebuildJobFactory(
		&mockTaskReader{task: task},
		&mockProjectionRebuilder{},
		&mockLockReleaser{},
		clockwork.NewRealClock(),
		fastRetry(),
		testLogger(),
	)

	original, err := factory.NewJob(task.ID, uuid.New())
	require.NoError(t, err)

	record := &JobRecord{
		ID:      original.ID(),
		Type:    original.Type(),
		Payload: original.Payload(),
		Status:  JobStatusPending,
	}

	rehydrated, err := factory.FromRecord(record)
	require.NoError(t, err)
	assert.Equal(t, original.ID(), rehydrated.ID(), "persisted identity must survive rehydration")
	assert.Equal(t, JobTypeAvailabilityRebuild, rehydrated.Type())
}

func TestRebuildJobFactoryRejectsUnknownType(t *testing.T) {
	factory := NewRebuildJobFactory(
		&mockTaskReader{},
		&mockProjectionRebuilder{},
		&mockLockReleaser{},
		clockwork.NewRealClock(),
		fastRetry(),
		testLogger(),
	)

	_, err := factory.FromRecord(&JobRecord{ID: uuid.New(), Type: "mystery", Payload: []byte(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job type")
}

func TestRebuildJobFactoryRejectsMalformedPayload(t *testing.T) {
	factory := NewRebuildJobFactory(
		&mockTaskReader{},
		&mockProjectionRebuilder{},
		&mockLockReleaser{},
		clockwork.NewRealClock(),
		fastRetry(),
		testLogger(),
	)

	_, err := factory.FromRecord(&JobRecord{
		ID:      uuid.New(),
		Type:    JobTypeAvailabilityRebuild,
		Payload: []byte(`not json`),
	})
	require.Error(t, err)
}
