package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a reconciliation job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job type constants
const (
	// JobTypeAvailabilityRebuild rebuilds a task's availability projection
	// row and releases the lock acquired by the write path.
	JobTypeAvailabilityRebuild = "availability_rebuild"
)

// Job represents a unit of asynchronous reconciliation work.
type Job interface {
	// ID returns the job's unique identifier
	ID() uuid.UUID

	// Type returns the job type identifier
	Type() string

	// Payload returns the job data as a byte slice
	Payload() []byte

	// Status returns the current job status
	Status() JobStatus

	// Execute runs the job logic
	Execute(ctx context.Context) error
}

// JobQueueReader provides read-only access to the job channel, allowing
// workers to consume jobs without the ability to enqueue.
type JobQueueReader interface {
	// GetChannel returns a read-only channel for consuming jobs
	GetChannel() <-chan Job
}

// JobStore defines the interface for persisting reconciliation jobs. The
// persisted rows make the queue recoverable across restarts: an instruction
// accepted before a crash is requeued on startup rather than lost.
type JobStore interface {
	// Save persists a job row
	Save(ctx context.Context, job Job) error

	// UpdateStatus updates the status of a job, recording an error message
	// for failed jobs
	UpdateStatus(ctx context.Context, jobID uuid.UUID, status JobStatus, errorMsg string) error

	// GetPending retrieves all jobs with "pending" status, oldest first
	GetPending(ctx context.Context) ([]*JobRecord, error)

	// GetProcessing retrieves jobs with "processing" status. If olderThan is
	// non-zero, only jobs that have been in that state longer than the
	// duration are returned.
	GetProcessing(ctx context.Context, olderThan time.Duration) ([]*JobRecord, error)

	// WithTx returns a new JobStore instance that uses the provided
	// transaction
	WithTx(tx *sql.Tx) JobStore
}

// JobRecord is the persisted form of a job, as loaded from the store.
// Recovered records are rehydrated into executable jobs by a JobFactory.
type JobRecord struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       JobStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobFactory rehydrates an executable Job from a persisted record.
type JobFactory interface {
	// FromRecord builds a runnable job from a stored row. Returns an error
	// if the record's type is unknown or its payload is malformed.
	FromRecord(record *JobRecord) (Job, error)
}
