package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/jobs"
	"github.com/pmorneau/taskboard-api/internal/platform/logger"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// PostgresJobStore implements the jobs.JobStore interface using a
// PostgreSQL database as the storage backend. Persisted rows make the
// reconciliation queue recoverable across restarts.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the
// JobStore interface.
func NewPostgresJobStore(db store.DBTX, log *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: log.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements jobs.JobStore interface
var _ jobs.JobStore = (*PostgresJobStore)(nil)

// WithTx implements jobs.JobStore.WithTx
func (s *PostgresJobStore) WithTx(tx *sql.Tx) jobs.JobStore {
	return &PostgresJobStore{
		db:     tx,
		logger: s.logger,
	}
}

// Save implements jobs.JobStore.Save
func (s *PostgresJobStore) Save(ctx context.Context, job jobs.Job) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO availability_jobs (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, query,
		job.ID(),
		job.Type(),
		job.Payload(),
		job.Status(),
		now,
		now,
	)
	if err != nil {
		log.Error("failed to save job",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"error", err)
		return MapError(err)
	}

	return nil
}

// UpdateStatus implements jobs.JobStore.UpdateStatus. Updating a missing
// row is a no-op: the job may have been swept or the row removed manually,
// and a status write must never fail the worker for that.
func (s *PostgresJobStore) UpdateStatus(ctx context.Context, jobID uuid.UUID, status jobs.JobStatus, errorMsg string) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE availability_jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		status,
		errorMsg,
		time.Now().UTC(),
		jobID,
	)
	if err != nil {
		log.Error("failed to update job status",
			"job_id", jobID,
			"status", status,
			"error", err)
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}

	if rowsAffected == 0 {
		log.Warn("no job row found to update status", "job_id", jobID)
	}

	return nil
}

// GetPending implements jobs.JobStore.GetPending
func (s *PostgresJobStore) GetPending(ctx context.Context) ([]*jobs.JobRecord, error) {
	return s.getByStatus(ctx, jobs.JobStatusPending, 0)
}

// GetProcessing implements jobs.JobStore.GetProcessing
func (s *PostgresJobStore) GetProcessing(ctx context.Context, olderThan time.Duration) ([]*jobs.JobRecord, error) {
	return s.getByStatus(ctx, jobs.JobStatusProcessing, olderThan)
}

func (s *PostgresJobStore) getByStatus(ctx context.Context, status jobs.JobStatus, olderThan time.Duration) ([]*jobs.JobRecord, error) {
	log := logger.FromContext(ctx)

	var query string
	var args []interface{}

	if olderThan > 0 {
		query = `
			SELECT id, type, payload, status, error_message, created_at, updated_at
			FROM availability_jobs
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []interface{}{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT id, type, payload, status, error_message, created_at, updated_at
			FROM availability_jobs
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []interface{}{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs by status",
			"status", status,
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []*jobs.JobRecord
	for rows.Next() {
		var record jobs.JobRecord
		var errorMessage sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.Type,
			&record.Payload,
			&record.Status,
			&errorMessage,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, MapError(err)
		}

		record.ErrorMessage = errorMessage.String
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return records, nil
}
