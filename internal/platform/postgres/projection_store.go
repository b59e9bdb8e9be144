package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/platform/logger"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// PostgresProjectionStore implements the store.ProjectionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresProjectionStore struct {
	db store.DBTX

	// pool is retained when the store is constructed from a *sql.DB so that
	// Rebuild can open its own transaction. Nil when the store already runs
	// inside a caller-managed transaction.
	pool   *sql.DB
	logger *slog.Logger
}

// NewPostgresProjectionStore creates a new PostgreSQL implementation of the
// ProjectionStore interface.
func NewPostgresProjectionStore(db *sql.DB, log *slog.Logger) *PostgresProjectionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresProjectionStore{
		db:     db,
		pool:   db,
		logger: log.With(slog.String("component", "projection_store")),
	}
}

// Ensure PostgresProjectionStore implements store.ProjectionStore interface
var _ store.ProjectionStore = (*PostgresProjectionStore)(nil)

// WithTx implements store.ProjectionStore.WithTx
func (s *PostgresProjectionStore) WithTx(tx *sql.Tx) store.ProjectionStore {
	return &PostgresProjectionStore{
		db:     tx,
		logger: s.logger,
	}
}

// Rebuild implements store.ProjectionStore.Rebuild. The prior row for the
// task is deleted and a fresh one inserted in a single transaction, so
// re-running the rebuild always converges on one row per task.
func (s *PostgresProjectionStore) Rebuild(ctx context.Context, taskID, userID uuid.UUID, startDate, endDate time.Time) error {
	if s.pool != nil {
		return store.RunInTransaction(ctx, s.pool, func(ctx context.Context, tx *sql.Tx) error {
			return rebuildProjection(ctx, tx, taskID, userID, startDate, endDate)
		})
	}

	// Already inside a caller-managed transaction.
	return rebuildProjection(ctx, s.db, taskID, userID, startDate, endDate)
}

func rebuildProjection(ctx context.Context, db store.DBTX, taskID, userID uuid.UUID, startDate, endDate time.Time) error {
	log := logger.FromContext(ctx)

	if _, err := db.ExecContext(ctx, `DELETE FROM user_availabilities WHERE task_id = $1`, taskID); err != nil {
		log.Error("failed to delete prior projection row",
			"task_id", taskID,
			"error", err)
		return MapError(err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO user_availabilities (id, user_id, task_id, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := db.ExecContext(ctx, query,
		uuid.New(),
		userID,
		taskID,
		domain.NormalizeDate(startDate),
		domain.NormalizeDate(endDate),
		now,
		now,
	)
	if err != nil {
		log.Error("failed to insert projection row",
			"task_id", taskID,
			"user_id", userID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// DeleteByTask implements store.ProjectionStore.DeleteByTask
func (s *PostgresProjectionStore) DeleteByTask(ctx context.Context, taskID uuid.UUID) error {
	log := logger.FromContext(ctx)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_availabilities WHERE task_id = $1`, taskID); err != nil {
		log.Error("failed to delete projection row",
			"task_id", taskID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// FindByTask implements store.ProjectionStore.FindByTask
func (s *PostgresProjectionStore) FindByTask(ctx context.Context, taskID uuid.UUID) (*domain.AvailabilityProjection, error) {
	query := `
		SELECT id, user_id, task_id, start_date, end_date, created_at, updated_at
		FROM user_availabilities
		WHERE task_id = $1
	`

	projection, err := scanProjection(s.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrProjectionNotFound
		}
		return nil, MapError(err)
	}

	return projection, nil
}

// FindByUser implements store.ProjectionStore.FindByUser
func (s *PostgresProjectionStore) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.AvailabilityProjection, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, user_id, task_id, start_date, end_date, created_at, updated_at
		FROM user_availabilities
		WHERE user_id = $1
		ORDER BY start_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query projections for user",
			"user_id", userID,
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var projections []*domain.AvailabilityProjection
	for rows.Next() {
		projection, err := scanProjection(rows)
		if err != nil {
			return nil, MapError(err)
		}
		projections = append(projections, projection)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return projections, nil
}

// FindOverlapping implements store.ProjectionStore.FindOverlapping. Both
// interval boundaries are inclusive.
func (s *PostgresProjectionStore) FindOverlapping(
	ctx context.Context,
	userID uuid.UUID,
	startDate, endDate time.Time,
	excludeTaskID *uuid.UUID,
) (*domain.AvailabilityProjection, error) {
	query := `
		SELECT id, user_id, task_id, start_date, end_date, created_at, updated_at
		FROM user_availabilities
		WHERE user_id = $1
		  AND start_date <= $2
		  AND end_date >= $3
	`
	args := []interface{}{userID, domain.NormalizeDate(endDate), domain.NormalizeDate(startDate)}

	if excludeTaskID != nil {
		args = append(args, *excludeTaskID)
		query += " AND task_id <> $4"
	}

	query += " LIMIT 1"

	projection, err := scanProjection(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrProjectionNotFound
		}
		return nil, MapError(err)
	}

	return projection, nil
}

func scanProjection(row rowScanner) (*domain.AvailabilityProjection, error) {
	var p domain.AvailabilityProjection

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.TaskID,
		&p.StartDate,
		&p.EndDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.StartDate = domain.NormalizeDate(p.StartDate)
	p.EndDate = domain.NormalizeDate(p.EndDate)

	return &p, nil
}
