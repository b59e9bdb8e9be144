package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/platform/logger"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// PostgresStatusStore implements the store.StatusStore interface
// using a PostgreSQL database as the storage backend. Statuses are seeded
// by migration; this store only reads them.
type PostgresStatusStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStatusStore creates a new PostgreSQL implementation of the
// StatusStore interface.
func NewPostgresStatusStore(db store.DBTX, log *slog.Logger) *PostgresStatusStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresStatusStore{
		db:     db,
		logger: log.With(slog.String("component", "status_store")),
	}
}

// Ensure PostgresStatusStore implements store.StatusStore interface
var _ store.StatusStore = (*PostgresStatusStore)(nil)

// List implements store.StatusStore.List
func (s *PostgresStatusStore) List(ctx context.Context) ([]*domain.TaskStatus, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, name, color, is_default, created_at, updated_at
		FROM task_statuses
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list task statuses", "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var statuses []*domain.TaskStatus
	for rows.Next() {
		var status domain.TaskStatus
		if err := rows.Scan(
			&status.ID,
			&status.Name,
			&status.Color,
			&status.IsDefault,
			&status.CreatedAt,
			&status.UpdatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		statuses = append(statuses, &status)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return statuses, nil
}

// GetByID implements store.StatusStore.GetByID
func (s *PostgresStatusStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskStatus, error) {
	query := `
		SELECT id, name, color, is_default, created_at, updated_at
		FROM task_statuses
		WHERE id = $1
	`

	var status domain.TaskStatus
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&status.ID,
		&status.Name,
		&status.Color,
		&status.IsDefault,
		&status.CreatedAt,
		&status.UpdatedAt,
	)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrStatusNotFound
		}
		return nil, MapError(err)
	}

	return &status, nil
}

// GetDefault implements store.StatusStore.GetDefault
func (s *PostgresStatusStore) GetDefault(ctx context.Context) (*domain.TaskStatus, error) {
	query := `
		SELECT id, name, color, is_default, created_at, updated_at
		FROM task_statuses
		WHERE is_default = TRUE
		LIMIT 1
	`

	var status domain.TaskStatus
	err := s.db.QueryRowContext(ctx, query).Scan(
		&status.ID,
		&status.Name,
		&status.Color,
		&status.IsDefault,
		&status.CreatedAt,
		&status.UpdatedAt,
	)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrStatusNotFound
		}
		return nil, MapError(err)
	}

	return &status, nil
}
