package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/platform/logger"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// PostgresLockStore implements the store.LockStore interface using a
// PostgreSQL database as the storage backend. The unique constraint on
// user_id makes the INSERT the atomic arbiter between concurrent writers.
type PostgresLockStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLockStore creates a new PostgreSQL implementation of the
// LockStore interface.
func NewPostgresLockStore(db store.DBTX, log *slog.Logger) *PostgresLockStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresLockStore{
		db:     db,
		logger: log.With(slog.String("component", "lock_store")),
	}
}

// Ensure PostgresLockStore implements store.LockStore interface
var _ store.LockStore = (*PostgresLockStore)(nil)

// Insert implements store.LockStore.Insert. A unique violation on user_id
// means another writer holds the lock; it is reported as store.ErrLockHeld
// rather than a generic duplicate.
func (s *PostgresLockStore) Insert(ctx context.Context, lock *domain.AvailabilityLock) error {
	if err := lock.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO user_availability_locks (id, user_id, locked_at, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(ctx, query,
		lock.ID,
		lock.UserID,
		lock.LockedAt,
		lock.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: user %s", store.ErrLockHeld, lock.UserID)
		}
		return MapError(err)
	}

	return nil
}

// Exists implements store.LockStore.Exists
func (s *PostgresLockStore) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM user_availability_locks WHERE user_id = $1)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, MapError(err)
	}

	return exists, nil
}

// DeleteByID implements store.LockStore.DeleteByID. Deleting an absent row
// succeeds, which keeps release idempotent.
func (s *PostgresLockStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_availability_locks WHERE id = $1`, id); err != nil {
		log.Error("failed to delete lock row",
			"lock_id", id,
			"error", err)
		return MapError(err)
	}

	return nil
}

// DeleteLockedBefore implements store.LockStore.DeleteLockedBefore
func (s *PostgresLockStore) DeleteLockedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.deleteBefore(ctx, "locked_at", cutoff)
}

// DeleteCreatedBefore implements store.LockStore.DeleteCreatedBefore
func (s *PostgresLockStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.deleteBefore(ctx, "created_at", cutoff)
}

func (s *PostgresLockStore) deleteBefore(ctx context.Context, column string, cutoff time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	query := fmt.Sprintf(`DELETE FROM user_availability_locks WHERE %s < $1`, column)

	result, err := s.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		log.Error("failed to sweep lock rows",
			"column", column,
			"cutoff", cutoff,
			"error", err)
		return 0, MapError(err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return removed, nil
}
