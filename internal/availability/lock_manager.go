package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/metrics"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// LockManagerConfig tunes acquisition waits and sweep thresholds.
type LockManagerConfig struct {
	// WaitAttempts is the number of acquisition polls before WaitAcquire
	// surfaces ErrLockTimeout
	WaitAttempts int

	// WaitInterval is the pause between acquisition polls
	WaitInterval time.Duration

	// StaleAfter is the age past which a held lock is considered abandoned
	StaleAfter time.Duration

	// RetainFor is the retention window for the last-resort old-lock sweep
	RetainFor time.Duration
}

// DefaultLockManagerConfig returns the standard lock policy: three polls one
// second apart, stale reclaim after five minutes, last-resort cleanup after
// a week.
func DefaultLockManagerConfig() LockManagerConfig {
	return LockManagerConfig{
		WaitAttempts: 3,
		WaitInterval: time.Second,
		StaleAfter:   5 * time.Minute,
		RetainFor:    7 * 24 * time.Hour,
	}
}

// LockManager enforces per-user mutual exclusion over schedule writes using
// a durable lock table shared by every process. A lock key moves between
// exactly two states, free and locked: acquisition inserts a row and treats
// the unique-constraint violation as "busy" (the insert is the atomic
// arbiter, never a read-then-write), and release deletes the row so the key
// is immediately acquirable again.
type LockManager struct {
	locks  store.LockStore
	clock  clockwork.Clock
	config LockManagerConfig
	logger *slog.Logger
}

// NewLockManager creates a LockManager backed by the given lock store.
func NewLockManager(
	locks store.LockStore,
	clock clockwork.Clock,
	config LockManagerConfig,
	logger *slog.Logger,
) *LockManager {
	defaults := DefaultLockManagerConfig()
	if config.WaitAttempts <= 0 {
		config.WaitAttempts = defaults.WaitAttempts
	}
	if config.WaitInterval <= 0 {
		config.WaitInterval = defaults.WaitInterval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = defaults.StaleAfter
	}
	if config.RetainFor <= 0 {
		config.RetainFor = defaults.RetainFor
	}

	return &LockManager{
		locks:  locks,
		clock:  clock,
		config: config,
		logger: logger.With("component", "lock_manager"),
	}
}

// TryAcquire attempts to acquire the user's availability lock with a single
// atomic insert. Returns ErrLocked if another writer holds it.
func (m *LockManager) TryAcquire(ctx context.Context, userID uuid.UUID) (*domain.AvailabilityLock, error) {
	lock, err := domain.NewAvailabilityLock(userID, m.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to build lock ticket: %w", err)
	}

	if err := m.locks.Insert(ctx, lock); err != nil {
		if errors.Is(err, store.ErrLockHeld) {
			metrics.RecordLockAcquisition(metrics.LockOutcomeBusy)
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to insert lock row: %w", err)
	}

	metrics.RecordLockAcquisition(metrics.LockOutcomeAcquired)
	m.logger.Debug("availability lock acquired",
		"lock_id", lock.ID,
		"user_id", userID)
	return lock, nil
}

// WaitAcquire polls for the lock to become free and acquires it, giving up
// with ErrLockTimeout after the configured attempt budget. This is advisory
// spin-polling rather than blocking on a condition variable because the lock
// state lives in shared durable storage and must be visible across
// processes. The wait is bounded to seconds and honors context
// cancellation; it never blocks indefinitely.
func (m *LockManager) WaitAcquire(ctx context.Context, userID uuid.UUID) (*domain.AvailabilityLock, error) {
	for attempt := 1; attempt <= m.config.WaitAttempts; attempt++ {
		held, err := m.locks.Exists(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check lock state: %w", err)
		}

		if !held {
			lock, err := m.TryAcquire(ctx, userID)
			if err == nil {
				return lock, nil
			}
			if !errors.Is(err, ErrLocked) {
				return nil, err
			}
			// Lost the race to another writer between the poll and the
			// insert; keep waiting.
		}

		if attempt < m.config.WaitAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-m.clock.After(m.config.WaitInterval):
			}
		}
	}

	metrics.RecordLockAcquisition(metrics.LockOutcomeTimeout)
	m.logger.Warn("timed out waiting for availability lock",
		"user_id", userID,
		"attempts", m.config.WaitAttempts)
	return nil, ErrLockTimeout
}

// IsLocked reports whether an active lock exists for the user.
func (m *LockManager) IsLocked(ctx context.Context, userID uuid.UUID) (bool, error) {
	return m.locks.Exists(ctx, userID)
}

// Release deletes the lock row. Releasing an already-released lock is a
// no-op: both the success and failure paths of the reconciliation worker
// call it, and a double release must never remove a newer lock acquired for
// the same user afterwards (rows are addressed by ID, not by key).
func (m *LockManager) Release(ctx context.Context, lockID uuid.UUID) error {
	if err := m.locks.DeleteByID(ctx, lockID); err != nil {
		return fmt.Errorf("failed to delete lock row: %w", err)
	}

	m.logger.Debug("availability lock released", "lock_id", lockID)
	return nil
}

// SweepStale deletes locks held longer than the staleness threshold,
// recovering from holders that crashed without releasing. Returns the
// number of rows removed.
func (m *LockManager) SweepStale(ctx context.Context) (int64, error) {
	cutoff := m.clock.Now().Add(-m.config.StaleAfter)

	removed, err := m.locks.DeleteLockedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale locks: %w", err)
	}

	metrics.RecordLocksSwept(metrics.SweepKindStale, removed)
	if removed > 0 {
		m.logger.Info("swept stale availability locks", "removed", removed)
	}
	return removed, nil
}

// SweepOld deletes any lock rows older than the retention window,
// independent of state. Since release deletes rows outright this mostly
// catches edge cases that survived the stale sweep. Returns the number of
// rows removed.
func (m *LockManager) SweepOld(ctx context.Context) (int64, error) {
	cutoff := m.clock.Now().Add(-m.config.RetainFor)

	removed, err := m.locks.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep old locks: %w", err)
	}

	metrics.RecordLocksSwept(metrics.SweepKindOld, removed)
	if removed > 0 {
		m.logger.Info("swept old availability locks", "removed", removed)
	}
	return removed, nil
}
