package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for AvailabilityLock
var (
	ErrEmptyLockID     = errors.New("lock ID cannot be empty")
	ErrEmptyLockUserID = errors.New("lock user ID cannot be empty")
	ErrZeroLockedAt    = errors.New("lock locked-at timestamp cannot be zero")
)

// AvailabilityLock is the durable mutual-exclusion ticket for a user's
// schedule. Acquisition is an insert that fails on the unique (user_id)
// constraint; the insert itself is the atomic arbiter, never a prior read.
// Release deletes the row outright so a fresh lock can be acquired
// immediately. Rows whose holder crashed are reclaimed by age-based sweeps.
type AvailabilityLock struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	LockedAt  time.Time `json:"locked_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAvailabilityLock creates a lock ticket for the given user. The caller
// supplies "now" so lock timestamps come from an injectable clock.
func NewAvailabilityLock(userID uuid.UUID, now time.Time) (*AvailabilityLock, error) {
	lock := &AvailabilityLock{
		ID:        uuid.New(),
		UserID:    userID,
		LockedAt:  now.UTC(),
		CreatedAt: now.UTC(),
	}

	if err := lock.Validate(); err != nil {
		return nil, err
	}

	return lock, nil
}

// Validate checks if the AvailabilityLock has valid data.
func (l *AvailabilityLock) Validate() error {
	if l.ID == uuid.Nil {
		return ErrEmptyLockID
	}

	if l.UserID == uuid.Nil {
		return ErrEmptyLockUserID
	}

	if l.LockedAt.IsZero() {
		return ErrZeroLockedAt
	}

	return nil
}
