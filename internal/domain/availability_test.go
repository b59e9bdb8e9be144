package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalsOverlap(t *testing.T) {
	tests := []struct {
		name           string
		aStart, aEnd   time.Time
		bStart, bEnd   time.Time
		wantOverlap    bool
	}{
		{
			name:   "disjoint, a before b",
			aStart: date(2025, 1, 1), aEnd: date(2025, 1, 5),
			bStart: date(2025, 1, 7), bEnd: date(2025, 1, 10),
			wantOverlap: false,
		},
		{
			name:   "disjoint, a after b",
			aStart: date(2025, 2, 1), aEnd: date(2025, 2, 5),
			bStart: date(2025, 1, 7), bEnd: date(2025, 1, 10),
			wantOverlap: false,
		},
		{
			name:   "partial overlap",
			aStart: date(2025, 1, 10), aEnd: date(2025, 1, 15),
			bStart: date(2025, 1, 12), bEnd: date(2025, 1, 20),
			wantOverlap: true,
		},
		{
			name:   "b contained in a",
			aStart: date(2025, 1, 1), aEnd: date(2025, 1, 31),
			bStart: date(2025, 1, 10), bEnd: date(2025, 1, 12),
			wantOverlap: true,
		},
		{
			name:   "shared boundary day counts as overlap",
			aStart: date(2025, 1, 1), aEnd: date(2025, 1, 5),
			bStart: date(2025, 1, 5), bEnd: date(2025, 1, 9),
			wantOverlap: true,
		},
		{
			name:   "identical intervals",
			aStart: date(2025, 1, 1), aEnd: date(2025, 1, 5),
			bStart: date(2025, 1, 1), bEnd: date(2025, 1, 5),
			wantOverlap: true,
		},
		{
			name:   "single day equal",
			aStart: date(2025, 1, 3), aEnd: date(2025, 1, 3),
			bStart: date(2025, 1, 3), bEnd: date(2025, 1, 3),
			wantOverlap: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntervalsOverlap(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd)
			assert.Equal(t, tt.wantOverlap, got)

			// overlap is symmetric
			assert.Equal(t, tt.wantOverlap, IntervalsOverlap(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))
		})
	}
}

func TestNewAvailabilityProjection(t *testing.T) {
	task, err := NewTask("Audit", "", uuid.New(), uuid.New(), date(2025, 1, 10), date(2025, 1, 15))
	require.NoError(t, err)

	p, err := NewAvailabilityProjection(task)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, task.ID, p.TaskID)
	assert.Equal(t, task.UserID, p.UserID)
	assert.Equal(t, task.StartDate, p.StartDate)
	assert.Equal(t, task.EndDate, p.EndDate)
}

func TestUnavailableCheck(t *testing.T) {
	conflict := AvailabilityConflict{
		TaskID:    uuid.New(),
		TaskTitle: "Audit",
		StartDate: date(2025, 1, 10),
		EndDate:   date(2025, 1, 15),
	}

	check := UnavailableCheck(conflict)
	assert.False(t, check.Available)
	require.NotNil(t, check.Conflict)
	assert.Equal(t, conflict.TaskID, check.Conflict.TaskID)
	assert.Contains(t, check.Message, `"Audit"`)
	assert.Contains(t, check.Message, "Jan 10, 2025")
}

func TestAvailableCheck(t *testing.T) {
	check := AvailableCheck()
	assert.True(t, check.Available)
	assert.Nil(t, check.Conflict)
}
