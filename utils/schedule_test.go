package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		expected int
	}{
		{"January", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), 31},
		{"February non-leap", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), 28},
		{"February leap", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 29},
		{"April", time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), 30},
		{"December", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysInMonth(tt.date))
		})
	}
}

func TestClampDayToMonth(t *testing.T) {
	feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	febLeap := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 28, ClampDayToMonth(feb, 31))
	assert.Equal(t, 29, ClampDayToMonth(febLeap, 31))
	assert.Equal(t, 15, ClampDayToMonth(feb, 15))
	assert.Equal(t, 31, ClampDayToMonth(jan, 31))
}

func TestNextOccurrenceOfDay(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		day      int
		expected time.Time
	}{
		{
			name:     "later this month",
			now:      time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
			day:      15,
			expected: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "same day rolls to next month",
			now:      time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
			day:      15,
			expected: time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "already passed this month",
			now:      time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC),
			day:      15,
			expected: time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "day 31 clamps to end of February",
			now:      time.Date(2025, 1, 31, 6, 0, 0, 0, time.UTC),
			day:      31,
			expected: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "day 31 clamps to leap February",
			now:      time.Date(2024, 1, 31, 6, 0, 0, 0, time.UTC),
			day:      31,
			expected: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "day 30 in February clamps",
			now:      time.Date(2025, 2, 1, 0, 0, 1, 0, time.UTC),
			day:      30,
			expected: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "year rollover",
			now:      time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC),
			day:      25,
			expected: time.Date(2026, 1, 25, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "non-UTC input is normalized",
			now:      time.Date(2025, 3, 10, 9, 30, 0, 0, time.FixedZone("IRST", 12600)),
			day:      15,
			expected: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrenceOfDay(tt.now, tt.day)
			assert.Equal(t, tt.expected, got)
			assert.True(t, got.After(tt.now.UTC()), "result must be strictly in the future")
		})
	}
}

func TestNextCycleNumber(t *testing.T) {
	assert.Equal(t, 2, NextCycleNumber(1))
	assert.Equal(t, 3, NextCycleNumber(2))
	assert.Equal(t, 1, NextCycleNumber(3))
}
