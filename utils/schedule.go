// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// DaysInMonth returns the number of days in the month containing t.
func DaysInMonth(t time.Time) int {
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// ClampDayToMonth clamps a configured day-of-month to the last valid day of
// the month containing t (e.g. day 30 in February becomes 28 or 29).
func ClampDayToMonth(t time.Time, day int) int {
	if last := DaysInMonth(t); day > last {
		return last
	}
	return day
}

// NextOccurrenceOfDay returns the next occurrence, strictly after now, of the
// given day-of-month at midnight UTC. When the occurrence in the current month
// is not strictly after now, the same day in the following month is used. The
// day is clamped to the month length in either case.
func NextOccurrenceOfDay(now time.Time, day int) time.Time {
	now = now.UTC()

	candidate := time.Date(now.Year(), now.Month(), ClampDayToMonth(now, day), 0, 0, 0, 0, time.UTC)
	if candidate.After(now) {
		return candidate
	}

	firstOfNext := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), ClampDayToMonth(firstOfNext, day), 0, 0, 0, 0, time.UTC)
}

// NextCycleNumber returns the cycle that follows current in the 1→2→3→1 order.
func NextCycleNumber(current int) int {
	return current%CycleCount + 1
}
