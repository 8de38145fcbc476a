// Package models contains domain entities and business models for the back office
package models

import (
	"time"
)

// Default day-of-month schedule for the three cycles
const (
	DefaultCycleOneDay   = 1
	DefaultCycleTwoDay   = 15
	DefaultCycleThreeDay = 25
)

// CycleRotationConfig holds the day-of-month schedule for one cycle. There is
// exactly one row per cycle number; rows are seeded lazily with the defaults.
type CycleRotationConfig struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CycleNumber int       `gorm:"not null;uniqueIndex:uk_cycle_rotation_config_cycle" json:"cycle_number"`
	DayOfMonth  int       `gorm:"not null" json:"day_of_month"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (CycleRotationConfig) TableName() string {
	return "cycle_rotation_config"
}

// CycleRotationConfigFilter represents filter criteria for rotation config queries
type CycleRotationConfigFilter struct {
	ID          *uint
	CycleNumber *int
}

// CycleRotationState is the rotation singleton: which cycle fires next and
// when. NextRunAt is always the next occurrence, strictly in the future at the
// time it was computed, of the current cycle's configured day. Mutated only by
// the rotation advance, which is a conditional update on NextRunAt.
type CycleRotationState struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CurrentCycle int       `gorm:"not null" json:"current_cycle"`
	NextRunAt    time.Time `gorm:"not null;index:idx_cycle_rotation_state_next_run_at" json:"next_run_at"`
	CreatedAt    time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (CycleRotationState) TableName() string {
	return "cycle_rotation_state"
}

// Due reports whether the rotation is due at the given instant.
func (s *CycleRotationState) Due(now time.Time) bool {
	return !now.Before(s.NextRunAt)
}

// CycleRotationStateFilter represents filter criteria for rotation state queries
type CycleRotationStateFilter struct {
	ID           *uint
	CurrentCycle *int
}
