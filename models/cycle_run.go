package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// CycleRunStatus represents the outcome of one rotation attempt.
type CycleRunStatus string

const (
	CycleRunStatusSent   CycleRunStatus = "sent"
	CycleRunStatusFailed CycleRunStatus = "failed"
)

// Valid checks if the status is valid.
func (s CycleRunStatus) Valid() bool {
	switch s {
	case CycleRunStatusSent, CycleRunStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CycleRunStatus.
func (s *CycleRunStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CycleRunStatus(v)
	case []byte:
		*s = CycleRunStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CycleRunStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CycleRunStatus.
func (s CycleRunStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CycleRunStatus: %s", s)
	}
	return string(s), nil
}

// CycleRun is one append-only ledger row per rotation attempt, successful or
// failed. Rows are immutable once created.
type CycleRun struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CycleNumber    int            `gorm:"not null;index:idx_cycle_runs_cycle_number" json:"cycle_number"`
	ScheduledFor   time.Time      `gorm:"not null" json:"scheduled_for"`
	SentAt         time.Time      `gorm:"not null;index:idx_cycle_runs_sent_at" json:"sent_at"`
	Status         CycleRunStatus `gorm:"type:varchar(20);not null;index:idx_cycle_runs_status" json:"status"`
	Error          *string        `gorm:"type:text" json:"error,omitempty"`
	RecipientCount int            `gorm:"not null;default:0" json:"recipient_count"`
	SentCount      int            `gorm:"not null;default:0" json:"sent_count"`
	FailedCount    int            `gorm:"not null;default:0" json:"failed_count"`
	ChunkErrors    pq.StringArray `gorm:"type:text[]" json:"chunk_errors,omitempty"`
	CreatedAt      time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_cycle_runs_created_at" json:"created_at"`
}

func (CycleRun) TableName() string {
	return "cycle_runs"
}

// CycleRunFilter represents filter criteria for cycle run queries
type CycleRunFilter struct {
	ID            *uint
	CycleNumber   *int
	Status        *CycleRunStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
