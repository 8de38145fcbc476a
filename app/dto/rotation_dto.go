package dto

import "time"

// RotationConfigDTO describes one cycle's schedule
type RotationConfigDTO struct {
	CycleNumber int     `json:"cycle_number" example:"1"`
	DayOfMonth  int     `json:"day_of_month" example:"15"`
	Description *string `json:"description,omitempty" example:"Mid-month distribution"`
	UpdatedAt   string  `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// RotationStateDTO describes the current position of the rotation
type RotationStateDTO struct {
	CurrentCycle int       `json:"current_cycle" example:"2"`
	NextRunAt    time.Time `json:"next_run_at" example:"2024-02-15T00:00:00Z"`
	UpdatedAt    string    `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// UpdateScheduleRequest updates the day of month for one cycle
type UpdateScheduleRequest struct {
	CycleNumber int     `json:"cycle_number" validate:"required,min=1,max=3"`
	DayOfMonth  int     `json:"day_of_month" validate:"required,min=1,max=31"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=255"`
}

// RotationSkippedData is returned when a trigger fires before the scheduled time
type RotationSkippedData struct {
	CurrentCycle int       `json:"current_cycle" example:"2"`
	NextRunAt    time.Time `json:"next_run_at" example:"2024-02-15T00:00:00Z"`
}

// RotationSentData is returned after a cycle distribution completes
type RotationSentData struct {
	CycleNumber    int       `json:"cycle_number" example:"2"`
	RecipientCount int       `json:"recipient_count" example:"1250"`
	SentCount      int       `json:"sent_count" example:"1250"`
	FailedCount    int       `json:"failed_count" example:"0"`
	NextCycle      int       `json:"next_cycle" example:"3"`
	NextRunAt      time.Time `json:"next_run_at" example:"2024-02-25T00:00:00Z"`
}

// CycleRunDTO is one row of the run ledger
type CycleRunDTO struct {
	ID             uint      `json:"id" example:"42"`
	CycleNumber    int       `json:"cycle_number" example:"2"`
	ScheduledFor   time.Time `json:"scheduled_for" example:"2024-02-15T00:00:00Z"`
	SentAt         time.Time `json:"sent_at" example:"2024-02-15T00:00:03Z"`
	Status         string    `json:"status" example:"sent"`
	Error          *string   `json:"error,omitempty"`
	RecipientCount int       `json:"recipient_count" example:"1250"`
	SentCount      int       `json:"sent_count" example:"1250"`
	FailedCount    int       `json:"failed_count" example:"0"`
	ChunkErrors    []string  `json:"chunk_errors,omitempty"`
	CreatedAt      string    `json:"created_at" example:"2024-02-15T00:00:03Z"`
}

// ListCycleRunsRequest pages through the run ledger, newest first
type ListCycleRunsRequest struct {
	Page     int `query:"page" validate:"omitempty,min=1"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=200"`
}
