package models

import (
	"time"
)

// BatchRecipient is one entry of the manual bulk-send list. Rows carry a
// stable id plus a monotonically assigned position ordering key; batch N is
// the slice of rows ordered by position at offset (N-1)*500. Deleting a row
// compacts the positions of all subsequent rows so batch membership stays a
// pure function of ordering. Position carries a plain index, not a unique
// one: the single-statement compaction rewrites rows in heap order, which
// would trip a non-deferrable unique check mid-update.
type BatchRecipient struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Name      *string   `gorm:"size:255" json:"name,omitempty"`
	Position  int64     `gorm:"not null;index:idx_batch_recipients_position" json:"position"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (BatchRecipient) TableName() string {
	return "batch_recipients"
}

// BatchRecipientFilter represents filter criteria for batch recipient queries
type BatchRecipientFilter struct {
	ID    *uint
	Email *string
}
