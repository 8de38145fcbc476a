package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmailRecipient is one member of the managed distribution list for scheduled
// cycle sends. Deactivation is a soft delete: the row keeps its identity and
// can be reactivated later.
type EmailRecipient struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_email_recipients_uuid" json:"uuid"`
	Email     string    `gorm:"size:255;not null;uniqueIndex:uk_email_recipients_email" json:"email"`
	Name      *string   `gorm:"size:255" json:"name,omitempty"`
	IsActive  *bool     `gorm:"default:true;index:idx_email_recipients_is_active" json:"is_active"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (EmailRecipient) TableName() string {
	return "email_recipients"
}

// BeforeCreate ensures the UUID is set.
func (r *EmailRecipient) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	return nil
}

// EmailRecipientFilter represents filter criteria for recipient queries
type EmailRecipientFilter struct {
	ID       *uint
	UUID     *uuid.UUID
	Email    *string
	IsActive *bool
}
