package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing is a property listing assigned to one of the three cycles. The
// rotation engine consumes listings only as "the active set belonging to a
// given cycle group".
type Listing struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_listings_uuid" json:"uuid"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Address    string    `gorm:"size:500;not null" json:"address"`
	Price      int64     `gorm:"not null" json:"price"`
	CycleGroup int       `gorm:"not null;index:idx_listings_cycle_group" json:"cycle_group"`
	IsActive   *bool     `gorm:"default:true;index:idx_listings_is_active" json:"is_active"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_listings_created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate ensures the UUID is set.
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	return nil
}

// ListingFilter represents filter criteria for listing queries
type ListingFilter struct {
	ID         *uint
	UUID       *uuid.UUID
	CycleGroup *int
	IsActive   *bool
}
