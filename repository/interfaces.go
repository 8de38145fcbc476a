// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/propline/propline/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// RotationConfigRepository defines operations for the per-cycle schedule rows
type RotationConfigRepository interface {
	Repository[models.CycleRotationConfig, models.CycleRotationConfigFilter]
	ListAll(ctx context.Context) ([]*models.CycleRotationConfig, error)
	ByCycleNumber(ctx context.Context, cycleNumber int) (*models.CycleRotationConfig, error)
	UpdateSchedule(ctx context.Context, cycleNumber, dayOfMonth int, description *string) error
}

// RotationStateRepository defines operations for the rotation singleton
type RotationStateRepository interface {
	Repository[models.CycleRotationState, models.CycleRotationStateFilter]
	Get(ctx context.Context) (*models.CycleRotationState, error)
	// Advance moves the singleton to the next cycle, but only when NextRunAt
	// still equals prevNextRunAt (compare-and-swap). It reports whether the
	// update was applied; false means a concurrent trigger advanced first.
	Advance(ctx context.Context, stateID uint, prevNextRunAt time.Time, nextCycle int, nextRunAt time.Time) (bool, error)
}

// CycleRunRepository defines operations for the append-only run ledger
type CycleRunRepository interface {
	Repository[models.CycleRun, models.CycleRunFilter]
	ListRecent(ctx context.Context, limit, offset int) ([]*models.CycleRun, error)
	LastByCycle(ctx context.Context, cycleNumber int) (*models.CycleRun, error)
}

// EmailRecipientRepository defines operations for the managed distribution list
type EmailRecipientRepository interface {
	Repository[models.EmailRecipient, models.EmailRecipientFilter]
	ByEmail(ctx context.Context, email string) (*models.EmailRecipient, error)
	ListActive(ctx context.Context) ([]*models.EmailRecipient, error)
	Update(ctx context.Context, recipient *models.EmailRecipient) error
	Delete(ctx context.Context, id uint) error
}

// BatchRecipientRepository defines operations for the manual bulk-send list.
// Rows are ordered by a stable position key; batch N is the slice of rows at
// offset (N-1)*size.
type BatchRecipientRepository interface {
	Repository[models.BatchRecipient, models.BatchRecipientFilter]
	Append(ctx context.Context, recipient *models.BatchRecipient) error
	ListBatch(ctx context.Context, batchNumber, batchSize int) ([]*models.BatchRecipient, error)
	Update(ctx context.Context, recipient *models.BatchRecipient) error
	// Remove deletes one row and compacts the positions of all subsequent rows.
	Remove(ctx context.Context, id uint) error
	Total(ctx context.Context) (int64, error)
}

// ListingRepository defines operations for property listings
type ListingRepository interface {
	Repository[models.Listing, models.ListingFilter]
	ListActiveByCycle(ctx context.Context, cycleGroup int) ([]*models.Listing, error)
	Update(ctx context.Context, listing *models.Listing) error
	Delete(ctx context.Context, id uint) error
}

// AdminRepository defines operations for back-office accounts
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, adminID uint, at time.Time) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByAdmin(ctx context.Context, adminID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
