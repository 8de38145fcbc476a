package repository

import (
	"context"
	"fmt"

	"github.com/propline/propline/models"
	"github.com/propline/propline/utils"
	"gorm.io/gorm"
)

// EmailRecipientRepositoryImpl implements EmailRecipientRepository interface
type EmailRecipientRepositoryImpl struct {
	*BaseRepository[models.EmailRecipient, models.EmailRecipientFilter]
}

// NewEmailRecipientRepository creates a new email recipient repository
func NewEmailRecipientRepository(db *gorm.DB) EmailRecipientRepository {
	return &EmailRecipientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.EmailRecipient, models.EmailRecipientFilter](db),
	}
}

// ByEmail retrieves a recipient by email address
func (r *EmailRecipientRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.EmailRecipient, error) {
	rows, err := r.ByFilter(ctx, models.EmailRecipientFilter{Email: &email}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListActive retrieves all active recipients ordered by id
func (r *EmailRecipientRepositoryImpl) ListActive(ctx context.Context) ([]*models.EmailRecipient, error) {
	db := r.getDB(ctx)

	var rows []*models.EmailRecipient
	err := db.Where("is_active = ?", true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active recipients: %w", err)
	}
	return rows, nil
}

// Update persists changes to an existing recipient
func (r *EmailRecipientRepositoryImpl) Update(ctx context.Context, recipient *models.EmailRecipient) error {
	db := r.getDB(ctx)
	recipient.UpdatedAt = utils.UTCNow()
	return db.Save(recipient).Error
}

// Delete removes a recipient row permanently
func (r *EmailRecipientRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	return db.Delete(&models.EmailRecipient{}, id).Error
}

func (r *EmailRecipientRepositoryImpl) applyFilter(query *gorm.DB, filter models.EmailRecipientFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		query = query.Where("email = ?", *filter.Email)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves recipients based on filter criteria
func (r *EmailRecipientRepositoryImpl) ByFilter(ctx context.Context, filter models.EmailRecipientFilter, orderBy string, limit, offset int) ([]*models.EmailRecipient, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.EmailRecipient{}), filter)

	if orderBy == "" {
		orderBy = "id ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.EmailRecipient
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of recipients matching the filter
func (r *EmailRecipientRepositoryImpl) Count(ctx context.Context, filter models.EmailRecipientFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.EmailRecipient{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any recipient matches the filter
func (r *EmailRecipientRepositoryImpl) Exists(ctx context.Context, filter models.EmailRecipientFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
