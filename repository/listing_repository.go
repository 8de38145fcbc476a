package repository

import (
	"context"
	"fmt"

	"github.com/propline/propline/models"
	"github.com/propline/propline/utils"
	"gorm.io/gorm"
)

// ListingRepositoryImpl implements ListingRepository interface
type ListingRepositoryImpl struct {
	*BaseRepository[models.Listing, models.ListingFilter]
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &ListingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Listing, models.ListingFilter](db),
	}
}

// ListActiveByCycle retrieves the active listings of one cycle group
func (r *ListingRepositoryImpl) ListActiveByCycle(ctx context.Context, cycleGroup int) ([]*models.Listing, error) {
	db := r.getDB(ctx)

	var rows []*models.Listing
	err := db.Where("cycle_group = ? AND is_active = ?", cycleGroup, true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list listings for cycle %d: %w", cycleGroup, err)
	}
	return rows, nil
}

// Update persists changes to an existing listing
func (r *ListingRepositoryImpl) Update(ctx context.Context, listing *models.Listing) error {
	db := r.getDB(ctx)
	listing.UpdatedAt = utils.UTCNow()
	return db.Save(listing).Error
}

// Delete removes a listing row permanently
func (r *ListingRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	return db.Delete(&models.Listing{}, id).Error
}

func (r *ListingRepositoryImpl) applyFilter(query *gorm.DB, filter models.ListingFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CycleGroup != nil {
		query = query.Where("cycle_group = ?", *filter.CycleGroup)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves listings based on filter criteria
func (r *ListingRepositoryImpl) ByFilter(ctx context.Context, filter models.ListingFilter, orderBy string, limit, offset int) ([]*models.Listing, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Listing{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Listing
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of listings matching the filter
func (r *ListingRepositoryImpl) Count(ctx context.Context, filter models.ListingFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Listing{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any listing matches the filter
func (r *ListingRepositoryImpl) Exists(ctx context.Context, filter models.ListingFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
