package repository

import (
	"context"
	"fmt"

	"github.com/propline/propline/models"
	"gorm.io/gorm"
)

// CycleRunRepositoryImpl implements CycleRunRepository interface
type CycleRunRepositoryImpl struct {
	*BaseRepository[models.CycleRun, models.CycleRunFilter]
}

// NewCycleRunRepository creates a new cycle run repository
func NewCycleRunRepository(db *gorm.DB) CycleRunRepository {
	return &CycleRunRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CycleRun, models.CycleRunFilter](db),
	}
}

// ListRecent retrieves ledger rows newest-first with pagination
func (r *CycleRunRepositoryImpl) ListRecent(ctx context.Context, limit, offset int) ([]*models.CycleRun, error) {
	db := r.getDB(ctx)

	var runs []*models.CycleRun
	err := db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent cycle runs: %w", err)
	}

	return runs, nil
}

// LastByCycle retrieves the newest ledger row for one cycle, or nil
func (r *CycleRunRepositoryImpl) LastByCycle(ctx context.Context, cycleNumber int) (*models.CycleRun, error) {
	rows, err := r.ByFilter(ctx, models.CycleRunFilter{CycleNumber: &cycleNumber}, "created_at DESC, id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *CycleRunRepositoryImpl) applyFilter(query *gorm.DB, filter models.CycleRunFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.CycleNumber != nil {
		query = query.Where("cycle_number = ?", *filter.CycleNumber)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves ledger rows based on filter criteria
func (r *CycleRunRepositoryImpl) ByFilter(ctx context.Context, filter models.CycleRunFilter, orderBy string, limit, offset int) ([]*models.CycleRun, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CycleRun{}), filter)

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

	var rows []*models.CycleRun
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of ledger rows matching the filter
func (r *CycleRunRepositoryImpl) Count(ctx context.Context, filter models.CycleRunFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CycleRun{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any ledger row matches the filter
func (r *CycleRunRepositoryImpl) Exists(ctx context.Context, filter models.CycleRunFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
