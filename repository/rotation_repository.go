package repository

import (
	"context"
	"time"

	"github.com/propline/propline/models"
	"github.com/propline/propline/utils"
	"gorm.io/gorm"
)

// RotationConfigRepositoryImpl implements RotationConfigRepository interface
type RotationConfigRepositoryImpl struct {
	*BaseRepository[models.CycleRotationConfig, models.CycleRotationConfigFilter]
}

// NewRotationConfigRepository creates a new rotation config repository
func NewRotationConfigRepository(db *gorm.DB) RotationConfigRepository {
	return &RotationConfigRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CycleRotationConfig, models.CycleRotationConfigFilter](db),
	}
}

// ListAll retrieves all schedule rows ordered by cycle number
func (r *RotationConfigRepositoryImpl) ListAll(ctx context.Context) ([]*models.CycleRotationConfig, error) {
	db := r.getDB(ctx)

	var rows []*models.CycleRotationConfig
	if err := db.Order("cycle_number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ByCycleNumber retrieves the schedule row for one cycle
func (r *RotationConfigRepositoryImpl) ByCycleNumber(ctx context.Context, cycleNumber int) (*models.CycleRotationConfig, error) {
	rows, err := r.ByFilter(ctx, models.CycleRotationConfigFilter{CycleNumber: &cycleNumber}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// UpdateSchedule updates the day-of-month (and optional description) for one cycle
func (r *RotationConfigRepositoryImpl) UpdateSchedule(ctx context.Context, cycleNumber, dayOfMonth int, description *string) error {
	db := r.getDB(ctx)

	updates := map[string]any{
		"day_of_month": dayOfMonth,
		"updated_at":   utils.UTCNow(),
	}
	if description != nil {
		updates["description"] = *description
	}
	return db.Model(&models.CycleRotationConfig{}).
		Where("cycle_number = ?", cycleNumber).
		Updates(updates).Error
}

func (r *RotationConfigRepositoryImpl) applyFilter(query *gorm.DB, filter models.CycleRotationConfigFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.CycleNumber != nil {
		query = query.Where("cycle_number = ?", *filter.CycleNumber)
	}
	return query
}

// ByFilter retrieves schedule rows based on filter criteria
func (r *RotationConfigRepositoryImpl) ByFilter(ctx context.Context, filter models.CycleRotationConfigFilter, orderBy string, limit, offset int) ([]*models.CycleRotationConfig, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CycleRotationConfig{}), filter)

	if orderBy == "" {
		orderBy = "cycle_number ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.CycleRotationConfig
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of schedule rows matching the filter
func (r *RotationConfigRepositoryImpl) Count(ctx context.Context, filter models.CycleRotationConfigFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CycleRotationConfig{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any schedule row matches the filter
func (r *RotationConfigRepositoryImpl) Exists(ctx context.Context, filter models.CycleRotationConfigFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// RotationStateRepositoryImpl implements RotationStateRepository interface
type RotationStateRepositoryImpl struct {
	*BaseRepository[models.CycleRotationState, models.CycleRotationStateFilter]
}

// NewRotationStateRepository creates a new rotation state repository
func NewRotationStateRepository(db *gorm.DB) RotationStateRepository {
	return &RotationStateRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CycleRotationState, models.CycleRotationStateFilter](db),
	}
}

// Get retrieves the rotation singleton, or nil when none exists yet
func (r *RotationStateRepositoryImpl) Get(ctx context.Context) (*models.CycleRotationState, error) {
	rows, err := r.ByFilter(ctx, models.CycleRotationStateFilter{}, "id ASC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Advance applies the rotation transition as a conditional update: the write
// only lands when next_run_at still holds the value the caller read, so two
// concurrent triggers can never both advance the same due window.
func (r *RotationStateRepositoryImpl) Advance(ctx context.Context, stateID uint, prevNextRunAt time.Time, nextCycle int, nextRunAt time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.CycleRotationState{}).
		Where("id = ? AND next_run_at = ?", stateID, prevNextRunAt).
		Updates(map[string]any{
			"current_cycle": nextCycle,
			"next_run_at":   nextRunAt,
			"updated_at":    utils.UTCNow(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *RotationStateRepositoryImpl) applyFilter(query *gorm.DB, filter models.CycleRotationStateFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.CurrentCycle != nil {
		query = query.Where("current_cycle = ?", *filter.CurrentCycle)
	}
	return query
}

// ByFilter retrieves rotation state rows based on filter criteria
func (r *RotationStateRepositoryImpl) ByFilter(ctx context.Context, filter models.CycleRotationStateFilter, orderBy string, limit, offset int) ([]*models.CycleRotationState, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CycleRotationState{}), filter)

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

	var rows []*models.CycleRotationState
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of rotation state rows matching the filter
func (r *RotationStateRepositoryImpl) Count(ctx context.Context, filter models.CycleRotationStateFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CycleRotationState{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any rotation state row matches the filter
func (r *RotationStateRepositoryImpl) Exists(ctx context.Context, filter models.CycleRotationStateFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
