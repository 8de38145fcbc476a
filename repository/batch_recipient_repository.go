package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/propline/propline/models"
	"github.com/propline/propline/utils"
	"gorm.io/gorm"
)

// ErrBatchRecipientNotFound is returned for update/delete against an unknown row
var ErrBatchRecipientNotFound = errors.New("batch recipient not found")

// BatchRecipientRepositoryImpl implements BatchRecipientRepository interface
type BatchRecipientRepositoryImpl struct {
	*BaseRepository[models.BatchRecipient, models.BatchRecipientFilter]
}

// NewBatchRecipientRepository creates a new batch recipient repository
func NewBatchRecipientRepository(db *gorm.DB) BatchRecipientRepository {
	return &BatchRecipientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BatchRecipient, models.BatchRecipientFilter](db),
	}
}

// Append inserts a new row at the end of the ordering inside one transaction
func (r *BatchRecipientRepositoryImpl) Append(ctx context.Context, recipient *models.BatchRecipient) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	var maxPos *int64
	if err = db.Model(&models.BatchRecipient{}).Select("MAX(position)").Scan(&maxPos).Error; err != nil {
		return fmt.Errorf("failed to read max position: %w", err)
	}
	recipient.Position = 0
	if maxPos != nil {
		recipient.Position = *maxPos + 1
	}

	if err = db.Create(recipient).Error; err != nil {
		return fmt.Errorf("failed to append batch recipient: %w", err)
	}
	return nil
}

// ListBatch retrieves the rows of one manual batch, ordered by position.
// Batch numbers start at 1; batch N covers positions [(N-1)*size, N*size).
func (r *BatchRecipientRepositoryImpl) ListBatch(ctx context.Context, batchNumber, batchSize int) ([]*models.BatchRecipient, error) {
	if batchNumber < 1 {
		return nil, fmt.Errorf("batch number must be at least 1, got %d", batchNumber)
	}
	db := r.getDB(ctx)

	var rows []*models.BatchRecipient
	err := db.Order("position ASC").
		Limit(batchSize).
		Offset((batchNumber - 1) * batchSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list batch %d: %w", batchNumber, err)
	}
	return rows, nil
}

// Update persists changes to one row; the position key is never modified here
func (r *BatchRecipientRepositoryImpl) Update(ctx context.Context, recipient *models.BatchRecipient) error {
	db := r.getDB(ctx)

	res := db.Model(&models.BatchRecipient{}).
		Where("id = ?", recipient.ID).
		Updates(map[string]any{
			"email":      recipient.Email,
			"name":       recipient.Name,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBatchRecipientNotFound
	}
	return nil
}

// Remove deletes one row and compacts the positions of all subsequent rows so
// batch membership stays contiguous. Runs in a single transaction.
func (r *BatchRecipientRepositoryImpl) Remove(ctx context.Context, id uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	var row models.BatchRecipient
	if err = db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrBatchRecipientNotFound
		}
		return err
	}

	if err = db.Delete(&models.BatchRecipient{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete batch recipient: %w", err)
	}

	err = db.Model(&models.BatchRecipient{}).
		Where("position > ?", row.Position).
		UpdateColumn("position", gorm.Expr("position - 1")).Error
	if err != nil {
		return fmt.Errorf("failed to compact positions: %w", err)
	}
	return nil
}

// Total returns the size of the whole batch list
func (r *BatchRecipientRepositoryImpl) Total(ctx context.Context) (int64, error) {
	return r.Count(ctx, models.BatchRecipientFilter{})
}

func (r *BatchRecipientRepositoryImpl) applyFilter(query *gorm.DB, filter models.BatchRecipientFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Email != nil {
		query = query.Where("email = ?", *filter.Email)
	}
	return query
}

// ByFilter retrieves batch recipients based on filter criteria
func (r *BatchRecipientRepositoryImpl) ByFilter(ctx context.Context, filter models.BatchRecipientFilter, orderBy string, limit, offset int) ([]*models.BatchRecipient, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.BatchRecipient{}), filter)

	if orderBy == "" {
		orderBy = "position ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.BatchRecipient
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of batch recipients matching the filter
func (r *BatchRecipientRepositoryImpl) Count(ctx context.Context, filter models.BatchRecipientFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.BatchRecipient{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any batch recipient matches the filter
func (r *BatchRecipientRepositoryImpl) Exists(ctx context.Context, filter models.BatchRecipientFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
