package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
)

// PromotionRepositoryImpl implements PromotionRepository interface
type PromotionRepositoryImpl struct {
	*BaseRepository[models.Promotion]
}

// NewPromotionRepository creates a new promotion repository
func NewPromotionRepository(db *gorm.DB) PromotionRepository {
	return &PromotionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Promotion](db),
	}
}

// ActiveOn returns active promotions whose date window covers the given day
func (r *PromotionRepositoryImpl) ActiveOn(ctx context.Context, day time.Time, limit int) ([]*models.Promotion, error) {
	db := r.getDB(ctx)
	d := utils.DateOnly(day)

	query := db.Where("is_active = ?", true).
		Where("start_date IS NULL OR start_date <= ?", d).
		Where("end_date IS NULL OR end_date >= ?", d).
		Order("end_date ASC NULLS LAST").
		Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var promos []*models.Promotion
	err := query.Find(&promos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active promotions: %w", err)
	}
	return promos, nil
}

// All returns every promotion, active first
func (r *PromotionRepositoryImpl) All(ctx context.Context) ([]*models.Promotion, error) {
	db := r.getDB(ctx)

	var promos []*models.Promotion
	err := db.Order("is_active DESC").Order("updated_at DESC").Find(&promos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	return promos, nil
}

// UpdateFields applies a partial edit to a promotion
func (r *PromotionRepositoryImpl) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
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

	fields["updated_at"] = utils.UTCNow()
	res := db.Model(&models.Promotion{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		err = res.Error
		return fmt.Errorf("failed to update promotion %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		err = gorm.ErrRecordNotFound
		return err
	}
	return nil
}

// SetActive toggles a promotion. Deactivation doubles as soft delete.
func (r *PromotionRepositoryImpl) SetActive(ctx context.Context, id uint, active bool) error {
	return r.UpdateFields(ctx, id, map[string]any{"is_active": active})
}
