package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
)

// StockRepositoryImpl implements StockRepository interface
type StockRepositoryImpl struct {
	*BaseRepository[models.StockBatch]
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *gorm.DB) StockRepository {
	return &StockRepositoryImpl{
		BaseRepository: NewBaseRepository[models.StockBatch](db),
	}
}

// Available returns active batches with remaining quantity, earliest delivery
// first, ties broken by breed then insertion order.
func (r *StockRepositoryImpl) Available(ctx context.Context, breed *string) ([]*models.StockBatch, error) {
	db := r.getDB(ctx)

	query := db.Where("status = ? AND available_quantity > 0", models.StockStatusActive)
	if breed != nil && *breed != "" {
		query = query.Where("breed = ?", *breed)
	}

	var stocks []*models.StockBatch
	err := query.Order("date ASC").Order("breed ASC").Order("id ASC").Find(&stocks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list available stocks: %w", err)
	}
	return stocks, nil
}

// ByBreedIncubatorDate finds an active batch by its natural key
func (r *StockRepositoryImpl) ByBreedIncubatorDate(ctx context.Context, breed, incubator string, date time.Time) (*models.StockBatch, error) {
	db := r.getDB(ctx)

	var stock models.StockBatch
	err := db.Where("breed = ? AND incubator = ? AND date = ? AND status = ?",
		breed, incubator, utils.DateOnly(date), models.StockStatusActive).
		First(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

// TryReserve atomically decrements availability. The availability check lives
// in the UPDATE's WHERE clause, so a stale earlier read can never oversell:
// the write itself is the authority.
func (r *StockRepositoryImpl) TryReserve(ctx context.Context, stockID uint, qty int) (ReserveResult, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return ReserveNotFound, err
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

	res := db.Model(&models.StockBatch{}).
		Where("id = ? AND status = ? AND available_quantity >= ?", stockID, models.StockStatusActive, qty).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity - ?", qty),
			"updated_at":         utils.UTCNow(),
		})
	if res.Error != nil {
		err = res.Error
		return ReserveNotFound, fmt.Errorf("failed to reserve %d units of stock %d: %w", qty, stockID, res.Error)
	}

	if res.RowsAffected == 0 {
		// Distinguish a missing batch, an archived batch, a batch that sold
		// out mid-race, and a plain lost race.
		var batch models.StockBatch
		if err = db.Select("status").Where("id = ?", stockID).First(&batch).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = nil
				return ReserveNotFound, nil
			}
			return ReserveNotFound, err
		}
		if batch.Status == models.StockStatusArchived {
			return ReserveArchived, nil
		}
		return ReserveInsufficient, nil
	}

	// Sold out: retire the batch
	err = db.Model(&models.StockBatch{}).
		Where("id = ? AND available_quantity <= 0 AND status = ?", stockID, models.StockStatusActive).
		Update("status", models.StockStatusInactive).Error
	if err != nil {
		return ReserveNotFound, fmt.Errorf("failed to retire sold-out stock %d: %w", stockID, err)
	}

	return ReserveOK, nil
}

// Release returns qty units to the batch. An inactive batch whose delivery date
// has not passed is restored to active; archived batches stay archived.
func (r *StockRepositoryImpl) Release(ctx context.Context, stockID uint, qty int, today time.Time) error {
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

	err = db.Model(&models.StockBatch{}).
		Where("id = ?", stockID).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity + ?", qty),
			"updated_at":         utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to release %d units to stock %d: %w", qty, stockID, err)
	}

	err = db.Model(&models.StockBatch{}).
		Where("id = ? AND status = ? AND date >= ?", stockID, models.StockStatusInactive, utils.DateOnly(today)).
		Update("status", models.StockStatusActive).Error
	if err != nil {
		return fmt.Errorf("failed to reactivate stock %d: %w", stockID, err)
	}

	return nil
}

// ApplyQuantityDelta adjusts availability for an order edit. A positive delta
// takes more units from the batch and is conditional on availability; a
// negative delta gives units back unconditionally.
func (r *StockRepositoryImpl) ApplyQuantityDelta(ctx context.Context, stockID uint, delta int) (ReserveResult, error) {
	if delta > 0 {
		return r.TryReserve(ctx, stockID, delta)
	}
	if delta < 0 {
		if err := r.Release(ctx, stockID, -delta, utils.UTCNow()); err != nil {
			return ReserveNotFound, err
		}
	}
	return ReserveOK, nil
}

// UpdateFields applies an admin edit to a batch
func (r *StockRepositoryImpl) UpdateFields(ctx context.Context, stockID uint, fields map[string]any) error {
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
	res := db.Model(&models.StockBatch{}).Where("id = ?", stockID).Updates(fields)
	if res.Error != nil {
		err = res.Error
		return fmt.Errorf("failed to update stock %d: %w", stockID, res.Error)
	}
	if res.RowsAffected == 0 {
		err = gorm.ErrRecordNotFound
		return err
	}
	return nil
}

// ExpiredActive lists active batches whose delivery date is in the past
func (r *StockRepositoryImpl) ExpiredActive(ctx context.Context, today time.Time) ([]*models.StockBatch, error) {
	db := r.getDB(ctx)

	var stocks []*models.StockBatch
	err := db.Where("status = ? AND date < ?", models.StockStatusActive, utils.DateOnly(today)).
		Order("date ASC").
		Find(&stocks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired stocks: %w", err)
	}
	return stocks, nil
}

// MarkArchived retires a batch permanently (soft delete, row retained)
func (r *StockRepositoryImpl) MarkArchived(ctx context.Context, stockID uint) error {
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

	err = db.Model(&models.StockBatch{}).
		Where("id = ?", stockID).
		Updates(map[string]any{
			"status":     models.StockStatusArchived,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to archive stock %d: %w", stockID, err)
	}
	return nil
}
