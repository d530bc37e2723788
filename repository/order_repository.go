package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
)

// OrderRepositoryImpl implements OrderRepository interface
type OrderRepositoryImpl struct {
	*BaseRepository[models.Order]
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &OrderRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Order](db),
	}
}

// ByUser returns a user's orders in the given statuses, newest first
func (r *OrderRepositoryImpl) ByUser(ctx context.Context, userID int64, statuses []models.OrderStatus) ([]*models.Order, error) {
	db := r.getDB(ctx)

	query := db.Where("user_id = ?", userID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var orders []*models.Order
	err := query.Order("created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %d: %w", userID, err)
	}
	return orders, nil
}

// ByPhone returns orders for a phone in the given status
func (r *OrderRepositoryImpl) ByPhone(ctx context.Context, phone string, status models.OrderStatus) ([]*models.Order, error) {
	db := r.getDB(ctx)

	var orders []*models.Order
	err := db.Where("phone = ? AND status = ?", phone, status).
		Order("phone ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for phone %s: %w", phone, err)
	}
	return orders, nil
}

// ByDeliveryDate returns orders delivering on the given day in the given status
func (r *OrderRepositoryImpl) ByDeliveryDate(ctx context.Context, date time.Time, status models.OrderStatus) ([]*models.Order, error) {
	db := r.getDB(ctx)

	var orders []*models.Order
	err := db.Where("date = ? AND status = ?", utils.DateOnly(date), status).
		Order("phone ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for date %s: %w", date.Format("2006-01-02"), err)
	}
	return orders, nil
}

// OpenByStock returns pending and active orders against a batch
func (r *OrderRepositoryImpl) OpenByStock(ctx context.Context, stockID uint) ([]*models.Order, error) {
	db := r.getDB(ctx)

	var orders []*models.Order
	err := db.Where("stock_id = ? AND status IN ?", stockID,
		[]models.OrderStatus{models.OrderStatusPending, models.OrderStatusActive}).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders for stock %d: %w", stockID, err)
	}
	return orders, nil
}

// UpdateStatus transitions an order's status. The previous status is part of
// the WHERE clause so a concurrent transition loses the race cleanly: the
// returned bool reports whether the row was actually moved.
func (r *OrderRepositoryImpl) UpdateStatus(ctx context.Context, orderID uint, from, to models.OrderStatus, confirmedAt *time.Time) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
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

	fields := map[string]any{
		"status":     to,
		"updated_at": utils.UTCNow(),
	}
	if confirmedAt != nil {
		fields["confirmed_at"] = *confirmedAt
	}

	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(fields)
	if res.Error != nil {
		err = res.Error
		return false, fmt.Errorf("failed to update order %d status %s -> %s: %w", orderID, from, to, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpdateQuantity rewrites an order's quantity after an admin edit
func (r *OrderRepositoryImpl) UpdateQuantity(ctx context.Context, orderID uint, quantity int) error {
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

	res := db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		err = res.Error
		return fmt.Errorf("failed to update order %d quantity: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		err = gorm.ErrRecordNotFound
		return err
	}
	return nil
}

// SumHeldQuantity sums the quantity of all orders still holding a claim on the
// batch (pending, active or issued)
func (r *OrderRepositoryImpl) SumHeldQuantity(ctx context.Context, stockID uint) (int, error) {
	db := r.getDB(ctx)

	var sum *int
	err := db.Model(&models.Order{}).
		Select("SUM(quantity)").
		Where("stock_id = ? AND status IN ?", stockID,
			[]models.OrderStatus{models.OrderStatusPending, models.OrderStatusActive, models.OrderStatusIssued}).
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum held quantity for stock %d: %w", stockID, err)
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
