package businessflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/repository"
	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
)

// StockFlow handles batch administration and the daily archival sweep
type StockFlow interface {
	CreateStock(ctx context.Context, actor *Actor, req *dto.CreateStockRequest) (*dto.StockResponse, error)
	UpdateStock(ctx context.Context, actor *Actor, stockID uint, req *dto.UpdateStockRequest) (*dto.StockResponse, error)
	GetStock(ctx context.Context, stockID uint) (*dto.StockResponse, error)
	ListAvailable(ctx context.Context, breed *string) (*dto.StockListResponse, error)
	ArchiveExpired(ctx context.Context) (*dto.ArchiveSweepResponse, error)
}

// StockFlowImpl implements the stock business flow
type StockFlowImpl struct {
	stockRepo repository.StockRepository
	orderRepo repository.OrderRepository
	notifier  CustomerNotifier
	db        *gorm.DB
}

// NewStockFlow creates a new stock flow instance
func NewStockFlow(
	stockRepo repository.StockRepository,
	orderRepo repository.OrderRepository,
	notifier CustomerNotifier,
	db *gorm.DB,
) StockFlow {
	return &StockFlowImpl{
		stockRepo: stockRepo,
		orderRepo: orderRepo,
		notifier:  notifier,
		db:        db,
	}
}

// CreateStock registers a new batch. If an active batch already exists for
// the same breed, incubator and date, its quantities are topped up instead
// of creating a duplicate row.
func (s *StockFlowImpl) CreateStock(ctx context.Context, actor *Actor, req *dto.CreateStockRequest) (*dto.StockResponse, error) {
	if !actor.IsAdmin {
		return nil, ErrNotAuthorized
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	existing, err := s.stockRepo.ByBreedIncubatorDate(ctx, req.Breed, req.Incubator, date)
	if err != nil {
		return nil, fmt.Errorf("failed to look up batch: %w", err)
	}
	if existing != nil && existing.Status == models.StockStatusActive {
		lockStock(existing.ID)
		defer unlockStock(existing.ID)

		err = s.stockRepo.UpdateFields(ctx, existing.ID, map[string]any{
			"quantity":           gorm.Expr("quantity + ?", req.Quantity),
			"available_quantity": gorm.Expr("available_quantity + ?", req.Quantity),
			"price":              req.Price,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to top up batch: %w", err)
		}
		updated, err := getStock(ctx, s.stockRepo, existing.ID)
		if err != nil {
			return nil, err
		}
		resp := ToStockDTO(updated)
		return &resp, nil
	}

	stock := &models.StockBatch{
		Breed:             req.Breed,
		Incubator:         req.Incubator,
		Date:              date,
		Quantity:          req.Quantity,
		AvailableQuantity: req.Quantity,
		Price:             req.Price,
		Status:            models.StockStatusActive,
	}
	if err := s.stockRepo.Save(ctx, stock); err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	resp := ToStockDTO(stock)
	return &resp, nil
}

// UpdateStock edits a batch's date, price, or total quantity. A quantity
// change keeps existing reservations intact: available moves by the same
// delta as total, and can never be pushed below what is already held.
func (s *StockFlowImpl) UpdateStock(ctx context.Context, actor *Actor, stockID uint, req *dto.UpdateStockRequest) (*dto.StockResponse, error) {
	if !actor.IsAdmin {
		return nil, ErrNotAuthorized
	}

	stock, err := getStock(ctx, s.stockRepo, stockID)
	if err != nil {
		return nil, err
	}
	if stock.Status == models.StockStatusArchived {
		return nil, ErrStockArchived
	}

	fields := map[string]any{}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date: %w", err)
		}
		fields["date"] = date
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}

	lockStock(stockID)
	defer unlockStock(stockID)

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if req.Quantity != nil {
			held, err := s.orderRepo.SumHeldQuantity(txCtx, stockID)
			if err != nil {
				return fmt.Errorf("failed to sum held quantity: %w", err)
			}
			if *req.Quantity < held {
				return &InsufficientStockError{
					StockID:   stockID,
					Requested: *req.Quantity,
					Available: held,
				}
			}
			fields["quantity"] = *req.Quantity
			fields["available_quantity"] = *req.Quantity - held
		}
		if len(fields) == 0 {
			return nil
		}
		return s.stockRepo.UpdateFields(txCtx, stockID, fields)
	})
	if err != nil {
		return nil, err
	}

	updated, err := getStock(ctx, s.stockRepo, stockID)
	if err != nil {
		return nil, err
	}
	resp := ToStockDTO(updated)
	return &resp, nil
}

// GetStock returns one batch by id
func (s *StockFlowImpl) GetStock(ctx context.Context, stockID uint) (*dto.StockResponse, error) {
	stock, err := getStock(ctx, s.stockRepo, stockID)
	if err != nil {
		return nil, err
	}
	resp := ToStockDTO(stock)
	return &resp, nil
}

// ListAvailable lists active batches with units left, optionally filtered
// by breed. Sold-out and archived batches never appear.
func (s *StockFlowImpl) ListAvailable(ctx context.Context, breed *string) (*dto.StockListResponse, error) {
	stocks, err := s.stockRepo.Available(ctx, breed)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	resp := &dto.StockListResponse{
		Stocks: make([]dto.StockResponse, 0, len(stocks)),
		Total:  len(stocks),
	}
	for _, stock := range stocks {
		resp.Stocks = append(resp.Stocks, ToStockDTO(stock))
	}
	return resp, nil
}

// ArchiveExpired archives every active batch whose delivery date has passed
// and cascade-cancels its open orders. Each batch is swept in its own
// transaction so one bad batch cannot wedge the whole run.
func (s *StockFlowImpl) ArchiveExpired(ctx context.Context) (*dto.ArchiveSweepResponse, error) {
	today := utils.DateOnly(utils.UTCNow())
	expired, err := s.stockRepo.ExpiredActive(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired batches: %w", err)
	}

	summary := &dto.ArchiveSweepResponse{}
	for _, stock := range expired {
		cancelled, returned, err := s.archiveBatch(ctx, stock, today)
		if err != nil {
			log.Printf("stock flow: archive failed for batch %d: %v", stock.ID, err)
			continue
		}
		summary.ArchivedBatches++
		summary.CancelledOrders += cancelled
		summary.ReturnedUnits += returned
	}
	return summary, nil
}

func (s *StockFlowImpl) archiveBatch(ctx context.Context, stock *models.StockBatch, today time.Time) (int, int, error) {
	lockStock(stock.ID)
	defer unlockStock(stock.ID)

	var toNotify []*models.Order
	cancelled, returned := 0, 0

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		open, err := s.orderRepo.OpenByStock(txCtx, stock.ID)
		if err != nil {
			return fmt.Errorf("failed to list open orders: %w", err)
		}
		for _, order := range open {
			moved, err := s.orderRepo.UpdateStatus(txCtx, order.ID, order.Status, models.OrderStatusCancelled, nil)
			if err != nil {
				return fmt.Errorf("failed to cancel order %d: %w", order.ID, err)
			}
			if !moved {
				continue
			}
			if err := s.stockRepo.Release(txCtx, stock.ID, order.Quantity, today); err != nil {
				return fmt.Errorf("failed to release stock for order %d: %w", order.ID, err)
			}
			cancelled++
			returned += order.Quantity
			order.Status = models.OrderStatusCancelled
			toNotify = append(toNotify, order)
		}
		return s.stockRepo.MarkArchived(txCtx, stock.ID)
	})
	if err != nil {
		return 0, 0, err
	}

	for _, order := range toNotify {
		if err := s.notifier.NotifyOrderCancelled(ctx, order, true); err != nil {
			log.Printf("stock flow: cancel notification failed for order %d: %v", order.ID, err)
		}
	}
	return cancelled, returned, nil
}
