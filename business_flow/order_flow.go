package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/repository"
	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
)

// OrderFlow handles the complete order lifecycle: reservation, confirmation,
// cancellation, issue and admin quantity edits.
type OrderFlow interface {
	PlaceOrder(ctx context.Context, req *dto.PlaceOrderRequest) (*dto.OrderResponse, error)
	ConfirmOrder(ctx context.Context, actor *Actor, orderID uint) (*dto.OrderResponse, error)
	CancelOrder(ctx context.Context, actor *Actor, orderID uint) (*dto.OrderResponse, error)
	IssueOrder(ctx context.Context, actor *Actor, orderID uint) (*dto.OrderResponse, error)
	EditOrderQuantity(ctx context.Context, actor *Actor, orderID uint, req *dto.EditOrderRequest) (*dto.OrderResponse, error)
	GetOrder(ctx context.Context, actor *Actor, orderID uint) (*dto.OrderResponse, error)
	OrdersForUser(ctx context.Context, userID int64, statuses []models.OrderStatus) (*dto.OrderListResponse, error)
}

// OrderFlowImpl implements the order business flow
type OrderFlowImpl struct {
	orderRepo repository.OrderRepository
	stockRepo repository.StockRepository
	userRepo  repository.UserRepository
	guard     PhoneGuardFlow
	notifier  CustomerNotifier
	exporter  LedgerExporter
	db        *gorm.DB
}

// NewOrderFlow creates a new order flow instance
func NewOrderFlow(
	orderRepo repository.OrderRepository,
	stockRepo repository.StockRepository,
	userRepo repository.UserRepository,
	guard PhoneGuardFlow,
	notifier CustomerNotifier,
	exporter LedgerExporter,
	db *gorm.DB,
) OrderFlow {
	return &OrderFlowImpl{
		orderRepo: orderRepo,
		stockRepo: stockRepo,
		userRepo:  userRepo,
		guard:     guard,
		notifier:  notifier,
		exporter:  exporter,
		db:        db,
	}
}

// PlaceOrder reserves quantity from a batch and creates a pending order.
// The decrement and the order insert commit atomically; the reservation
// either holds real units or the order does not exist.
func (o *OrderFlowImpl) PlaceOrder(ctx context.Context, req *dto.PlaceOrderRequest) (*dto.OrderResponse, error) {
	if req.Quantity <= 0 {
		return nil, ErrQuantityInvalid
	}

	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		return nil, ErrPhoneInvalid
	}
	if err := o.guard.Authorize(ctx, phone, req.Quantity); err != nil {
		return nil, err
	}

	stock, err := getStock(ctx, o.stockRepo, req.StockID)
	if err != nil {
		return nil, err
	}
	// Cheap precheck outside the lock; the conditional decrement below is
	// the real authority.
	if stock.AvailableQuantity < req.Quantity {
		return nil, &InsufficientStockError{
			StockID:   stock.ID,
			Requested: req.Quantity,
			Available: stock.AvailableQuantity,
		}
	}
	if stock.Status != models.StockStatusActive {
		return nil, ErrStockArchived
	}

	lockStock(stock.ID)
	defer unlockStock(stock.ID)

	order := &models.Order{
		UserID:    req.UserID,
		Phone:     phone,
		Breed:     stock.Breed,
		Incubator: stock.Incubator,
		Date:      stock.Date,
		Quantity:  req.Quantity,
		Price:     stock.Price,
		StockID:   stock.ID,
		Status:    models.OrderStatusPending,
	}

	err = repository.WithTransaction(ctx, o.db, func(txCtx context.Context) error {
		res, err := o.stockRepo.TryReserve(txCtx, stock.ID, req.Quantity)
		if err != nil {
			return fmt.Errorf("failed to reserve stock: %w", err)
		}
		switch res {
		case repository.ReserveNotFound:
			return ErrStockNotFound
		case repository.ReserveArchived:
			return ErrStockArchived
		case repository.ReserveInsufficient:
			// Passed the precheck but lost the race to another writer,
			// possibly one that sold the batch out entirely.
			return ErrConcurrentModification
		}
		return o.orderRepo.Save(txCtx, order)
	})
	if err != nil {
		return nil, err
	}

	// Customer directory upkeep is not worth failing a placed order over.
	if err := o.userRepo.Upsert(ctx, &models.User{
		UserID:   req.UserID,
		FullName: req.FullName,
		Username: req.Username,
		Phone:    phone,
	}); err != nil {
		log.Printf("order flow: user upsert failed for user %d: %v", req.UserID, err)
	}

	resp := ToOrderDTO(order)
	return &resp, nil
}

// ConfirmOrder moves a pending order to active and grants the order's phone
// trusted status. Customers confirm their own orders, admins anyone's.
// Confirmation is the moment a human has vouched for the contact, so the two
// writes share one transaction.
func (o *OrderFlowImpl) ConfirmOrder(ctx context.Context, actor *Actor, orderID uint) (*dto.OrderResponse, error) {
	order, err := getOrder(ctx, o.orderRepo, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && order.UserID != actor.UserID {
		return nil, ErrNotAuthorized
	}
	if !order.Status.CanTransitionTo(models.OrderStatusActive) {
		return nil, &InvalidStateError{OrderID: order.ID, Current: order.Status, Target: models.OrderStatusActive}
	}

	now := utils.UTCNow()
	err = repository.WithTransaction(ctx, o.db, func(txCtx context.Context) error {
		moved, err := o.orderRepo.UpdateStatus(txCtx, order.ID, models.OrderStatusPending, models.OrderStatusActive, &now)
		if err != nil {
			return fmt.Errorf("failed to activate order: %w", err)
		}
		if !moved {
			return &InvalidStateError{OrderID: order.ID, Current: order.Status, Target: models.OrderStatusActive}
		}
		return o.guard.GrantTrust(txCtx, order.Phone, order.UserID, nil, models.TrustSourceAuto)
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusActive
	order.ConfirmedAt = &now

	if err := o.notifier.NotifyOrderConfirmed(ctx, order); err != nil {
		log.Printf("order flow: confirm notification failed for order %d: %v", order.ID, err)
	}

	resp := ToOrderDTO(order)
	return &resp, nil
}

// CancelOrder cancels a pending or active order and returns its quantity to
// the batch. Cancelling an already cancelled order is a no-op success so
// double taps and admin/customer races stay harmless.
func (o *OrderFlowImpl) CancelOrder(ctx context.Context, actor *Actor, orderID uint) (*dto.OrderResponse, error) {
	order, err := getOrder(ctx, o.orderRepo, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && order.UserID != actor.UserID {
		return nil, ErrNotAuthorized
	}

	if order.Status == models.OrderStatusCancelled {
		resp := ToOrderDTO(order)
		return &resp, nil
	}
	if !order.Status.CanTransitionTo(models.OrderStatusCancelled) {
		return nil, &InvalidStateError{OrderID: order.ID, Current: order.Status, Target: models.OrderStatusCancelled}
	}

	lockStock(order.StockID)
	defer unlockStock(order.StockID)

	prev := order.Status
	today := utils.DateOnly(utils.UTCNow())
	err = repository.WithTransaction(ctx, o.db, func(txCtx context.Context) error {
		moved, err := o.orderRepo.UpdateStatus(txCtx, order.ID, prev, models.OrderStatusCancelled, nil)
		if err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		if !moved {
			return &InvalidStateError{OrderID: order.ID, Current: prev, Target: models.OrderStatusCancelled}
		}
		if err := o.stockRepo.Release(txCtx, order.StockID, order.Quantity, today); err != nil {
			return fmt.Errorf("failed to release stock: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusCancelled

	if err := o.notifier.NotifyOrderCancelled(ctx, order, actor.IsAdmin && order.UserID != actor.UserID); err != nil {
		log.Printf("order flow: cancel notification failed for order %d: %v", order.ID, err)
	}

	resp := ToOrderDTO(order)
	return &resp, nil
}

// IssueOrder marks an active order as handed over. Ledger export and the
// customer receipt are best-effort; the handover already happened at the
// counter and must not be rolled back over a flaky integration.
func (o *OrderFlowImpl) IssueOrder(ctx context.Context, actor *Actor, orderID uint) (*dto.OrderResponse, error) {
	if !actor.IsAdmin {
		return nil, ErrNotAuthorized
	}

	order, err := getOrder(ctx, o.orderRepo, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(models.OrderStatusIssued) {
		return nil, &InvalidStateError{OrderID: order.ID, Current: order.Status, Target: models.OrderStatusIssued}
	}

	moved, err := o.orderRepo.UpdateStatus(ctx, order.ID, models.OrderStatusActive, models.OrderStatusIssued, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to issue order: %w", err)
	}
	if !moved {
		return nil, &InvalidStateError{OrderID: order.ID, Current: order.Status, Target: models.OrderStatusIssued}
	}

	order.Status = models.OrderStatusIssued

	if err := o.exporter.ExportIssuedOrder(ctx, order); err != nil {
		log.Printf("order flow: ledger export failed for order %d: %v", order.ID, err)
	}
	if err := o.notifier.NotifyOrderIssued(ctx, order); err != nil {
		log.Printf("order flow: issue notification failed for order %d: %v", order.ID, err)
	}

	resp := ToOrderDTO(order)
	return &resp, nil
}

// EditOrderQuantity changes an active order's quantity and moves the
// difference through the batch counters. Growing the order revalidates
// availability; shrinking always succeeds.
func (o *OrderFlowImpl) EditOrderQuantity(ctx context.Context, actor *Actor, orderID uint, req *dto.EditOrderRequest) (*dto.OrderResponse, error) {
	if !actor.IsAdmin {
		return nil, ErrNotAuthorized
	}
	if req.Quantity <= 0 {
		return nil, ErrQuantityInvalid
	}

	order, err := getOrder(ctx, o.orderRepo, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusActive {
		return nil, &InvalidStateError{OrderID: order.ID, Current: order.Status, Target: models.OrderStatusActive}
	}

	delta := req.Quantity - order.Quantity
	if delta == 0 {
		resp := ToOrderDTO(order)
		return &resp, nil
	}

	lockStock(order.StockID)
	defer unlockStock(order.StockID)

	err = repository.WithTransaction(ctx, o.db, func(txCtx context.Context) error {
		res, err := o.stockRepo.ApplyQuantityDelta(txCtx, order.StockID, delta)
		if err != nil {
			return fmt.Errorf("failed to adjust stock: %w", err)
		}
		switch res {
		case repository.ReserveNotFound:
			return ErrStockNotFound
		case repository.ReserveArchived:
			return ErrStockArchived
		case repository.ReserveInsufficient:
			stock, err := getStock(txCtx, o.stockRepo, order.StockID)
			if err != nil {
				return ErrInsufficientStock
			}
			return &InsufficientStockError{
				StockID:   order.StockID,
				Requested: delta,
				Available: stock.AvailableQuantity,
			}
		}
		return o.orderRepo.UpdateQuantity(txCtx, order.ID, req.Quantity)
	})
	if err != nil {
		return nil, err
	}

	order.Quantity = req.Quantity
	resp := ToOrderDTO(order)
	return &resp, nil
}

// GetOrder returns one order. Customers only see their own orders.
func (o *OrderFlowImpl) GetOrder(ctx context.Context, actor *Actor, orderID uint) (*dto.OrderResponse, error) {
	order, err := getOrder(ctx, o.orderRepo, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && order.UserID != actor.UserID {
		return nil, ErrNotAuthorized
	}
	resp := ToOrderDTO(order)
	return &resp, nil
}

// OrdersForUser lists a user's orders, optionally filtered by status
func (o *OrderFlowImpl) OrdersForUser(ctx context.Context, userID int64, statuses []models.OrderStatus) (*dto.OrderListResponse, error) {
	orders, err := o.orderRepo.ByUser(ctx, userID, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	resp := &dto.OrderListResponse{
		Orders: make([]dto.OrderResponse, 0, len(orders)),
		Total:  len(orders),
	}
	for _, order := range orders {
		resp.Orders = append(resp.Orders, ToOrderDTO(order))
	}
	return resp, nil
}
