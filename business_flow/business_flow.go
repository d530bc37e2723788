// Package businessflow contains the core business logic for inventory reservation and order workflows
package businessflow

import (
	"context"
	"time"

	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/repository"
)

// Actor identifies who is driving an operation. Admin-only transitions check
// the flag; customer transitions check ownership.
type Actor struct {
	UserID  int64
	IsAdmin bool
}

// CustomerNotifier delivers order lifecycle messages to customers. All calls
// are best-effort: the flows log failures and never roll back on them.
type CustomerNotifier interface {
	NotifyOrderConfirmed(ctx context.Context, order *models.Order) error
	NotifyOrderCancelled(ctx context.Context, order *models.Order, adminInitiated bool) error
	NotifyOrderIssued(ctx context.Context, order *models.Order) error
}

// LedgerExporter pushes issued orders to the external ERP ledger, best-effort
type LedgerExporter interface {
	ExportIssuedOrder(ctx context.Context, order *models.Order) error
}

// ToOrderDTO converts an order model to its API representation
func ToOrderDTO(order *models.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:          order.ID,
		UUID:        order.UUID.String(),
		UserID:      order.UserID,
		Phone:       order.Phone,
		Breed:       order.Breed,
		Incubator:   order.Incubator,
		Date:        order.Date.Format("2006-01-02"),
		Quantity:    order.Quantity,
		Price:       order.Price,
		Total:       order.Total(),
		StockID:     order.StockID,
		Status:      order.Status.String(),
		CreatedAt:   order.CreatedAt,
		ConfirmedAt: order.ConfirmedAt,
	}
}

// ToStockDTO converts a stock batch model to its API representation
func ToStockDTO(stock *models.StockBatch) dto.StockResponse {
	return dto.StockResponse{
		ID:                stock.ID,
		Breed:             stock.Breed,
		Incubator:         stock.Incubator,
		Date:              stock.Date.Format("2006-01-02"),
		Quantity:          stock.Quantity,
		AvailableQuantity: stock.AvailableQuantity,
		Price:             stock.Price,
		Status:            stock.Status.String(),
	}
}

// ToPromotionDTO converts a promotion model to its API representation
func ToPromotionDTO(promo *models.Promotion) dto.PromotionResponse {
	resp := dto.PromotionResponse{
		ID:          promo.ID,
		Title:       promo.Title,
		Description: promo.Description,
		ImageURL:    promo.ImageURL,
		IsActive:    promo.IsActive != nil && *promo.IsActive,
	}
	if promo.StartDate != nil {
		s := promo.StartDate.Format("2006-01-02")
		resp.StartDate = &s
	}
	if promo.EndDate != nil {
		s := promo.EndDate.Format("2006-01-02")
		resp.EndDate = &s
	}
	return resp
}

func getOrder(ctx context.Context, repo repository.OrderRepository, orderID uint) (*models.Order, error) {
	order, err := repo.ByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func getStock(ctx context.Context, repo repository.StockRepository, stockID uint) (*models.StockBatch, error) {
	stock, err := repo.ByID(ctx, stockID)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, ErrStockNotFound
	}
	return stock, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
