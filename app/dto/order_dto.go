package dto

import "time"

// PlaceOrderRequest carries everything needed to reserve part of a batch
type PlaceOrderRequest struct {
	UserID   int64  `json:"user_id" validate:"required"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Username string `json:"username" validate:"max=255"`
	Phone    string `json:"phone" validate:"required,max=20"`
	StockID  uint   `json:"stock_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// EditOrderRequest changes an active order's quantity
type EditOrderRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// OrderResponse is the API view of an order
type OrderResponse struct {
	ID          uint       `json:"id"`
	UUID        string     `json:"uuid"`
	UserID      int64      `json:"user_id"`
	Phone       string     `json:"phone"`
	Breed       string     `json:"breed"`
	Incubator   string     `json:"incubator"`
	Date        string     `json:"date"`
	Quantity    int        `json:"quantity"`
	Price       float64    `json:"price"`
	Total       float64    `json:"total"`
	StockID     uint       `json:"stock_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// OrderListResponse wraps a page of orders
type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}
