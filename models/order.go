package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusActive    OrderStatus = "active"
	OrderStatusIssued    OrderStatus = "issued"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// String returns the string representation of the status
func (s OrderStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusActive, OrderStatusIssued, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the state machine permits moving from s to next.
// pending -> active|cancelled, active -> issued|cancelled. Issued and cancelled
// are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusActive || next == OrderStatusCancelled
	case OrderStatusActive:
		return next == OrderStatusIssued || next == OrderStatusCancelled
	default:
		return false
	}
}

// HoldsStock reports whether an order in this status still holds a claim on its
// batch's quantity. The claim is released exactly once, on cancellation.
func (s OrderStatus) HoldsStock() bool {
	switch s {
	case OrderStatusPending, OrderStatusActive, OrderStatusIssued:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for OrderStatus
func (s *OrderStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = OrderStatus(v)
	case []byte:
		*s = OrderStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into OrderStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for OrderStatus
func (s OrderStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid OrderStatus: %s", s)
	}
	return string(s), nil
}

// Order represents a customer's claim on part of a stock batch. Breed, date,
// incubator and price are copied from the batch at order time so later batch
// edits do not rewrite history.
type Order struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID      uuid.UUID   `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	UserID    int64       `gorm:"not null;index:idx_orders_user_id" json:"user_id"`
	Phone     string      `gorm:"size:20;not null;index:idx_orders_phone" json:"phone"`
	Breed     string      `gorm:"size:255;not null" json:"breed"`
	Date      time.Time   `gorm:"type:date;not null" json:"date"`
	Quantity  int         `gorm:"not null" json:"quantity"`
	Price     float64     `gorm:"not null" json:"price"`
	StockID   uint        `gorm:"not null;index:idx_orders_stock_id" json:"stock_id"`
	Incubator string      `gorm:"size:255" json:"incubator"`
	Status    OrderStatus `gorm:"size:20;not null;default:'pending';index:idx_orders_status" json:"status"`

	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	// Relations
	Stock *StockBatch `gorm:"foreignKey:StockID;references:ID" json:"stock,omitempty"`
	User  *User       `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

func (Order) TableName() string { return "orders" }

// BeforeCreate ensures UUID and timestamps are set
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = utils.UTCNow()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// Total returns the order's total price
func (o *Order) Total() float64 {
	return float64(o.Quantity) * o.Price
}

// OrderFilter represents filter criteria for order queries
type OrderFilter struct {
	ID      *uint        `json:"id,omitempty"`
	UUID    *uuid.UUID   `json:"uuid,omitempty"`
	UserID  *int64       `json:"user_id,omitempty"`
	Phone   *string      `json:"phone,omitempty"`
	StockID *uint        `json:"stock_id,omitempty"`
	Status  *OrderStatus `json:"status,omitempty"`
	Date    *time.Time   `json:"date,omitempty"`
}
