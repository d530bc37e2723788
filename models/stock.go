// Package models contains domain entities and business models for the hatchery sales system
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
)

// StockStatus represents the lifecycle status of a stock batch
type StockStatus string

const (
	StockStatusActive   StockStatus = "active"
	StockStatusInactive StockStatus = "inactive"
	StockStatusArchived StockStatus = "archived"
)

// String returns the string representation of the status
func (s StockStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s StockStatus) Valid() bool {
	switch s {
	case StockStatusActive, StockStatusInactive, StockStatusArchived:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for StockStatus
func (s *StockStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = StockStatus(v)
	case []byte:
		*s = StockStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StockStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for StockStatus
func (s StockStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid StockStatus: %s", s)
	}
	return string(s), nil
}

// StockBatch represents a dated, priced lot of chicks of a fixed breed.
// Invariant: 0 <= available_quantity <= quantity. The status flips to inactive
// when available_quantity hits zero and to archived once the delivery date has
// passed. Archived rows are retained.
type StockBatch struct {
	ID                uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	Breed             string      `gorm:"size:255;not null;index:idx_stocks_breed_date" json:"breed"`
	Incubator         string      `gorm:"size:255;not null" json:"incubator"`
	Date              time.Time   `gorm:"type:date;not null;index:idx_stocks_breed_date" json:"date"`
	Quantity          int         `gorm:"not null" json:"quantity"`
	AvailableQuantity int         `gorm:"not null;check:available_quantity >= 0" json:"available_quantity"`
	Price             float64     `gorm:"not null" json:"price"`
	Status            StockStatus `gorm:"size:20;not null;default:'active';index:idx_stocks_status" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (StockBatch) TableName() string { return "stocks" }

// BeforeCreate normalizes defaults
func (s *StockBatch) BeforeCreate(tx *gorm.DB) error {
	if s.Status == "" {
		s.Status = StockStatusActive
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// Expired reports whether the batch's delivery date is before the given day
func (s *StockBatch) Expired(today time.Time) bool {
	return s.Date.Before(today.Truncate(24 * time.Hour))
}

// StockFilter represents filter criteria for stock queries
type StockFilter struct {
	ID         *uint        `json:"id,omitempty"`
	Breed      *string      `json:"breed,omitempty"`
	Incubator  *string      `json:"incubator,omitempty"`
	Date       *time.Time   `json:"date,omitempty"`
	Status     *StockStatus `json:"status,omitempty"`
	DateBefore *time.Time   `json:"date_before,omitempty"`
}
