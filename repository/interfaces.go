// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/ptichkin/brooder/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// ReserveResult reports the outcome of a conditional stock decrement
type ReserveResult int

const (
	// ReserveOK means the decrement was applied
	ReserveOK ReserveResult = iota
	// ReserveInsufficient means the batch held fewer units than requested,
	// including batches that sold out and were retired mid-race
	ReserveInsufficient
	// ReserveArchived means the batch was archived and sells nothing anymore
	ReserveArchived
	// ReserveNotFound means no batch with that id exists
	ReserveNotFound
)

// StockRepository defines operations for stock batches
type StockRepository interface {
	ByID(ctx context.Context, id uint) (*models.StockBatch, error)
	Save(ctx context.Context, stock *models.StockBatch) error
	Available(ctx context.Context, breed *string) ([]*models.StockBatch, error)
	ByBreedIncubatorDate(ctx context.Context, breed, incubator string, date time.Time) (*models.StockBatch, error)
	TryReserve(ctx context.Context, stockID uint, qty int) (ReserveResult, error)
	Release(ctx context.Context, stockID uint, qty int, today time.Time) error
	ApplyQuantityDelta(ctx context.Context, stockID uint, delta int) (ReserveResult, error)
	UpdateFields(ctx context.Context, stockID uint, fields map[string]any) error
	ExpiredActive(ctx context.Context, today time.Time) ([]*models.StockBatch, error)
	MarkArchived(ctx context.Context, stockID uint) error
}

// OrderRepository defines operations for orders
type OrderRepository interface {
	ByID(ctx context.Context, id uint) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	ByUser(ctx context.Context, userID int64, statuses []models.OrderStatus) ([]*models.Order, error)
	ByPhone(ctx context.Context, phone string, status models.OrderStatus) ([]*models.Order, error)
	ByDeliveryDate(ctx context.Context, date time.Time, status models.OrderStatus) ([]*models.Order, error)
	OpenByStock(ctx context.Context, stockID uint) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uint, from, to models.OrderStatus, confirmedAt *time.Time) (bool, error)
	UpdateQuantity(ctx context.Context, orderID uint, quantity int) error
	SumHeldQuantity(ctx context.Context, stockID uint) (int, error)
}

// PhoneRepository defines operations for the phone trust guard tables
type PhoneRepository interface {
	IsBlocked(ctx context.Context, phone string) (bool, error)
	Block(ctx context.Context, phone, reason string, duration time.Duration) error
	Unblock(ctx context.Context, phone string) error
	Attempts(ctx context.Context, phone string, window time.Duration) (int, error)
	AddAttempt(ctx context.Context, phone string) error
	ResetAttempts(ctx context.Context, phone string) error
	IsTrusted(ctx context.Context, phone string) (bool, error)
	Trust(ctx context.Context, phone string, userID int64, markedBy *int64, source models.TrustSource) error
	Untrust(ctx context.Context, phone string) error
	TrustedPhoneForUser(ctx context.Context, userID int64) (*models.TrustedPhone, error)
}

// UserRepository defines operations for users
type UserRepository interface {
	ByID(ctx context.Context, userID int64) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
	ByPhone(ctx context.Context, phone string) (*models.User, error)
}

// AdminRepository defines operations for admins
type AdminRepository interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	Add(ctx context.Context, userID int64, addedBy *int64) error
	Remove(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]*models.Admin, error)
}

// PromotionRepository defines operations for promotions
type PromotionRepository interface {
	ByID(ctx context.Context, id uint) (*models.Promotion, error)
	Save(ctx context.Context, promo *models.Promotion) error
	ActiveOn(ctx context.Context, day time.Time, limit int) ([]*models.Promotion, error)
	All(ctx context.Context) ([]*models.Promotion, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	SetActive(ctx context.Context, id uint, active bool) error
}
