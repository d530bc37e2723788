// Package businessflow contains the core business logic for inventory reservation and order workflows
package businessflow

import (
	"errors"
	"fmt"

	"github.com/ptichkin/brooder/models"
)

// Business flow error constants
var (
	// Stock-related errors
	ErrStockNotFound          = errors.New("stock batch not found")
	ErrStockArchived          = errors.New("stock batch is archived")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrConcurrentModification = errors.New("stock changed concurrently, please retry")

	// Order-related errors
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidStateTransition = errors.New("order status does not permit this operation")
	ErrQuantityInvalid        = errors.New("quantity must be positive")

	// Phone guard errors
	ErrPhoneBlocked          = errors.New("phone number is blocked")
	ErrUnverifiedQuantityCap = errors.New("quantity exceeds the limit for unverified phones")
	ErrPhoneInvalid          = errors.New("phone number is invalid")

	// Promotion errors
	ErrPromotionNotFound = errors.New("promotion not found")

	// Authorization errors
	ErrNotAuthorized = errors.New("operation requires the admin role")
)

// InsufficientStockError reports the true availability so the caller can
// re-render a corrected prompt instead of a generic failure.
type InsufficientStockError struct {
	StockID   uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock in batch %d: requested %d, available %d",
		e.StockID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// InvalidStateError reports the order's current status alongside the rejected
// transition.
type InvalidStateError struct {
	OrderID uint
	Current models.OrderStatus
	Target  models.OrderStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("order %d is %s, cannot transition to %s", e.OrderID, e.Current, e.Target)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsStockNotFound(err error) bool {
	return errors.Is(err, ErrStockNotFound)
}

func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}

func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

func IsOrderNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

func IsInvalidStateTransition(err error) bool {
	return errors.Is(err, ErrInvalidStateTransition)
}

func IsPhoneBlocked(err error) bool {
	return errors.Is(err, ErrPhoneBlocked)
}

func IsUnverifiedQuantityCap(err error) bool {
	return errors.Is(err, ErrUnverifiedQuantityCap)
}

func IsNotAuthorized(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}
