// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/ptichkin/brooder/app/bot"
	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/app/middleware"
	businessflow "github.com/ptichkin/brooder/business_flow"
)

func errorResponse(c fiber.Ctx, statusCode int, errorCode, message string, details any) error {
	return c.Status(statusCode).JSON(dto.ErrorResponse(errorCode, message, details))
}

func successResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.SuccessResponse(message, data))
}

// mapFlowError translates business flow errors to HTTP responses. Unmatched
// errors become opaque 500s so internals never leak to clients.
func mapFlowError(c fiber.Ctx, err error) error {
	var insufficientErr *businessflow.InsufficientStockError
	if errors.As(err, &insufficientErr) {
		return errorResponse(c, fiber.StatusConflict, "INSUFFICIENT_STOCK", err.Error(), fiber.Map{
			"stock_id":  insufficientErr.StockID,
			"requested": insufficientErr.Requested,
			"available": insufficientErr.Available,
		})
	}
	var stateErr *businessflow.InvalidStateError
	if errors.As(err, &stateErr) {
		return errorResponse(c, fiber.StatusConflict, "INVALID_STATE_TRANSITION", err.Error(), fiber.Map{
			"order_id": stateErr.OrderID,
			"current":  stateErr.Current.String(),
		})
	}

	switch {
	case businessflow.IsStockNotFound(err), businessflow.IsOrderNotFound(err),
		errors.Is(err, businessflow.ErrPromotionNotFound):
		return errorResponse(c, fiber.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, businessflow.ErrStockArchived):
		return errorResponse(c, fiber.StatusConflict, "STOCK_ARCHIVED", err.Error(), nil)
	case businessflow.IsConcurrentModification(err):
		middleware.ReservationConflicts.Inc()
		return errorResponse(c, fiber.StatusConflict, "CONCURRENT_MODIFICATION", err.Error(), nil)
	case businessflow.IsInvalidStateTransition(err):
		return errorResponse(c, fiber.StatusConflict, "INVALID_STATE_TRANSITION", err.Error(), nil)
	case errors.Is(err, businessflow.ErrQuantityInvalid):
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_QUANTITY", err.Error(), nil)
	case errors.Is(err, businessflow.ErrPhoneInvalid):
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_PHONE", err.Error(), nil)
	case businessflow.IsPhoneBlocked(err):
		middleware.GuardRejections.WithLabelValues("blocked").Inc()
		return errorResponse(c, fiber.StatusForbidden, "PHONE_BLOCKED", err.Error(), nil)
	case businessflow.IsUnverifiedQuantityCap(err):
		middleware.GuardRejections.WithLabelValues("quantity_cap").Inc()
		return errorResponse(c, fiber.StatusForbidden, "UNVERIFIED_QUANTITY_CAP", err.Error(), nil)
	case businessflow.IsNotAuthorized(err):
		return errorResponse(c, fiber.StatusForbidden, "NOT_AUTHORIZED", err.Error(), nil)
	case errors.Is(err, bot.ErrWrongStep):
		return errorResponse(c, fiber.StatusConflict, "WRONG_STEP", err.Error(), nil)
	}

	var bizErr *businessflow.BusinessError
	if errors.As(err, &bizErr) {
		return errorResponse(c, fiber.StatusUnprocessableEntity, bizErr.Code, bizErr.Message, nil)
	}
	return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}
