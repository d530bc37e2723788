package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/app/middleware"
	businessflow "github.com/ptichkin/brooder/business_flow"
	"github.com/ptichkin/brooder/models"
)

// OrderHandler handles order lifecycle HTTP requests
type OrderHandler struct {
	flow      businessflow.OrderFlow
	validator *validator.Validate
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(flow businessflow.OrderFlow) *OrderHandler {
	return &OrderHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// Place reserves stock and creates a pending order
func (h *OrderHandler) Place(c fiber.Ctx) error {
	var req dto.PlaceOrderRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}

	resp, err := h.flow.PlaceOrder(c.Context(), &req)
	if err != nil {
		return mapFlowError(c, err)
	}
	middleware.OrdersPlaced.WithLabelValues(resp.Breed).Inc()
	return successResponse(c, fiber.StatusCreated, "Order placed", resp)
}

// Confirm moves a pending order to active. Admin only.
func (h *OrderHandler) Confirm(c fiber.Ctx) error {
	orderID, actor, err := h.orderIDAndActor(c, true)
	if err != nil {
		return err
	}
	resp, flowErr := h.flow.ConfirmOrder(c.Context(), actor, orderID)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusOK, "Order confirmed", resp)
}

// ConfirmOwn lets a customer confirm their own pending order. Ownership is
// enforced by the flow; a mismatched user id is rejected there.
func (h *OrderHandler) ConfirmOwn(c fiber.Ctx) error {
	orderID, actor, err := h.orderIDAndOwner(c)
	if err != nil {
		return err
	}
	resp, flowErr := h.flow.ConfirmOrder(c.Context(), actor, orderID)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusOK, "Order confirmed", resp)
}

// Cancel cancels an order and returns its units to stock. Admin surface.
func (h *OrderHandler) Cancel(c fiber.Ctx) error {
	orderID, actor, err := h.orderIDAndActor(c, true)
	if err != nil {
		return err
	}
	resp, flowErr := h.flow.CancelOrder(c.Context(), actor, orderID)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusOK, "Order cancelled", resp)
}

// CancelOwn lets a customer cancel their own order
func (h *OrderHandler) CancelOwn(c fiber.Ctx) error {
	orderID, actor, err := h.orderIDAndOwner(c)
	if err != nil {
		return err
	}
	resp, flowErr := h.flow.CancelOrder(c.Context(), actor, orderID)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusOK, "Order cancelled", resp)
}

// Issue marks an active order as handed over. Admin only.
func (h *OrderHandler) Issue(c fiber.Ctx) error {
	orderID, actor, err := h.orderIDAndActor(c, true)
	if err != nil {
		return err
	}
	resp, flowErr := h.flow.IssueOrder(c.Context(), actor, orderID)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusOK, "Order issued", resp)
}

// EditQuantity changes an active order's quantity. Admin only.
func (h *OrderHandler) EditQuantity(c fiber.Ctx) error {
	orderID, actor, err := h.orderIDAndActor(c, true)
	if err != nil {
		return err
	}

	var req dto.EditOrderRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}

	resp, flowErr := h.flow.EditOrderQuantity(c.Context(), actor, orderID, &req)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusOK, "Order updated", resp)
}

// Get returns one order. Admin only.
func (h *OrderHandler) Get(c fiber.Ctx) error {
	orderID, actor, err := h.orderIDAndActor(c, true)
	if err != nil {
		return err
	}
	resp, flowErr := h.flow.GetOrder(c.Context(), actor, orderID)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusOK, "Order found", resp)
}

// ListForUser lists a user's orders, optionally filtered by status
func (h *OrderHandler) ListForUser(c fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("userID"), 10, 64)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_USER_ID", "User id must be an integer", nil)
	}

	var statuses []models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		status := models.OrderStatus(raw)
		if !status.Valid() {
			return errorResponse(c, fiber.StatusBadRequest, "INVALID_STATUS", "Unknown order status", nil)
		}
		statuses = append(statuses, status)
	}

	resp, flowErr := h.flow.OrdersForUser(c.Context(), userID, statuses)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusOK, "Orders listed", resp)
}

func (h *OrderHandler) orderIDAndActor(c fiber.Ctx, requireAdmin bool) (uint, *businessflow.Actor, error) {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, nil, errorResponse(c, fiber.StatusBadRequest, "INVALID_ORDER_ID", "Order id must be an integer", nil)
	}
	adminID, ok := middleware.GetAdminUserID(c)
	if requireAdmin && !ok {
		return 0, nil, errorResponse(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Admin authentication required", nil)
	}
	return uint(orderID), &businessflow.Actor{UserID: adminID, IsAdmin: ok}, nil
}

// orderIDAndOwner builds a non-admin actor from the :userID path segment.
// The bot gateway authenticates the chat user before calling this surface.
func (h *OrderHandler) orderIDAndOwner(c fiber.Ctx) (uint, *businessflow.Actor, error) {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, nil, errorResponse(c, fiber.StatusBadRequest, "INVALID_ORDER_ID", "Order id must be an integer", nil)
	}
	userID, err := strconv.ParseInt(c.Params("userID"), 10, 64)
	if err != nil {
		return 0, nil, errorResponse(c, fiber.StatusBadRequest, "INVALID_USER_ID", "User id must be an integer", nil)
	}
	return uint(orderID), &businessflow.Actor{UserID: userID, IsAdmin: false}, nil
}
