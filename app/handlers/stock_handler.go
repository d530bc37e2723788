package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/app/middleware"
	businessflow "github.com/ptichkin/brooder/business_flow"
)

// StockHandler handles batch administration HTTP requests
type StockHandler struct {
	flow      businessflow.StockFlow
	validator *validator.Validate
}

// NewStockHandler creates a new stock handler
func NewStockHandler(flow businessflow.StockFlow) *StockHandler {
	return &StockHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// Create registers a new batch or tops up an existing one. Admin only.
func (h *StockHandler) Create(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}

	var req dto.CreateStockRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}

	resp, flowErr := h.flow.CreateStock(c.Context(), actor, &req)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusCreated, "Batch created", resp)
}

// Update edits a batch's date, price or quantity. Admin only.
func (h *StockHandler) Update(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	stockID, err := stockIDParam(c)
	if err != nil {
		return err
	}

	var req dto.UpdateStockRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}

	resp, flowErr := h.flow.UpdateStock(c.Context(), actor, stockID, &req)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusOK, "Batch updated", resp)
}

// Get returns one batch by id
func (h *StockHandler) Get(c fiber.Ctx) error {
	stockID, err := stockIDParam(c)
	if err != nil {
		return err
	}
	resp, flowErr := h.flow.GetStock(c.Context(), stockID)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusOK, "Batch found", resp)
}

// ListAvailable lists batches with units left, optionally filtered by breed
func (h *StockHandler) ListAvailable(c fiber.Ctx) error {
	var breed *string
	if b := c.Query("breed"); b != "" {
		breed = &b
	}
	resp, err := h.flow.ListAvailable(c.Context(), breed)
	if err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Batches listed", resp)
}

// ArchiveExpired triggers the archival sweep out of schedule. Admin only.
func (h *StockHandler) ArchiveExpired(c fiber.Ctx) error {
	if _, err := adminActor(c); err != nil {
		return err
	}
	resp, err := h.flow.ArchiveExpired(c.Context())
	if err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Sweep completed", resp)
}

func stockIDParam(c fiber.Ctx) (uint, error) {
	stockID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, errorResponse(c, fiber.StatusBadRequest, "INVALID_STOCK_ID", "Stock id must be an integer", nil)
	}
	return uint(stockID), nil
}

func adminActor(c fiber.Ctx) (*businessflow.Actor, error) {
	adminID, ok := middleware.GetAdminUserID(c)
	if !ok {
		return nil, errorResponse(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Admin authentication required", nil)
	}
	return &businessflow.Actor{UserID: adminID, IsAdmin: true}, nil
}
