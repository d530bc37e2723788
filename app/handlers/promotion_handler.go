package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/ptichkin/brooder/app/dto"
	businessflow "github.com/ptichkin/brooder/business_flow"
)

const defaultPromotionLimit = 10

// PromotionHandler handles promotion HTTP requests
type PromotionHandler struct {
	flow      businessflow.PromotionFlow
	validator *validator.Validate
}

// NewPromotionHandler creates a new promotion handler
func NewPromotionHandler(flow businessflow.PromotionFlow) *PromotionHandler {
	return &PromotionHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// Create publishes a new promotion. Admin only.
func (h *PromotionHandler) Create(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	var req dto.CreatePromotionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}
	resp, flowErr := h.flow.CreatePromotion(c.Context(), actor, &req)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusCreated, "Promotion created", resp)
}

// ListActive lists promotions running today
func (h *PromotionHandler) ListActive(c fiber.Ctx) error {
	limit := defaultPromotionLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	resp, err := h.flow.ActivePromotions(c.Context(), limit)
	if err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Promotions listed", resp)
}

// ListAll lists every promotion. Admin only.
func (h *PromotionHandler) ListAll(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	resp, flowErr := h.flow.AllPromotions(c.Context(), actor)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusOK, "Promotions listed", resp)
}

// Deactivate retires a promotion. Admin only.
func (h *PromotionHandler) Deactivate(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	promoID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_PROMOTION_ID", "Promotion id must be an integer", nil)
	}
	if err := h.flow.DeactivatePromotion(c.Context(), actor, uint(promoID)); err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Promotion deactivated", nil)
}
