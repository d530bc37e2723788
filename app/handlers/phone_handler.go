package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/ptichkin/brooder/app/dto"
	businessflow "github.com/ptichkin/brooder/business_flow"
	"github.com/ptichkin/brooder/models"
)

// PhoneHandler handles phone guard administration HTTP requests
type PhoneHandler struct {
	flow      businessflow.PhoneGuardFlow
	validator *validator.Validate
}

// NewPhoneHandler creates a new phone handler
func NewPhoneHandler(flow businessflow.PhoneGuardFlow) *PhoneHandler {
	return &PhoneHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// Status reports whether a phone is trusted or blocked. Admin only.
func (h *PhoneHandler) Status(c fiber.Ctx) error {
	if _, err := adminActor(c); err != nil {
		return err
	}
	phone := c.Query("phone")
	if phone == "" {
		return errorResponse(c, fiber.StatusBadRequest, "MISSING_PHONE", "phone query parameter is required", nil)
	}

	trusted, err := h.flow.IsTrusted(c.Context(), phone)
	if err != nil {
		return mapFlowError(c, err)
	}
	blocked, err := h.flow.IsBlocked(c.Context(), phone)
	if err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Phone status", dto.PhoneStatusResponse{
		Phone:   phone,
		Trusted: trusted,
		Blocked: blocked,
	})
}

// Block adds a phone to the block list. Admin only.
func (h *PhoneHandler) Block(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	var req dto.BlockPhoneRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}
	if err := h.flow.Block(c.Context(), actor, req.Phone, req.Reason); err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Phone blocked", nil)
}

// Unblock removes a phone from the block list. Admin only.
func (h *PhoneHandler) Unblock(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	phone := c.Query("phone")
	if phone == "" {
		return errorResponse(c, fiber.StatusBadRequest, "MISSING_PHONE", "phone query parameter is required", nil)
	}
	if err := h.flow.Unblock(c.Context(), actor, phone); err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Phone unblocked", nil)
}

// Trust marks a phone as trusted on an admin's authority
func (h *PhoneHandler) Trust(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	var req dto.TrustPhoneRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}
	if err := h.flow.GrantTrust(c.Context(), req.Phone, req.UserID, &actor.UserID, models.TrustSourceAdmin); err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Phone trusted", nil)
}

// RevokeTrust removes a phone from the trust list. Admin only.
func (h *PhoneHandler) RevokeTrust(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	phone := c.Query("phone")
	if phone == "" {
		return errorResponse(c, fiber.StatusBadRequest, "MISSING_PHONE", "phone query parameter is required", nil)
	}
	if err := h.flow.RevokeTrust(c.Context(), actor, phone); err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Trust revoked", nil)
}
