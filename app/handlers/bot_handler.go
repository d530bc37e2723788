package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/ptichkin/brooder/app/bot"
	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/app/session"
)

// BotHandler exposes the order wizard to the chat gateway. The gateway owns
// the rendering; this surface only moves sessions between steps.
type BotHandler struct {
	wizard    *bot.Wizard
	validator *validator.Validate
}

// NewBotHandler creates a new bot gateway handler
func NewBotHandler(wizard *bot.Wizard) *BotHandler {
	return &BotHandler{
		wizard:    wizard,
		validator: validator.New(),
	}
}

// Start begins a fresh wizard run for the user
func (h *BotHandler) Start(c fiber.Ctx) error {
	userID, err := h.userIDParam(c)
	if err != nil {
		return err
	}
	return successResponse(c, fiber.StatusOK, "Wizard started", promptResponse(h.wizard.Start(userID)))
}

// State returns the step currently on top of the user's stack
func (h *BotHandler) State(c fiber.Ctx) error {
	userID, err := h.userIDParam(c)
	if err != nil {
		return err
	}
	return successResponse(c, fiber.StatusOK, "Wizard state", promptResponse(h.wizard.Current(userID)))
}

// Back pops one step off the user's stack
func (h *BotHandler) Back(c fiber.Ctx) error {
	userID, err := h.userIDParam(c)
	if err != nil {
		return err
	}
	return successResponse(c, fiber.StatusOK, "Stepped back", promptResponse(h.wizard.Back(userID)))
}

// Answer applies the user's input to the current step and advances
func (h *BotHandler) Answer(c fiber.Ctx) error {
	userID, err := h.userIDParam(c)
	if err != nil {
		return err
	}

	switch session.Step(c.Params("step")) {
	case session.StepSelectBreed:
		return h.textStep(c, func(value string) (bot.Prompt, error) {
			return h.wizard.SelectBreed(userID, value)
		})
	case session.StepSelectIncubator:
		return h.textStep(c, func(value string) (bot.Prompt, error) {
			return h.wizard.SelectIncubator(userID, value)
		})
	case session.StepSelectDate:
		return h.textStep(c, func(value string) (bot.Prompt, error) {
			return h.wizard.SelectDate(c.Context(), userID, value)
		})
	case session.StepEnterPhone:
		return h.textStep(c, func(value string) (bot.Prompt, error) {
			return h.wizard.EnterPhone(c.Context(), userID, value)
		})
	case session.StepEnterQuantity:
		var req dto.WizardQuantityRequest
		if err := c.Bind().JSON(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
		}
		p, flowErr := h.wizard.EnterQuantity(c.Context(), userID, req.Quantity)
		if flowErr != nil {
			return mapFlowError(c, flowErr)
		}
		return successResponse(c, fiber.StatusOK, "Step recorded", promptResponse(p))
	default:
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_STEP", "Unknown wizard step", nil)
	}
}

// Confirm places the drafted order and resets the wizard
func (h *BotHandler) Confirm(c fiber.Ctx) error {
	userID, err := h.userIDParam(c)
	if err != nil {
		return err
	}

	var req dto.WizardConfirmRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}

	resp, flowErr := h.wizard.Confirm(c.Context(), userID, req.FullName, req.Username)
	if flowErr != nil {
		return mapFlowError(c, flowErr)
	}
	return successResponse(c, fiber.StatusCreated, "Order placed", resp)
}

// Cancel abandons the wizard run
func (h *BotHandler) Cancel(c fiber.Ctx) error {
	userID, err := h.userIDParam(c)
	if err != nil {
		return err
	}
	h.wizard.Cancel(userID)
	return successResponse(c, fiber.StatusOK, "Wizard cancelled", promptResponse(h.wizard.Current(userID)))
}

func (h *BotHandler) textStep(c fiber.Ctx, apply func(string) (bot.Prompt, error)) error {
	var req dto.WizardInputRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}
	p, err := apply(req.Value)
	if err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Step recorded", promptResponse(p))
}

func (h *BotHandler) userIDParam(c fiber.Ctx) (int64, error) {
	userID, err := strconv.ParseInt(c.Params("userID"), 10, 64)
	if err != nil {
		return 0, errorResponse(c, fiber.StatusBadRequest, "INVALID_USER_ID", "User id must be an integer", nil)
	}
	return userID, nil
}

func promptResponse(p bot.Prompt) *dto.WizardPromptResponse {
	return &dto.WizardPromptResponse{
		Step:      string(p.Step),
		Breed:     p.Draft.Breed,
		Incubator: p.Draft.Incubator,
		Date:      p.Draft.Date,
		Quantity:  p.Draft.Quantity,
		Phone:     p.Draft.Phone,
		StockID:   p.Draft.StockID,
	}
}
