package handlers

import (
	"crypto/subtle"
	"slices"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/app/services"
	businessflow "github.com/ptichkin/brooder/business_flow"
	"github.com/ptichkin/brooder/config"
	"github.com/ptichkin/brooder/utils"
)

// AdminHandler handles admin roster and authentication HTTP requests
type AdminHandler struct {
	flow         businessflow.AdminFlow
	tokenService services.TokenService
	jwtCfg       config.JWTConfig
	adminCfg     config.AdminConfig
	validator    *validator.Validate
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	flow businessflow.AdminFlow,
	tokenService services.TokenService,
	jwtCfg config.JWTConfig,
	adminCfg config.AdminConfig,
) *AdminHandler {
	return &AdminHandler{
		flow:         flow,
		tokenService: tokenService,
		jwtCfg:       jwtCfg,
		adminCfg:     adminCfg,
		validator:    validator.New(),
	}
}

// Login exchanges the shared admin key for an API token. The caller must be
// on the roster or in the bootstrap list.
func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}

	if h.adminCfg.AuthKey == "" ||
		subtle.ConstantTimeCompare([]byte(req.AuthKey), []byte(h.adminCfg.AuthKey)) != 1 {
		return errorResponse(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
	}

	onRoster, err := h.flow.IsAdmin(c.Context(), req.UserID)
	if err != nil {
		return mapFlowError(c, err)
	}
	if !onRoster && !slices.Contains(h.adminCfg.BootstrapIDs, req.UserID) {
		return errorResponse(c, fiber.StatusForbidden, "NOT_AUTHORIZED", "User is not an admin", nil)
	}

	token, err := h.tokenService.GenerateAdminToken(req.UserID)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to issue token", nil)
	}
	return successResponse(c, fiber.StatusOK, "Token issued", dto.AdminLoginResponse{
		Token:     token,
		ExpiresAt: utils.UTCNowAdd(h.jwtCfg.AccessTokenTTL),
	})
}

// Add grants admin rights to a user. Admin only.
func (h *AdminHandler) Add(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	var req dto.AddAdminRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to parse request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}
	if err := h.flow.AddAdmin(c.Context(), actor, req.UserID); err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusCreated, "Admin added", nil)
}

// Remove revokes admin rights. Admin only.
func (h *AdminHandler) Remove(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	userID, err := strconv.ParseInt(c.Params("userID"), 10, 64)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_USER_ID", "User id must be an integer", nil)
	}
	if err := h.flow.RemoveAdmin(c.Context(), actor, userID); err != nil {
		return mapFlowError(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Admin removed", nil)
}

// List returns the roster. Admin only.
func (h *AdminHandler) List(c fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	admins, err := h.flow.ListAdmins(c.Context(), actor)
	if err != nil {
		return mapFlowError(c, err)
	}
	out := make([]dto.AdminResponse, 0, len(admins))
	for _, a := range admins {
		out = append(out, dto.AdminResponse{
			UserID:  a.UserID,
			AddedBy: a.AddedBy,
			AddedAt: a.AddedAt,
		})
	}
	return successResponse(c, fiber.StatusOK, "Admins listed", out)
}
