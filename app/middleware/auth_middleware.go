// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/app/services"
)

const adminUserIDKey = "admin_user_id"

// AuthMiddleware validates admin JWT tokens on protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenService: tokenService}
}

// AdminAuthenticate validates the bearer token and stores the admin's user id
// in the request context
func (m *AuthMiddleware) AdminAuthenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(
				dto.ErrorResponse("MISSING_AUTHORIZATION_HEADER", "Authorization header is required", nil))
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(
				dto.ErrorResponse("INVALID_AUTHORIZATION_FORMAT", "Expected 'Bearer <token>'", nil))
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(
				dto.ErrorResponse("MISSING_ACCESS_TOKEN", "Access token is required", nil))
		}

		claims, err := m.tokenService.ValidateAdminToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(
				dto.ErrorResponse("INVALID_TOKEN", "Token is invalid or expired", nil))
		}

		c.Locals(adminUserIDKey, claims.UserID)
		return c.Next()
	}
}

// GetAdminUserID returns the authenticated admin's user id from the context
func GetAdminUserID(c fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(adminUserIDKey).(int64)
	return id, ok
}
