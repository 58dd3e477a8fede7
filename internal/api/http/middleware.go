package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/scituinsk/BE-Smart-Farming/internal/auth"
)

// claimsContextKey stores validated token claims in the request locals.
const claimsContextKey = "claims"

// RequireAuth validates the Bearer token and stores its claims for handlers.
func RequireAuth(tokens *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Bearer token is required",
			})
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(claimsContextKey, claims)

		return c.Next()
	}
}

// requestClaims returns the claims stored by RequireAuth.
func requestClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(claimsContextKey).(*auth.Claims)

	return claims
}
