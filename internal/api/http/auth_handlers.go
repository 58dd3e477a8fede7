package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/scituinsk/BE-Smart-Farming/internal/auth"
	"github.com/scituinsk/BE-Smart-Farming/internal/domain/user"
	"github.com/scituinsk/BE-Smart-Farming/internal/logger"
	userrepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/user"
)

// register handles POST /api/v1/auth/register.
func (s *Server) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	if _, err := s.users.GetByUsername(c.UserContext(), req.Username); err == nil {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "Username is already taken",
		})
	} else if !errors.Is(err, userrepo.ErrNotFound) {
		return internalError(c, err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return internalError(c, err)
	}

	account := &user.User{Username: req.Username, PasswordHash: hash}
	if err := s.users.Create(c.UserContext(), account); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       account.ID,
		"username": account.Username,
	})
}

// login handles POST /api/v1/auth/login.
func (s *Server) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	account, err := s.users.GetByUsername(c.UserContext(), req.Username)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return invalidCredentials(c)
		}

		return internalError(c, err)
	}

	if !auth.CheckPassword(req.Password, account.PasswordHash) {
		return invalidCredentials(c)
	}

	token, err := s.tokens.Generate(account.ID, account.Username)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(TokenResponse{
		AccessToken: token,
		ExpiresIn:   s.tokens.TTLSeconds(),
		TokenType:   "Bearer",
	})
}

func invalidCredentials(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "Invalid username or password",
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

func internalError(c *fiber.Ctx, err error) error {
	logger.ErrorKV(c.UserContext(), "Request failed",
		"method", c.Method(), "path", c.Path(), "error", err)

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "Something went wrong",
	})
}
