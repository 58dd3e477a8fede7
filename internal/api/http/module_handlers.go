package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	domain "github.com/scituinsk/BE-Smart-Farming/internal/domain/device"
	devicerepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/device"
)

// getModule handles GET /api/v1/modules/:serial.
func (s *Server) getModule(c *fiber.Ctx) error {
	module, err := s.loadAuthorizedModule(c)
	if err != nil {
		return err
	}

	return c.JSON(module)
}

// controlModule handles POST /api/v1/modules/:serial/control by pushing the
// command to the device over the MQTT bridge.
func (s *Server) controlModule(c *fiber.Ctx) error {
	module, err := s.loadAuthorizedModule(c)
	if err != nil {
		return err
	}

	var req ControlRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Command == "" {
		return badRequest(c, "command is required")
	}

	if s.control == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "bridge_unavailable",
			Message: "MQTT bridge is not configured",
		})
	}

	source := requestClaims(c).Username
	if err := s.control.PublishControl(c.UserContext(), module.SerialID, req.Command, req.Duration, source); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "sent"})
}

// loadAuthorizedModule fetches the :serial module and checks membership.
// Unknown serials and non-membership both read as not found.
func (s *Server) loadAuthorizedModule(c *fiber.Ctx) (*domain.Module, error) {
	module, err := s.devices.GetModuleBySerial(c.UserContext(), c.Params("serial"))
	if err != nil {
		if errors.Is(err, devicerepo.ErrNotFound) {
			return nil, notFound(c, "Module not found")
		}

		return nil, internalError(c, err)
	}

	if !module.HasUser(requestClaims(c).UserID) {
		return nil, notFound(c, "Module not found")
	}

	return module, nil
}
