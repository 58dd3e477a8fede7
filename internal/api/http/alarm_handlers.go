package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	domain "github.com/scituinsk/BE-Smart-Farming/internal/domain/alarm"
	alarmrepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/alarm"
	devicerepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/device"
)

// listUserAlarms handles GET /api/v1/alarms.
func (s *Server) listUserAlarms(c *fiber.Ctx) error {
	alarms, err := s.alarms.ListByUser(c.UserContext(), requestClaims(c).UserID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"alarms": alarms})
}

// createAlarm handles POST /api/v1/alarms.
func (s *Server) createAlarm(c *fiber.Ctx) error {
	var req AlarmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tod, err := domain.ParseTimeOfDay(req.Time)
	if err != nil {
		return badRequest(c, "time must be HH:MM:SS")
	}

	if req.Duration <= 0 {
		return badRequest(c, "duration must be positive")
	}

	if err := s.authorizeGroup(c, req.GroupID); err != nil {
		return err
	}

	created, err := s.alarms.Create(c.UserContext(), &domain.Alarm{
		GroupID:    req.GroupID,
		Label:      req.Label,
		Duration:   req.Duration,
		Time:       tod,
		IsActive:   req.IsActive,
		RepeatMask: req.repeatMask(),
	})
	if err != nil {
		return internalError(c, err)
	}

	s.sched.Arm(c.UserContext(), created)

	return c.Status(fiber.StatusCreated).JSON(created)
}

// getAlarm handles GET /api/v1/alarms/:id.
func (s *Server) getAlarm(c *fiber.Ctx) error {
	alarm, err := s.loadAuthorizedAlarm(c)
	if err != nil {
		return err
	}

	return c.JSON(alarm)
}

// updateAlarm handles PUT /api/v1/alarms/:id. Every accepted update goes
// through the scheduler so the stored handle always tracks the new state.
func (s *Server) updateAlarm(c *fiber.Ctx) error {
	alarm, err := s.loadAuthorizedAlarm(c)
	if err != nil {
		return err
	}

	var req AlarmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tod, err := domain.ParseTimeOfDay(req.Time)
	if err != nil {
		return badRequest(c, "time must be HH:MM:SS")
	}

	if req.Duration <= 0 {
		return badRequest(c, "duration must be positive")
	}

	if req.GroupID != 0 && req.GroupID != alarm.GroupID {
		if err := s.authorizeGroup(c, req.GroupID); err != nil {
			return err
		}

		alarm.GroupID = req.GroupID
	}

	alarm.Label = req.Label
	alarm.Duration = req.Duration
	alarm.Time = tod
	alarm.IsActive = req.IsActive
	alarm.RepeatMask = req.repeatMask()

	updated, err := s.alarms.Update(c.UserContext(), alarm)
	if err != nil {
		return internalError(c, err)
	}

	if updated.IsActive {
		s.sched.Arm(c.UserContext(), updated)
	} else {
		s.sched.Disarm(c.UserContext(), updated)
	}

	return c.JSON(updated)
}

// deleteAlarm handles DELETE /api/v1/alarms/:id.
func (s *Server) deleteAlarm(c *fiber.Ctx) error {
	alarm, err := s.loadAuthorizedAlarm(c)
	if err != nil {
		return err
	}

	// Withdraw the pending execution before the row disappears.
	s.sched.Disarm(c.UserContext(), alarm)

	if err := s.alarms.Delete(c.UserContext(), alarm.ID); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// listAlarms handles GET /api/v1/modules/:serial/groups/:group/alarms.
func (s *Server) listAlarms(c *fiber.Ctx) error {
	groupID, err := parseID(c.Params("group"))
	if err != nil {
		return badRequest(c, "Invalid group id")
	}

	module, err := s.loadAuthorizedModule(c)
	if err != nil {
		return err
	}

	group, err := s.devices.GetGroup(c.UserContext(), groupID)
	if err != nil || group.ModuleID != module.ID {
		return notFound(c, "Schedule group not found")
	}

	alarms, err := s.alarms.ListByGroup(c.UserContext(), groupID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"alarms": alarms})
}

// loadAuthorizedAlarm fetches the :id alarm and checks the requesting user
// is a member of the module owning its schedule group.
func (s *Server) loadAuthorizedAlarm(c *fiber.Ctx) (*domain.Alarm, error) {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return nil, badRequest(c, "Invalid alarm id")
	}

	alarm, err := s.alarms.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, alarmrepo.ErrNotFound) {
			return nil, notFound(c, "Alarm not found")
		}

		return nil, internalError(c, err)
	}

	if err := s.authorizeGroup(c, alarm.GroupID); err != nil {
		return nil, err
	}

	return alarm, nil
}

// authorizeGroup checks membership of the module owning the schedule group.
// Unknown groups and non-membership both read as not found, so the API does
// not leak which module ids exist.
func (s *Server) authorizeGroup(c *fiber.Ctx, groupID uint) error {
	group, err := s.devices.GetGroup(c.UserContext(), groupID)
	if err != nil {
		if errors.Is(err, devicerepo.ErrNotFound) {
			return notFound(c, "Schedule group not found")
		}

		return internalError(c, err)
	}

	module, err := s.devices.GetModuleByID(c.UserContext(), group.ModuleID)
	if err != nil {
		return internalError(c, err)
	}

	if !module.HasUser(requestClaims(c).UserID) {
		return notFound(c, "Schedule group not found")
	}

	return nil
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Error:   "not_found",
		Message: message,
	})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}

	return uint(id), nil
}
