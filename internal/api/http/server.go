package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/scituinsk/BE-Smart-Farming/internal/api/ws"
	"github.com/scituinsk/BE-Smart-Farming/internal/auth"
	alarmrepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/alarm"
	devicerepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/device"
	userrepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/user"
	"github.com/scituinsk/BE-Smart-Farming/internal/service/scheduler"
)

// ControlPublisher pushes a command to a device over the MQTT bridge.
type ControlPublisher interface {
	PublishControl(ctx context.Context, serialID, command string, duration int64, source string) error
}

// Server wires the REST and websocket API onto a fiber application.
type Server struct {
	users   userrepo.Repository
	devices devicerepo.Repository
	alarms  alarmrepo.Repository
	sched   *scheduler.Scheduler
	tokens  *auth.TokenManager
	ws      *ws.Handler
	// control is nil when no MQTT broker is configured.
	control ControlPublisher
}

// NewServer creates the API server over its collaborators.
func NewServer(
	users userrepo.Repository,
	devices devicerepo.Repository,
	alarms alarmrepo.Repository,
	sched *scheduler.Scheduler,
	tokens *auth.TokenManager,
	wsHandler *ws.Handler,
	control ControlPublisher,
) *Server {
	return &Server{
		users:   users,
		devices: devices,
		alarms:  alarms,
		sched:   sched,
		tokens:  tokens,
		ws:      wsHandler,
		control: control,
	}
}

// RegisterRoutes attaches every endpoint to the application.
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Get("/health", s.health)

	app.Use("/ws", ws.Upgrade)
	app.Get("/ws/device/:serial", s.ws.Serve())

	api := app.Group("/api/v1")

	api.Post("/auth/register", s.register)
	api.Post("/auth/login", s.login)

	authorized := api.Group("", RequireAuth(s.tokens))

	authorized.Get("/modules/:serial", s.getModule)
	authorized.Post("/modules/:serial/control", s.controlModule)
	authorized.Get("/modules/:serial/groups/:group/alarms", s.listAlarms)

	authorized.Get("/alarms", s.listUserAlarms)
	authorized.Post("/alarms", s.createAlarm)
	authorized.Get("/alarms/:id", s.getAlarm)
	authorized.Put("/alarms/:id", s.updateAlarm)
	authorized.Delete("/alarms/:id", s.deleteAlarm)
}

// health handles GET /health.
func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
