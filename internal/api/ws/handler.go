package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/scituinsk/BE-Smart-Farming/internal/auth"
	devdomain "github.com/scituinsk/BE-Smart-Farming/internal/domain/device"
	"github.com/scituinsk/BE-Smart-Farming/internal/hub"
	"github.com/scituinsk/BE-Smart-Farming/internal/logger"
	devicerepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/device"
)

// Handler serves the per-module websocket channel.
type Handler struct {
	devices devicerepo.Repository
	hub     *hub.Hub
	tokens  *auth.TokenManager
}

// NewHandler creates a websocket handler over the module repository,
// the broadcast hub and the token validator.
func NewHandler(devices devicerepo.Repository, h *hub.Hub, tokens *auth.TokenManager) *Handler {
	return &Handler{devices: devices, hub: h, tokens: tokens}
}

// Upgrade is the fiber middleware guarding websocket routes.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}

	return fiber.ErrUpgradeRequired
}

// Serve returns the connection handler for GET /ws/device/:serial.
// Users pass their access token as the `token` query parameter; devices
// authenticate per message with their shared secret.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		h.run(c)
	})
}

// wsConn is the slice of the websocket connection the read loop uses.
type wsConn interface {
	Params(key string, defaultValue ...string) string
	Query(key string, defaultValue ...string) string
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// wsSender adapts a websocket connection to the hub. The hub fans out from
// multiple goroutines and the underlying connection does not allow
// concurrent writes, so sends are serialized.
type wsSender struct {
	mu   sync.Mutex
	conn wsConn
}

func (s *wsSender) Send(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.WriteMessage(websocket.TextMessage, []byte(message))
}

func (h *Handler) run(c wsConn) {
	defer c.Close() //nolint:errcheck // connection teardown

	ctx := logger.WithName(context.Background(), "ws")
	serial := c.Params("serial")

	module, err := h.devices.GetModuleBySerial(ctx, serial)
	if err != nil {
		logger.DebugKV(ctx, "Connection to unknown module rejected", "serial", serial)

		return
	}

	var claims *auth.Claims
	if token := c.Query("token"); token != "" {
		claims, err = h.tokens.Validate(token)
		if err != nil {
			logger.DebugKV(ctx, "Connection with invalid token rejected", "serial", serial)

			return
		}
	}

	gate := NewGate(module, claims)
	if gate.Rejected() {
		logger.DebugKV(ctx, "Connection rejected", "serial", serial)

		return
	}

	group := hub.GroupName(module.SerialID)
	connID := uuid.New().String()
	sender := &wsSender{conn: c}

	if gate.JoinOnConnect() {
		h.hub.Join(group, connID, sender)
	}

	deviceOnline := false

	defer func() {
		h.hub.Leave(group, connID)

		if deviceOnline {
			h.markOnline(ctx, module, false)
		}
	}()

	logger.DebugKV(ctx, "Connection opened",
		"serial", serial, "conn_id", connID, "state", gate.State().String())

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}

		msg, ok := gate.Admit(raw)
		if !ok {
			continue
		}

		if gate.State() == StateAuthenticatedDevice {
			// Devices join on their first accepted message; Join is
			// idempotent so repeating it per message is harmless.
			h.hub.Join(group, connID, sender)

			if !deviceOnline {
				deviceOnline = true
				h.markOnline(ctx, module, true)
			}

			h.persistReports(ctx, module, msg)

			// Strip the secret before the message leaves the connection.
			msg.Device = ""
			if rebroadcast, err := json.Marshal(msg); err == nil {
				h.hub.Publish(ctx, group, string(rebroadcast), connID, hub.OriginClient)
			}

			continue
		}

		// Authorized user traffic is forwarded verbatim.
		h.hub.Publish(ctx, group, string(raw), connID, hub.OriginClient)
	}
}

// markOnline records and announces the device's connection state.
func (h *Handler) markOnline(ctx context.Context, module *devdomain.Module, online bool) {
	if err := h.devices.SetModuleStatus(ctx, module.ID, online); err != nil {
		logger.WarnKV(ctx, "Failed to update module status",
			"module", module.SerialID, "online", online, "error", err)
	}

	announcement, err := json.Marshal(statusAnnouncement{Kind: KindStatus, Online: online})
	if err != nil {
		return
	}

	h.hub.Publish(ctx, hub.GroupName(module.SerialID), string(announcement), "", hub.OriginSystem)
}

// statusAnnouncement is the system-origin online/offline broadcast.
type statusAnnouncement struct {
	Kind   Kind `json:"kind"`
	Online bool `json:"online"`
}

// persistReports stores device-reported schedule logs and sensor values.
// Every record is written independently so one failure cannot block the rest.
func (h *Handler) persistReports(ctx context.Context, module *devdomain.Module, msg *Message) {
	for _, line := range msg.DeviceLogs {
		log := &devdomain.ScheduleLog{ModuleID: module.ID, Message: line}
		if err := h.devices.SaveScheduleLog(ctx, log); err != nil {
			logger.WarnKV(ctx, "Failed to save schedule log",
				"module", module.SerialID, "error", err)
		}
	}

	for feature, value := range msg.Sensors {
		if err := h.devices.UpsertSensorReading(ctx, module.ID, feature, string(value)); err != nil {
			logger.WarnKV(ctx, "Failed to save sensor reading",
				"module", module.SerialID, "feature", feature, "error", err)
		}
	}
}
