package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/require"

	"github.com/scituinsk/BE-Smart-Farming/internal/auth"
	devdomain "github.com/scituinsk/BE-Smart-Farming/internal/domain/device"
	"github.com/scituinsk/BE-Smart-Farming/internal/hub"
	devicerepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/device"
)

var errConnClosed = errors.New("connection closed")

// fakeConn scripts the inbound side of one websocket connection. Each read
// step may inspect test state before handing its payload to the loop.
type fakeConn struct {
	serial string
	token  string
	reads  []func() (string, error)

	mu     sync.Mutex
	writes []string
	closed bool
}

func (c *fakeConn) Params(key string, _ ...string) string {
	if key == "serial" {
		return c.serial
	}

	return ""
}

func (c *fakeConn) Query(key string, _ ...string) string {
	if key == "token" {
		return c.token
	}

	return ""
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	if len(c.reads) == 0 {
		return 0, nil, errConnClosed
	}

	step := c.reads[0]
	c.reads = c.reads[1:]

	payload, err := step()
	if err != nil {
		return 0, nil, err
	}

	return websocket.TextMessage, []byte(payload), nil
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes = append(c.writes, string(data))

	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.writes...)
}

// fakeDevices serves the gate test module and records persistence calls.
type fakeDevices struct {
	module *devdomain.Module

	mu       sync.Mutex
	statuses []bool
	logs     []string
	sensors  map[string]string
}

func newFakeDevices(module *devdomain.Module) *fakeDevices {
	return &fakeDevices{module: module, sensors: make(map[string]string)}
}

func (d *fakeDevices) GetModuleByID(_ context.Context, id uint) (*devdomain.Module, error) {
	if d.module == nil || d.module.ID != id {
		return nil, devicerepo.ErrNotFound
	}

	return d.module, nil
}

func (d *fakeDevices) GetModuleBySerial(_ context.Context, serial string) (*devdomain.Module, error) {
	if d.module == nil || d.module.SerialID != serial {
		return nil, devicerepo.ErrNotFound
	}

	return d.module, nil
}

func (d *fakeDevices) GetGroup(context.Context, uint) (*devdomain.ScheduleGroup, error) {
	return nil, devicerepo.ErrNotFound
}

func (d *fakeDevices) SetModuleStatus(_ context.Context, _ uint, online bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.statuses = append(d.statuses, online)

	return nil
}

func (d *fakeDevices) SaveScheduleLog(_ context.Context, log *devdomain.ScheduleLog) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logs = append(d.logs, log.Message)

	return nil
}

func (d *fakeDevices) UpsertSensorReading(_ context.Context, _ uint, feature, data string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sensors[feature] = data

	return nil
}

// observerSender records what a second group member receives.
type observerSender struct {
	mu       sync.Mutex
	messages []string
}

func (s *observerSender) Send(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, message)

	return nil
}

func (s *observerSender) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.messages...)
}

// handlerFixture wires a Handler over in-memory collaborators, with one
// observer already in the module's group.
type handlerFixture struct {
	handler  *Handler
	hub      *hub.Hub
	devices  *fakeDevices
	tokens   *auth.TokenManager
	observer *observerSender
	group    string
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	f := &handlerFixture{
		hub:      hub.New(),
		devices:  newFakeDevices(testModule()),
		tokens:   auth.NewTokenManager("handler-test-secret", time.Hour),
		observer: new(observerSender),
		group:    hub.GroupName("mod-1"),
	}

	f.hub.Join(f.group, "observer", f.observer)
	f.handler = NewHandler(f.devices, f.hub, f.tokens)

	return f
}

func (f *handlerFixture) memberCount() int {
	return f.hub.MemberCount(f.group)
}

// TestRunDeviceJoinsOnFirstAcceptedMessage drives a device connection
// through the loop: no membership until the secret is presented, reports
// persisted, the secret stripped before rebroadcast, and offline announced
// on disconnect.
func TestRunDeviceJoinsOnFirstAcceptedMessage(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	conn := &fakeConn{serial: "mod-1"}
	conn.reads = []func() (string, error){
		func() (string, error) {
			// Connected but anonymous: not in the group yet.
			require.Equal(t, 1, f.memberCount())

			return `{"kind":"control","command":"on"}`, nil
		},
		func() (string, error) {
			// The discarded anonymous message must not have joined it.
			require.Equal(t, 1, f.memberCount())

			return `{"device":"very-secret","kind":"status","device_logs":["watering done"],"sensors":{"temperature":"28.4"}}`, nil
		},
		func() (string, error) {
			require.Equal(t, 2, f.memberCount())

			return "", errConnClosed
		},
	}

	f.handler.run(conn)

	require.True(t, conn.closed)
	require.Equal(t, 1, f.memberCount())

	require.Equal(t, []bool{true, false}, f.devices.statuses)
	require.Equal(t, []string{"watering done"}, f.devices.logs)
	require.Equal(t, map[string]string{"temperature": `"28.4"`}, f.devices.sensors)

	got := f.observer.received()
	require.Len(t, got, 3)
	require.JSONEq(t, `{"kind":"status","online":true}`, got[0])
	require.NotContains(t, got[1], "very-secret")
	require.JSONEq(t, `{"kind":"status","device_logs":["watering done"],"sensors":{"temperature":"28.4"}}`, got[1])
	require.JSONEq(t, `{"kind":"status","online":false}`, got[2])

	// The device sees the system announcement but not its own report.
	require.Equal(t, []string{`{"kind":"status","online":true}`}, conn.written())
}

// TestRunUserJoinsOnConnectAndForwardsVerbatim covers the dashboard side:
// membership starts at connect and both the raw text protocol and
// structured control messages go out byte for byte.
func TestRunUserJoinsOnConnectAndForwardsVerbatim(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	token, err := f.tokens.Generate(7, "wahyu")
	require.NoError(t, err)

	conn := &fakeConn{serial: "mod-1", token: token}
	conn.reads = []func() (string, error){
		func() (string, error) {
			require.Equal(t, 2, f.memberCount())

			return "PIN:2:ON:30", nil
		},
		func() (string, error) {
			return `{"kind":"control","command":"on","duration":30}`, nil
		},
	}

	f.handler.run(conn)

	require.Equal(t, 1, f.memberCount())
	require.Empty(t, f.devices.statuses)
	require.Equal(t,
		[]string{"PIN:2:ON:30", `{"kind":"control","command":"on","duration":30}`},
		f.observer.received())
}

func TestRunClosesUnknownSerial(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	conn := &fakeConn{serial: "nope"}
	conn.reads = []func() (string, error){
		func() (string, error) {
			t.Fatal("read loop must not start for an unknown module")

			return "", nil
		},
	}

	f.handler.run(conn)

	require.True(t, conn.closed)
	require.Equal(t, 1, f.memberCount())
}

func TestRunClosesInvalidToken(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	conn := &fakeConn{serial: "mod-1", token: "not-a-token"}

	f.handler.run(conn)

	require.True(t, conn.closed)
	require.Equal(t, 1, f.memberCount())
	require.Empty(t, f.observer.received())
}

func TestRunClosesNonMemberUser(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	token, err := f.tokens.Generate(99, "stranger")
	require.NoError(t, err)

	conn := &fakeConn{serial: "mod-1", token: token}

	f.handler.run(conn)

	require.True(t, conn.closed)
	require.Equal(t, 1, f.memberCount())
}
