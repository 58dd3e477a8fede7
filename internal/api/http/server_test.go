package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/scituinsk/BE-Smart-Farming/internal/api/ws"
	"github.com/scituinsk/BE-Smart-Farming/internal/auth"
	alarmdomain "github.com/scituinsk/BE-Smart-Farming/internal/domain/alarm"
	devdomain "github.com/scituinsk/BE-Smart-Farming/internal/domain/device"
	userdomain "github.com/scituinsk/BE-Smart-Farming/internal/domain/user"
	"github.com/scituinsk/BE-Smart-Farming/internal/hub"
	alarmrepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/alarm"
	devicerepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/device"
	userrepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/user"
	"github.com/scituinsk/BE-Smart-Farming/internal/service/scheduler"
	"github.com/scituinsk/BE-Smart-Farming/internal/taskqueue"
)

// memUsers is an in-memory user repository.
type memUsers struct {
	mu     sync.Mutex
	nextID uint
	users  map[string]*userdomain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*userdomain.User)}
}

func (m *memUsers) Create(_ context.Context, u *userdomain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	u.ID = m.nextID
	m.users[u.Username] = u

	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uint) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}

	return nil, userrepo.ErrNotFound
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return nil, userrepo.ErrNotFound
	}

	return u, nil
}

// memAlarms is an in-memory alarm repository.
type memAlarms struct {
	mu     sync.Mutex
	nextID uint
	alarms map[uint]*alarmdomain.Alarm
}

func newMemAlarms() *memAlarms {
	return &memAlarms{alarms: make(map[uint]*alarmdomain.Alarm)}
}

func (m *memAlarms) Create(_ context.Context, a *alarmdomain.Alarm) (*alarmdomain.Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	a.ID = m.nextID
	m.alarms[a.ID] = a.Clone()

	return a.Clone(), nil
}

func (m *memAlarms) GetByID(_ context.Context, id uint) (*alarmdomain.Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alarms[id]
	if !ok {
		return nil, alarmrepo.ErrNotFound
	}

	return a.Clone(), nil
}

func (m *memAlarms) ListByGroup(_ context.Context, groupID uint) ([]alarmdomain.Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []alarmdomain.Alarm
	for _, a := range m.alarms {
		if a.GroupID == groupID {
			out = append(out, *a.Clone())
		}
	}

	return out, nil
}

func (m *memAlarms) ListByUser(context.Context, uint) ([]alarmdomain.Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []alarmdomain.Alarm
	for _, a := range m.alarms {
		out = append(out, *a.Clone())
	}

	return out, nil
}

func (m *memAlarms) ListActive(context.Context) ([]alarmdomain.Alarm, error) {
	return nil, nil
}

func (m *memAlarms) Update(_ context.Context, a *alarmdomain.Alarm) (*alarmdomain.Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.alarms[a.ID]; !ok {
		return nil, alarmrepo.ErrNotFound
	}

	m.alarms[a.ID] = a.Clone()

	return a.Clone(), nil
}

func (m *memAlarms) SetTaskHandle(_ context.Context, id uint, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alarms[id]
	if !ok {
		return alarmrepo.ErrNotFound
	}

	a.TaskHandle = handle

	return nil
}

func (m *memAlarms) SetInactive(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alarms[id]
	if !ok {
		return alarmrepo.ErrNotFound
	}

	a.IsActive = false
	a.TaskHandle = ""

	return nil
}

func (m *memAlarms) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.alarms, id)

	return nil
}

// memDevices serves one module with one schedule group.
type memDevices struct {
	module *devdomain.Module
	group  *devdomain.ScheduleGroup
}

func (m *memDevices) GetModuleByID(_ context.Context, id uint) (*devdomain.Module, error) {
	if m.module.ID != id {
		return nil, devicerepo.ErrNotFound
	}

	return m.module, nil
}

func (m *memDevices) GetModuleBySerial(_ context.Context, serial string) (*devdomain.Module, error) {
	if m.module.SerialID != serial {
		return nil, devicerepo.ErrNotFound
	}

	return m.module, nil
}

func (m *memDevices) GetGroup(_ context.Context, id uint) (*devdomain.ScheduleGroup, error) {
	if m.group.ID != id {
		return nil, devicerepo.ErrNotFound
	}

	return m.group, nil
}

func (m *memDevices) SetModuleStatus(context.Context, uint, bool) error { return nil }

func (m *memDevices) SaveScheduleLog(context.Context, *devdomain.ScheduleLog) error { return nil }

func (m *memDevices) UpsertSensorReading(context.Context, uint, string, string) error { return nil }

// countingQueue tracks live delayed executions.
type countingQueue struct {
	mu   sync.Mutex
	next int
	live map[taskqueue.Handle]struct{}
}

func newCountingQueue() *countingQueue {
	return &countingQueue{live: make(map[taskqueue.Handle]struct{})}
}

func (q *countingQueue) Submit(context.Context, string, []string, time.Time) (taskqueue.Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.next++
	handle := taskqueue.Handle(fmt.Sprintf("h-%d", q.next))
	q.live[handle] = struct{}{}

	return handle, nil
}

func (q *countingQueue) Cancel(_ context.Context, handle taskqueue.Handle) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.live, handle)

	return nil
}

func (q *countingQueue) liveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.live)
}

// apiFixture is a full API server over in-memory state.
type apiFixture struct {
	app    *fiber.App
	users  *memUsers
	alarms *memAlarms
	queue  *countingQueue
	tokens *auth.TokenManager
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	f := &apiFixture{
		users:  newMemUsers(),
		alarms: newMemAlarms(),
		queue:  newCountingQueue(),
		tokens: auth.NewTokenManager("test-secret", time.Hour),
	}

	devices := &memDevices{
		module: &devdomain.Module{
			ID:       1,
			SerialID: "mod-1",
			Secret:   "very-secret",
			Users:    []userdomain.User{{ID: 1, Username: "owner"}},
		},
		group: &devdomain.ScheduleGroup{
			ID:       1,
			ModuleID: 1,
			Pins:     []devdomain.Pin{{Number: 2}},
		},
	}

	broadcast := hub.New()
	sched := scheduler.New(
		f.alarms, devices, f.queue, broadcast,
		scheduler.NewMemoryFireGuard(), time.FixedZone("WIB", 7*60*60))

	server := NewServer(
		f.users, devices, f.alarms, sched, f.tokens,
		ws.NewHandler(devices, broadcast, f.tokens), nil)

	f.app = fiber.New()
	server.RegisterRoutes(f.app)

	return f
}

// request performs one JSON request against the app.
func (f *apiFixture) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, payload)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

// ownerToken registers the module owner account and logs it in.
// The account's id must be 1 to match the fixture module's member list.
func (f *apiFixture) ownerToken(t *testing.T) string {
	t.Helper()

	resp := f.request(t, fiber.MethodPost, "/api/v1/auth/register", "",
		RegisterRequest{Username: "owner", Password: "s3cret"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = f.request(t, fiber.MethodPost, "/api/v1/auth/login", "",
		LoginRequest{Username: "owner", Password: "s3cret"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.AccessToken)

	return body.AccessToken
}

func activeAlarmRequest() AlarmRequest {
	return AlarmRequest{
		GroupID:  1,
		Label:    "morning watering",
		Time:     "06:30:00",
		Duration: 300,
		IsActive: true,
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.ownerToken(t)

	resp := f.request(t, fiber.MethodPost, "/api/v1/auth/register", "",
		RegisterRequest{Username: "owner", Password: "other"})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.ownerToken(t)

	resp := f.request(t, fiber.MethodPost, "/api/v1/auth/login", "",
		LoginRequest{Username: "owner", Password: "wrong"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAlarmEndpointsRequireToken(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	resp := f.request(t, fiber.MethodGet, "/api/v1/alarms", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = f.request(t, fiber.MethodGet, "/api/v1/alarms", "not-a-token", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAlarmArmsExecution(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	token := f.ownerToken(t)

	resp := f.request(t, fiber.MethodPost, "/api/v1/alarms", token, activeAlarmRequest())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created alarmdomain.Alarm
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotZero(t, created.ID)

	require.Equal(t, 1, f.queue.liveCount())

	stored, err := f.alarms.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.TaskHandle)
}

func TestCreateAlarmValidation(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	token := f.ownerToken(t)

	bad := activeAlarmRequest()
	bad.Time = "25:99"
	resp := f.request(t, fiber.MethodPost, "/api/v1/alarms", token, bad)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	bad = activeAlarmRequest()
	bad.Duration = 0
	resp = f.request(t, fiber.MethodPost, "/api/v1/alarms", token, bad)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	bad = activeAlarmRequest()
	bad.GroupID = 42
	resp = f.request(t, fiber.MethodPost, "/api/v1/alarms", token, bad)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

// TestUpdateAlarmReplacesExecution covers the re-arm sequence: an accepted
// update cancels the old execution and submits one for the new time.
func TestUpdateAlarmReplacesExecution(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	token := f.ownerToken(t)

	resp := f.request(t, fiber.MethodPost, "/api/v1/alarms", token, activeAlarmRequest())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created alarmdomain.Alarm
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	firstHandle, err := f.alarms.GetByID(context.Background(), created.ID)
	require.NoError(t, err)

	update := activeAlarmRequest()
	update.Time = "18:00:00"
	resp = f.request(t, fiber.MethodPut,
		fmt.Sprintf("/api/v1/alarms/%d", created.ID), token, update)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, 1, f.queue.liveCount())

	stored, err := f.alarms.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.TaskHandle)
	require.NotEqual(t, firstHandle.TaskHandle, stored.TaskHandle)
}

func TestUpdateAlarmToInactiveDisarms(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	token := f.ownerToken(t)

	resp := f.request(t, fiber.MethodPost, "/api/v1/alarms", token, activeAlarmRequest())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created alarmdomain.Alarm
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	update := activeAlarmRequest()
	update.IsActive = false
	resp = f.request(t, fiber.MethodPut,
		fmt.Sprintf("/api/v1/alarms/%d", created.ID), token, update)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Zero(t, f.queue.liveCount())

	stored, err := f.alarms.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Empty(t, stored.TaskHandle)
}

func TestDeleteAlarmDisarms(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	token := f.ownerToken(t)

	resp := f.request(t, fiber.MethodPost, "/api/v1/alarms", token, activeAlarmRequest())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created alarmdomain.Alarm
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp = f.request(t, fiber.MethodDelete,
		fmt.Sprintf("/api/v1/alarms/%d", created.ID), token, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	require.Zero(t, f.queue.liveCount())

	_, err := f.alarms.GetByID(context.Background(), created.ID)
	require.ErrorIs(t, err, alarmrepo.ErrNotFound)
}

// TestNonMemberSeesNotFound verifies module scoping does not leak existence.
func TestNonMemberSeesNotFound(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.ownerToken(t)

	resp := f.request(t, fiber.MethodPost, "/api/v1/auth/register", "",
		RegisterRequest{Username: "stranger", Password: "s3cret"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = f.request(t, fiber.MethodPost, "/api/v1/auth/login", "",
		LoginRequest{Username: "stranger", Password: "s3cret"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	resp = f.request(t, fiber.MethodGet, "/api/v1/modules/mod-1", body.AccessToken, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = f.request(t, fiber.MethodPost, "/api/v1/alarms", body.AccessToken, activeAlarmRequest())
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestControlWithoutBridgeUnavailable(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	token := f.ownerToken(t)

	resp := f.request(t, fiber.MethodPost, "/api/v1/modules/mod-1/control", token,
		ControlRequest{Command: "pump_on", Duration: 30})
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
