package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"power_windows/internal/broadcast"
	"power_windows/internal/models"
	"power_windows/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockDoor struct {
	mu        sync.Mutex
	listeners int
	submitted []models.Command
	snapshot  models.DoorSnapshot
	configs   [][]byte
	configErr error
	events    *broadcast.Broadcaster[models.MotionEvent]
}

func newMockDoor() *mockDoor {
	return &mockDoor{
		listeners: 1,
		snapshot:  models.DoorSnapshot{Identity: models.LeftDoor, State: models.StateIdle, Config: models.DefaultDoorConfig()},
		events:    broadcast.New[models.MotionEvent](8),
	}
}

func (m *mockDoor) Submit(cmd models.Command) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, cmd)
	return m.listeners
}

func (m *mockDoor) Snapshot() models.DoorSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *mockDoor) WriteLocalConfig(ctx context.Context, b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = append(m.configs, append([]byte(nil), b...))
	return m.configErr
}

func (m *mockDoor) Watch() *broadcast.Subscription[models.MotionEvent] {
	return m.events.Subscribe()
}

func (m *mockDoor) Submitted() []models.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Command(nil), m.submitted...)
}

func (m *mockDoor) Configs() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.configs...)
}

func (m *mockDoor) SetState(st models.MotionState) {
	m.mu.Lock()
	m.snapshot.State = st
	m.mu.Unlock()
}

type mockHub struct {
	doors      []models.DoorRecord
	sendErr    error
	pushErr    error
	thresholds models.DoorConfig

	sent   []models.DoorCommand
	pushed []models.DoorConfig
}

func (m *mockHub) Doors() []models.DoorRecord { return m.doors }

func (m *mockHub) SendCommand(ctx context.Context, dc models.DoorCommand) error {
	m.sent = append(m.sent, dc)
	return m.sendErr
}

func (m *mockHub) PushConfig(ctx context.Context, cfg models.DoorConfig) error {
	m.pushed = append(m.pushed, cfg)
	return m.pushErr
}

func (m *mockHub) Thresholds() models.DoorConfig { return m.thresholds }

type mockEventLog struct {
	resp     []models.MotionEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
	lastDoor models.DoorIdentity
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.MotionEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastDoor = f.Door
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newDoorRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewHandler(s, nil, nil).InitDoorRoutes()
}

func newHubRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewHandler(s, nil, nil).InitHubRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request, token string) *http.Request {
	for k, vv := range authHeader(token) {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
