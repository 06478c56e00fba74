package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"power_windows/internal/metrics"
	"power_windows/internal/models"
	"power_windows/internal/service"

	"github.com/gin-gonic/gin"
)

func newTestHub() *mockHub {
	return &mockHub{
		doors: []models.DoorRecord{
			{Identity: models.LeftDoor, IP: net.ParseIP("192.168.4.2")},
			{Identity: models.RightDoor},
		},
		thresholds: models.DefaultDoorConfig(),
	}
}

func TestHubHandlers_RequireAuth(t *testing.T) {
	r := newHubRouter(&service.Service{HubControl: newTestHub(), Authorization: &mockAuth{}})
	for _, path := range []string{"/api/v1/doors", "/api/v1/config", "/api/v1/logs"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestHubHandlers_ListDoors(t *testing.T) {
	r := newHubRouter(&service.Service{HubControl: newTestHub(), Authorization: &mockAuth{parseID: 1}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/doors", nil), "valid"))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count int `json:"count"`
		Doors []struct {
			Identity string `json:"identity"`
			IP       string `json:"ip"`
		} `json:"doors"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || out.Doors[0].IP != "192.168.4.2" || out.Doors[1].IP != "" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestHubHandlers_SendDoorCommand(t *testing.T) {
	cases := []struct {
		name    string
		door    string
		body    string
		sendErr error
		want    int
	}{
		{"ok", "left_door", `{"command":"open-fully"}`, nil, http.StatusOK},
		{"unknown door", "rear_door", `{"command":"stop"}`, nil, http.StatusNotFound},
		{"unknown command", "left_door", `{"command":"configure-thresholds"}`, nil, http.StatusBadRequest},
		{"missing command", "left_door", `{}`, nil, http.StatusBadRequest},
		{"unreachable", "right_door", `{"command":"stop"}`, fmt.Errorf("%w: right_door", service.ErrDoorUnreachable), http.StatusServiceUnavailable},
		{"transport", "left_door", `{"command":"stop"}`, errors.New("connection refused"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hub := newTestHub()
			hub.sendErr = tc.sendErr
			r := newHubRouter(&service.Service{HubControl: hub, Authorization: &mockAuth{parseID: 1}})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/doors/"+tc.door+"/command", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, withAuth(req, "valid"))
			if w.Code != tc.want {
				t.Fatalf("status=%d want=%d body=%s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestHubHandlers_SendDoorCommandPassesKind(t *testing.T) {
	hub := newTestHub()
	r := newHubRouter(&service.Service{HubControl: hub, Authorization: &mockAuth{parseID: 1}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/doors/left_door/command", bytes.NewBufferString(`{"command":"close-continuous"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), withAuth(req, "valid"))

	if len(hub.sent) != 1 || hub.sent[0].Door != models.LeftDoor || hub.sent[0].Command.Kind != models.CommandCloseContinuous {
		t.Fatalf("sent = %+v", hub.sent)
	}
}

func TestHubHandlers_Thresholds(t *testing.T) {
	hub := newTestHub()
	r := newHubRouter(&service.Service{HubControl: hub, Authorization: &mockAuth{parseID: 1}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/config", nil), "valid"))
	var cfg models.DoorConfig
	_ = json.Unmarshal(w.Body.Bytes(), &cfg)
	if w.Code != http.StatusOK || cfg != models.DefaultDoorConfig() {
		t.Fatalf("get config: status=%d cfg=%+v", w.Code, cfg)
	}

	body := `{"opening_current_threshold":0,"closing_current_threshold":700,"handle_time_threshold_ms":400}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/config", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(req, "valid"))
	if w.Code != http.StatusOK {
		t.Fatalf("push status=%d body=%s", w.Code, w.Body.String())
	}
	want := models.DoorConfig{OpeningCurrentThreshold: 0, ClosingCurrentThreshold: 700, HandleTimeThresholdMs: 400}
	if len(hub.pushed) != 1 || hub.pushed[0] != want {
		t.Fatalf("pushed = %+v", hub.pushed)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/config", bytes.NewBufferString(`{"opening_current_threshold":1}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(req, "valid"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("partial body: status=%d", w.Code)
	}
}

func TestHubHandlers_PushFailureIsReported(t *testing.T) {
	hub := newTestHub()
	hub.pushErr = fmt.Errorf("%w: right_door", service.ErrDoorUnreachable)
	r := newHubRouter(&service.Service{HubControl: hub, Authorization: &mockAuth{parseID: 1}})

	body := `{"opening_current_threshold":10,"closing_current_threshold":10,"handle_time_threshold_ms":300}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/config", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(req, "valid"))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewHandler(&service.Service{HubControl: newTestHub(), Authorization: &mockAuth{}}, metrics.New(), nil).InitHubRoutes()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`power_windows_http_requests_total{route="/health",status="200"} 1`)) {
		t.Fatalf("missing request counter in:\n%s", w.Body.String())
	}
}
