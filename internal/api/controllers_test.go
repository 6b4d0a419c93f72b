package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"banksim/internal/monitor"
	"banksim/internal/session"
)

func newTestAPIServer(t *testing.T) (*httptest.Server, *session.Manager, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	metrics := monitor.NewMetrics(reg)
	mgr := session.NewManager()

	server := NewServer(mgr, metrics, reg, "")
	httpServer := httptest.NewServer(server.Router)

	return httpServer, mgr, httpServer.Close
}

func doJSONRequest(t *testing.T, client *http.Client, method, url string, payload any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestInitSessionCreatesInitializedSession(t *testing.T) {
	srv, _, cleanup := newTestAPIServer(t)
	defer cleanup()
	client := srv.Client()

	req := initSessionReq{
		TotalSteps: 10, Seed: 1,
		Banks:   []bankConfigReq{{Name: "Alpha", StartingCash: 1000, RiskAppetite: 0.5}},
		Markets: []marketConfigReq{{ID: "M1", Name: "Index", InitialPrice: 100}},
	}
	var out map[string]any
	status := doJSONRequest(t, client, http.MethodPost, srv.URL+"/api/v1/sessions", req, &out)
	if status != http.StatusCreated {
		t.Fatalf("status=%d, want 201", status)
	}
	if out["session_id"] == "" || out["session_id"] == nil {
		t.Fatalf("response missing session_id: %+v", out)
	}
	if out["state"] != "INITIALIZED" {
		t.Fatalf("state=%v, want INITIALIZED", out["state"])
	}
}

func TestStartThenStatusReportsSession(t *testing.T) {
	srv, mgr, cleanup := newTestAPIServer(t)
	defer cleanup()
	client := srv.Client()

	sess := mgr.Init(session.Config{
		TotalSteps: 5, Seed: 1,
		Banks: []session.BankConfig{{Name: "Alpha", StartingCash: 1000, RiskAppetite: 0.5}},
	})

	var startOut map[string]any
	status := doJSONRequest(t, client, http.MethodPost, srv.URL+"/api/v1/sessions/"+sess.ID+"/start", nil, &startOut)
	if status != http.StatusOK {
		t.Fatalf("start status=%d, want 200: %+v", status, startOut)
	}

	var statusOut map[string]any
	status = doJSONRequest(t, client, http.MethodGet, srv.URL+"/api/v1/sessions/"+sess.ID+"/status", nil, &statusOut)
	if status != http.StatusOK {
		t.Fatalf("status endpoint status=%d, want 200", status)
	}
	if statusOut["session_id"] != sess.ID {
		t.Fatalf("session_id=%v, want %v", statusOut["session_id"], sess.ID)
	}
}

func TestStepOnInitializedSessionReturnsPrecondition(t *testing.T) {
	srv, mgr, cleanup := newTestAPIServer(t)
	defer cleanup()
	client := srv.Client()

	sess := mgr.Init(session.Config{Banks: []session.BankConfig{{Name: "Alpha", StartingCash: 1000}}})

	var out map[string]any
	status := doJSONRequest(t, client, http.MethodPost, srv.URL+"/api/v1/sessions/"+sess.ID+"/step", nil, &out)
	if status != http.StatusConflict {
		t.Fatalf("status=%d, want 409 precondition: %+v", status, out)
	}
	if out["error_kind"] != "precondition" {
		t.Fatalf("error_kind=%v, want precondition", out["error_kind"])
	}
}

func TestUnknownSessionReturnsNotFound(t *testing.T) {
	srv, _, cleanup := newTestAPIServer(t)
	defer cleanup()
	client := srv.Client()

	var out map[string]any
	status := doJSONRequest(t, client, http.MethodGet, srv.URL+"/api/v1/sessions/does-not-exist/status", nil, &out)
	if status != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", status)
	}
}

func TestAuthRequiredWhenSecretConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	mgr := session.NewManager()
	server := NewServer(mgr, monitor.NewMetrics(reg), reg, "test-secret")
	srv := httptest.NewServer(server.Router)
	defer srv.Close()

	sess := mgr.Init(session.Config{Banks: []session.BankConfig{{Name: "Alpha", StartingCash: 1000}}})

	var out map[string]any
	status := doJSONRequest(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/sessions/"+sess.ID+"/start", nil, &out)
	if status != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401 without bearer token", status)
	}

	token, err := IssueToken("test-secret", "operator", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/sessions/"+sess.ID+"/start", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("authorized request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authorized status=%d, want 200", resp.StatusCode)
	}
}
