package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"clawcity/internal/action"
	"clawcity/internal/config"
	"clawcity/internal/coop"
	"clawcity/internal/idempotency"
	"clawcity/internal/ledger"
	"clawcity/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cfg := config.Config{
		MaxHeat: 100, ArrestThreshold: 60, NPCPeriod: 1000,
		StartingCashMin: 50, StartingCashMax: 1000, StartingZone: "residential",
		ActionRateLimitPerSec: 1000, ActionRateLimitBurst: 1000,
	}
	if _, err := s.InitWorld(context.Background(), cfg.TickMs, "httpapi-test"); err != nil {
		t.Fatalf("init world: %v", err)
	}
	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	l := ledger.New(s)
	idem := idempotency.New(s)
	coopEngine := coop.New(s, l, cfg)
	dispatcher := action.New(s, l, idem, coopEngine, cfg)
	logger := log.New(io.Discard, "", 0)
	return New(s, dispatcher, cfg, logger), s
}

// executeRequest mirrors ownworld_test.go's helper of the same name.
func executeRequest(handler http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(body))
	req.RemoteAddr = "127.0.0.1:0"
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func registerAgent(t *testing.T, h http.Handler, name string) (int64, string) {
	t.Helper()
	rr := executeRequest(h, "POST", "/agent/register", map[string]string{"name": name})
	if rr.Code != http.StatusOK {
		t.Fatalf("register: code %d body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		AgentID int64  `json:"agentId"`
		APIKey  string `json:"apiKey"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if resp.AgentID == 0 || resp.APIKey == "" {
		t.Fatalf("expected non-zero agentId and apiKey, got %+v", resp)
	}
	return resp.AgentID, resp.APIKey
}

func TestRegisterThenStateRoundTrip(t *testing.T) {
	srv, s := newTestServer(t)
	defer s.Close()
	h := srv.Handler()

	_, apiKey := registerAgent(t, h, "Shadow")

	req := httptest.NewRequest("GET", "/agent/state", nil)
	req.RemoteAddr = "127.0.0.1:0"
	req.Header.Set("Authorization", "Bearer "+apiKey)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("state: code %d body %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if resp["agent"] == nil || resp["nearby"] == nil {
		t.Fatalf("expected agent and nearby keys, got %+v", resp)
	}
}

func TestStateWithoutAuthIsRejected(t *testing.T) {
	srv, s := newTestServer(t)
	defer s.Close()
	h := srv.Handler()

	req := httptest.NewRequest("GET", "/agent/state", nil)
	req.RemoteAddr = "127.0.0.1:0"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestStateWithBadKeyIsRejected(t *testing.T) {
	srv, s := newTestServer(t)
	defer s.Close()
	h := srv.Handler()

	req := httptest.NewRequest("GET", "/agent/state", nil)
	req.RemoteAddr = "127.0.0.1:0"
	req.Header.Set("Authorization", "Bearer not-a-real-key")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestActUnknownActionReturns400(t *testing.T) {
	srv, s := newTestServer(t)
	defer s.Close()
	h := srv.Handler()

	_, apiKey := registerAgent(t, h, "Ghost")

	req := httptest.NewRequest("POST", "/agent/act", bytes.NewBufferString(`{"requestId":"r1","action":"FLY_TO_MOON","args":{}}`))
	req.RemoteAddr = "127.0.0.1:0"
	req.Header.Set("Authorization", "Bearer "+apiKey)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body %s", rr.Code, rr.Body.String())
	}
	var result action.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Error != action.ErrUnknownAction {
		t.Fatalf("expected UNKNOWN_ACTION, got %s", result.Error)
	}
}

func TestActMissingRequestIDReturns400(t *testing.T) {
	srv, s := newTestServer(t)
	defer s.Close()
	h := srv.Handler()

	_, apiKey := registerAgent(t, h, "Wisp")

	req := httptest.NewRequest("POST", "/agent/act", bytes.NewBufferString(`{"action":"REST","args":{}}`))
	req.RemoteAddr = "127.0.0.1:0"
	req.Header.Set("Authorization", "Bearer "+apiKey)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body %s", rr.Code, rr.Body.String())
	}
}

func TestActMoveSucceeds(t *testing.T) {
	srv, s := newTestServer(t)
	defer s.Close()
	h := srv.Handler()

	_, apiKey := registerAgent(t, h, "Raven")

	req := httptest.NewRequest("POST", "/agent/act", bytes.NewBufferString(`{"requestId":"r1","action":"MOVE","args":{"toZone":"market"}}`))
	req.RemoteAddr = "127.0.0.1:0"
	req.Header.Set("Authorization", "Bearer "+apiKey)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rr.Code, rr.Body.String())
	}
	var result action.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected ok=true, got %+v", result)
	}
}

func TestEventsReturnsEmptyLogForFreshAgent(t *testing.T) {
	srv, s := newTestServer(t)
	defer s.Close()
	h := srv.Handler()

	_, apiKey := registerAgent(t, h, "Echo")

	req := httptest.NewRequest("GET", "/agent/events", nil)
	req.RemoteAddr = "127.0.0.1:0"
	req.Header.Set("Authorization", "Bearer "+apiKey)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Events) != 0 {
		t.Fatalf("expected no events for a fresh agent, got %d", len(body.Events))
	}
}

func TestGuideIsPublic(t *testing.T) {
	srv, s := newTestServer(t)
	defer s.Close()
	h := srv.Handler()

	rr := executeRequest(h, "GET", "/agent/guide", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Fatalf("expected non-empty guide body")
	}
}
