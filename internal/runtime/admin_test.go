package runtime

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestAdminConfigReloadAppliesMinMatchScore(t *testing.T) {
	app := newTestApp(&emptyQueue{})
	worker := NewWorker(app)
	admin := NewAdminServer(app, worker)

	body, _ := json.Marshal(map[string]interface{}{"min_match_score": 42.5})
	req := httptest.NewRequest("POST", "/config/reload", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	admin.router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if app.Config.Filters.MinMatchScore != 42.5 {
		t.Fatalf("expected min_match_score applied, got %v", app.Config.Filters.MinMatchScore)
	}
}

func TestAdminConfigReloadRejectsBadPollInterval(t *testing.T) {
	app := newTestApp(&emptyQueue{})
	worker := NewWorker(app)
	admin := NewAdminServer(app, worker)

	body, _ := json.Marshal(map[string]interface{}{"poll_interval": "not-a-duration"})
	req := httptest.NewRequest("POST", "/config/reload", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	admin.router.ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected 400 for invalid poll interval, got %d", rec.Code)
	}
}

func TestAdminHealthReportsWorkerStatus(t *testing.T) {
	app := newTestApp(&emptyQueue{})
	worker := NewWorker(app)
	admin := NewAdminServer(app, worker)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	admin.router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if out["running"] != false {
		t.Fatalf("expected running=false before Start, got %v", out["running"])
	}
}

func TestAdminStartStopLifecycle(t *testing.T) {
	app := newTestApp(&emptyQueue{})
	worker := NewWorker(app)
	admin := NewAdminServer(app, worker)

	rec := httptest.NewRecorder()
	admin.router.ServeHTTP(rec, httptest.NewRequest("POST", "/start", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200 from /start, got %d", rec.Code)
	}
	if !worker.Status().Running {
		t.Fatalf("expected worker running after /start")
	}

	rec = httptest.NewRecorder()
	admin.router.ServeHTTP(rec, httptest.NewRequest("POST", "/stop", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200 from /stop, got %d", rec.Code)
	}
	if worker.Status().Running {
		t.Fatalf("expected worker stopped after /stop")
	}
}
