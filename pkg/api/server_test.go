package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/persistfs/persistfs/pkg/types"
)

type fakeSource struct {
	failure *types.StartupFailure
}

func (f *fakeSource) CurrentStartupFailure() *types.StartupFailure {
	return f.failure
}

type fakeChecker struct {
	mounted bool
}

func (f *fakeChecker) IsMounted(context.Context, string, string) bool {
	return f.mounted
}

func newTestServer(source StatusSource, checker MountChecker) *Server {
	return NewServer(DefaultServerConfig(), source, checker, "/mnt/persist", nil, slog.Default())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHandleLiveness(t *testing.T) {
	server := newTestServer(&fakeSource{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	server.handleLiveness(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := decode(t, w); body["alive"] != true {
		t.Errorf("expected alive=true, got %v", body["alive"])
	}
}

func TestHandleReadinessHealthy(t *testing.T) {
	server := newTestServer(&fakeSource{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	server.handleReadiness(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandleReadinessAfterStartupFailure(t *testing.T) {
	source := &fakeSource{failure: &types.StartupFailure{
		Message:    "no storage account configured",
		OccurredAt: time.Now(),
	}}
	server := newTestServer(source, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	server.handleReadiness(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	body := decode(t, w)
	if body["ready"] != false {
		t.Errorf("expected ready=false, got %v", body["ready"])
	}
	if body["startup_failure"] == nil {
		t.Error("expected startup_failure in response")
	}
}

func TestHandleStatusReportsMountState(t *testing.T) {
	server := newTestServer(&fakeSource{}, &fakeChecker{mounted: true})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	server.handleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["mounted"] != true {
		t.Errorf("expected mounted=true, got %v", body["mounted"])
	}
	if body["mount_path"] != "/mnt/persist" {
		t.Errorf("unexpected mount_path %v", body["mount_path"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(&fakeSource{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	w := httptest.NewRecorder()
	server.handleStatus(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestServerLifecycle(t *testing.T) {
	config := DefaultServerConfig()
	config.Address = "localhost:0"
	server := NewServer(config, &fakeSource{}, nil, "", nil, slog.Default())

	server.StartBackground()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
