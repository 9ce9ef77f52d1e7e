package metricsexporter

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

type mockDismisser struct {
	ids []string
}

func (m *mockDismisser) Dismiss(id string) {
	m.ids = append(m.ids, id)
}

func TestRecordFunctions(t *testing.T) {
	// These must not panic; values are asserted through the handler below.
	RecordRefresh("success", 50*time.Millisecond)
	RecordRefresh("error", time.Second)
	SetKnownAlerts(3)
	SetActiveAlerts(2)
	RecordDismissal()
	RecordDispatch("webhook", "success")
	RecordDispatch("slack", "error")
	RecordRateLimited()
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
	}
	for name, want := range headers {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("Header %s = %q, want %q", name, got, want)
		}
	}
}

func TestSecurityHeadersMiddleware_RequestTooLarge(t *testing.T) {
	handler := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
	req.ContentLength = 2 * 1024 * 1024
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status %d, got %d", http.StatusRequestEntityTooLarge, rec.Code)
	}
}

func TestDismissHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		query      string
		wantStatus int
		wantCalls  int
	}{
		{"valid dismissal", http.MethodPost, "?id=alert-1", http.StatusNoContent, 1},
		{"missing id", http.MethodPost, "", http.StatusBadRequest, 0},
		{"invalid id", http.MethodPost, "?id=bad/id", http.StatusBadRequest, 0},
		{"wrong method", http.MethodGet, "?id=alert-1", http.StatusMethodNotAllowed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &mockDismisser{}
			handler := dismissHandler(d)

			req := httptest.NewRequest(tt.method, "/dismiss"+tt.query, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if len(d.ids) != tt.wantCalls {
				t.Errorf("Expected %d Dismiss calls, got %d", tt.wantCalls, len(d.ids))
			}
		})
	}
}

func TestDismissHandler_PassesID(t *testing.T) {
	d := &mockDismisser{}
	handler := dismissHandler(d)

	req := httptest.NewRequest(http.MethodPost, "/dismiss?id=hanoi-cold-2026082614", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if len(d.ids) != 1 || d.ids[0] != "hanoi-cold-2026082614" {
		t.Errorf("Dismiss called with %v", d.ids)
	}
}

func TestStartServerAndShutdown(t *testing.T) {
	original := os.Getenv("STORMWATCH_METRICS_ADDR")
	defer func() {
		if original != "" {
			os.Setenv("STORMWATCH_METRICS_ADDR", original)
		} else {
			os.Unsetenv("STORMWATCH_METRICS_ADDR")
		}
	}()
	os.Setenv("STORMWATCH_METRICS_ADDR", "127.0.0.1:0")

	srv := StartServer(&mockDismisser{})
	if srv == nil {
		t.Fatal("StartServer returned nil")
	}
	srv.Shutdown()
}

func TestStartServer_NilDismisser(t *testing.T) {
	original := os.Getenv("STORMWATCH_METRICS_ADDR")
	defer func() {
		if original != "" {
			os.Setenv("STORMWATCH_METRICS_ADDR", original)
		} else {
			os.Unsetenv("STORMWATCH_METRICS_ADDR")
		}
	}()
	os.Setenv("STORMWATCH_METRICS_ADDR", "127.0.0.1:0")

	srv := StartServer(nil)
	if srv == nil {
		t.Fatal("StartServer returned nil")
	}
	srv.Shutdown()
}
