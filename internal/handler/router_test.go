package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type mockPinger struct {
	pingFunc func(ctx context.Context) error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.pingFunc(ctx)
}

func testRouter(db Pinger) http.Handler {
	return NewRouter(RouterDeps{
		DB: db,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "jobradar_jobs_inserted_total 0\n")
		}),
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
}

// TestHealthz_OK はDB疎通が正常な場合に200が返ることを検証する。
func TestHealthz_OK(t *testing.T) {
	router := testRouter(&mockPinger{
		pingFunc: func(ctx context.Context) error { return nil },
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %q, want status ok", rec.Body.String())
	}
}

// TestHealthz_DBDown はDB疎通に失敗した場合に503が返ることを検証する。
func TestHealthz_DBDown(t *testing.T) {
	router := testRouter(&mockPinger{
		pingFunc: func(ctx context.Context) error { return errors.New("connection refused") },
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(rec.Body.String(), `"status":"unhealthy"`) {
		t.Errorf("body = %q, want status unhealthy", rec.Body.String())
	}
}

// TestMetrics_Served は/metricsがメトリクスハンドラに委譲されることを検証する。
func TestMetrics_Served(t *testing.T) {
	router := testRouter(&mockPinger{
		pingFunc: func(ctx context.Context) error { return nil },
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "jobradar_jobs_inserted_total") {
		t.Errorf("body = %q, want metrics output", rec.Body.String())
	}
}

// TestRouter_NotFound は未定義パスで404が返ることを検証する。
func TestRouter_NotFound(t *testing.T) {
	router := testRouter(&mockPinger{
		pingFunc: func(ctx context.Context) error { return nil },
	})

	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
