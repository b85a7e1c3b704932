package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cantina/internal/observability"
	"cantina/internal/reliability"
)

func newTestMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func TestWithTelemetryRecordsRoutePattern(t *testing.T) {
	metrics := observability.NewMetrics()
	handler := withTelemetry(newTestMux(), nil, metrics)

	for _, path := range []string{"/api/v1/products/1", "/api/v1/products/2"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, rec.Code)
		}
	}

	snap := metrics.Snapshot()
	method, ok := snap.Methods["GET /api/v1/products/{id}"]
	if !ok {
		t.Fatalf("expected pattern-keyed method, got %v", snap.Methods)
	}
	if method.Count != 2 {
		t.Fatalf("count = %d, want 2", method.Count)
	}
	if method.Errors != 0 {
		t.Fatalf("errors = %d, want 0", method.Errors)
	}
}

func TestWithTelemetryCountsServerErrors(t *testing.T) {
	metrics := observability.NewMetrics()
	handler := withTelemetry(newTestMux(), nil, metrics)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	snap := metrics.Snapshot()
	if snap.TotalErrors != 1 {
		t.Fatalf("total errors = %d, want 1", snap.TotalErrors)
	}
}

func TestWithTelemetrySkipsHealthz(t *testing.T) {
	metrics := observability.NewMetrics()
	handler := withTelemetry(newTestMux(), nil, metrics)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if snap := metrics.Snapshot(); snap.TotalRequests != 0 {
		t.Fatalf("healthz should not be tracked: %+v", snap)
	}
}

func TestWithTelemetryWaitsForRateLimiter(t *testing.T) {
	metrics := observability.NewMetrics()
	limiter := reliability.NewRateLimiter(time.Millisecond, 1, metrics.AddRateLimitWait)
	handler := withTelemetry(newTestMux(), limiter, metrics)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}

	snap := metrics.Snapshot()
	if method := snap.Methods["GET /api/v1/products/{id}"]; method.Count != 3 {
		t.Fatalf("count = %d, want 3", method.Count)
	}
	if snap.RateLimitWaits == 0 {
		t.Fatalf("expected at least one recorded wait")
	}
}
