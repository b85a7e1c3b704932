package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"cantina/internal/observability"
	"cantina/internal/reliability"
)

// statusRecorder captures the response status for the metrics span.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// withTelemetry applies ingress rate limiting and per-route metrics around
// the API mux. WebSocket upgrades pass through untouched because the
// recorder would hide the Hijacker the upgrade needs.
func withTelemetry(mux *http.ServeMux, limiter *reliability.RateLimiter, metrics *observability.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !shouldTrackRoute(r.URL.Path) {
			mux.ServeHTTP(w, r)
			return
		}

		if limiter != nil {
			if err := limiter.Wait(r.Context()); err != nil {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
				return
			}
		}

		span := &observability.CallSpan{}
		start := time.Now()
		if metrics != nil {
			span = metrics.Start(routeName(mux, r))
		}

		rec := &statusRecorder{ResponseWriter: w}
		mux.ServeHTTP(rec, r)

		var err error
		if rec.status >= http.StatusInternalServerError {
			err = fmt.Errorf("status %d", rec.status)
		}
		span.End(err)
		if err != nil {
			log.Printf("http %s %s failed after %v: %v", r.Method, r.URL.Path, time.Since(start), err)
		}
	})
}

// routeName keys metrics by the matched mux pattern so path parameters do
// not explode the method cardinality.
func routeName(mux *http.ServeMux, r *http.Request) string {
	if _, pattern := mux.Handler(r); pattern != "" {
		return pattern
	}
	return r.Method + " " + r.URL.Path
}

func shouldTrackRoute(path string) bool {
	return path != "/healthz" && !strings.HasPrefix(path, "/ws/")
}
