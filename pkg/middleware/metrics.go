package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"fieldslots/pkg/metrics"
)

// HTTPMetrics records request counts and latency. Paths outside the known
// prefixes share one label.
func HTTPMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			path := routeLabel(r.URL.Path)
			m.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/"):
		return path
	case path == "/health", path == "/ready", path == "/metrics":
		return path
	default:
		return "other"
	}
}
