package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iho/rewardledger/internal/infrastructure/metrics"
)

// Metrics returns middleware that records request counts and latency.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			path := normalizePath(r.URL.Path)
			m.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// idCollections are the path segments followed by an identifier.
var idCollections = map[string]bool{
	"users":    true,
	"accounts": true,
	"entries":  true,
	"ranks":    true,
	"gateways": true,
}

// normalizePath replaces identifiers with :id to bound label cardinality.
// /api/v1/accounts/01ABC123/entries -> /api/v1/accounts/:id/entries
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i := 1; i < len(segments); i++ {
		if idCollections[segments[i-1]] && segments[i] != "" {
			segments[i] = ":id"
		}
	}

	return strings.Join(segments, "/")
}
