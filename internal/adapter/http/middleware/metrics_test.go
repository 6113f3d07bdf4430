package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/rewardledger/internal/infrastructure/metrics"
)

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		statusCode int
	}{
		{
			name:       "normalizes account path",
			method:     http.MethodGet,
			path:       "/api/v1/accounts/ABC123",
			statusCode: http.StatusTeapot,
		},
		{
			name:       "keeps non-matching path as-is",
			method:     http.MethodPost,
			path:       "/health",
			statusCode: http.StatusCreated,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.NewWithRegistry(prometheus.NewRegistry())

			handlerCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(tc.statusCode)
			})

			req := httptest.NewRequest(tc.method, tc.path, nil)
			rr := httptest.NewRecorder()

			Metrics(m)(next).ServeHTTP(rr, req)

			if !handlerCalled {
				t.Fatalf("next handler was not invoked")
			}

			normalized := normalizePath(tc.path)
			counter := m.HTTPRequests.WithLabelValues(tc.method, normalized, strconv.Itoa(tc.statusCode))
			if got := testutil.ToFloat64(counter); got != 1 {
				t.Fatalf("expected counter to be 1, got %v", got)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "account path without suffix",
			input:    "/api/v1/accounts/ABC123",
			expected: "/api/v1/accounts/:id",
		},
		{
			name:     "account path with suffix",
			input:    "/api/v1/accounts/ABC123/entries",
			expected: "/api/v1/accounts/:id/entries",
		},
		{
			name:     "entry action",
			input:    "/api/v1/entries/01HX/complete",
			expected: "/api/v1/entries/:id/complete",
		},
		{
			name:     "user rank history",
			input:    "/api/v1/users/U1/ranks",
			expected: "/api/v1/users/:id/ranks",
		},
		{
			name:     "collection root",
			input:    "/api/v1/entries",
			expected: "/api/v1/entries",
		},
		{
			name:     "trailing slash",
			input:    "/api/v1/users/",
			expected: "/api/v1/users/",
		},
		{
			name:     "non-matching path",
			input:    "/health/live",
			expected: "/health/live",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizePath(tc.input); got != tc.expected {
				t.Fatalf("normalizePath(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}
