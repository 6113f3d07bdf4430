package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	rr := httptest.NewRecorder()
	Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !bytes.Contains(buf.Bytes(), []byte("panic recovered")) {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}
}

func TestLoggingMiddlewareCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	mw := NewLoggingMiddleware(zerolog.New(&buf))

	var ctxLoggerSet bool
	handler := chimw.RequestID(mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLoggerSet = zerolog.Ctx(r.Context()).GetLevel() != zerolog.Disabled
		w.WriteHeader(http.StatusAccepted)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !ctxLoggerSet {
		t.Fatalf("expected a request logger in the context")
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if line["request_id"] != "req-42" || line["status"] != float64(http.StatusAccepted) {
		t.Fatalf("unexpected log line %v", line)
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ranks", nil)
		req.RemoteAddr = ip + ":5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if send("10.0.0.1") != http.StatusOK || send("10.0.0.1") != http.StatusOK {
		t.Fatalf("expected the burst to be allowed")
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the burst, got %d", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("expected another client to be unaffected, got %d", code)
	}

	now = now.Add(time.Second)
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("expected a token after one second, got %d", code)
	}

	now = now.Add(time.Hour)
	if removed := rl.Sweep(time.Minute); removed != 2 {
		t.Fatalf("expected both idle clients to be swept, got %d", removed)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Fatalf("expected remote host, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
