package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/iho/rewardledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/rewardledger/internal/adapter/http/middleware"
	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
	"github.com/iho/rewardledger/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"account_id":"acc-1","type":"deposit","amount":"10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.checkedKey != "POST:/api/v1/entries/:key-123" {
		t.Fatalf("expected idempotency store to be used, got key %q", store.checkedKey)
	}
	if !store.updated {
		t.Fatalf("expected the response to be stored")
	}
}

func TestNewRouter_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Metrics = m
		cfg.Gatherer = reg
	}))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /metrics to return 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rewardledger_http_requests_total") {
		t.Fatalf("expected request counter in exposition, got %s", rec.Body.String())
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/users/",
		"GET /api/v1/users/{id}",
		"GET /api/v1/users/{id}/accounts",
		"GET /api/v1/users/{id}/ranks",
		"GET /api/v1/accounts/{id}",
		"GET /api/v1/accounts/{id}/entries",
		"GET /api/v1/accounts/{id}/reconciliation",
		"POST /api/v1/entries/",
		"GET /api/v1/entries/{id}",
		"POST /api/v1/entries/{id}/complete",
		"POST /api/v1/entries/{id}/cancel",
		"POST /api/v1/entries/{id}/fail",
		"POST /api/v1/entries/{id}/payout",
		"POST /api/v1/transfers",
		"POST /api/v1/gateways/{provider}/callback",
		"GET /api/v1/ranks/",
		"POST /api/v1/ranks/",
		"POST /api/v1/reconciliation/sweep",
		"GET /api/v1/reconciliation/report",
		"GET /api/v1/settings/rewards",
		"PUT /api/v1/settings/rewards",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		UserHandler:           handler.NewUserHandler(nil, nil),
		AccountHandler:        handler.NewAccountHandler(nil, nil, nil),
		EntryHandler:          handler.NewEntryHandler(stubEntryService{}, nil),
		TransferHandler:       handler.NewTransferHandler(nil),
		GatewayHandler:        handler.NewGatewayHandler(nil),
		RankHandler:           handler.NewRankHandler(nil),
		ReconciliationHandler: handler.NewReconciliationHandler(nil),
		SettingsHandler:       handler.NewSettingsHandler(nil),
		HealthHandler:         handler.NewHealthHandler(),
		Logger:                zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubEntryService struct{}

func (stubEntryService) CreateEntry(ctx context.Context, input usecase.CreateEntryInput) (*domain.LedgerEntry, error) {
	return &domain.LedgerEntry{ID: "entry-1", AccountID: input.AccountID, Type: input.Type, Amount: input.Amount, Status: domain.EntryStatusPending}, nil
}

func (stubEntryService) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	return &domain.LedgerEntry{ID: id}, nil
}

func (stubEntryService) MarkEntryCompleted(ctx context.Context, input usecase.MarkCompletedInput) (*usecase.CompletionResult, error) {
	return &usecase.CompletionResult{Entry: &domain.LedgerEntry{ID: input.EntryID}}, nil
}

func (stubEntryService) CancelEntry(ctx context.Context, entryID, reason string) (*domain.LedgerEntry, error) {
	return &domain.LedgerEntry{ID: entryID}, nil
}

func (stubEntryService) FailEntry(ctx context.Context, entryID, reason string) (*domain.LedgerEntry, error) {
	return &domain.LedgerEntry{ID: entryID}, nil
}

type stubIdempotencyStore struct {
	checkedKey string
	updated    bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkedKey = key
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	s.updated = true
	return nil
}

func (s *stubIdempotencyStore) Release(ctx context.Context, key string) error {
	return nil
}
