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

	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/handler"
	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/metrics"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected JSON response, got %q", rec.Header().Get("Content-Type"))
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
		"POST /api/v1/accounts/",
		"GET /api/v1/accounts/",
		"GET /api/v1/accounts/{id}",
		"GET /api/v1/accounts/{id}/balance",
		"GET /api/v1/accounts/{id}/statement",
		"POST /api/v1/accounts/{id}/freeze",
		"POST /api/v1/transactions/",
		"GET /api/v1/transactions/{id}",
		"POST /api/v1/transactions/{id}/reverse",
		"GET /api/v1/audit/verify",
		"GET /api/v1/reconciliation",
		"POST /api/v1/schedules",
		"POST /api/v1/interest/accruals",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
	if seen["GET /metrics"] {
		t.Fatal("metrics endpoint registered without a gatherer")
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Metrics = m
		cfg.Gatherer = reg
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/acc-9", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /metrics to return 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `path="/api/v1/accounts/{id}"`) {
		t.Fatalf("expected route pattern label, got:\n%s", rec.Body.String())
	}
}

func TestNewRouter_UnknownRoute(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transfers", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		HealthHandler:      handler.NewHealthHandler(nil),
		AccountHandler:     handler.NewAccountHandler(stubAccountService{}, stubAccountService{}),
		TransactionHandler: handler.NewTransactionHandler(stubTransactionService{}),
		EntryHandler:       handler.NewEntryHandler(stubEntryService{}),
		AuditHandler:       handler.NewAuditHandler(nil, nil),
		ScheduleHandler:    handler.NewScheduleHandler(),
		InterestHandler:    handler.NewInterestHandler(nil),
		Logger:             zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubAccountService struct{}

func (stubAccountService) Open(ctx context.Context, in usecase.OpenAccountInput) (*domain.Account, error) {
	return &domain.Account{ID: "acc"}, nil
}

func (stubAccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	return &domain.Account{ID: id}, nil
}

func (stubAccountService) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	return []*domain.Account{}, nil
}

func (stubAccountService) Freeze(ctx context.Context, id, actor string) (*domain.Account, error) {
	return &domain.Account{ID: id, State: domain.AccountStateFrozen}, nil
}

func (stubAccountService) Activate(ctx context.Context, id, actor string) (*domain.Account, error) {
	return &domain.Account{ID: id, State: domain.AccountStateActive}, nil
}

func (stubAccountService) Close(ctx context.Context, id, actor string) (*domain.Account, error) {
	return &domain.Account{ID: id, State: domain.AccountStateClosed}, nil
}

func (stubAccountService) BalanceOf(ctx context.Context, accountID string, asOf time.Time) (domain.Balance, error) {
	return domain.Balance{AccountID: accountID, AsOf: asOf}, nil
}

type stubTransactionService struct{}

func (stubTransactionService) Submit(ctx context.Context, req usecase.SubmitRequest) (*domain.TransactionResult, error) {
	return &domain.TransactionResult{ID: "txn", IdempotencyKey: req.IdempotencyKey, Status: domain.StatusCompleted}, nil
}

func (stubTransactionService) Get(ctx context.Context, id string) (*domain.TransactionResult, error) {
	return &domain.TransactionResult{ID: id}, nil
}

func (stubTransactionService) Reverse(ctx context.Context, id, actor string) (*domain.TransactionResult, error) {
	return &domain.TransactionResult{ID: id, Status: domain.StatusReversed}, nil
}

type stubEntryService struct{}

func (stubEntryService) ListByAccount(ctx context.Context, q usecase.AccountEntriesQuery) ([]*domain.JournalEntry, error) {
	return nil, nil
}

func (stubEntryService) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.JournalEntry, error) {
	return nil, nil
}

func (stubEntryService) Statement(ctx context.Context, q usecase.StatementQuery) (*usecase.Statement, error) {
	return &usecase.Statement{AccountID: q.AccountID, Currency: "USD", Opening: domain.Zero("USD"), Closing: domain.Zero("USD")}, nil
}
