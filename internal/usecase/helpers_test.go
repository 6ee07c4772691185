package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/repository/memory"
	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/idgen"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/metrics"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

var testStart = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

// tickClock advances one millisecond per reading so posting times are strictly ordered.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickClock() *tickClock { return &tickClock{now: testStart} }

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *tickClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store       *memory.Store
	accountRepo *memory.AccountRepository
	entryRepo   *memory.EntryRepository
	txnRepo     *memory.TransactionRepository
	auditRepo   *memory.AuditRepository
	clock       *tickClock
	metrics     *metrics.Metrics
	audit       *usecase.AuditChain
	ledger      *usecase.LedgerUseCase
	accounts    *usecase.AccountUseCase
	processor   *usecase.Processor
}

type envOption func(*usecase.ProcessorDeps, *usecase.ProcessorConfig)

func withCompliance(gate *usecase.ComplianceGate) envOption {
	return func(d *usecase.ProcessorDeps, _ *usecase.ProcessorConfig) { d.Compliance = gate }
}

func withCache(cache usecase.ResultCache) envOption {
	return func(d *usecase.ProcessorDeps, _ *usecase.ProcessorConfig) { d.Cache = cache }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	clock := newTickClock()
	store := memory.NewStore(memory.WithClock(clock))
	e := &testEnv{
		store:       store,
		accountRepo: memory.NewAccountRepository(store),
		entryRepo:   memory.NewEntryRepository(store),
		txnRepo:     memory.NewTransactionRepository(store),
		auditRepo:   memory.NewAuditRepository(store),
		clock:       clock,
		metrics:     metrics.New(prometheus.NewRegistry()),
	}
	ids := idgen.NewULIDGenerator()
	log := zerolog.Nop()

	e.audit = usecase.NewAuditChain(e.auditRepo, e.clock, log, e.metrics)
	e.ledger = usecase.NewLedgerUseCase(e.accountRepo, e.entryRepo, ids, e.clock)
	e.accounts = usecase.NewAccountUseCase(store, e.accountRepo, e.entryRepo, e.audit, ids, e.clock, log, e.metrics)

	deps := usecase.ProcessorDeps{
		Scopes:       store,
		Ledger:       e.ledger,
		Audit:        e.audit,
		Transactions: e.txnRepo,
		IDGen:        ids,
		Clock:        e.clock,
		Logger:       log,
		Metrics:      e.metrics,
	}
	cfg := usecase.ProcessorConfig{
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     5 * time.Millisecond,
		AwaitTimeout:         2 * time.Second,
	}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}
	e.processor = usecase.NewProcessor(deps, cfg)
	return e
}

func (e *testEnv) open(t *testing.T, code string, typ domain.AccountType) *domain.Account {
	t.Helper()
	acc, err := e.accounts.Open(context.Background(), usecase.OpenAccountInput{
		Code: code, Name: code, Type: typ, Currency: "USD", Actor: "setup",
	})
	require.NoError(t, err)
	return acc
}

func usd(s string) domain.Money { return domain.MustParseMoney(s, "USD") }

func journal(key string, debit, credit string, amount string) usecase.SubmitRequest {
	return usecase.SubmitRequest{
		IdempotencyKey: key,
		Type:           domain.TransactionTypeJournal,
		Actor:          "tester",
		Lines: []domain.Line{
			{AccountID: debit, Direction: domain.Debit, Amount: usd(amount)},
			{AccountID: credit, Direction: domain.Credit, Amount: usd(amount)},
		},
	}
}

func transfer(key, from, to, amount string) usecase.SubmitRequest {
	return usecase.SubmitRequest{
		IdempotencyKey: key,
		Type:           domain.TransactionTypeTransfer,
		Actor:          "tester",
		Transfer:       &usecase.TransferPayload{FromAccountID: from, ToAccountID: to, Amount: usd(amount)},
	}
}

// bank is a cash account and two customer deposit accounts funded from it.
type bank struct {
	cash, alice, bob *domain.Account
}

func (e *testEnv) bank(t *testing.T, aliceFunds string) bank {
	t.Helper()
	b := bank{
		cash:  e.open(t, "cash", domain.AccountTypeAsset),
		alice: e.open(t, "alice", domain.AccountTypeLiability),
		bob:   e.open(t, "bob", domain.AccountTypeLiability),
	}
	if aliceFunds != "" {
		res, err := e.processor.Submit(context.Background(), journal("fund-alice", b.cash.ID, b.alice.ID, aliceFunds))
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, res.Status, "funding failed: %+v", res.Failure)
	}
	return b
}

func (e *testEnv) balance(t *testing.T, accountID string) string {
	t.Helper()
	bal, err := e.ledger.BalanceOf(context.Background(), accountID, time.Time{})
	require.NoError(t, err)
	return bal.In("USD").StringFixed()
}

func (e *testEnv) auditActions(t *testing.T, entityID string) []domain.AuditAction {
	t.Helper()
	events, err := e.audit.Range(context.Background(), domain.AuditFilter{EntityID: entityID, Limit: 1000})
	require.NoError(t, err)
	out := make([]domain.AuditAction, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Action)
	}
	return out
}

// failNthCommit makes exactly the nth commit from now fail with ErrInjectedFault.
func failNthCommit(st *memory.Store, n int) {
	var mu sync.Mutex
	count := 0
	st.SetCommitFault(func() error {
		mu.Lock()
		defer mu.Unlock()
		count++
		if count == n {
			return memory.ErrInjectedFault
		}
		return nil
	})
}
