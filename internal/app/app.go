package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	httpadapter "github.com/AlexShrike/nexum-sub002/internal/adapter/http"
	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/handler"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/config"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/eventpublisher"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/idgen"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/metrics"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// Options are the optional collaborators of an App.
type Options struct {
	Logger zerolog.Logger
	Clock  usecase.Clock
	// Cache is the result cache. Nil disables it.
	Cache usecase.ResultCache
	// Checker is the compliance engine. Nil allows everything.
	Checker usecase.ComplianceChecker
	// Publisher receives post-commit events. Nil logs them.
	Publisher eventpublisher.Publisher
	// Checks are extra readiness probes, merged with the backend's.
	Checks map[string]handler.Pinger
}

// App is a fully wired ledger service.
type App struct {
	Backend        *Backend
	Registry       *prometheus.Registry
	Metrics        *metrics.Metrics
	Audit          *usecase.AuditChain
	Ledger         *usecase.LedgerUseCase
	Accounts       *usecase.AccountUseCase
	Entries        *usecase.EntryUseCase
	Processor      *usecase.Processor
	Reconciliation *usecase.ReconciliationUseCase
	Interest       *usecase.InterestPosting
	Dispatcher     *eventpublisher.Dispatcher
	Handler        http.Handler
}

// New wires use cases and the router on top of backend.
func New(cfg *config.Config, backend *Backend, opts Options) *App {
	logger := opts.Logger
	clock := opts.Clock
	if clock == nil {
		clock = usecase.SystemClock{}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ids := idgen.NewULIDGenerator()

	a := &App{Backend: backend, Registry: reg, Metrics: m}
	a.Audit = usecase.NewAuditChain(backend.Audit, clock, logger, m)
	a.Ledger = usecase.NewLedgerUseCase(backend.Accounts, backend.Entries, ids, clock)
	a.Accounts = usecase.NewAccountUseCase(backend.Scopes, backend.Accounts, backend.Entries, a.Audit, ids, clock, logger, m)
	a.Entries = usecase.NewEntryUseCase(backend.Accounts, backend.Entries, a.Ledger, clock)
	a.Reconciliation = usecase.NewReconciliationUseCase(backend.Entries, a.Audit, clock, logger)

	var gate *usecase.ComplianceGate
	if opts.Checker != nil {
		gate = usecase.NewComplianceGate(opts.Checker, usecase.ComplianceGateConfig{
			Timeout:         cfg.ComplianceTimeout,
			Fallback:        usecase.ComplianceOutcome(cfg.ComplianceFallback),
			BreakerFailures: cfg.ComplianceBreakerFailures,
			BreakerCooldown: cfg.ComplianceBreakerCooldown,
		}, logger, m)
	}

	a.Processor = usecase.NewProcessor(usecase.ProcessorDeps{
		Scopes:       backend.Scopes,
		Ledger:       a.Ledger,
		Audit:        a.Audit,
		Transactions: backend.Transactions,
		Compliance:   gate,
		Cache:        opts.Cache,
		IDGen:        ids,
		Clock:        clock,
		Logger:       logger,
		Metrics:      m,
	}, usecase.ProcessorConfig{
		MaxConflictRetries:   cfg.MaxConflictRetries,
		RetryInitialInterval: cfg.RetryInitialInterval,
		RetryMaxInterval:     cfg.RetryMaxInterval,
		AwaitTimeout:         cfg.AwaitTimeout,
		ResultTTL:            cfg.ResultCacheTTL,
	})
	a.Interest = usecase.NewInterestPosting(a.Processor, logger)

	a.Dispatcher = eventpublisher.NewDispatcher(eventpublisher.Config{
		Publisher:  opts.Publisher,
		Logger:     logger,
		Metrics:    m,
		BufferSize: cfg.EventBufferSize,
		MaxRetries: 3,
	})
	a.Processor.RegisterListener(a.Dispatcher)

	checks := make(map[string]handler.Pinger, len(backend.Checks)+len(opts.Checks))
	for name, ping := range backend.Checks {
		checks[name] = ping
	}
	for name, ping := range opts.Checks {
		checks[name] = ping
	}

	a.Handler = httpadapter.NewRouter(httpadapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(a.Accounts, a.Ledger),
		TransactionHandler: handler.NewTransactionHandler(a.Processor),
		EntryHandler:       handler.NewEntryHandler(a.Entries),
		AuditHandler:       handler.NewAuditHandler(a.Audit, a.Reconciliation),
		ScheduleHandler:    handler.NewScheduleHandler(),
		InterestHandler:    handler.NewInterestHandler(a.Interest),
		HealthHandler:      handler.NewHealthHandler(checks),
		Logger:             logger,
		Metrics:            m,
		Gatherer:           reg,
	})

	return a
}
