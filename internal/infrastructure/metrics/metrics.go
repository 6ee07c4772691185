package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Transaction metrics
	TransactionsSubmitted *prometheus.CounterVec
	TransactionOutcomes   *prometheus.CounterVec
	TransactionDuration   *prometheus.HistogramVec
	IdempotentReplays     prometheus.Counter
	ConflictRetries       prometheus.Counter
	TransactionsRecovered prometheus.Counter

	// Ledger metrics
	EntriesPosted   prometheus.Counter
	EntriesReversed prometheus.Counter

	// Account metrics
	AccountOperations *prometheus.CounterVec

	// Compliance metrics
	ComplianceDecisions *prometheus.CounterVec
	ComplianceFallbacks *prometheus.CounterVec

	// Audit metrics
	AuditEventsStaged  *prometheus.CounterVec
	AuditVerifications *prometheus.CounterVec

	// Listener metrics
	ListenerFailures *prometheus.CounterVec
	DispatchDropped  prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Cache metrics
	CacheOperations *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TransactionsSubmitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexum_transactions_submitted_total",
				Help: "Total business transactions submitted by type",
			},
			[]string{"type"},
		),
		TransactionOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexum_transaction_outcomes_total",
				Help: "Terminal transaction outcomes by status and error kind",
			},
			[]string{"status", "kind"},
		),
		TransactionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexum_transaction_duration_seconds",
				Help:    "Duration of submit processing",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		IdempotentReplays: f.NewCounter(prometheus.CounterOpts{
			Name: "nexum_idempotent_replays_total",
			Help: "Submissions answered from a stored result",
		}),
		ConflictRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "nexum_conflict_retries_total",
			Help: "Scope retries caused by concurrency conflicts",
		}),
		TransactionsRecovered: f.NewCounter(prometheus.CounterOpts{
			Name: "nexum_transactions_recovered_total",
			Help: "Stale transactions marked failed during recovery",
		}),

		EntriesPosted: f.NewCounter(prometheus.CounterOpts{
			Name: "nexum_entries_posted_total",
			Help: "Journal entries posted",
		}),
		EntriesReversed: f.NewCounter(prometheus.CounterOpts{
			Name: "nexum_entries_reversed_total",
			Help: "Journal entries reversed",
		}),

		AccountOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexum_account_operations_total",
				Help: "Total account operations by type",
			},
			[]string{"operation"},
		),

		ComplianceDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexum_compliance_decisions_total",
				Help: "Compliance decisions by outcome",
			},
			[]string{"outcome"},
		),
		ComplianceFallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexum_compliance_fallbacks_total",
				Help: "Compliance fallbacks by cause",
			},
			[]string{"cause"},
		),

		AuditEventsStaged: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexum_audit_events_total",
				Help: "Audit events staged by action",
			},
			[]string{"action"},
		),
		AuditVerifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexum_audit_verifications_total",
				Help: "Audit chain verifications by result",
			},
			[]string{"result"},
		),

		ListenerFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexum_listener_failures_total",
				Help: "Post-commit listener failures",
			},
			[]string{"listener"},
		),
		DispatchDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "nexum_dispatch_dropped_total",
			Help: "Post-commit events dropped because the dispatch queue was full",
		}),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexum_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexum_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		CacheOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexum_cache_operations_total",
				Help: "Result cache operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
}

func (m *Metrics) ObserveSubmitted(txType string) {
	if m == nil {
		return
	}
	m.TransactionsSubmitted.WithLabelValues(txType).Inc()
}

func (m *Metrics) ObserveOutcome(status, kind string, txType string, started time.Time) {
	if m == nil {
		return
	}
	m.TransactionOutcomes.WithLabelValues(status, kind).Inc()
	m.TransactionDuration.WithLabelValues(txType).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveReplay() {
	if m == nil {
		return
	}
	m.IdempotentReplays.Inc()
}

func (m *Metrics) ObserveConflictRetry() {
	if m == nil {
		return
	}
	m.ConflictRetries.Inc()
}

func (m *Metrics) ObserveRecovered(n int) {
	if m == nil {
		return
	}
	m.TransactionsRecovered.Add(float64(n))
}

func (m *Metrics) ObservePosted(entries int) {
	if m == nil {
		return
	}
	m.EntriesPosted.Add(float64(entries))
}

func (m *Metrics) ObserveReversed(entries int) {
	if m == nil {
		return
	}
	m.EntriesReversed.Add(float64(entries))
}

func (m *Metrics) ObserveAccountOperation(op string) {
	if m == nil {
		return
	}
	m.AccountOperations.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveCompliance(outcome string, fallbackCause string) {
	if m == nil {
		return
	}
	m.ComplianceDecisions.WithLabelValues(outcome).Inc()
	if fallbackCause != "" {
		m.ComplianceFallbacks.WithLabelValues(fallbackCause).Inc()
	}
}

func (m *Metrics) ObserveAuditStaged(action string) {
	if m == nil {
		return
	}
	m.AuditEventsStaged.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveAuditVerification(valid bool) {
	if m == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "broken"
	}
	m.AuditVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveListenerFailure(listener string) {
	if m == nil {
		return
	}
	m.ListenerFailures.WithLabelValues(listener).Inc()
}

func (m *Metrics) ObserveDispatchDropped() {
	if m == nil {
		return
	}
	m.DispatchDropped.Inc()
}

func (m *Metrics) ObserveCache(op, outcome string) {
	if m == nil {
		return
	}
	m.CacheOperations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
