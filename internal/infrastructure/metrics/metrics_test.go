package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.TransactionsSubmitted == nil || m.HTTPRequests == nil || m.AuditVerifications == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.ObserveSubmitted("transfer")
	m.ObserveOutcome("completed", "", "transfer", time.Now())

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCompliance("allow", "timeout")
	m.ObserveCompliance("allow", "")
	m.ObserveAuditVerification(false)
	m.ObserveReplay()

	if got := testutil.ToFloat64(m.ComplianceDecisions.WithLabelValues("allow")); got != 2 {
		t.Errorf("allow decisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ComplianceFallbacks.WithLabelValues("timeout")); got != 1 {
		t.Errorf("timeout fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AuditVerifications.WithLabelValues("broken")); got != 1 {
		t.Errorf("broken verifications = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.IdempotentReplays); got != 1 {
		t.Errorf("replays = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.ObserveSubmitted("transfer")
	m.ObserveOutcome("failed", "storage_failure", "transfer", time.Now())
	m.ObserveCompliance("block", "")
	m.ObserveListenerFailure("x")
	m.ObserveCache("get", "hit")
}
