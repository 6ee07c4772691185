package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/metrics"
)

// ComplianceOutcome is the verdict of a compliance check.
type ComplianceOutcome string

const (
	ComplianceAllow  ComplianceOutcome = "allow"
	ComplianceReview ComplianceOutcome = "review"
	ComplianceBlock  ComplianceOutcome = "block"
)

func (o ComplianceOutcome) IsValid() bool {
	return o == ComplianceAllow || o == ComplianceReview || o == ComplianceBlock
}

// Fallback causes reported in decisions and metrics.
const (
	FallbackTimeout     = "timeout"
	FallbackBreakerOpen = "breaker_open"
	FallbackError       = "error"
)

// ComplianceRequest is what the checker sees of a business transaction.
type ComplianceRequest struct {
	TransactionID  string                 `json:"transaction_id"`
	IdempotencyKey string                 `json:"idempotency_key"`
	Type           domain.TransactionType `json:"type"`
	Actor          string                 `json:"actor"`
	Lines          []domain.Line          `json:"lines"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
}

// ComplianceDecision is the outcome applied to a transaction.
type ComplianceDecision struct {
	Outcome       ComplianceOutcome `json:"outcome"`
	Reasons       []string          `json:"reasons,omitempty"`
	FallbackUsed  bool              `json:"fallback_used"`
	FallbackCause string            `json:"fallback_cause,omitempty"`
}

// ComplianceChecker is an external compliance or fraud engine.
type ComplianceChecker interface {
	Check(ctx context.Context, req ComplianceRequest) (ComplianceDecision, error)
}

// ComplianceGateConfig configures timeout, breaker and fallback behavior.
type ComplianceGateConfig struct {
	Timeout  time.Duration
	Fallback ComplianceOutcome
	// BreakerFailures consecutive failures open the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open before probing.
	BreakerCooldown time.Duration
}

// ComplianceGate calls the checker under a timeout and circuit breaker. When the checker
// cannot answer, the configured fallback outcome is applied instead.
type ComplianceGate struct {
	checker ComplianceChecker
	cfg     ComplianceGateConfig
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewComplianceGate creates a gate. A nil checker allows everything.
func NewComplianceGate(checker ComplianceChecker, cfg ComplianceGateConfig, logger zerolog.Logger, m *metrics.Metrics) *ComplianceGate {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultComplianceTimeout
	}
	if !cfg.Fallback.IsValid() {
		cfg.Fallback = ComplianceReview
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	logger = logger.With().Str("component", "compliance_gate").Logger()
	failures := cfg.BreakerFailures

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "compliance",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &ComplianceGate{
		checker: checker,
		cfg:     cfg,
		breaker: breaker,
		logger:  logger,
		metrics: m,
	}
}

// Evaluate returns the decision to apply. It never fails: checker errors, timeouts and an
// open breaker all resolve to the fallback outcome with FallbackUsed set.
func (g *ComplianceGate) Evaluate(ctx context.Context, req ComplianceRequest) ComplianceDecision {
	if g == nil || g.checker == nil {
		return ComplianceDecision{Outcome: ComplianceAllow}
	}

	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.call(ctx, req)
	})
	if err != nil {
		cause := FallbackError
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			cause = FallbackBreakerOpen
		case domain.KindOf(err) == domain.KindExternalServiceTimeout:
			cause = FallbackTimeout
		}

		g.logger.Warn().Err(err).
			Str("transaction_id", req.TransactionID).
			Str("fallback_cause", cause).
			Str("outcome", string(g.cfg.Fallback)).
			Msg("compliance fallback applied")
		g.metrics.ObserveCompliance(string(g.cfg.Fallback), cause)

		return ComplianceDecision{
			Outcome:       g.cfg.Fallback,
			Reasons:       []string{"compliance unavailable: " + cause},
			FallbackUsed:  true,
			FallbackCause: cause,
		}
	}

	decision := res.(ComplianceDecision)
	g.metrics.ObserveCompliance(string(decision.Outcome), "")
	return decision
}

type checkResult struct {
	decision ComplianceDecision
	err      error
}

func (g *ComplianceGate) call(ctx context.Context, req ComplianceRequest) (ComplianceDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	done := make(chan checkResult, 1)
	go func() {
		d, err := g.checker.Check(ctx, req)
		done <- checkResult{decision: d, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return ComplianceDecision{}, r.err
		}
		if !r.decision.Outcome.IsValid() {
			return ComplianceDecision{}, fmt.Errorf("compliance checker returned unknown outcome %q", r.decision.Outcome)
		}
		r.decision.FallbackUsed = false
		r.decision.FallbackCause = ""
		return r.decision, nil
	case <-ctx.Done():
		return ComplianceDecision{}, domain.NewError(domain.KindExternalServiceTimeout, "compliance.check", ctx.Err())
	}
}
