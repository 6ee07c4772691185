package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/metrics"
)

// verifyPageSize is how many events Verify loads per round trip.
const verifyPageSize = 500

// AuditRecord is one state-changing action to append to the chain.
type AuditRecord struct {
	Actor      string
	Action     domain.AuditAction
	EntityType string
	EntityID   string
	Payload    any
}

// AuditChain records actions into the hash chain and verifies it.
type AuditChain struct {
	auditRepo AuditRepository
	clock     Clock
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewAuditChain creates a new AuditChain.
func NewAuditChain(auditRepo AuditRepository, clock Clock, logger zerolog.Logger, m *metrics.Metrics) *AuditChain {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AuditChain{
		auditRepo: auditRepo,
		clock:     clock,
		logger:    logger.With().Str("component", "audit_chain").Logger(),
		metrics:   m,
	}
}

// Record stages rec in s. The event is sealed, and its sequence assigned, when s commits;
// if sealing fails the whole scope fails.
func (a *AuditChain) Record(ctx context.Context, s Scope, rec AuditRecord) error {
	if s == nil {
		return ErrNoScope
	}

	draft, err := domain.NewAuditDraft(a.clock.Now(), rec.Actor, rec.Action, rec.EntityType, rec.EntityID, rec.Payload)
	if err != nil {
		return domain.NewError(domain.KindAuditAppendFailure, "audit.record", err)
	}

	if err := a.auditRepo.Stage(ctx, s, draft); err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.NewError(domain.KindAuditAppendFailure, "audit.record", err)
		}
		return err
	}

	a.metrics.ObserveAuditStaged(string(rec.Action))
	return nil
}

// Range returns sealed events matching filter.
func (a *AuditChain) Range(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	if filter.FromSeq < 0 || (filter.ToSeq > 0 && filter.ToSeq < filter.FromSeq) {
		return nil, fmt.Errorf("%w: from=%d to=%d", domain.ErrInvalidRange, filter.FromSeq, filter.ToSeq)
	}
	filter.Limit = domain.ClampLimit(filter.Limit)
	return a.auditRepo.Range(ctx, filter)
}

// Verify recomputes every hash in [fromSeq, toSeq]. toSeq == 0 means the current head.
// The head is read once, so appends racing with verification are outside the checked range.
func (a *AuditChain) Verify(ctx context.Context, fromSeq, toSeq int64) (domain.VerificationResult, error) {
	if fromSeq < 1 {
		fromSeq = 1
	}

	head, err := a.auditRepo.Head(ctx)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	if toSeq == 0 || toSeq > head.Sequence {
		toSeq = head.Sequence
	}
	if toSeq < fromSeq {
		return domain.VerificationResult{Valid: true}, nil
	}

	anchor := &domain.AuditEvent{Sequence: 0, Hash: domain.GenesisHash}
	if fromSeq > 1 {
		anchor, err = a.auditRepo.GetBySequence(ctx, fromSeq-1)
		if err != nil {
			return domain.VerificationResult{}, err
		}
	}

	total := domain.VerificationResult{Valid: true}
	for next := fromSeq; next <= toSeq; {
		page, err := a.auditRepo.Range(ctx, domain.AuditFilter{FromSeq: next, ToSeq: toSeq, Limit: verifyPageSize})
		if err != nil {
			return domain.VerificationResult{}, err
		}
		if len(page) == 0 {
			// Sequences are gapless; missing events are a break at the first absent number.
			seq := next
			total.Valid = false
			total.FirstBreak = &seq
			total.Reason = "event missing"
			break
		}

		res := domain.VerifyChain(anchor, page)
		total.EventsChecked += res.EventsChecked
		if !res.Valid {
			total.Valid = false
			total.FirstBreak = res.FirstBreak
			total.Reason = res.Reason
			break
		}

		last := page[len(page)-1]
		anchor = &last
		next = last.Sequence + 1
	}

	a.metrics.ObserveAuditVerification(total.Valid)
	if !total.Valid {
		a.logger.Error().
			Str("kind", string(domain.KindIntegrityViolation)).
			Int64("first_break", *total.FirstBreak).
			Str("reason", total.Reason).
			Msg("audit chain verification failed")
	}

	return total, nil
}
