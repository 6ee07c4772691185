package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/metrics"
)

// ProcessorConfig tunes retries and waits.
type ProcessorConfig struct {
	// MaxConflictRetries bounds whole-scope retries after a concurrency conflict.
	MaxConflictRetries int
	// RetryInitialInterval and RetryMaxInterval shape the retry backoff.
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	// AwaitTimeout is how long a submit waits for another worker holding the same key.
	AwaitTimeout time.Duration
	// ResultTTL is how long terminal results stay in the result cache.
	ResultTTL time.Duration
}

// DefaultProcessorConfig returns the defaults used when fields are left zero.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		MaxConflictRetries:   MaxConflictRetries,
		RetryInitialInterval: 10 * time.Millisecond,
		RetryMaxInterval:     250 * time.Millisecond,
		AwaitTimeout:         5 * time.Second,
		ResultTTL:            ResultCacheTTL,
	}
}

func (c ProcessorConfig) withDefaults() ProcessorConfig {
	d := DefaultProcessorConfig()
	if c.MaxConflictRetries <= 0 {
		c.MaxConflictRetries = d.MaxConflictRetries
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = d.RetryInitialInterval
	}
	if c.RetryMaxInterval <= 0 {
		c.RetryMaxInterval = d.RetryMaxInterval
	}
	if c.AwaitTimeout <= 0 {
		c.AwaitTimeout = d.AwaitTimeout
	}
	if c.ResultTTL <= 0 {
		c.ResultTTL = d.ResultTTL
	}
	return c
}

// ProcessorDeps are the collaborators of a Processor. Cache and Compliance are optional.
type ProcessorDeps struct {
	Scopes       ScopeManager
	Ledger       *LedgerUseCase
	Audit        *AuditChain
	Transactions TransactionRepository
	Compliance   *ComplianceGate
	Cache        ResultCache
	IDGen        IDGenerator
	Clock        Clock
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
}

// Processor runs business transactions end to end: idempotent claim, validation,
// compliance, posting and audit, with post-commit notification.
type Processor struct {
	scopes     ScopeManager
	ledger     *LedgerUseCase
	audit      *AuditChain
	txnRepo    TransactionRepository
	compliance *ComplianceGate
	cache      ResultCache
	idGen      IDGenerator
	clock      Clock
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	cfg        ProcessorConfig
	validate   *validator.Validate
	flight     singleflight.Group

	mu        sync.RWMutex
	listeners []PostCommitListener
}

// NewProcessor creates a new Processor.
func NewProcessor(deps ProcessorDeps, cfg ProcessorConfig) *Processor {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Processor{
		scopes:     deps.Scopes,
		ledger:     deps.Ledger,
		audit:      deps.Audit,
		txnRepo:    deps.Transactions,
		compliance: deps.Compliance,
		cache:      deps.Cache,
		idGen:      deps.IDGen,
		clock:      clock,
		logger:     deps.Logger.With().Str("component", "processor").Logger(),
		metrics:    deps.Metrics,
		cfg:        cfg.withDefaults(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterListener adds a listener called after every committed status change.
func (p *Processor) RegisterListener(l PostCommitListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// Submit processes req at most once per idempotency key. Rejections and failures are
// reported in the result; the error is reserved for requests that could not be taken.
// ctx cancellation is honored until the key is claimed; after that the attempt runs to a
// recorded outcome.
func (p *Processor) Submit(ctx context.Context, req SubmitRequest) (*domain.TransactionResult, error) {
	lines, err := p.checkRequest(req)
	if err != nil {
		return nil, err
	}

	p.metrics.ObserveSubmitted(string(req.Type))

	if res := p.cachedResult(ctx, req.IdempotencyKey); res != nil {
		p.metrics.ObserveReplay()
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := p.flight.Do(req.IdempotencyKey, func() (interface{}, error) {
		return p.process(context.WithoutCancel(ctx), req, lines)
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.TransactionResult).Clone(), nil
}

// Get returns the stored result of a transaction.
func (p *Processor) Get(ctx context.Context, id string) (*domain.TransactionResult, error) {
	txn, err := p.txnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return txn.Result(), nil
}

// GetByKey returns the stored result for an idempotency key.
func (p *Processor) GetByKey(ctx context.Context, key string) (*domain.TransactionResult, error) {
	txn, err := p.txnRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return txn.Result(), nil
}

// Reverse posts the reversal of every entry of a completed transaction in one scope.
func (p *Processor) Reverse(ctx context.Context, id, actor string) (*domain.TransactionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)
	started := time.Now()
	actor = actorOr(actor)

	var (
		reversed *domain.Transaction
		key      string
	)
	err := p.retryConflicts(ctx, func() error {
		reversed = nil
		return WithScope(ctx, p.scopes, func(s Scope) error {
			txn, err := p.txnRepo.GetInScope(ctx, s, id)
			if err != nil {
				return err
			}
			key = txn.IdempotencyKey

			next := txn.Clone()
			if err := next.TransitionTo(domain.StatusReversed, p.clock.Now()); err != nil {
				return err
			}

			entries := make([]*domain.JournalEntry, 0, len(txn.EntryIDs))
			var lines []domain.Line
			for _, eid := range txn.EntryIDs {
				e, err := p.ledger.EntryInScope(ctx, s, eid)
				if err != nil {
					return err
				}
				entries = append(entries, e)
				lines = append(lines, e.Lines...)
			}

			if err := s.LockAccounts(ctx, domain.DistinctAccountIDs(lines)); err != nil {
				return err
			}

			next.ReversalEntryIDs = next.ReversalEntryIDs[:0]
			for _, e := range entries {
				rev, err := p.ledger.Reverse(ctx, s, e.ID, "reversal of transaction "+txn.ID)
				if err != nil {
					return err
				}
				next.ReversalEntryIDs = append(next.ReversalEntryIDs, rev.ID)

				if err := p.audit.Record(ctx, s, AuditRecord{
					Actor:      actor,
					Action:     domain.AuditActionEntryReversed,
					EntityType: domain.EntityEntry,
					EntityID:   e.ID,
					Payload:    map[string]any{"reversal_entry_id": rev.ID, "transaction_id": txn.ID},
				}); err != nil {
					return err
				}
			}

			if err := p.txnRepo.Update(ctx, s, next, domain.StatusCompleted); err != nil {
				return err
			}

			if err := p.audit.Record(ctx, s, AuditRecord{
				Actor:      actor,
				Action:     domain.AuditActionTransactionReversed,
				EntityType: domain.EntityTransaction,
				EntityID:   txn.ID,
				Payload:    map[string]any{"reversal_entry_ids": next.ReversalEntryIDs},
			}); err != nil {
				return err
			}

			reversed = next
			return nil
		})
	})
	if err != nil {
		// A failed commit may still have landed; the cached result can no longer be trusted.
		if !domain.IsValidation(err) {
			p.forgetResult(ctx, key)
		}
		return nil, err
	}

	p.metrics.ObserveReversed(len(reversed.ReversalEntryIDs))
	p.afterCommit(ctx, reversed, started)

	p.logger.Info().
		Str("transaction_id", reversed.ID).
		Strs("reversal_entry_ids", reversed.ReversalEntryIDs).
		Msg("transaction reversed")

	return reversed.Result(), nil
}

// RecoverStale fails records left non-terminal for longer than olderThan, typically by a
// crashed worker. Nothing was posted for them, so they may be re-attempted with the same key.
func (p *Processor) RecoverStale(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = StaleTransactionAge
	}
	cutoff := p.clock.Now().Add(-olderThan)

	stale, err := p.txnRepo.ListStale(ctx, cutoff, domain.ClampLimit(0))
	if err != nil {
		return 0, err
	}

	var errs error
	recovered := 0
	for _, txn := range stale {
		var failed *domain.Transaction
		err := WithScope(ctx, p.scopes, func(s Scope) error {
			next := txn.Clone()
			cause := domain.NewError(domain.KindStorageFailure, "processor.recover", errors.New("processing abandoned before completion"))
			if err := next.Fail(domain.StatusFailed, cause, p.clock.Now()); err != nil {
				return err
			}
			if err := p.txnRepo.Update(ctx, s, next, txn.Status); err != nil {
				return err
			}
			failed = next
			return p.audit.Record(ctx, s, AuditRecord{
				Actor:      SystemActor,
				Action:     domain.AuditActionTransactionFailed,
				EntityType: domain.EntityTransaction,
				EntityID:   txn.ID,
				Payload:    map[string]any{"reason": next.Failure.Reason, "recovered_from": txn.Status},
			})
		})
		if err != nil {
			if errors.Is(err, domain.ErrTransactionStale) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("recover %s: %w", txn.ID, err))
			continue
		}
		recovered++
		p.notify(ctx, failed)
	}

	p.metrics.ObserveRecovered(recovered)
	if recovered > 0 {
		p.logger.Warn().Int("count", recovered).Time("cutoff", cutoff).Msg("recovered stale transactions")
	}
	return recovered, errs
}

func (p *Processor) checkRequest(req SubmitRequest) ([]domain.Line, error) {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return nil, domain.ErrMissingIdempotencyKey
	}
	if err := p.validate.Struct(req); err != nil {
		return nil, domain.NewError(domain.KindValidation, "submit", err)
	}
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTransactionType, req.Type)
	}
	if err := domain.ValidateMetadata(req.Metadata); err != nil {
		return nil, err
	}
	return BuildLines(req)
}

func (p *Processor) process(ctx context.Context, req SubmitRequest, lines []domain.Line) (*domain.TransactionResult, error) {
	started := time.Now()

	txn, created, err := p.claim(ctx, req)
	if err != nil {
		return nil, err
	}

	if !created {
		switch {
		case txn.Status == domain.StatusFailed && txn.Failure != nil && txn.Failure.Retryable:
			p.logger.Info().
				Str("transaction_id", txn.ID).
				Int("attempts", txn.Attempts).
				Msg("re-attempting failed transaction")
		case txn.Status.IsTerminal():
			return p.replay(ctx, txn), nil
		default:
			stored, err := p.awaitTerminal(ctx, txn.ID)
			if err != nil {
				return nil, err
			}
			return p.replay(ctx, stored), nil
		}
	}

	return p.execute(ctx, req, txn, lines, started)
}

func (p *Processor) replay(ctx context.Context, txn *domain.Transaction) *domain.TransactionResult {
	p.metrics.ObserveReplay()
	p.cacheResult(ctx, txn)
	res := txn.Result()
	res.Replayed = true
	return res
}

// claim creates the record for req.IdempotencyKey, or returns the one already stored.
func (p *Processor) claim(ctx context.Context, req SubmitRequest) (*domain.Transaction, bool, error) {
	now := p.clock.Now()
	txn := &domain.Transaction{
		ID:             p.idGen.Generate(),
		IdempotencyKey: req.IdempotencyKey,
		Type:           req.Type,
		Status:         domain.StatusCreated,
		Actor:          actorOr(req.Actor),
		Metadata:       domain.NormalizeMetadata(req.Metadata),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var (
		stored  *domain.Transaction
		created bool
	)
	err := p.retryConflicts(ctx, func() error {
		return WithScope(ctx, p.scopes, func(s Scope) error {
			var err error
			stored, created, err = p.txnRepo.CreateIfAbsent(ctx, s, txn)
			if err != nil || !created {
				return err
			}
			return p.audit.Record(ctx, s, AuditRecord{
				Actor:      txn.Actor,
				Action:     domain.AuditActionTransactionCreated,
				EntityType: domain.EntityTransaction,
				EntityID:   txn.ID,
				Payload:    map[string]any{"idempotency_key": txn.IdempotencyKey, "type": txn.Type},
			})
		})
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// startAttempt moves the record to validating.
func (p *Processor) startAttempt(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	next := txn.Clone()
	if err := next.TransitionTo(domain.StatusValidating, p.clock.Now()); err != nil {
		return nil, err
	}
	err := WithScope(ctx, p.scopes, func(s Scope) error {
		return p.txnRepo.Update(ctx, s, next, txn.Status)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (p *Processor) execute(ctx context.Context, req SubmitRequest, claimed *domain.Transaction, lines []domain.Line, started time.Time) (*domain.TransactionResult, error) {
	txn, err := p.startAttempt(ctx, claimed)
	if err != nil {
		if domain.IsRetryable(err) {
			// Another worker started this attempt first.
			stored, err := p.awaitTerminal(ctx, claimed.ID)
			if err != nil {
				return nil, err
			}
			return p.replay(ctx, stored), nil
		}
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("%s %s", req.Type, req.IdempotencyKey)
	}

	entry, err := p.ledger.Propose(ctx, nil, description, lines)
	if err != nil {
		return p.finish(ctx, txn, failureStatus(err), err, started)
	}

	decision := p.compliance.Evaluate(ctx, ComplianceRequest{
		TransactionID:  txn.ID,
		IdempotencyKey: txn.IdempotencyKey,
		Type:           txn.Type,
		Actor:          txn.Actor,
		Lines:          entry.Lines,
		Metadata:       domain.NormalizeMetadata(req.Metadata),
	})
	txn.SetMetadata(MetadataComplianceOutcome, string(decision.Outcome))
	txn.SetMetadata(MetadataFallbackUsed, decision.FallbackUsed)
	if len(decision.Reasons) > 0 {
		txn.SetMetadata(MetadataComplianceReasons, append([]string(nil), decision.Reasons...))
	}

	if decision.Outcome != ComplianceAllow {
		cause := fmt.Errorf("%w: %s", domain.ErrComplianceRejected, decision.Outcome)
		if len(decision.Reasons) > 0 {
			cause = fmt.Errorf("%w: %s (%s)", domain.ErrComplianceRejected, decision.Outcome, strings.Join(decision.Reasons, "; "))
		}
		return p.finish(ctx, txn, domain.StatusRejected, cause, started)
	}

	completed, err := p.post(ctx, txn, entry, decision)
	if err != nil {
		return p.finish(ctx, txn, failureStatus(err), err, started)
	}

	p.metrics.ObservePosted(len(completed.EntryIDs))
	p.afterCommit(ctx, completed, started)

	p.logger.Info().
		Str("transaction_id", completed.ID).
		Str("idempotency_key", completed.IdempotencyKey).
		Str("type", string(completed.Type)).
		Strs("entry_ids", completed.EntryIDs).
		Msg("transaction completed")

	return completed.Result(), nil
}

// post writes the entry, the completed record and the audit trail in one scope.
func (p *Processor) post(ctx context.Context, txn *domain.Transaction, entry *domain.JournalEntry, decision ComplianceDecision) (*domain.Transaction, error) {
	var completed *domain.Transaction

	err := p.retryConflicts(ctx, func() error {
		completed = nil
		return WithScope(ctx, p.scopes, func(s Scope) error {
			next := txn.Clone()
			if err := next.TransitionTo(domain.StatusPosting, p.clock.Now()); err != nil {
				return err
			}

			if err := s.LockAccounts(ctx, entry.AccountIDs()); err != nil {
				return err
			}
			if err := p.ledger.CheckAvailable(ctx, s, entry); err != nil {
				return err
			}

			pending := entry.Clone()
			pending.TransactionID = next.ID
			posted, err := p.ledger.Post(ctx, s, pending)
			if err != nil {
				return err
			}

			next.EntryIDs = []string{posted.ID}
			if err := next.TransitionTo(domain.StatusCompleted, p.clock.Now()); err != nil {
				return err
			}
			if err := p.txnRepo.Update(ctx, s, next, txn.Status); err != nil {
				return err
			}

			if err := p.audit.Record(ctx, s, AuditRecord{
				Actor:      next.Actor,
				Action:     domain.AuditActionEntryPosted,
				EntityType: domain.EntityEntry,
				EntityID:   posted.ID,
				Payload:    map[string]any{"transaction_id": next.ID, "lines": posted.Lines},
			}); err != nil {
				return err
			}

			if decision.FallbackUsed {
				if err := p.audit.Record(ctx, s, AuditRecord{
					Actor:      SystemActor,
					Action:     domain.AuditActionComplianceFallback,
					EntityType: domain.EntityTransaction,
					EntityID:   next.ID,
					Payload:    map[string]any{"cause": decision.FallbackCause, "outcome": decision.Outcome},
				}); err != nil {
					return err
				}
			}

			if err := p.audit.Record(ctx, s, AuditRecord{
				Actor:      next.Actor,
				Action:     domain.AuditActionTransactionCompleted,
				EntityType: domain.EntityTransaction,
				EntityID:   next.ID,
				Payload: map[string]any{
					"entry_ids":               next.EntryIDs,
					MetadataComplianceOutcome: decision.Outcome,
					MetadataFallbackUsed:      decision.FallbackUsed,
				},
			}); err != nil {
				return err
			}

			completed = next
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// finish records a rejected or failed outcome in a fresh scope. The posting scope, if any,
// has already been rolled back.
func (p *Processor) finish(ctx context.Context, txn *domain.Transaction, status domain.TransactionStatus, cause error, started time.Time) (*domain.TransactionResult, error) {
	next := txn.Clone()
	if err := next.Fail(status, cause, p.clock.Now()); err != nil {
		return nil, err
	}

	action := domain.AuditActionTransactionFailed
	if status == domain.StatusRejected {
		action = domain.AuditActionTransactionRejected
	}

	op := func() error {
		err := WithScope(ctx, p.scopes, func(s Scope) error {
			if err := p.txnRepo.Update(ctx, s, next, txn.Status); err != nil {
				return err
			}
			return p.audit.Record(ctx, s, AuditRecord{
				Actor:      next.Actor,
				Action:     action,
				EntityType: domain.EntityTransaction,
				EntityID:   next.ID,
				Payload: map[string]any{
					"kind":      next.Failure.Kind,
					"reason":    next.Failure.Reason,
					"retryable": next.Failure.Retryable,
				},
			})
		})
		if errors.Is(err, domain.ErrTransactionStale) || domain.IsValidation(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(p.newBackoff(), ctx)); err != nil {
		p.logger.Error().Err(err).
			Str("transaction_id", next.ID).
			AnErr("cause", cause).
			Msg("failed to record transaction outcome; left for stale recovery")
		return nil, domain.NewError(domain.KindStorageFailure, "processor.finish", multierr.Append(cause, err))
	}

	p.afterCommit(ctx, next, started)

	p.logger.Warn().
		Str("transaction_id", next.ID).
		Str("status", string(next.Status)).
		Str("kind", string(next.Failure.Kind)).
		Str("reason", next.Failure.Reason).
		Msg("transaction not completed")

	return next.Result(), nil
}

// awaitTerminal polls a record another worker is processing until it settles.
func (p *Processor) awaitTerminal(ctx context.Context, id string) (*domain.Transaction, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.RetryInitialInterval
	b.MaxInterval = p.cfg.RetryMaxInterval
	b.MaxElapsedTime = p.cfg.AwaitTimeout

	var stored *domain.Transaction
	err := backoff.Retry(func() error {
		txn, err := p.txnRepo.GetByID(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !txn.Status.IsTerminal() {
			return domain.ErrTransactionInProgress
		}
		stored = txn
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// retryConflicts reruns op while it fails with a concurrency conflict.
func (p *Processor) retryConflicts(ctx context.Context, op func() error) error {
	b := p.newBackoff()
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !domain.IsRetryable(err) || errors.Is(err, domain.ErrTransactionStale) {
			return backoff.Permanent(err)
		}
		p.metrics.ObserveConflictRetry()
		p.logger.Debug().Err(err).Msg("concurrency conflict, retrying scope")
		return err
	}, backoff.WithContext(b, ctx))
}

func (p *Processor) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.RetryInitialInterval
	b.MaxInterval = p.cfg.RetryMaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(p.cfg.MaxConflictRetries))
}

func (p *Processor) afterCommit(ctx context.Context, txn *domain.Transaction, started time.Time) {
	kind := ""
	if txn.Failure != nil {
		kind = string(txn.Failure.Kind)
	}
	p.metrics.ObserveOutcome(string(txn.Status), kind, string(txn.Type), started)

	p.cacheResult(ctx, txn)
	p.notify(ctx, txn)
}

func (p *Processor) cachedResult(ctx context.Context, key string) *domain.TransactionResult {
	if p.cache == nil {
		return nil
	}
	res, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn().Err(err).Str("idempotency_key", key).Msg("result cache read failed")
		return nil
	}
	if res == nil {
		return nil
	}
	res.Replayed = true
	return res
}

// cacheResult writes a terminal result. Only a reversal replaces a cached value: every
// other writer may hold a copy read before the reversal committed.
func (p *Processor) cacheResult(ctx context.Context, txn *domain.Transaction) {
	if p.cache == nil || !txn.Status.IsTerminal() {
		return
	}
	if txn.Status == domain.StatusFailed && txn.Failure != nil && txn.Failure.Retryable {
		return
	}

	var err error
	if txn.Status == domain.StatusReversed {
		err = p.cache.Set(ctx, txn.IdempotencyKey, txn.Result(), p.cfg.ResultTTL)
	} else {
		_, err = p.cache.SetIfAbsent(ctx, txn.IdempotencyKey, txn.Result(), p.cfg.ResultTTL)
	}
	if err != nil {
		p.logger.Warn().Err(err).Str("idempotency_key", txn.IdempotencyKey).Msg("result cache write failed")
	}
}

// forgetResult drops the cached result for key so the next read goes to the repository.
func (p *Processor) forgetResult(ctx context.Context, key string) {
	if p.cache == nil || key == "" {
		return
	}
	if err := p.cache.Delete(ctx, key); err != nil {
		p.logger.Warn().Err(err).Str("idempotency_key", key).Msg("result cache delete failed")
	}
}

// notify calls every listener. Listener errors and panics never reach the submitter.
func (p *Processor) notify(ctx context.Context, txn *domain.Transaction) {
	p.mu.RLock()
	listeners := append([]PostCommitListener(nil), p.listeners...)
	p.mu.RUnlock()

	if len(listeners) == 0 {
		return
	}

	event := domain.EventFromTransaction(txn, p.clock.Now())

	var errs error
	for _, l := range listeners {
		if err := callListener(ctx, l, event); err != nil {
			p.metrics.ObserveListenerFailure(l.Name())
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", l.Name(), err))
		}
	}
	if errs != nil {
		p.logger.Error().Err(errs).Str("transaction_id", txn.ID).Msg("post-commit listener failed")
	}
}

func callListener(ctx context.Context, l PostCommitListener, event domain.TransactionEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.OnCommit(ctx, event)
}

func failureStatus(err error) domain.TransactionStatus {
	if domain.IsValidation(err) {
		return domain.StatusRejected
	}
	return domain.StatusFailed
}

func actorOr(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return SystemActor
	}
	return actor
}

