package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

// ReconciliationUseCase checks the books as a whole: every currency balances across all
// posted lines and the audit chain recomputes.
type ReconciliationUseCase struct {
	entryRepo EntryRepository
	audit     *AuditChain
	clock     Clock
	logger    zerolog.Logger
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(entryRepo EntryRepository, audit *AuditChain, clock Clock, logger zerolog.Logger) *ReconciliationUseCase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ReconciliationUseCase{
		entryRepo: entryRepo,
		audit:     audit,
		clock:     clock,
		logger:    logger.With().Str("component", "reconciliation").Logger(),
	}
}

// CurrencyTotals is the sum of every posted line in one currency.
type CurrencyTotals struct {
	Currency   domain.Currency `json:"currency"`
	Debits     decimal.Decimal `json:"debits"`
	Credits    decimal.Decimal `json:"credits"`
	Difference decimal.Decimal `json:"difference"`
	Balanced   bool            `json:"balanced"`
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	Currencies       []CurrencyTotals          `json:"currencies"`
	LedgerConsistent bool                      `json:"ledger_consistent"`
	Audit            domain.VerificationResult `json:"audit"`
	CheckedAt        time.Time                 `json:"checked_at"`
}

// OK reports whether both the ledger and the audit chain check out.
func (r *ReconciliationReport) OK() bool {
	return r.LedgerConsistent && r.Audit.Valid
}

// CheckLedgerConsistency sums debits and credits per currency across all posted lines.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) ([]CurrencyTotals, bool, error) {
	debits, credits, err := uc.entryRepo.TotalsByDirection(ctx)
	if err != nil {
		return nil, false, err
	}

	seen := make(map[domain.Currency]struct{}, len(debits)+len(credits))
	for c := range debits {
		seen[c] = struct{}{}
	}
	for c := range credits {
		seen[c] = struct{}{}
	}

	out := make([]CurrencyTotals, 0, len(seen))
	consistent := true
	for c := range seen {
		t := CurrencyTotals{
			Currency:   c,
			Debits:     debits[c],
			Credits:    credits[c],
			Difference: debits[c].Sub(credits[c]),
		}
		t.Balanced = t.Difference.IsZero()
		if !t.Balanced {
			consistent = false
			uc.logger.Error().
				Str("kind", string(domain.KindIntegrityViolation)).
				Str("currency", string(c)).
				Str("debits", t.Debits.String()).
				Str("credits", t.Credits.String()).
				Msg("ledger inconsistency detected")
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })

	return out, consistent, nil
}

// GenerateReconciliationReport checks ledger totals and verifies the whole audit chain.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	totals, consistent, err := uc.CheckLedgerConsistency(ctx)
	if err != nil {
		return nil, err
	}

	verification, err := uc.audit.Verify(ctx, 1, 0)
	if err != nil {
		return nil, err
	}

	return &ReconciliationReport{
		Currencies:       totals,
		LedgerConsistent: consistent,
		Audit:            verification,
		CheckedAt:        uc.clock.Now(),
	}, nil
}
