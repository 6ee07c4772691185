package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

// ErrNoScope is returned when a write is attempted outside a storage scope.
var ErrNoScope = domain.NewError(domain.KindStorageFailure, "ledger", errors.New("write requires an open scope"))

// LedgerUseCase validates and posts balanced entries and derives balances from them.
type LedgerUseCase struct {
	accountRepo AccountRepository
	entryRepo   EntryRepository
	idGen       IDGenerator
	clock       Clock
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(accountRepo AccountRepository, entryRepo EntryRepository, idGen IDGenerator, clock Clock) *LedgerUseCase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &LedgerUseCase{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		idGen:       idGen,
		clock:       clock,
	}
}

// Propose builds a pending entry from lines and validates it against current account
// state. s may be nil when called outside a scope.
func (uc *LedgerUseCase) Propose(ctx context.Context, s Scope, description string, lines []domain.Line) (*domain.JournalEntry, error) {
	entry := &domain.JournalEntry{
		ID:          uc.idGen.Generate(),
		Description: description,
		Lines:       append([]domain.Line(nil), lines...),
		State:       domain.EntryStatePending,
		CreatedAt:   uc.clock.Now(),
	}

	if err := uc.validate(ctx, s, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// Post writes entry inside s. Posting an entry id that already exists returns the stored
// entry without writing. PostedAt stays zero until the backend stamps it with the commit
// time under the same serialization point that assigns audit sequence numbers; read the
// entry back after commit to see it.
func (uc *LedgerUseCase) Post(ctx context.Context, s Scope, entry *domain.JournalEntry) (*domain.JournalEntry, error) {
	if s == nil {
		return nil, ErrNoScope
	}

	existing, err := uc.entryRepo.GetInScope(ctx, s, entry.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrEntryNotFound) {
		return nil, err
	}

	if err := uc.validate(ctx, s, entry); err != nil {
		return nil, err
	}

	posted := entry.Clone()
	posted.State = domain.EntryStatePosted
	posted.PostedAt = time.Time{}

	if err := uc.entryRepo.Create(ctx, s, posted); err != nil {
		return nil, err
	}

	return posted.Clone(), nil
}

// Reverse posts the mirror of entryID and marks the original reversed. The original's
// lines are left untouched.
func (uc *LedgerUseCase) Reverse(ctx context.Context, s Scope, entryID, description string) (*domain.JournalEntry, error) {
	if s == nil {
		return nil, ErrNoScope
	}

	orig, err := uc.entryRepo.GetInScope(ctx, s, entryID)
	if err != nil {
		return nil, err
	}

	if description == "" {
		description = "reversal of " + orig.ID
	}

	reversal, err := orig.Reversal(uc.idGen.Generate(), description, uc.clock.Now())
	if err != nil {
		return nil, err
	}

	posted, err := uc.Post(ctx, s, reversal)
	if err != nil {
		return nil, err
	}

	if err := uc.entryRepo.MarkReversed(ctx, s, orig.ID, posted.ID); err != nil {
		return nil, err
	}

	return posted, nil
}

// BalanceOf folds every line posted up to asOf. A zero asOf means now.
func (uc *LedgerUseCase) BalanceOf(ctx context.Context, accountID string, asOf time.Time) (domain.Balance, error) {
	if asOf.IsZero() {
		asOf = uc.clock.Now()
	}

	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return domain.Balance{}, err
	}

	totals, err := uc.entryRepo.SumByAccount(ctx, accountID, asOf)
	if err != nil {
		return domain.Balance{}, err
	}

	return totals.ToBalance(account, asOf), nil
}

// BalanceInScope folds committed lines and lines already staged in s.
func (uc *LedgerUseCase) BalanceInScope(ctx context.Context, s Scope, accountID string) (domain.Balance, error) {
	account, err := uc.accountRepo.GetInScope(ctx, s, accountID)
	if err != nil {
		return domain.Balance{}, err
	}

	totals, err := uc.entryRepo.SumByAccountInScope(ctx, s, accountID)
	if err != nil {
		return domain.Balance{}, err
	}

	return totals.ToBalance(account, uc.clock.Now()), nil
}

// GetEntry returns a committed entry.
func (uc *LedgerUseCase) GetEntry(ctx context.Context, id string) (*domain.JournalEntry, error) {
	return uc.entryRepo.GetByID(ctx, id)
}

func (uc *LedgerUseCase) validate(ctx context.Context, s Scope, entry *domain.JournalEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	accounts := make(map[string]*domain.Account, len(entry.Lines))
	for _, id := range entry.AccountIDs() {
		acc, err := uc.loadAccount(ctx, s, id)
		if err != nil {
			return err
		}
		if err := acc.CanPost(); err != nil {
			return err
		}
		accounts[id] = acc
	}

	for i, l := range entry.Lines {
		acc := accounts[l.AccountID]
		if l.Amount.Currency() != acc.Currency {
			return fmt.Errorf("%w: line %d is %s, account %s is %s", domain.ErrCurrencyMismatch, i, l.Amount.Currency(), acc.ID, acc.Currency)
		}
	}

	return nil
}

func (uc *LedgerUseCase) loadAccount(ctx context.Context, s Scope, id string) (*domain.Account, error) {
	if s != nil {
		return uc.accountRepo.GetInScope(ctx, s, id)
	}
	return uc.accountRepo.GetByID(ctx, id)
}

// EntryInScope returns an entry as seen from s.
func (uc *LedgerUseCase) EntryInScope(ctx context.Context, s Scope, id string) (*domain.JournalEntry, error) {
	return uc.entryRepo.GetInScope(ctx, s, id)
}

// CheckAvailable fails with ErrInsufficientFunds when entry would take an account below
// zero on its normal side. Accounts that allow a negative balance, and currencies the
// entry only increases, are not checked. The accounts must already be locked in s.
func (uc *LedgerUseCase) CheckAvailable(ctx context.Context, s Scope, entry *domain.JournalEntry) error {
	deltas := make(map[string]domain.LineTotals)
	for _, l := range entry.Lines {
		t, ok := deltas[l.AccountID]
		if !ok {
			t = make(domain.LineTotals)
			deltas[l.AccountID] = t
		}
		t.Apply(l.Direction, l.Amount)
	}

	for _, id := range entry.AccountIDs() {
		account, err := uc.accountRepo.GetInScope(ctx, s, id)
		if err != nil {
			return err
		}
		if account.AllowNegativeBalance {
			continue
		}

		change := deltas[id].ToBalance(account, time.Time{})
		decreasing := false
		for _, m := range change.Amounts {
			if m.IsNegative() {
				decreasing = true
			}
		}
		if !decreasing {
			continue
		}

		current, err := uc.entryRepo.SumByAccountInScope(ctx, s, id)
		if err != nil {
			return err
		}
		after := make(domain.LineTotals, len(current)+len(deltas[id]))
		for cur, v := range current {
			after[cur] = v
		}
		for cur, v := range deltas[id] {
			after[cur] = after[cur].Add(v)
		}

		for cur, m := range after.ToBalance(account, time.Time{}).Amounts {
			if m.IsNegative() && change.In(cur).IsNegative() {
				return fmt.Errorf("%w: account %s would be %s", domain.ErrInsufficientFunds, id, m.Quantize())
			}
		}
	}

	return nil
}
