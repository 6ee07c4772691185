package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

const (
	statementPageSize = 200
	// MaxStatementLines bounds a single statement; callers narrow the window beyond it.
	MaxStatementLines = 5000
)

// EntryUseCase answers read-only questions about posted journal entries.
type EntryUseCase struct {
	accountRepo AccountRepository
	entryRepo   EntryRepository
	ledger      *LedgerUseCase
	clock       Clock
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(accountRepo AccountRepository, entryRepo EntryRepository, ledger *LedgerUseCase, clock Clock) *EntryUseCase {
	return &EntryUseCase{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		ledger:      ledger,
		clock:       clock,
	}
}

// AccountEntriesQuery pages through the entries touching one account.
type AccountEntriesQuery struct {
	AccountID string
	Limit     int
	Offset    int
}

// ListByAccount lists committed entries touching an account, newest first. Unknown
// accounts are reported rather than listed as empty.
func (uc *EntryUseCase) ListByAccount(ctx context.Context, q AccountEntriesQuery) ([]*domain.JournalEntry, error) {
	if _, err := uc.accountRepo.GetByID(ctx, q.AccountID); err != nil {
		return nil, err
	}
	return uc.entryRepo.ListByAccount(ctx, q.AccountID, domain.ClampLimit(q.Limit), max(q.Offset, 0))
}

// ListByTransaction lists entries posted by a business transaction, reversals included.
func (uc *EntryUseCase) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.JournalEntry, error) {
	return uc.entryRepo.ListByTransaction(ctx, transactionID)
}

// StatementQuery selects a posting window. A zero From starts at the first posting, a zero
// To ends now and an empty Currency means the account's own currency.
type StatementQuery struct {
	AccountID string
	Currency  domain.Currency
	From      time.Time
	To        time.Time
}

// StatementLine is one posting against the account and the balance right after it.
type StatementLine struct {
	EntryID       string
	TransactionID string
	Description   string
	PostedAt      time.Time
	Direction     domain.Direction
	Amount        domain.Money
	Balance       domain.Money
}

// Statement lists an account's postings in a window, oldest first, between its opening and
// closing balances. Balances are signed toward the account's normal side.
type Statement struct {
	AccountID string
	Currency  domain.Currency
	From      time.Time
	To        time.Time
	Opening   domain.Money
	Closing   domain.Money
	Lines     []StatementLine
}

// Statement builds the statement for q. The closing balance always equals the opening
// balance plus every listed line.
func (uc *EntryUseCase) Statement(ctx context.Context, q StatementQuery) (*Statement, error) {
	if q.To.IsZero() {
		q.To = uc.clock.Now()
	}
	if !q.From.IsZero() && q.From.After(q.To) {
		return nil, domain.NewError(domain.KindValidation, "statement", errors.New("from must not be after to"))
	}

	account, err := uc.accountRepo.GetByID(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}
	if q.Currency == "" {
		q.Currency = account.Currency
	} else if !q.Currency.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCurrency, q.Currency)
	}

	opening := domain.Zero(q.Currency)
	if !q.From.IsZero() {
		bal, err := uc.ledger.BalanceOf(ctx, account.ID, q.From.Add(-time.Nanosecond))
		if err != nil {
			return nil, err
		}
		opening = bal.In(q.Currency)
	}

	entries, err := uc.entriesBetween(ctx, account.ID, q.From, q.To)
	if err != nil {
		return nil, err
	}

	st := &Statement{
		AccountID: account.ID,
		Currency:  q.Currency,
		From:      q.From,
		To:        q.To,
		Opening:   opening,
		Lines:     make([]StatementLine, 0, len(entries)),
	}
	running := opening
	for _, e := range entries {
		for _, l := range e.Lines {
			if l.AccountID != account.ID || l.Amount.Currency() != q.Currency {
				continue
			}
			if running, err = running.Add(account.SignedDelta(l.Direction, l.Amount)); err != nil {
				return nil, err
			}
			st.Lines = append(st.Lines, StatementLine{
				EntryID:       e.ID,
				TransactionID: e.TransactionID,
				Description:   e.Description,
				PostedAt:      e.PostedAt,
				Direction:     l.Direction,
				Amount:        l.Amount,
				Balance:       running,
			})
		}
	}
	st.Closing = running
	return st, nil
}

// entriesBetween walks the newest-first listing until it passes from, returning the
// window oldest first.
func (uc *EntryUseCase) entriesBetween(ctx context.Context, accountID string, from, to time.Time) ([]*domain.JournalEntry, error) {
	var out []*domain.JournalEntry
	for offset := 0; ; offset += statementPageSize {
		page, err := uc.entryRepo.ListByAccount(ctx, accountID, statementPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, e := range page {
			if e.PostedAt.After(to) {
				continue
			}
			if !from.IsZero() && e.PostedAt.Before(from) {
				slices.Reverse(out)
				return out, nil
			}
			if len(out) == MaxStatementLines {
				return nil, domain.NewError(domain.KindValidation, "statement",
					fmt.Errorf("window holds more than %d entries, narrow it", MaxStatementLines))
			}
			out = append(out, e)
		}
		if len(page) < statementPageSize {
			slices.Reverse(out)
			return out, nil
		}
	}
}
