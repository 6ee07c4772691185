package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a journal line.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

func (d Direction) IsValid() bool { return d == Debit || d == Credit }

// Opposite flips debit and credit.
func (d Direction) Opposite() Direction {
	if d == Debit {
		return Credit
	}
	return Debit
}

// EntryState is the lifecycle state of a journal entry.
type EntryState string

const (
	EntryStatePending  EntryState = "pending"
	EntryStatePosted   EntryState = "posted"
	EntryStateReversed EntryState = "reversed"
)

// Line is one debit or credit of a journal entry.
type Line struct {
	AccountID string    `json:"account_id"`
	Direction Direction `json:"direction"`
	Amount    Money     `json:"amount"`
}

// JournalEntry is an atomic, balanced set of lines. Lines never change once posted.
type JournalEntry struct {
	ID            string
	TransactionID string
	Description   string
	Lines         []Line
	State         EntryState
	ReversalOf    string
	ReversedBy    string
	CreatedAt     time.Time
	PostedAt      time.Time
}

// Validate checks line shape and per-currency balance.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewLines, len(e.Lines))
	}

	debits := make(map[Currency]decimal.Decimal)
	credits := make(map[Currency]decimal.Decimal)

	for i, l := range e.Lines {
		if l.AccountID == "" {
			return fmt.Errorf("%w: line %d has no account", ErrAccountNotFound, i)
		}
		if err := l.Amount.ValidatePostable(); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
		cur := l.Amount.Currency()
		switch l.Direction {
		case Debit:
			debits[cur] = debits[cur].Add(l.Amount.Amount())
		case Credit:
			credits[cur] = credits[cur].Add(l.Amount.Amount())
		default:
			return fmt.Errorf("%w: line %d has %q", ErrInvalidDirection, i, l.Direction)
		}
	}

	for _, cur := range unionCurrencies(debits, credits) {
		if !debits[cur].Equal(credits[cur]) {
			return fmt.Errorf("%w: %s debits=%s credits=%s", ErrUnbalancedEntry, cur, debits[cur], credits[cur])
		}
	}

	return nil
}

// AccountIDs returns the distinct accounts touched by the entry, sorted.
func (e *JournalEntry) AccountIDs() []string {
	return DistinctAccountIDs(e.Lines)
}

// Reversal builds the pending entry that undoes e.
func (e *JournalEntry) Reversal(id, description string, at time.Time) (*JournalEntry, error) {
	switch e.State {
	case EntryStatePosted:
	case EntryStateReversed:
		return nil, fmt.Errorf("%w: %s", ErrEntryAlreadyReversed, e.ID)
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrEntryNotPosted, e.ID, e.State)
	}
	if e.ReversedBy != "" {
		return nil, fmt.Errorf("%w: %s", ErrEntryAlreadyReversed, e.ID)
	}

	lines := make([]Line, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = Line{AccountID: l.AccountID, Direction: l.Direction.Opposite(), Amount: l.Amount}
	}

	return &JournalEntry{
		ID:            id,
		TransactionID: e.TransactionID,
		Description:   description,
		Lines:         lines,
		State:         EntryStatePending,
		ReversalOf:    e.ID,
		CreatedAt:     at,
	}, nil
}

// Clone returns a deep copy so stored entries cannot be mutated through callers.
func (e *JournalEntry) Clone() *JournalEntry {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Lines = append([]Line(nil), e.Lines...)
	return &cp
}

// DistinctAccountIDs returns the sorted set of accounts referenced by lines.
func DistinctAccountIDs(lines []Line) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	sort.Strings(ids)
	return ids
}

func unionCurrencies(a, b map[Currency]decimal.Decimal) []Currency {
	set := make(map[Currency]struct{}, len(a)+len(b))
	for c := range a {
		set[c] = struct{}{}
	}
	for c := range b {
		set[c] = struct{}{}
	}
	out := make([]Currency, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Balance is an account balance per currency, signed by the account's normal side.
type Balance struct {
	AccountID string
	AsOf      time.Time
	Amounts   map[Currency]Money
}

// In returns the balance in currency, zero if the account never moved in it.
func (b Balance) In(currency Currency) Money {
	if m, ok := b.Amounts[currency]; ok {
		return m
	}
	return Zero(currency)
}

// LineTotals sums raw debit-minus-credit per currency for an account.
type LineTotals map[Currency]decimal.Decimal

// Apply folds a line into the totals.
func (t LineTotals) Apply(dir Direction, amount Money) {
	cur := amount.Currency()
	if dir == Debit {
		t[cur] = t[cur].Add(amount.Amount())
		return
	}
	t[cur] = t[cur].Sub(amount.Amount())
}

// ToBalance signs the totals by the account's normal side.
func (t LineTotals) ToBalance(acc *Account, asOf time.Time) Balance {
	out := Balance{AccountID: acc.ID, AsOf: asOf, Amounts: make(map[Currency]Money, len(t))}
	for cur, net := range t {
		if acc.NormalSide() == Credit {
			net = net.Neg()
		}
		out.Amounts[cur] = NewMoney(net, cur)
	}
	return out
}
