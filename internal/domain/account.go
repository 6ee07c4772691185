package domain

import (
	"fmt"
	"time"
)

// AccountType is the accounting classification of an account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// ParseAccountType accepts one of the five account types.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, s)
	}
	return t, nil
}

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalSide is the direction that increases the account's balance.
func (t AccountType) NormalSide() Direction {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return Debit
	case AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue:
		return Credit
	}
	panic(fmt.Sprintf("domain: unknown account type %q", string(t)))
}

// AccountState is the lifecycle state of an account.
type AccountState string

const (
	AccountStateActive AccountState = "active"
	AccountStateFrozen AccountState = "frozen"
	AccountStateClosed AccountState = "closed"
)

var accountTransitions = map[AccountState][]AccountState{
	AccountStateActive: {AccountStateFrozen, AccountStateClosed},
	AccountStateFrozen: {AccountStateActive, AccountStateClosed},
}

// CanTransitionTo reports whether s may move to next.
func (s AccountState) CanTransitionTo(next AccountState) bool {
	for _, allowed := range accountTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Account is a ledger account. It has no balance field: balances are folded from posted lines.
type Account struct {
	ID                   string
	Code                 string
	Name                 string
	Type                 AccountType
	Currency             Currency
	State                AccountState
	AllowNegativeBalance bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NormalSide returns the direction that increases this account.
func (a *Account) NormalSide() Direction {
	return a.Type.NormalSide()
}

// Validate checks the static fields of a new account.
func (a *Account) Validate() error {
	if err := ValidateAccountCode(a.Code); err != nil {
		return err
	}
	if err := ValidateAccountName(a.Name); err != nil {
		return err
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccountType, a.Type)
	}
	if !a.Currency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, a.Currency)
	}
	return nil
}

// CanPost reports whether new lines may reference the account.
func (a *Account) CanPost() error {
	if a.State != AccountStateActive {
		return fmt.Errorf("%w: %s is %s", ErrAccountNotActive, a.ID, a.State)
	}
	return nil
}

// TransitionTo moves the account to next. Only State and UpdatedAt change.
func (a *Account) TransitionTo(next AccountState, at time.Time) error {
	if !a.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: account %s from %s to %s", ErrInvalidTransition, a.ID, a.State, next)
	}
	a.State = next
	a.UpdatedAt = at
	return nil
}

// SignedDelta converts a line amount into a change of this account's balance.
func (a *Account) SignedDelta(dir Direction, amount Money) Money {
	if dir == a.NormalSide() {
		return amount
	}
	return amount.Neg()
}
