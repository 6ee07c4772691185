package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LoanState is the servicing state of a loan.
type LoanState string

const (
	LoanStateApplied    LoanState = "applied"
	LoanStateApproved   LoanState = "approved"
	LoanStateDisbursed  LoanState = "disbursed"
	LoanStateActive     LoanState = "active"
	LoanStateDelinquent LoanState = "delinquent"
	LoanStatePaidOff    LoanState = "paid_off"
	LoanStateWrittenOff LoanState = "written_off"
	LoanStateCancelled  LoanState = "cancelled"
)

// Legal loan transitions. A loan only earns interest once funds left the bank, and only a
// delinquent loan can be written off.
var loanTransitions = map[LoanState][]LoanState{
	LoanStateApplied:    {LoanStateApproved, LoanStateCancelled},
	LoanStateApproved:   {LoanStateDisbursed, LoanStateCancelled},
	LoanStateDisbursed:  {LoanStateActive},
	LoanStateActive:     {LoanStateDelinquent, LoanStatePaidOff},
	LoanStateDelinquent: {LoanStateActive, LoanStatePaidOff, LoanStateWrittenOff},
}

// CanTransitionTo reports whether s may move to next.
func (s LoanState) CanTransitionTo(next LoanState) bool {
	for _, allowed := range loanTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AccruesInterest reports whether daily accrual runs in this state.
func (s LoanState) AccruesInterest() bool {
	return s == LoanStateActive || s == LoanStateDelinquent
}

func (s LoanState) IsTerminal() bool {
	return len(loanTransitions[s]) == 0
}

// Loan is the servicing record the interest engine accrues against.
type Loan struct {
	ID                string
	Principal         Money
	AnnualRate        decimal.Decimal
	StatementCycleDay int
	State             LoanState
	UpdatedAt         time.Time
}

// TransitionTo is the only way a loan changes state.
func (l *Loan) TransitionTo(next LoanState, at time.Time) error {
	if !l.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: loan %s from %s to %s", ErrInvalidTransition, l.ID, l.State, next)
	}
	l.State = next
	l.UpdatedAt = at
	return nil
}
