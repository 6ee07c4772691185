package domain

import (
	"errors"
	"testing"
)

func TestLoan_Lifecycle(t *testing.T) {
	loan := &Loan{ID: "L1", State: LoanStateApplied}

	path := []LoanState{LoanStateApproved, LoanStateDisbursed, LoanStateActive, LoanStateDelinquent, LoanStateActive, LoanStatePaidOff}
	for _, next := range path {
		if err := loan.TransitionTo(next, testNow); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	if !loan.State.IsTerminal() {
		t.Fatal("paid off must be terminal")
	}
}

func TestLoan_IllegalTransitions(t *testing.T) {
	tests := []struct {
		from, to LoanState
	}{
		{LoanStateApplied, LoanStateActive},
		{LoanStateActive, LoanStateWrittenOff},
		{LoanStateActive, LoanStateApplied},
		{LoanStatePaidOff, LoanStateActive},
		{LoanStateDisbursed, LoanStateCancelled},
		{LoanStateWrittenOff, LoanStateActive},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			loan := &Loan{ID: "L", State: tt.from}
			if err := loan.TransitionTo(tt.to, testNow); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			if loan.State != tt.from {
				t.Fatal("state mutated on illegal transition")
			}
		})
	}
}

func TestLoanState_AccruesInterest(t *testing.T) {
	accruing := map[LoanState]bool{
		LoanStateApplied:    false,
		LoanStateApproved:   false,
		LoanStateDisbursed:  false,
		LoanStateActive:     true,
		LoanStateDelinquent: true,
		LoanStatePaidOff:    false,
		LoanStateWrittenOff: false,
		LoanStateCancelled:  false,
	}
	for state, want := range accruing {
		if got := state.AccruesInterest(); got != want {
			t.Errorf("%s.AccruesInterest() = %v, want %v", state, got, want)
		}
	}
}
