package lending

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

// AccrualConfig fixes the terms a loan accrues under.
type AccrualConfig struct {
	LoanID              string
	AnnualRate          decimal.Decimal
	Basis               DayCountBasis
	Currency            domain.Currency
	CycleDay            int // day of month that opens a new accrual period, 1..28
	StartDate           time.Time
	ReceivableAccountID string
	IncomeAccountID     string
}

// Accrual accumulates daily interest for one loan and proposes a posting once per period.
// It is not safe for concurrent use.
type Accrual struct {
	cfg         AccrualConfig
	accumulated decimal.Decimal
	carried     decimal.Decimal
	periodStart time.Time
	lastAccrued time.Time
	days        int
}

// NewAccrual validates cfg and starts the first period at cfg.StartDate.
func NewAccrual(cfg AccrualConfig) (*Accrual, error) {
	switch {
	case cfg.LoanID == "":
		return nil, fmt.Errorf("%w: loan id is required", ErrInvalidSchedule)
	case !cfg.Basis.IsValid():
		return nil, fmt.Errorf("%w: unknown day count basis %q", ErrInvalidSchedule, cfg.Basis)
	case !cfg.Currency.IsValid():
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCurrency, cfg.Currency)
	case cfg.CycleDay < 1 || cfg.CycleDay > 28:
		return nil, fmt.Errorf("%w: cycle day must be between 1 and 28", ErrInvalidSchedule)
	case cfg.AnnualRate.IsNegative():
		return nil, fmt.Errorf("%w: negative rate", ErrInvalidSchedule)
	case cfg.ReceivableAccountID == "" || cfg.IncomeAccountID == "":
		return nil, fmt.Errorf("%w: receivable and income accounts are required", ErrInvalidSchedule)
	}
	cfg.StartDate = dateOf(cfg.StartDate)
	return &Accrual{cfg: cfg, periodStart: cfg.StartDate}, nil
}

// LoanID returns the loan this accrual belongs to.
func (a *Accrual) LoanID() string { return a.cfg.LoanID }

// LastAccrued returns the last accrued day, zero before the first accrual.
func (a *Accrual) LastAccrued() time.Time { return a.lastAccrued }

// Accrued returns the unposted interest including the carried residual. It is not quantized.
func (a *Accrual) Accrued() domain.Money {
	return domain.NewMoney(a.accumulated.Add(a.carried), a.cfg.Currency)
}

// AccrueDay adds one day of interest on balance. Days must be accrued consecutively.
func (a *Accrual) AccrueDay(state domain.LoanState, day time.Time, balance domain.Money) (domain.Money, error) {
	if !state.AccruesInterest() {
		return domain.Money{}, fmt.Errorf("%w: loan %s is %s", domain.ErrLoanNotAccrue, a.cfg.LoanID, state)
	}
	if balance.Currency() != a.cfg.Currency {
		return domain.Money{}, fmt.Errorf("%w: balance in %s, loan in %s", domain.ErrCurrencyMismatch, balance.Currency(), a.cfg.Currency)
	}

	day = dateOf(day)
	expected := a.cfg.StartDate
	if !a.lastAccrued.IsZero() {
		expected = a.lastAccrued.AddDate(0, 0, 1)
	}
	if !day.Equal(expected) {
		return domain.Money{}, fmt.Errorf("%w: got %s, expected %s", ErrAccrualOutOfOrder, day.Format(time.DateOnly), expected.Format(time.DateOnly))
	}

	interest, err := AccrueDaily(balance, a.cfg.AnnualRate, a.cfg.Basis, day)
	if err != nil {
		return domain.Money{}, err
	}

	a.accumulated = a.accumulated.Add(interest.Amount())
	a.lastAccrued = day
	a.days++
	return interest, nil
}

// AtBoundary reports whether the last accrued day closes the current period.
func (a *Accrual) AtBoundary() bool {
	if a.lastAccrued.IsZero() {
		return false
	}
	return a.lastAccrued.AddDate(0, 0, 1).Day() == a.cfg.CycleDay
}

// PostingProposal is the entry an accrual period produces. It has no side effects until
// MarkPosted is called.
type PostingProposal struct {
	LoanID         string
	IdempotencyKey string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Days           int
	Amount         domain.Money
	Residual       domain.Money
	Lines          []domain.Line
}

// Empty reports whether the period rounded to nothing to post.
func (p *PostingProposal) Empty() bool { return len(p.Lines) == 0 }

// ProposePosting quantizes the accrued interest for the closed period. The rounding
// residual is carried into the next period, never dropped.
func (a *Accrual) ProposePosting() (*PostingProposal, error) {
	if !a.AtBoundary() {
		return nil, fmt.Errorf("%w: loan %s last accrued %s", ErrNotAtBoundary, a.cfg.LoanID, a.lastAccrued.Format(time.DateOnly))
	}

	total := a.Accrued()
	amount := total.Quantize()
	residual := mustSub(total, amount)

	p := &PostingProposal{
		LoanID:         a.cfg.LoanID,
		IdempotencyKey: fmt.Sprintf("accrual:%s:%s", a.cfg.LoanID, a.lastAccrued.Format(time.DateOnly)),
		PeriodStart:    a.periodStart,
		PeriodEnd:      a.lastAccrued,
		Days:           a.days,
		Amount:         amount,
		Residual:       residual,
	}
	if amount.IsPositive() {
		p.Lines = []domain.Line{
			{AccountID: a.cfg.ReceivableAccountID, Direction: domain.Debit, Amount: amount},
			{AccountID: a.cfg.IncomeAccountID, Direction: domain.Credit, Amount: amount},
		}
	} else {
		// Nothing postable; the whole amount rolls forward.
		p.Amount = domain.Zero(a.cfg.Currency)
		p.Residual = total
	}
	return p, nil
}

// MarkPosted closes the period p describes and opens the next one.
func (a *Accrual) MarkPosted(p *PostingProposal) error {
	if p == nil || p.LoanID != a.cfg.LoanID || !p.PeriodEnd.Equal(a.lastAccrued) {
		return fmt.Errorf("%w: proposal does not match the open period", ErrAccrualOutOfOrder)
	}
	a.carried = p.Residual.Amount()
	a.accumulated = decimal.Zero
	a.periodStart = a.lastAccrued.AddDate(0, 0, 1)
	a.days = 0
	return nil
}
