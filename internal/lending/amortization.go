package lending

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

var (
	ErrInvalidSchedule   = errors.New("invalid schedule request")
	ErrAccrualOutOfOrder = errors.New("accrual day out of order")
	ErrNotAtBoundary     = errors.New("accrual period has not reached its posting boundary")
)

// Method is an amortization method.
type Method string

const (
	MethodEqualInstallment Method = "equal_installment"
	MethodEqualPrincipal   Method = "equal_principal"
	MethodBullet           Method = "bullet"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodEqualInstallment, MethodEqualPrincipal, MethodBullet:
		return true
	}
	return false
}

// MaxTerm caps the number of installments.
const MaxTerm = 1200

// ScheduleRequest describes a loan to amortize.
type ScheduleRequest struct {
	LoanID         string
	Principal      domain.Money
	AnnualRate     decimal.Decimal
	Term           int
	PeriodsPerYear int
	StartDate      time.Time
	Method         Method
}

// Installment is one scheduled payment.
type Installment struct {
	Number           int          `json:"number"`
	DueDate          time.Time    `json:"due_date"`
	Payment          domain.Money `json:"payment"`
	Principal        domain.Money `json:"principal"`
	Interest         domain.Money `json:"interest"`
	RemainingBalance domain.Money `json:"remaining_balance"`
}

// Schedule is a full amortization table.
type Schedule struct {
	LoanID         string        `json:"loan_id"`
	Method         Method        `json:"method"`
	Principal      domain.Money  `json:"principal"`
	Installments   []Installment `json:"installments"`
	TotalInterest  domain.Money  `json:"total_interest"`
	TotalPayment   domain.Money  `json:"total_payment"`
	PeriodicRate   string        `json:"periodic_rate"`
	PeriodsPerYear int           `json:"periods_per_year"`
}

func (r *ScheduleRequest) normalize() error {
	if r.PeriodsPerYear == 0 {
		r.PeriodsPerYear = 12
	}
	switch r.PeriodsPerYear {
	case 1, 2, 4, 12:
	default:
		return fmt.Errorf("%w: periods per year must be 1, 2, 4 or 12", ErrInvalidSchedule)
	}
	if err := r.Principal.ValidatePostable(); err != nil {
		return fmt.Errorf("%w: principal: %v", ErrInvalidSchedule, err)
	}
	if r.AnnualRate.IsNegative() {
		return fmt.Errorf("%w: negative annual rate", ErrInvalidSchedule)
	}
	if r.Term <= 0 || r.Term > MaxTerm {
		return fmt.Errorf("%w: term must be between 1 and %d", ErrInvalidSchedule, MaxTerm)
	}
	if !r.Method.IsValid() {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidSchedule, r.Method)
	}
	return nil
}

// GenerateSchedule builds the installment table for req. Interest and payments are
// quantized per installment; the final installment absorbs any rounding residual so the
// principal components sum exactly to the original principal.
func GenerateSchedule(req ScheduleRequest) (*Schedule, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	rate := req.AnnualRate.DivRound(decimal.NewFromInt(int64(req.PeriodsPerYear)), calcPrecision)
	cur := req.Principal.Currency()

	var level domain.Money
	switch req.Method {
	case MethodEqualInstallment:
		level = levelPayment(req.Principal, rate, req.Term)
	case MethodEqualPrincipal:
		level = req.Principal.Mul(decimal.NewFromInt(1).DivRound(decimal.NewFromInt(int64(req.Term)), calcPrecision)).Quantize()
	case MethodBullet:
		level = domain.Zero(cur)
	}

	sched := &Schedule{
		LoanID:         req.LoanID,
		Method:         req.Method,
		Principal:      req.Principal,
		Installments:   make([]Installment, 0, req.Term),
		PeriodicRate:   rate.String(),
		PeriodsPerYear: req.PeriodsPerYear,
	}

	remaining := req.Principal
	totalInterest := domain.Zero(cur)
	totalPayment := domain.Zero(cur)
	monthsPerPeriod := 12 / req.PeriodsPerYear

	for n := 1; n <= req.Term; n++ {
		interest := remaining.Mul(rate).Quantize()

		var principal domain.Money
		switch {
		case n == req.Term:
			principal = remaining
		case req.Method == MethodEqualInstallment:
			principal = mustSub(level, interest)
		case req.Method == MethodEqualPrincipal:
			principal = level
		case req.Method == MethodBullet:
			principal = domain.Zero(cur)
		}
		if c, _ := principal.Cmp(remaining); c > 0 {
			principal = remaining
		}
		if principal.IsNegative() {
			principal = domain.Zero(cur)
		}

		remaining = mustSub(remaining, principal)
		payment := mustAdd(principal, interest)
		totalInterest = mustAdd(totalInterest, interest)
		totalPayment = mustAdd(totalPayment, payment)

		sched.Installments = append(sched.Installments, Installment{
			Number:           n,
			DueDate:          addMonthsClamped(req.StartDate, n*monthsPerPeriod),
			Payment:          payment,
			Principal:        principal,
			Interest:         interest,
			RemainingBalance: remaining,
		})
	}

	sched.TotalInterest = totalInterest
	sched.TotalPayment = totalPayment
	return sched, nil
}

// levelPayment is P·r/(1−(1+r)^−n), evaluated as P·r·f/(f−1) with f=(1+r)^n.
func levelPayment(principal domain.Money, rate decimal.Decimal, n int) domain.Money {
	if rate.IsZero() {
		return principal.Mul(decimal.NewFromInt(1).DivRound(decimal.NewFromInt(int64(n)), calcPrecision)).Quantize()
	}
	f := powInt(decimal.NewFromInt(1).Add(rate), n)
	factor := rate.Mul(f).DivRound(f.Sub(decimal.NewFromInt(1)), calcPrecision)
	return principal.Mul(factor).Quantize()
}

func powInt(base decimal.Decimal, n int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Truncate(2 * calcPrecision)
		}
		base = base.Mul(base).Truncate(2 * calcPrecision)
		n >>= 1
	}
	return result
}

// addMonthsClamped adds months to t, pinning to the last day of the target month when
// t's day does not exist there.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// Same-currency arithmetic inside the engine cannot mismatch.
func mustAdd(a, b domain.Money) domain.Money {
	out, err := a.Add(b)
	if err != nil {
		panic(err)
	}
	return out
}

func mustSub(a, b domain.Money) domain.Money {
	out, err := a.Sub(b)
	if err != nil {
		panic(err)
	}
	return out
}
