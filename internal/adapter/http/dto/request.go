package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/lending"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and returns a validation-kinded error listing every
// failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.NewError(domain.KindValidation, "request", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return domain.NewError(domain.KindValidation, "request", errors.New(strings.Join(msgs, "; ")))
}

// MoneyRequest is an amount in a currency, both as strings so no precision is lost.
type MoneyRequest struct {
	Amount   string `json:"amount"   validate:"required,numeric"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// ToMoney parses the amount.
func (m MoneyRequest) ToMoney() (domain.Money, error) {
	return domain.ParseMoney(m.Amount, m.Currency)
}

// optionalMoney parses m, returning zero in currency when m is nil.
func optionalMoney(m *MoneyRequest, currency string) (domain.Money, error) {
	if m == nil {
		c, err := domain.ParseCurrency(currency)
		if err != nil {
			return domain.Money{}, err
		}
		return domain.Zero(c), nil
	}
	return m.ToMoney()
}

// CreateAccountRequest represents a request to open an account.
type CreateAccountRequest struct {
	Code                 string `json:"code"     validate:"required,max=64"`
	Name                 string `json:"name"     validate:"required,max=255"`
	Type                 string `json:"type"     validate:"required,oneof=asset liability equity revenue expense"`
	Currency             string `json:"currency" validate:"required,len=3"`
	AllowNegativeBalance bool   `json:"allow_negative_balance"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput(actor string) usecase.OpenAccountInput {
	return usecase.OpenAccountInput{
		Code:                 r.Code,
		Name:                 r.Name,
		Type:                 domain.AccountType(r.Type),
		Currency:             r.Currency,
		AllowNegativeBalance: r.AllowNegativeBalance,
		Actor:                actor,
	}
}

// TransferRequest moves an amount between two accounts.
type TransferRequest struct {
	FromAccountID string       `json:"from_account_id" validate:"required"`
	ToAccountID   string       `json:"to_account_id"   validate:"required,nefield=FromAccountID"`
	Amount        MoneyRequest `json:"amount"`
}

// LoanDisbursementRequest funds a loan.
type LoanDisbursementRequest struct {
	LoanID              string       `json:"loan_id"               validate:"required"`
	ReceivableAccountID string       `json:"receivable_account_id" validate:"required"`
	FundingAccountID    string       `json:"funding_account_id"    validate:"required"`
	Amount              MoneyRequest `json:"amount"`
}

// LoanRepaymentRequest pays down principal and interest.
type LoanRepaymentRequest struct {
	LoanID            string        `json:"loan_id"           validate:"required"`
	SourceAccountID   string        `json:"source_account_id" validate:"required"`
	LoanAccountID     string        `json:"loan_account_id"   validate:"required"`
	InterestAccountID string        `json:"interest_account_id,omitempty"`
	Principal         MoneyRequest  `json:"principal"`
	Interest          *MoneyRequest `json:"interest,omitempty"`
}

// LineRequest is one journal line of a manual entry.
type LineRequest struct {
	AccountID string       `json:"account_id" validate:"required"`
	Direction string       `json:"direction"  validate:"required,oneof=debit credit"`
	Amount    MoneyRequest `json:"amount"`
}

// SubmitTransactionRequest represents a business transaction submission. The
// idempotency key may also be sent in the Idempotency-Key header.
type SubmitTransactionRequest struct {
	IdempotencyKey   string                   `json:"idempotency_key" validate:"required,max=255"`
	Type             string                   `json:"type"            validate:"required,oneof=transfer journal loan_disbursement loan_repayment interest_accrual"`
	Description      string                   `json:"description"     validate:"max=1024"`
	Transfer         *TransferRequest         `json:"transfer,omitempty"`
	LoanDisbursement *LoanDisbursementRequest `json:"loan_disbursement,omitempty"`
	LoanRepayment    *LoanRepaymentRequest    `json:"loan_repayment,omitempty"`
	Lines            []LineRequest            `json:"lines,omitempty" validate:"omitempty,dive"`
	Metadata         map[string]any           `json:"metadata,omitempty"`
}

// ToSubmitRequest converts to the processor's request, parsing every amount.
func (r *SubmitTransactionRequest) ToSubmitRequest(actor string) (usecase.SubmitRequest, error) {
	req := usecase.SubmitRequest{
		IdempotencyKey: r.IdempotencyKey,
		Type:           domain.TransactionType(r.Type),
		Actor:          actor,
		Description:    r.Description,
		Metadata:       r.Metadata,
	}

	if t := r.Transfer; t != nil {
		amount, err := t.Amount.ToMoney()
		if err != nil {
			return req, err
		}
		req.Transfer = &usecase.TransferPayload{FromAccountID: t.FromAccountID, ToAccountID: t.ToAccountID, Amount: amount}
	}

	if d := r.LoanDisbursement; d != nil {
		amount, err := d.Amount.ToMoney()
		if err != nil {
			return req, err
		}
		req.LoanDisbursement = &usecase.LoanDisbursementPayload{
			LoanID:              d.LoanID,
			ReceivableAccountID: d.ReceivableAccountID,
			FundingAccountID:    d.FundingAccountID,
			Amount:              amount,
		}
	}

	if p := r.LoanRepayment; p != nil {
		principal, err := p.Principal.ToMoney()
		if err != nil {
			return req, err
		}
		interest, err := optionalMoney(p.Interest, p.Principal.Currency)
		if err != nil {
			return req, err
		}
		req.LoanRepayment = &usecase.LoanRepaymentPayload{
			LoanID:            p.LoanID,
			SourceAccountID:   p.SourceAccountID,
			LoanAccountID:     p.LoanAccountID,
			InterestAccountID: p.InterestAccountID,
			Principal:         principal,
			Interest:          interest,
		}
	}

	for _, l := range r.Lines {
		amount, err := l.Amount.ToMoney()
		if err != nil {
			return req, err
		}
		req.Lines = append(req.Lines, domain.Line{AccountID: l.AccountID, Direction: domain.Direction(l.Direction), Amount: amount})
	}

	return req, nil
}

// ActorRequest carries the optional actor of an account action or reversal.
type ActorRequest struct {
	Actor string `json:"actor" validate:"max=255"`
}

// ScheduleRequest asks for an amortization schedule.
type ScheduleRequest struct {
	LoanID         string       `json:"loan_id"          validate:"required"`
	Principal      MoneyRequest `json:"principal"`
	AnnualRate     string       `json:"annual_rate"      validate:"required,numeric"`
	Term           int          `json:"term"             validate:"required,min=1,max=1200"`
	PeriodsPerYear int          `json:"periods_per_year" validate:"omitempty,oneof=1 2 4 12"`
	StartDate      time.Time    `json:"start_date"       validate:"required"`
	Method         string       `json:"method"           validate:"required,oneof=equal_installment equal_principal bullet"`
}

// ToLending converts to a lending.ScheduleRequest.
func (r *ScheduleRequest) ToLending() (lending.ScheduleRequest, error) {
	principal, err := r.Principal.ToMoney()
	if err != nil {
		return lending.ScheduleRequest{}, err
	}
	rate, err := decimal.NewFromString(r.AnnualRate)
	if err != nil {
		return lending.ScheduleRequest{}, domain.NewError(domain.KindValidation, "schedule", fmt.Errorf("annual rate: %w", err))
	}
	return lending.ScheduleRequest{
		LoanID:         r.LoanID,
		Principal:      principal,
		AnnualRate:     rate,
		Term:           r.Term,
		PeriodsPerYear: r.PeriodsPerYear,
		StartDate:      r.StartDate,
		Method:         lending.Method(r.Method),
	}, nil
}

// AccrualRequest runs one interest accrual period for a loan.
type AccrualRequest struct {
	LoanID              string       `json:"loan_id"               validate:"required"`
	Balance             MoneyRequest `json:"balance"`
	AnnualRate          string       `json:"annual_rate"           validate:"required,numeric"`
	Basis               string       `json:"basis"                 validate:"required"`
	CycleDay            int          `json:"cycle_day"             validate:"required,min=1,max=28"`
	PeriodStart         time.Time    `json:"period_start"          validate:"required"`
	ReceivableAccountID string       `json:"receivable_account_id" validate:"required"`
	IncomeAccountID     string       `json:"income_account_id"     validate:"required"`
	Actor               string       `json:"actor"`
}

// ToInput converts to a usecase.AccruePeriodInput recorded under actor.
func (r *AccrualRequest) ToInput(actor string) (usecase.AccruePeriodInput, error) {
	balance, err := r.Balance.ToMoney()
	if err != nil {
		return usecase.AccruePeriodInput{}, err
	}
	rate, err := decimal.NewFromString(r.AnnualRate)
	if err != nil {
		return usecase.AccruePeriodInput{}, domain.NewError(domain.KindValidation, "accrual", fmt.Errorf("annual rate: %w", err))
	}
	basis, err := lending.ParseDayCountBasis(r.Basis)
	if err != nil {
		return usecase.AccruePeriodInput{}, domain.NewError(domain.KindValidation, "accrual", err)
	}
	return usecase.AccruePeriodInput{
		Config: lending.AccrualConfig{
			LoanID:              r.LoanID,
			AnnualRate:          rate,
			Basis:               basis,
			Currency:            balance.Currency(),
			CycleDay:            r.CycleDay,
			StartDate:           r.PeriodStart,
			ReceivableAccountID: r.ReceivableAccountID,
			IncomeAccountID:     r.IncomeAccountID,
		},
		Balance: balance,
		Actor:   actor,
	}, nil
}
