package usecase

import (
	"fmt"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

// SubmitRequest is one business transaction submitted to the processor. Exactly one
// payload matching Type must be set.
type SubmitRequest struct {
	IdempotencyKey   string                   `validate:"required,max=255"`
	Type             domain.TransactionType   `validate:"required"`
	Actor            string                   `validate:"max=255"`
	Description      string                   `validate:"max=1024"`
	Transfer         *TransferPayload         `validate:"omitempty"`
	LoanDisbursement *LoanDisbursementPayload `validate:"omitempty"`
	LoanRepayment    *LoanRepaymentPayload    `validate:"omitempty"`
	Lines            []domain.Line
	Metadata         map[string]any
}

// TransferPayload moves Amount between two customer accounts. From is debited and To
// credited, so for liability accounts the From balance goes down.
type TransferPayload struct {
	FromAccountID string       `validate:"required"`
	ToAccountID   string       `validate:"required,nefield=FromAccountID"`
	Amount        domain.Money `validate:"-"`
}

// LoanDisbursementPayload funds a loan out of a funding account.
type LoanDisbursementPayload struct {
	LoanID              string       `validate:"required"`
	ReceivableAccountID string       `validate:"required"`
	FundingAccountID    string       `validate:"required,nefield=ReceivableAccountID"`
	Amount              domain.Money `validate:"-"`
}

// LoanRepaymentPayload splits a payment into principal and interest.
type LoanRepaymentPayload struct {
	LoanID            string       `validate:"required"`
	SourceAccountID   string       `validate:"required"`
	LoanAccountID     string       `validate:"required"`
	InterestAccountID string       `validate:"omitempty"`
	Principal         domain.Money `validate:"-"`
	Interest          domain.Money `validate:"-"`
}

// BuildLines maps a request to journal lines. Amount and balance rules are checked later
// by the ledger.
func BuildLines(req SubmitRequest) ([]domain.Line, error) {
	switch req.Type {
	case domain.TransactionTypeTransfer:
		p := req.Transfer
		if p == nil {
			return nil, missingPayload(req.Type)
		}
		return []domain.Line{
			{AccountID: p.FromAccountID, Direction: domain.Debit, Amount: p.Amount},
			{AccountID: p.ToAccountID, Direction: domain.Credit, Amount: p.Amount},
		}, nil

	case domain.TransactionTypeLoanDisbursement:
		p := req.LoanDisbursement
		if p == nil {
			return nil, missingPayload(req.Type)
		}
		return []domain.Line{
			{AccountID: p.ReceivableAccountID, Direction: domain.Debit, Amount: p.Amount},
			{AccountID: p.FundingAccountID, Direction: domain.Credit, Amount: p.Amount},
		}, nil

	case domain.TransactionTypeLoanRepayment:
		p := req.LoanRepayment
		if p == nil {
			return nil, missingPayload(req.Type)
		}
		return repaymentLines(p)

	case domain.TransactionTypeJournal, domain.TransactionTypeInterestAccrual:
		if len(req.Lines) == 0 {
			return nil, missingPayload(req.Type)
		}
		return append([]domain.Line(nil), req.Lines...), nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTransactionType, req.Type)
	}
}

func repaymentLines(p *LoanRepaymentPayload) ([]domain.Line, error) {
	total, err := p.Principal.Add(p.Interest)
	if err != nil {
		return nil, err
	}
	if p.Interest.IsPositive() && p.InterestAccountID == "" {
		return nil, fmt.Errorf("%w: repayment of loan %s has interest but no interest account", domain.ErrAccountNotFound, p.LoanID)
	}

	lines := []domain.Line{{AccountID: p.SourceAccountID, Direction: domain.Debit, Amount: total}}
	if !p.Principal.IsZero() {
		lines = append(lines, domain.Line{AccountID: p.LoanAccountID, Direction: domain.Credit, Amount: p.Principal})
	}
	if !p.Interest.IsZero() {
		lines = append(lines, domain.Line{AccountID: p.InterestAccountID, Direction: domain.Credit, Amount: p.Interest})
	}
	return lines, nil
}

func missingPayload(t domain.TransactionType) error {
	return domain.NewError(domain.KindValidation, "build_lines", fmt.Errorf("%s request has no payload", t))
}
