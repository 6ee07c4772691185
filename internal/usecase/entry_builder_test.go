package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

func TestBuildLines(t *testing.T) {
	tests := []struct {
		name    string
		req     usecase.SubmitRequest
		want    []domain.Line
		wantErr error
	}{
		{
			name: "transfer debits source",
			req: usecase.SubmitRequest{
				Type:     domain.TransactionTypeTransfer,
				Transfer: &usecase.TransferPayload{FromAccountID: "a", ToAccountID: "b", Amount: usd("5.00")},
			},
			want: []domain.Line{
				{AccountID: "a", Direction: domain.Debit, Amount: usd("5.00")},
				{AccountID: "b", Direction: domain.Credit, Amount: usd("5.00")},
			},
		},
		{
			name: "disbursement",
			req: usecase.SubmitRequest{
				Type: domain.TransactionTypeLoanDisbursement,
				LoanDisbursement: &usecase.LoanDisbursementPayload{
					LoanID: "l", ReceivableAccountID: "recv", FundingAccountID: "cash", Amount: usd("100.00"),
				},
			},
			want: []domain.Line{
				{AccountID: "recv", Direction: domain.Debit, Amount: usd("100.00")},
				{AccountID: "cash", Direction: domain.Credit, Amount: usd("100.00")},
			},
		},
		{
			name: "repayment with interest",
			req: usecase.SubmitRequest{
				Type: domain.TransactionTypeLoanRepayment,
				LoanRepayment: &usecase.LoanRepaymentPayload{
					LoanID: "l", SourceAccountID: "dep", LoanAccountID: "recv", InterestAccountID: "inc",
					Principal: usd("80.00"), Interest: usd("12.50"),
				},
			},
			want: []domain.Line{
				{AccountID: "dep", Direction: domain.Debit, Amount: usd("92.50")},
				{AccountID: "recv", Direction: domain.Credit, Amount: usd("80.00")},
				{AccountID: "inc", Direction: domain.Credit, Amount: usd("12.50")},
			},
		},
		{
			name: "interest-only repayment",
			req: usecase.SubmitRequest{
				Type: domain.TransactionTypeLoanRepayment,
				LoanRepayment: &usecase.LoanRepaymentPayload{
					LoanID: "l", SourceAccountID: "dep", LoanAccountID: "recv", InterestAccountID: "inc",
					Principal: usd("0"), Interest: usd("3.00"),
				},
			},
			want: []domain.Line{
				{AccountID: "dep", Direction: domain.Debit, Amount: usd("3.00")},
				{AccountID: "inc", Direction: domain.Credit, Amount: usd("3.00")},
			},
		},
		{
			name: "repayment interest without account",
			req: usecase.SubmitRequest{
				Type: domain.TransactionTypeLoanRepayment,
				LoanRepayment: &usecase.LoanRepaymentPayload{
					LoanID: "l", SourceAccountID: "dep", LoanAccountID: "recv",
					Principal: usd("1.00"), Interest: usd("1.00"),
				},
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "repayment currencies differ",
			req: usecase.SubmitRequest{
				Type: domain.TransactionTypeLoanRepayment,
				LoanRepayment: &usecase.LoanRepaymentPayload{
					LoanID: "l", SourceAccountID: "dep", LoanAccountID: "recv", InterestAccountID: "inc",
					Principal: usd("1.00"), Interest: domain.MustParseMoney("1.00", "EUR"),
				},
			},
			wantErr: domain.ErrCurrencyMismatch,
		},
		{
			name:    "unknown type",
			req:     usecase.SubmitRequest{Type: "swap"},
			wantErr: domain.ErrInvalidTransactionType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := usecase.BuildLines(tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, lines, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].AccountID, lines[i].AccountID)
				assert.Equal(t, tt.want[i].Direction, lines[i].Direction)
				assert.True(t, tt.want[i].Amount.Equal(lines[i].Amount), "line %d amount %s", i, lines[i].Amount)
			}
		})
	}
}

func TestBuildLines_MissingPayload(t *testing.T) {
	for _, typ := range []domain.TransactionType{
		domain.TransactionTypeTransfer,
		domain.TransactionTypeLoanDisbursement,
		domain.TransactionTypeLoanRepayment,
		domain.TransactionTypeJournal,
		domain.TransactionTypeInterestAccrual,
	} {
		_, err := usecase.BuildLines(usecase.SubmitRequest{Type: typ})
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), string(typ))
	}
}

func TestBuildLines_CopiesJournalLines(t *testing.T) {
	in := []domain.Line{
		{AccountID: "a", Direction: domain.Debit, Amount: usd("1.00")},
		{AccountID: "b", Direction: domain.Credit, Amount: usd("1.00")},
	}
	lines, err := usecase.BuildLines(usecase.SubmitRequest{Type: domain.TransactionTypeJournal, Lines: in})
	require.NoError(t, err)

	lines[0].AccountID = "changed"
	assert.Equal(t, "a", in[0].AccountID)
}
