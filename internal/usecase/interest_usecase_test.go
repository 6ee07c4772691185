package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/lending"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

func accrueMonth(t *testing.T, acc *lending.Accrual, year int, month time.Month, balance domain.Money) {
	t.Helper()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		_, err := acc.AccrueDay(domain.LoanStateActive, d, balance)
		require.NoError(t, err)
	}
}

func TestInterestPosting_PostsClosedPeriod(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	receivable := e.open(t, "interest-receivable", domain.AccountTypeAsset)
	income := e.open(t, "interest-income", domain.AccountTypeRevenue)

	acc, err := lending.NewAccrual(lending.AccrualConfig{
		LoanID:              "loan-7",
		AnnualRate:          decimal.RequireFromString("0.05"),
		Basis:               lending.Actual365Fixed,
		Currency:            "USD",
		CycleDay:            1,
		StartDate:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ReceivableAccountID: receivable.ID,
		IncomeAccountID:     income.ID,
	})
	require.NoError(t, err)

	poster := usecase.NewInterestPosting(e.processor, zerolog.Nop())
	accrueMonth(t, acc, 2024, time.January, usd("10000.00"))

	res, err := poster.PostAccrued(ctx, acc, "accrual-job")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, domain.TransactionTypeInterestAccrual, res.Type)
	assert.Equal(t, "42.47", e.balance(t, receivable.ID))
	assert.Equal(t, "42.47", e.balance(t, income.ID))

	// The sub-cent residual rolls into the next period.
	assert.True(t, acc.Accrued().Amount().LessThan(decimal.RequireFromString("0.01")))

	txn, err := e.processor.GetByKey(ctx, "accrual:loan-7:2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, res.ID, txn.ID)
}

func TestInterestPosting_ZeroPeriodCarriesForward(t *testing.T) {
	e := newTestEnv(t)
	acc, err := lending.NewAccrual(lending.AccrualConfig{
		LoanID:              "loan-8",
		AnnualRate:          decimal.RequireFromString("0.0001"),
		Basis:               lending.Actual365Fixed,
		Currency:            "USD",
		CycleDay:            1,
		StartDate:           time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		ReceivableAccountID: "receivable",
		IncomeAccountID:     "income",
	})
	require.NoError(t, err)
	accrueMonth(t, acc, 2024, time.February, usd("10.00"))

	poster := usecase.NewInterestPosting(e.processor, zerolog.Nop())
	res, err := poster.PostAccrued(context.Background(), acc, "")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.True(t, acc.Accrued().IsPositive())

	_, err = e.processor.GetByKey(context.Background(), "accrual:loan-8:2024-02-29")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestInterestPosting_NotAtBoundary(t *testing.T) {
	e := newTestEnv(t)
	acc, err := lending.NewAccrual(lending.AccrualConfig{
		LoanID:              "loan-9",
		AnnualRate:          decimal.RequireFromString("0.05"),
		Basis:               lending.Actual365Fixed,
		Currency:            "USD",
		CycleDay:            1,
		StartDate:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ReceivableAccountID: "receivable",
		IncomeAccountID:     "income",
	})
	require.NoError(t, err)

	poster := usecase.NewInterestPosting(e.processor, zerolog.Nop())
	_, err = poster.PostAccrued(context.Background(), acc, "")
	assert.ErrorIs(t, err, lending.ErrNotAtBoundary)
}

func TestInterestPosting_AccruePeriod(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	receivable := e.open(t, "interest-receivable", domain.AccountTypeAsset)
	income := e.open(t, "interest-income", domain.AccountTypeRevenue)
	poster := usecase.NewInterestPosting(e.processor, zerolog.Nop())

	in := usecase.AccruePeriodInput{
		Config: lending.AccrualConfig{
			LoanID:              "loan-7",
			AnnualRate:          decimal.RequireFromString("0.05"),
			Basis:               lending.Actual365Fixed,
			Currency:            "USD",
			CycleDay:            1,
			StartDate:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			ReceivableAccountID: receivable.ID,
			IncomeAccountID:     income.ID,
		},
		Balance: usd("10000.00"),
		Actor:   "accrual-job",
	}

	out, err := poster.AccruePeriod(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 31, out.Days)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), out.PeriodEnd)
	assert.Equal(t, "42.47", out.Amount.StringFixed())
	require.NotNil(t, out.Result)
	assert.Equal(t, domain.StatusCompleted, out.Result.Status)
	assert.False(t, out.Result.Replayed)
	assert.Equal(t, float64(31), out.Result.Metadata["days"])
	assert.Equal(t, "42.47", e.balance(t, income.ID))

	again, err := poster.AccruePeriod(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, again.Result)
	assert.True(t, again.Result.Replayed)
	assert.Equal(t, out.Result.ID, again.Result.ID)
	assert.Equal(t, out.Result.Metadata, again.Result.Metadata)
	assert.Equal(t, "42.47", e.balance(t, income.ID))

	// A mid-month start closes a short period at the next cycle day.
	in.Config.LoanID = "loan-short"
	in.Config.StartDate = time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	short, err := poster.AccruePeriod(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 10, short.Days)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), short.PeriodEnd)

	in.Config.CycleDay = 0
	_, err = poster.AccruePeriod(ctx, in)
	assert.ErrorIs(t, err, lending.ErrInvalidSchedule)
}
