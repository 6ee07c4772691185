package lending

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearFraction(t *testing.T) {
	tests := []struct {
		basis      DayCountBasis
		start, end time.Time
		want       string
	}{
		{Actual360, date(2024, 1, 1), date(2024, 7, 1), "0.5055555555555555555555555555555556"},
		{Actual365Fixed, date(2023, 1, 1), date(2024, 1, 1), "1"},
		{Thirty360, date(2024, 1, 31), date(2024, 3, 31), "0.1666666666666666666666666666666667"},
		{Thirty360, date(2024, 1, 15), date(2025, 1, 15), "1"},
		{ActualActual, date(2024, 1, 1), date(2025, 1, 1), "1"},
		{ActualActual, date(2023, 7, 1), date(2024, 7, 1), "1.0013773486039374204656037128527584"},
	}

	for _, tt := range tests {
		t.Run(string(tt.basis)+tt.start.Format(time.DateOnly), func(t *testing.T) {
			got, err := tt.basis.YearFraction(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestYearFraction_Errors(t *testing.T) {
	_, err := Actual360.YearFraction(date(2024, 2, 1), date(2024, 1, 1))
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = DayCountBasis("BUS/252").YearFraction(date(2024, 1, 1), date(2024, 2, 1))
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestAccrueDaily(t *testing.T) {
	balance := domain.MustParseMoney("36000.00", "USD")
	rate := decimal.RequireFromString("0.10")

	got, err := AccrueDaily(balance, rate, Actual360, date(2024, 3, 5))
	require.NoError(t, err)
	assert.Equal(t, "10", got.Amount().String())

	got, err = AccrueDaily(balance, rate, ActualActual, date(2024, 3, 5))
	require.NoError(t, err)
	assert.False(t, got.IsQuantized(), "daily accrual must not be rounded")

	// 30/360 accrues three days on the last day of a non-leap February.
	got, err = AccrueDaily(balance, rate, Thirty360, date(2023, 2, 28))
	require.NoError(t, err)
	assert.Equal(t, "30", got.Amount().String())

	// ...and nothing on the 30th of a 31-day month.
	got, err = AccrueDaily(balance, rate, Thirty360, date(2024, 1, 30))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestThirty360_MonthSumsToThirty(t *testing.T) {
	total := int64(0)
	for d := date(2024, 1, 1); d.Before(date(2024, 2, 1)); d = d.AddDate(0, 0, 1) {
		days, _, err := Thirty360.dayParts(d)
		require.NoError(t, err)
		total += days
	}
	assert.Equal(t, int64(30), total)
}
