package lending

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

// calcPrecision bounds intermediate division results. Outputs are quantized separately.
const calcPrecision = 34

// DayCountBasis is a convention for the elapsed-year fraction between two dates.
type DayCountBasis string

const (
	Actual360      DayCountBasis = "ACT/360"
	Actual365Fixed DayCountBasis = "ACT/365F"
	Thirty360      DayCountBasis = "30/360"
	ActualActual   DayCountBasis = "ACT/ACT"
)

// ParseDayCountBasis accepts the canonical names.
func ParseDayCountBasis(s string) (DayCountBasis, error) {
	b := DayCountBasis(s)
	if !b.IsValid() {
		return "", fmt.Errorf("%w: unknown day count basis %q", ErrInvalidSchedule, s)
	}
	return b, nil
}

func (b DayCountBasis) IsValid() bool {
	switch b {
	case Actual360, Actual365Fixed, Thirty360, ActualActual:
		return true
	}
	return false
}

// YearFraction returns the fraction of a year between start and end under b.
func (b DayCountBasis) YearFraction(start, end time.Time) (decimal.Decimal, error) {
	start, end = dateOf(start), dateOf(end)
	if end.Before(start) {
		return decimal.Zero, fmt.Errorf("%w: end %s before start %s", ErrInvalidSchedule, end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	switch b {
	case Actual360:
		return decimal.NewFromInt(actualDays(start, end)).DivRound(decimal.NewFromInt(360), calcPrecision), nil
	case Actual365Fixed:
		return decimal.NewFromInt(actualDays(start, end)).DivRound(decimal.NewFromInt(365), calcPrecision), nil
	case Thirty360:
		return decimal.NewFromInt(thirty360Days(start, end)).DivRound(decimal.NewFromInt(360), calcPrecision), nil
	case ActualActual:
		total := decimal.Zero
		for cur := start; cur.Before(end); {
			next := time.Date(cur.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)
			if next.After(end) {
				next = end
			}
			days := decimal.NewFromInt(actualDays(cur, next))
			total = total.Add(days.DivRound(decimal.NewFromInt(daysInYear(cur.Year())), calcPrecision))
			cur = next
		}
		return total, nil
	}
	return decimal.Zero, fmt.Errorf("%w: unknown day count basis %q", ErrInvalidSchedule, b)
}

// dayParts returns the day count and year length used for accruing over a single day.
func (b DayCountBasis) dayParts(day time.Time) (days, yearDays int64, err error) {
	day = dateOf(day)
	switch b {
	case Actual360:
		return 1, 360, nil
	case Actual365Fixed:
		return 1, 365, nil
	case Thirty360:
		return thirty360Days(day, day.AddDate(0, 0, 1)), 360, nil
	case ActualActual:
		return 1, daysInYear(day.Year()), nil
	}
	return 0, 0, fmt.Errorf("%w: unknown day count basis %q", ErrInvalidSchedule, b)
}

// AccrueDaily computes one day's interest on balance. The result is not quantized.
func AccrueDaily(balance domain.Money, annualRate decimal.Decimal, basis DayCountBasis, day time.Time) (domain.Money, error) {
	if annualRate.IsNegative() {
		return domain.Money{}, fmt.Errorf("%w: negative rate %s", ErrInvalidSchedule, annualRate)
	}
	days, yearDays, err := basis.dayParts(day)
	if err != nil {
		return domain.Money{}, err
	}
	numerator := balance.Amount().Mul(annualRate).Mul(decimal.NewFromInt(days))
	interest := numerator.DivRound(decimal.NewFromInt(yearDays), calcPrecision)
	return domain.NewMoney(interest, balance.Currency()), nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func actualDays(start, end time.Time) int64 {
	return int64(end.Sub(start).Hours() / 24)
}

// thirty360Days implements the US 30/360 day count without the February end-of-month rule.
func thirty360Days(start, end time.Time) int64 {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Date()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 == 30 {
		d2 = 30
	}
	return int64(360*(y2-y1) + 30*(int(m2)-int(m1)) + (d2 - d1))
}

func daysInYear(year int) int64 {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}
