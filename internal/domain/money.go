package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code.
type Currency string

// minorUnits lists the fractional digits of each supported currency.
var minorUnits = map[Currency]int32{
	"USD": 2, "EUR": 2, "GBP": 2, "JPY": 0,
	"CNY": 2, "AUD": 2, "CAD": 2, "CHF": 2,
	"SEK": 2, "NZD": 2, "KRW": 0, "SGD": 2,
	"NOK": 2, "MXN": 2, "INR": 2, "BRL": 2,
	"ZAR": 2, "TRY": 2, "HKD": 2, "KWD": 3,
	"BHD": 3, "CLP": 0,
}

// ParseCurrency normalizes code and checks it against the supported set.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := minorUnits[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return c, nil
}

// IsValid reports whether c is a supported currency.
func (c Currency) IsValid() bool {
	_, ok := minorUnits[c]
	return ok
}

// MinorUnits returns the number of fractional digits for c.
func (c Currency) MinorUnits() int32 {
	return minorUnits[c]
}

func (c Currency) String() string { return string(c) }

// Money is an exact decimal amount tagged with a currency. The zero value is not usable.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney builds a Money from a decimal without rounding.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: amount, currency: currency}
}

// ParseMoney parses a decimal string such as "10.50".
func ParseMoney(amount string, currency string) (Money, error) {
	c, err := ParseCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return Money{amount: d, currency: c}, nil
}

// MustParseMoney is ParseMoney for literals; it panics on bad input.
func MustParseMoney(amount string, currency string) Money {
	m, err := ParseMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }

func (m Money) sameCurrency(o Money) error {
	if m.currency != o.currency {
		return fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, o.currency)
	}
	return nil
}

// Add returns m+o.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(o.amount), currency: m.currency}, nil
}

// Sub returns m-o.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(o.amount), currency: m.currency}, nil
}

// Mul scales m by factor. The result is exact; call Quantize to round it.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

func (m Money) Neg() Money { return Money{amount: m.amount.Neg(), currency: m.currency} }
func (m Money) Abs() Money { return Money{amount: m.amount.Abs(), currency: m.currency} }

// Cmp compares m and o, which must share a currency.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.sameCurrency(o); err != nil {
		return 0, err
	}
	return m.amount.Cmp(o.amount), nil
}

// Equal reports whether both currency and amount match.
func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Quantize rounds half away from zero to the currency's minor units.
func (m Money) Quantize() Money {
	return Money{amount: m.amount.Round(m.currency.MinorUnits()), currency: m.currency}
}

// IsQuantized reports whether m already fits the currency's minor units.
func (m Money) IsQuantized() bool {
	return m.amount.Equal(m.amount.Truncate(m.currency.MinorUnits()))
}

// String renders the amount at the currency's scale, e.g. "10.50 USD".
func (m Money) String() string {
	return m.StringFixed() + " " + string(m.currency)
}

// StringFixed renders only the amount, padded to at least the currency's scale.
func (m Money) StringFixed() string {
	if m.IsQuantized() {
		return m.amount.StringFixed(m.currency.MinorUnits())
	}
	return m.amount.String()
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.StringFixed(), Currency: string(m.currency)})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ValidatePostable checks that m can appear on a journal line.
func (m Money) ValidatePostable() error {
	if !m.currency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, m.currency)
	}
	if !m.amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, m.amount)
	}
	if !m.IsQuantized() {
		return fmt.Errorf("%w: %s has scale above %d", ErrAmountPrecision, m.amount, m.currency.MinorUnits())
	}
	return nil
}
