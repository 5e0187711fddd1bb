package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact amount in minor units (cents) tagged with a currency code.
// All arithmetic stays in integers or fixed-scale decimals; binary floats are
// never involved, so sums do not drift.
type Money struct {
	Amount   int64
	Currency string
}

var ErrOverflow = errors.New("money: amount overflows 64-bit minor units")

// minor-unit bounds for conversions; Shift silently truncates past these.
var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// symbols for the currencies the business actually bills in; anything else
// falls back to the ISO code.
var symbols = map[string]string{
	"AUD": "$",
	"USD": "$",
	"NZD": "$",
	"EUR": "€",
	"GBP": "£",
}

func FromMinor(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// FromDecimal converts a decimal amount in major units (e.g. "150.005") to
// Money, rounding half-up to 2 decimal places. Amounts outside the int64
// minor-unit range return ErrOverflow; IntPart alone would wrap silently.
func FromDecimal(d decimal.Decimal, currency string) (Money, error) {
	shifted := d.Round(2).Shift(2)
	if shifted.Cmp(maxMinor) > 0 || shifted.Cmp(minMinor) < 0 {
		return Money{}, ErrOverflow
	}
	return Money{Amount: shifted.IntPart(), Currency: currency}, nil
}

// FromString parses a major-unit amount such as "150.00".
func FromString(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return FromDecimal(d, currency)
}

func Zero(currency string) Money { return Money{Currency: currency} }

// Decimal returns the amount as a fixed-scale decimal in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }

func (m Money) Cmp(other Money) int {
	switch {
	case m.Amount < other.Amount:
		return -1
	case m.Amount > other.Amount:
		return 1
	default:
		return 0
	}
}

// Add returns m + other. Currencies must match; mixing is a programming error
// surfaced loudly rather than silently coerced.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency && m.Currency != "" && other.Currency != "" {
		return Money{}, fmt.Errorf("money: currency mismatch %s vs %s", m.Currency, other.Currency)
	}
	if (other.Amount > 0 && m.Amount > math.MaxInt64-other.Amount) ||
		(other.Amount < 0 && m.Amount < math.MinInt64-other.Amount) {
		return Money{}, ErrOverflow
	}
	cur := m.Currency
	if cur == "" {
		cur = other.Currency
	}
	return Money{Amount: m.Amount + other.Amount, Currency: cur}, nil
}

// MulQuantity multiplies by a (possibly fractional) quantity, rounding the
// result half-up to minor units. Returns ErrOverflow when the product leaves
// the representable range.
func (m Money) MulQuantity(qty decimal.Decimal) (Money, error) {
	return FromDecimal(m.Decimal().Mul(qty), m.Currency)
}

// MulRate applies a percentage rate expressed as a decimal fraction (0.10 for
// 10%), rounding half-up to minor units.
func (m Money) MulRate(rate decimal.Decimal) (Money, error) {
	return FromDecimal(m.Decimal().Mul(rate), m.Currency)
}

// String renders the plain 2-decimal amount, e.g. "520.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON emits the amount as a fixed 2-decimal string so clients never
// see raw minor units.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency,omitempty"`
	}{Amount: m.String(), Currency: m.Currency})
}

// Format renders the amount with its currency symbol, e.g. "$520.00".
func (m Money) Format() string {
	if sym, ok := symbols[m.Currency]; ok {
		return sym + m.Decimal().StringFixed(2)
	}
	if m.Currency == "" {
		return m.Decimal().StringFixed(2)
	}
	return m.Currency + " " + m.Decimal().StringFixed(2)
}
