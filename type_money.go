package soa

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// fraction is the number of decimals printed for every amount in a statement.
const fraction = 2

// Money represents an optional monetary value in the statement currency.
//
// A Money read from an empty or unparseable ledger cell is not valid: it
// computes as zero but prints as an empty string. Statements are single
// currency, the currency is a label of the LayoutProfile.
type Money struct {
	value decimal.Decimal
	valid bool
}

// M returns a valid Money.
func M[T float64 | int | int64 | decimal.Decimal](value T) Money {
	return Money{value: newDecimal(value), valid: true}
}

func newDecimal[T float64 | int | int64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	default:
		panic("unreachable")
	}
}

// ParseMoney parses a ledger amount.
//
// It accepts grouping commas, spaces, a leading currency symbol and the
// accounting notation for negatives "(12.50)". An empty string returns an
// invalid Money and no error.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, nil
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer(",", "", " ", "", "$", "", "\u00a0", "").Replace(s)
	if strings.HasSuffix(s, "-") { // some exports print debits as 12.50-
		neg = !neg
		s = strings.TrimSuffix(s, "-")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	if neg {
		d = d.Neg()
	}
	return Money{value: d, valid: true}, nil
}

// Valid reports whether the amount was resolved.
func (m Money) Valid() bool { return m.valid }

// Decimal returns the value, zero for an invalid Money.
func (m Money) Decimal() decimal.Decimal {
	if !m.valid {
		return decimal.Zero
	}
	return m.value
}

func (m Money) IsZero() bool       { return m.Decimal().IsZero() }
func (m Money) Equal(n Money) bool { return m.valid == n.valid && m.Decimal().Equal(n.Decimal()) }

// binary operators, an invalid operand counts as zero and the result is always valid.
func (m Money) Add(n Money) Money { return M(m.Decimal().Add(n.Decimal())) }
func (m Money) Sub(n Money) Money { return M(m.Decimal().Sub(n.Decimal())) }

// amountFormatter prints amounts with two decimals, comma grouping and no currency symbol.
var amountFormatter = money.NewFormatter(fraction, ".", ",", "", "1")

// String returns the statement representation of the amount: two decimals,
// thousands separators and no currency symbol. An invalid Money is "".
func (m Money) String() string {
	if !m.valid {
		return ""
	}
	minor := m.value.Round(fraction).Shift(fraction)
	if minor.LessThan(minMinor) || minor.GreaterThan(maxMinor) {
		return groupDigits(m.value.StringFixed(fraction))
	}
	return amountFormatter.Format(minor.IntPart())
}

// bounds of the amounts the formatter can hold in minor units.
var (
	minMinor = decimal.NewFromInt(-math.MaxInt64)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// groupDigits inserts thousands separators in a fixed point number.
func groupDigits(s string) string {
	sign, digits := "", s
	if strings.HasPrefix(s, "-") {
		sign, digits = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(digits, ".")
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatMoney is the money formatting rule applied to every amount of a statement.
func FormatMoney(m Money) string { return m.String() }

func (m Money) MarshalJSON() ([]byte, error) {
	if !m.valid {
		return []byte("null"), nil
	}
	return []byte(m.value.StringFixed(fraction)), nil
}
