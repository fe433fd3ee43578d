// Package money holds the decimal helpers shared by the ledger, the
// calculator and the storage layer. Amounts are shopspring decimals with two
// fractional digits; comparisons go through Epsilon, never exact equality on
// computed values.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits an amount may carry.
const Places = 2

// Epsilon is the tolerance used when deciding whether an amount is settled.
var Epsilon = decimal.RequireFromString("0.005")

// Zero is a convenience for decimal.Zero.
var Zero = decimal.Zero

// Parse reads a decimal amount from its string form.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Round rounds to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// HasValidScale reports whether d has at most two fractional digits.
func HasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(Places))
}

// ApproxEqual reports whether a and b are within Epsilon of each other.
func ApproxEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// Exceeds reports whether a is greater than b by at least Epsilon.
func Exceeds(a, b decimal.Decimal) bool {
	return a.Sub(b).GreaterThanOrEqual(Epsilon)
}

// Covers reports whether paid settles owed, allowing for rounding noise.
func Covers(paid, owed decimal.Decimal) bool {
	return !Exceeds(owed, paid)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Sum adds up amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// EqualShare splits total across parts people and rounds to cents.
// Returns zero when parts is not positive.
func EqualShare(total decimal.Decimal, parts int) decimal.Decimal {
	if parts <= 0 {
		return decimal.Zero
	}
	return Round(total.Div(decimal.NewFromInt(int64(parts))))
}
