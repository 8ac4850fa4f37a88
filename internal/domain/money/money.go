// Package money holds the fixed-point helpers shared by pricing, shipping and
// settlement. All amounts are two-digit currency values rounded half-up.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidPercent = errors.New("money: percent must be between 0 and 100")

var (
	hundred = decimal.NewFromInt(100)
	Zero    = decimal.Zero
)

// Round rounds to cents, half away from zero (half-up for positive amounts).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FromCents builds an amount from an integer number of cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// MustParse parses a literal amount and panics on malformed input. Intended
// for constants and tests.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ValidPercent reports whether p lies in the closed interval [0, 100].
func ValidPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

// Fraction converts a percentage (0-100) into a rate (0-1).
func Fraction(percent decimal.Decimal) (decimal.Decimal, error) {
	if !ValidPercent(percent) {
		return decimal.Zero, ErrInvalidPercent
	}
	return percent.Div(hundred), nil
}

// Float returns a plain numeric rendering for structured records.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
