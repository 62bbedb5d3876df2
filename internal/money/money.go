// Package money defines the fixed-point currency representation shared by the
// pricing engine and the order store. Amounts at rest are integer minor units
// (cents); fee math that has to happen in fractional-cent space goes through
// decimal.Decimal and is rounded back exactly once.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount in minor currency units.
type Money = int64

var hundred = decimal.NewFromInt(100)

// FromDecimal converts a major-unit decimal amount to minor units, rounding
// half away from zero to the nearest cent. This is the single rounding
// boundary: callers keep intermediate math in decimal space and convert once.
func FromDecimal(d decimal.Decimal) Money {
	return d.Round(2).Mul(hundred).IntPart()
}

// ToDecimal converts minor units into an exact major-unit decimal.
func ToDecimal(m Money) decimal.Decimal {
	return decimal.NewFromInt(m).Div(hundred)
}

// ParseMajor parses a major-unit amount such as "19.99" into minor units.
func ParseMajor(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// FormatMajor renders minor units as a fixed two-decimal major-unit string.
func FormatMajor(m Money) string {
	return ToDecimal(m).StringFixed(2)
}
