package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// All amounts in this system are integer minor units (cents). The helpers
// here keep percentage math on integers with a single rounding policy and
// push decimal conversion out to the display edge.

// MulDiv computes amount * num / den with half-up rounding.
// den must be positive.
func MulDiv(amount, num, den int64) int64 {
	product := amount * num
	quotient := product / den
	remainder := product % den

	// Round half up on the absolute remainder.
	if remainder*2 >= den {
		quotient++
	}
	return quotient
}

// Percent applies a whole-number percentage to an amount, half-up rounded.
func Percent(amount int64, percent int64) int64 {
	return MulDiv(amount, percent, 100)
}

// BasisPoints applies a fee expressed in basis points, half-up rounded.
func BasisPoints(amount int64, bps int64) int64 {
	return MulDiv(amount, bps, 10000)
}

// GrossFromPortion scales a portion back up to the gross amount it is a
// percentage of: portion / (percent/100), half-up rounded.
func GrossFromPortion(portion int64, percent int64) int64 {
	return MulDiv(portion, 100, percent)
}

// Format renders cents as a decimal currency string, e.g. 36000 -> "360.00".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// FromDecimalString parses a currency string like "360.00" into cents.
// Sub-cent precision is rejected.
func FromDecimalString(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-cent precision", s)
	}
	return shifted.IntPart(), nil
}
