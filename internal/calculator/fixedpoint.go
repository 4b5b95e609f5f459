// Package calculator holds the fixed-point helpers shared by the ledger and
// fee code. All division rounds toward negative infinity.
package calculator

import "github.com/shopspring/decimal"

// PricePlaces is the number of decimal places kept in a share price.
const PricePlaces = 18

var one = decimal.NewFromInt(1)

// FloorDiv returns floor(a / b). b must be non-zero.
func FloorDiv(a, b decimal.Decimal) decimal.Decimal {
	q, r := a.QuoRem(b, 0)
	if !r.IsZero() && (r.Sign() < 0) != (b.Sign() < 0) {
		q = q.Sub(one)
	}
	return q
}

// MulDivFloor returns floor(x * num / den). den must be non-zero.
func MulDivFloor(x, num, den decimal.Decimal) decimal.Decimal {
	return FloorDiv(x.Mul(num), den)
}

// ApplyBps returns floor(x * bps / 10000).
func ApplyBps(x decimal.Decimal, bps uint32) decimal.Decimal {
	return MulDivFloor(x, decimal.NewFromInt(int64(bps)), decimal.NewFromInt(10000))
}

// Ratio returns a / b truncated to places decimal places.
func Ratio(a, b decimal.Decimal, places int32) decimal.Decimal {
	return FloorDiv(a.Shift(places), b).Shift(-places)
}

// IsWhole reports whether d is a non-negative integer within Bounded.
func IsWhole(d decimal.Decimal) bool {
	return d.Sign() >= 0 && Bounded(d) && d.IsInteger()
}

// MaxIntegerDigits is the number of decimal digits of the largest unsigned
// 256-bit integer. Amounts, shares and pnl beyond it are rejected.
const MaxIntegerDigits = 78

// Bounded reports whether d has at most MaxIntegerDigits integer digits and at
// most PricePlaces fractional digits. It inspects only the coefficient size
// and exponent, so it is cheap for inputs like 1e50000000 that any arithmetic
// would expand.
func Bounded(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp < -PricePlaces {
		return d.IsZero()
	}
	return int64(d.NumDigits())+exp <= MaxIntegerDigits
}
