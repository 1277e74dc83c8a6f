package calculator

import (
	"errors"

	"github.com/shopspring/decimal"
)

// PercPrecision is the scale of every ratio: 10000 == 100%.
const PercPrecision = 10_000

var (
	percPrecision = decimal.NewFromInt(PercPrecision)
	one           = decimal.NewFromInt(1)
)

// ErrDivByZero is returned when a fixed-point division has a zero divisor.
var ErrDivByZero = errors.New("division by zero")

// PercPrecisionDec returns PercPrecision as a decimal.
func PercPrecisionDec() decimal.Decimal { return percPrecision }

// Pow10 returns 10^n as a decimal.
func Pow10(n uint8) decimal.Decimal {
	return decimal.New(1, int32(n))
}

// MulDiv computes a*b/c truncated toward zero.
func MulDiv(a, b, c decimal.Decimal) (decimal.Decimal, error) {
	if c.IsZero() {
		return decimal.Zero, ErrDivByZero
	}
	q, _ := a.Mul(b).QuoRem(c, 0)
	return q, nil
}

// MulDivUp computes a*b/c rounded up for non-negative operands.
func MulDivUp(a, b, c decimal.Decimal) (decimal.Decimal, error) {
	if c.IsZero() {
		return decimal.Zero, ErrDivByZero
	}
	q, r := a.Mul(b).QuoRem(c, 0)
	if r.IsPositive() {
		q = q.Add(one)
	}
	return q, nil
}

// Perc returns amount*perc/PercPrecision truncated.
func Perc(amount decimal.Decimal, perc int64) decimal.Decimal {
	q, _ := MulDiv(amount, decimal.NewFromInt(perc), percPrecision)
	return q
}

// ToUnits converts a human amount to integer base units, truncating any
// excess precision.
func ToUnits(human decimal.Decimal, decimals uint8) decimal.Decimal {
	return human.Shift(int32(decimals)).Truncate(0)
}

// FromUnits converts integer base units to a human amount.
func FromUnits(units decimal.Decimal, decimals uint8) decimal.Decimal {
	return units.Shift(-int32(decimals))
}

// MinDec returns the smaller of a and b.
func MinDec(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// MaxDec returns the larger of a and b.
func MaxDec(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
