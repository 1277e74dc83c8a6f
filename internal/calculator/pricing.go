package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/model"
)

// Pricing converts between risk asset base units and stable asset base units
// using an oracle quote. The stable asset is valued at par.
type Pricing struct {
	StableDecimals uint8
	RiskDecimals   uint8
}

// Value returns the stable-unit value of riskAmount, truncated.
func (p Pricing) Value(riskAmount decimal.Decimal, q model.PriceQuote) (decimal.Decimal, error) {
	if !q.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("value: non-positive price %s", q.Price)
	}
	num := q.Price.Mul(Pow10(p.StableDecimals))
	den := Pow10(p.RiskDecimals).Mul(Pow10(q.Decimals))
	return MulDiv(riskAmount, num, den)
}

// Amount returns how many risk base units value stable units buy, truncated.
func (p Pricing) Amount(value decimal.Decimal, q model.PriceQuote) (decimal.Decimal, error) {
	num, den, err := p.amountRatio(q)
	if err != nil {
		return decimal.Zero, err
	}
	return MulDiv(value, num, den)
}

// AmountUp is Amount rounded up.
func (p Pricing) AmountUp(value decimal.Decimal, q model.PriceQuote) (decimal.Decimal, error) {
	num, den, err := p.amountRatio(q)
	if err != nil {
		return decimal.Zero, err
	}
	return MulDivUp(value, num, den)
}

func (p Pricing) amountRatio(q model.PriceQuote) (decimal.Decimal, decimal.Decimal, error) {
	if !q.Price.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("amount: non-positive price %s", q.Price)
	}
	num := Pow10(p.RiskDecimals).Mul(Pow10(q.Decimals))
	den := q.Price.Mul(Pow10(p.StableDecimals))
	return num, den, nil
}
