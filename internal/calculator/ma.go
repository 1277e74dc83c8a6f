package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.New("period must be positive")
	}
	if len(prices) < period {
		return decimal.Zero, errors.New("not enough data for SMA calculation")
	}
	sum := decimal.Zero
	for i := len(prices) - period; i < len(prices); i++ {
		sum = sum.Add(prices[i])
	}
	q, _ := sum.QuoRem(decimal.NewFromInt(int64(period)), 0)
	return q, nil
}

// UpdateMovingAverage folds price into the running average ma:
// (ma*(period-1) + price) / period, truncated. A zero ma is seeded with price.
func UpdateMovingAverage(ma, price decimal.Decimal, period int) decimal.Decimal {
	if period <= 1 || ma.IsZero() {
		return price
	}
	p := decimal.NewFromInt(int64(period))
	q, _ := ma.Mul(p.Sub(one)).Add(price).QuoRem(p, 0)
	return q
}

// SeedFromBars computes the moving average of bar closes expressed as
// integer prices with the given number of decimals.
func SeedFromBars(bars []model.Bar, decimals uint8, period int) (decimal.Decimal, error) {
	return CalculateSMA(extractCloses(bars, decimals), period)
}

func extractCloses(bars []model.Bar, decimals uint8) []decimal.Decimal {
	closes := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		closes[i] = ToUnits(decimal.NewFromFloat(b.Close), decimals)
	}
	return closes
}
