package calculator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PoolKeeper/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMulDivRounding(t *testing.T) {
	tests := []struct {
		name     string
		a, b, c  string
		down, up string
	}{
		{"exact", "10", "6", "3", "20", "20"},
		{"fraction", "10", "1", "3", "3", "4"},
		{"small", "1", "1", "256", "0", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			down, err := MulDiv(d(tt.a), d(tt.b), d(tt.c))
			require.NoError(t, err)
			up, err := MulDivUp(d(tt.a), d(tt.b), d(tt.c))
			require.NoError(t, err)
			assert.True(t, down.Equal(d(tt.down)), "down %s", down)
			assert.True(t, up.Equal(d(tt.up)), "up %s", up)
		})
	}

	_, err := MulDiv(d("1"), d("1"), decimal.Zero)
	assert.ErrorIs(t, err, ErrDivByZero)
}

func TestUnitsConversion(t *testing.T) {
	assert.True(t, ToUnits(d("23.4375"), 6).Equal(d("23437500")))
	assert.True(t, ToUnits(d("0.0000001"), 6).IsZero())
	assert.True(t, FromUnits(d("5000000"), 8).Equal(d("0.05")))
	assert.True(t, Perc(d("1000"), 2000).Equal(d("200")))
}

func TestPricingRoundTrip(t *testing.T) {
	p := Pricing{StableDecimals: 6, RiskDecimals: 8}
	q := model.PriceQuote{Price: d("2000000000000"), Decimals: 8, ObservedAt: time.Unix(0, 0)}

	// 0.05 BTC at 20,000 is worth 1,000 USDC.
	v, err := p.Value(d("5000000"), q)
	require.NoError(t, err)
	assert.True(t, v.Equal(d("1000000000")), "value %s", v)

	a, err := p.Amount(d("1000000000"), q)
	require.NoError(t, err)
	assert.True(t, a.Equal(d("5000000")), "amount %s", a)

	up, err := p.AmountUp(d("1"), q)
	require.NoError(t, err)
	assert.True(t, up.Equal(d("1")))

	_, err = p.Value(d("1"), model.PriceQuote{Price: decimal.Zero})
	assert.Error(t, err)
}

func TestCalculateSMA(t *testing.T) {
	prices := []decimal.Decimal{d("10"), d("20"), d("30"), d("40")}

	got, err := CalculateSMA(prices, 2)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("35")))

	_, err = CalculateSMA(prices, 5)
	assert.Error(t, err)
	_, err = CalculateSMA(prices, 0)
	assert.Error(t, err)
}

func TestUpdateMovingAverage(t *testing.T) {
	assert.True(t, UpdateMovingAverage(d("100"), d("60"), 5).Equal(d("92")))
	assert.True(t, UpdateMovingAverage(decimal.Zero, d("60"), 5).Equal(d("60")))
	assert.True(t, UpdateMovingAverage(d("100"), d("60"), 1).Equal(d("60")))
}

func TestSeedFromBars(t *testing.T) {
	bars := []model.Bar{{Close: 19000.5}, {Close: 21000.5}}
	got, err := SeedFromBars(bars, 8, 2)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("2000050000000")), "seed %s", got)
}
