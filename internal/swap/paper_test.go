package swap

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/ledger"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/oracle"
)

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func setup(t *testing.T, feeBps int64) (*PaperVenue, *ledger.Book) {
	t.Helper()
	book := ledger.NewBook()
	book.Register("USDC", 6)
	book.Register("WBTC", 8)
	require.NoError(t, book.Credit("USDC", "venue", amt(1_000_000_000_000)))
	require.NoError(t, book.Credit("WBTC", "venue", amt(50_000_000)))
	require.NoError(t, book.Credit("USDC", "pool", amt(20_000_000_000)))

	feed := oracle.NewStaticFeed(amt(2_000_000_000_000), 8)
	v := NewPaperVenue("venue", "USDC", "WBTC", book, oracle.NewAdapter(feed),
		calculator.Pricing{StableDecimals: 6, RiskDecimals: 8}, feeBps)
	return v, book
}

func TestPaperVenueSwap(t *testing.T) {
	v, book := setup(t, 0)
	ctx := context.Background()

	q, err := v.Quote(ctx, "USDC", "WBTC", amt(1_000_000_000))
	require.NoError(t, err)
	assert.True(t, q.Equal(amt(5_000_000)))

	out, err := v.Swap(ctx, "USDC", "WBTC", amt(1_000_000_000), q, "pool")
	require.NoError(t, err)
	assert.True(t, out.Equal(q))
	assert.True(t, book.BalanceOf("WBTC", "pool").Equal(amt(5_000_000)))
	assert.True(t, book.BalanceOf("USDC", "pool").Equal(amt(19_000_000_000)))

	back, err := v.Swap(ctx, "WBTC", "USDC", amt(5_000_000), amt(0), "pool")
	require.NoError(t, err)
	assert.True(t, back.Equal(amt(1_000_000_000)))
}

func TestPaperVenueFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("slippage", func(t *testing.T) {
		v, book := setup(t, 30)
		v.SetImpact(100)
		_, err := v.Swap(ctx, "USDC", "WBTC", amt(1_000_000_000), amt(4_990_000), "pool")
		assert.True(t, errors.Is(err, model.ErrSlippage))
		assert.True(t, book.BalanceOf("USDC", "pool").Equal(amt(20_000_000_000)))
	})

	t.Run("liquidity", func(t *testing.T) {
		v, _ := setup(t, 0)
		_, err := v.Swap(ctx, "USDC", "WBTC", amt(20_000_000_000), amt(0), "pool")
		assert.Equal(t, model.CodeInsufficientLiquidity, model.CodeOf(err))
	})

	t.Run("transfer", func(t *testing.T) {
		v, _ := setup(t, 0)
		_, err := v.Swap(ctx, "USDC", "WBTC", amt(1_000), amt(0), "nobody")
		assert.Equal(t, model.CodeTransferFailed, model.CodeOf(err))
	})

	t.Run("pair", func(t *testing.T) {
		v, _ := setup(t, 0)
		_, err := v.Quote(ctx, "USDC", "USDC", amt(1))
		assert.True(t, errors.Is(err, model.ErrValidation))
	})
}
