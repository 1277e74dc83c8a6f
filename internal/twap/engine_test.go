package twap

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/ledger"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/oracle"
	"PoolKeeper/internal/swap"
)

var pricing = calculator.Pricing{StableDecimals: 6, RiskDecimals: 8}

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// flakyExecutor fails the next n swaps with err.
type flakyExecutor struct {
	swap.Executor
	failures int
	err      error
}

func (f *flakyExecutor) Swap(ctx context.Context, in, out string, amountIn, minOut decimal.Decimal, recipient string) (decimal.Decimal, error) {
	if f.failures > 0 {
		f.failures--
		return decimal.Zero, f.err
	}
	return f.Executor.Swap(ctx, in, out, amountIn, minOut, recipient)
}

type fixture struct {
	book   *ledger.Book
	feed   *oracle.StaticFeed
	venue  *swap.PaperVenue
	exec   *flakyExecutor
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	book := ledger.NewBook()
	book.Register("USDC", 6)
	book.Register("WBTC", 8)
	require.NoError(t, book.Credit("USDC", "venue", amt(1_000_000_000_000)))
	require.NoError(t, book.Credit("WBTC", "venue", amt(1_000_000_000)))
	require.NoError(t, book.Credit("USDC", "pool", amt(10_000_000_000)))

	feed := oracle.NewStaticFeed(amt(2_000_000_000_000), 8)
	o := oracle.NewAdapter(feed)
	venue := swap.NewPaperVenue("venue", "USDC", "WBTC", book, o, pricing, 0)
	exec := &flakyExecutor{Executor: venue}
	return &fixture{
		book:   book,
		feed:   feed,
		venue:  venue,
		exec:   exec,
		engine: New(exec, o, pricing, "USDC", "WBTC", "pool"),
	}
}

var params = Params{SwapMaxValue: amt(10_000_000), SlippageBps: 50, SwapInterval: 5 * time.Minute}

func TestStartChunkSize(t *testing.T) {
	tests := []struct {
		name      string
		decision  model.SwapDecision
		maxValue  int64
		wantChunk int64
	}{
		{"tiny max value hits 256 floor", model.Buy(amt(6_000_000_000)), 10_000_000, 23_437_500},
		{"max value bounds chunk", model.Buy(amt(6_000_000_000)), 100_000_000, 100_000_000},
		{"max value above total", model.Buy(amt(50_000_000)), 100_000_000, 50_000_000},
		{"sell converts max value to risk units", model.Sell(amt(10_000_000)), 1_000_000_000, 5_000_000},
		{"sell floor", model.Sell(amt(10_000_000)), 1, 39_063},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := params
			p.SwapMaxValue = amt(tt.maxValue)
			require.NoError(t, f.engine.Start(context.Background(), tt.decision, p, time.Unix(0, 0)))
			st := f.engine.State()
			assert.True(t, st.ChunkSize.Equal(amt(tt.wantChunk)), "chunk %s", st.ChunkSize)
			assert.Equal(t, model.TWAPInProgress, st.Status)
			assert.True(t, st.Sold.IsZero())
		})
	}
}

func TestStartRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine.Start(ctx, model.NoAction, params, time.Unix(0, 0))
	assert.Equal(t, model.CodeNoSwap, model.CodeOf(err))

	require.NoError(t, f.engine.Start(ctx, model.Buy(amt(1_000_000)), params, time.Unix(0, 0)))
	err = f.engine.Start(ctx, model.Buy(amt(1_000_000)), params, time.Unix(0, 0))
	assert.Equal(t, model.CodeTWAPPending, model.CodeOf(err))
}

func TestRunsToCompletionIn256Chunks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, f.engine.Start(ctx, model.Buy(amt(6_000_000_000)), params, now))

	prevSold, prevBought := decimal.Zero, decimal.Zero
	chunks := 0
	for f.engine.InFlight() {
		require.LessOrEqual(t, chunks, MaxChunks)
		assert.False(t, f.engine.Ready(now.Add(params.SwapInterval-time.Second), params.SwapInterval))
		now = now.Add(params.SwapInterval)
		require.True(t, f.engine.Ready(now, params.SwapInterval))

		res, err := f.engine.Continue(ctx, params, now)
		require.NoError(t, err)
		require.False(t, res.Failed)
		assert.Equal(t, model.EventTradeCompleted, res.Event.Type)

		st := f.engine.State()
		assert.True(t, st.Sold.GreaterThan(prevSold))
		assert.True(t, st.Bought.GreaterThan(prevBought))
		prevSold, prevBought = st.Sold, st.Bought
		chunks++
	}

	st := f.engine.State()
	assert.Equal(t, MaxChunks, chunks)
	assert.True(t, st.Sold.Equal(st.Total))
	assert.Equal(t, model.TWAPIdle, st.Status)
	assert.True(t, f.book.BalanceOf("USDC", "pool").Equal(amt(4_000_000_000)))
	// each chunk truncates at most one base unit of output
	bought := f.book.BalanceOf("WBTC", "pool")
	assert.True(t, bought.LessThanOrEqual(amt(30_000_000)))
	assert.True(t, bought.GreaterThanOrEqual(amt(30_000_000-MaxChunks)), "bought %s", bought)

	_, err := f.engine.Continue(ctx, params, now)
	assert.Equal(t, model.CodeNoSwap, model.CodeOf(err))
}

func TestLastChunkAbsorbsRemainder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Unix(0, 0)

	p := params
	p.SwapMaxValue = amt(400_000_000)
	require.NoError(t, f.engine.Start(ctx, model.Buy(amt(1_000_000_000)), p, now))

	var last model.Event
	for f.engine.InFlight() {
		now = now.Add(p.SwapInterval)
		res, err := f.engine.Continue(ctx, p, now)
		require.NoError(t, err)
		last = res.Event
	}
	assert.True(t, last.Sold.Equal(amt(200_000_000)))
	assert.Equal(t, 3, f.engine.State().Chunks)
}

func TestFailedChunkPreservesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)
	require.NoError(t, f.engine.Start(ctx, model.Buy(amt(6_000_000_000)), params, start))

	now := start.Add(params.SwapInterval)
	_, err := f.engine.Continue(ctx, params, now)
	require.NoError(t, err)
	before := f.engine.State()

	f.exec.failures = 1
	f.exec.err = model.NewError(model.KindLiquidity, model.CodeInsufficientLiquidity, "dry")
	res, err := f.engine.Continue(ctx, params, now.Add(params.SwapInterval))
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Equal(t, model.EventSwapError, res.Event.Type)
	assert.Equal(t, model.CodeInsufficientLiquidity, res.Event.Reason)

	after := f.engine.State()
	assert.True(t, after.Sold.Equal(before.Sold))
	assert.True(t, after.Bought.Equal(before.Bought))
	assert.Equal(t, before.LastSwapTimestamp, after.LastSwapTimestamp)
	assert.Equal(t, model.TWAPErrored, after.Status)
	assert.True(t, f.engine.InFlight())

	// retry succeeds and clears the error
	res, err = f.engine.Continue(ctx, params, now.Add(params.SwapInterval))
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.Equal(t, model.TWAPInProgress, f.engine.State().Status)
	assert.Empty(t, f.engine.State().LastError)
}

func TestSlippageBreachIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Unix(0, 0)
	require.NoError(t, f.engine.Start(ctx, model.Buy(amt(6_000_000_000)), params, now))

	f.venue.SetImpact(100)
	res, err := f.engine.Continue(ctx, params, now)
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Equal(t, model.EventSlippageExceeded, res.Event.Type)
	assert.Equal(t, model.CodeSlippage, f.engine.State().LastError)
	assert.True(t, f.book.BalanceOf("USDC", "pool").Equal(amt(10_000_000_000)))

	// no self-abort: still in flight and retryable once the venue recovers
	f.venue.SetImpact(10)
	res, err = f.engine.Continue(ctx, params, now)
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.True(t, res.Event.SlippageBps.Equal(amt(10)), "slippage %s", res.Event.SlippageBps)
}

func TestSellSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.book.Credit("WBTC", "pool", amt(5_000_000)))

	require.NoError(t, f.engine.Start(ctx, model.Sell(amt(5_000_000)), params, time.Unix(0, 0)))
	st := f.engine.State()
	assert.Equal(t, "WBTC", st.TokenIn)
	assert.Equal(t, "USDC", st.TokenOut)

	res, err := f.engine.Continue(ctx, params, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, model.ActionSell, res.Event.Side)
	assert.True(t, res.Event.Bought.Equal(amt(10_000_000)), "bought %s", res.Event.Bought)
}
