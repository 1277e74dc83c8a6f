package swap

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/ledger"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/oracle"
)

// PaperVenue fills swaps at the oracle price from its own ledger inventory.
// FeeBps is charged on output; ImpactBps simulates adverse execution.
type PaperVenue struct {
	Address string
	Stable  string
	Risk    string

	book    *ledger.Book
	oracle  oracle.Oracle
	pricing calculator.Pricing

	mu        sync.RWMutex
	feeBps    int64
	impactBps int64
}

// NewPaperVenue creates a venue holding inventory at address in book.
func NewPaperVenue(address, stable, risk string, book *ledger.Book, o oracle.Oracle, pricing calculator.Pricing, feeBps int64) *PaperVenue {
	return &PaperVenue{
		Address: address,
		Stable:  stable,
		Risk:    risk,
		book:    book,
		oracle:  o,
		pricing: pricing,
		feeBps:  feeBps,
	}
}

// SetImpact sets the simulated price impact in basis points.
func (v *PaperVenue) SetImpact(bps int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.impactBps = bps
}

// Quote returns the fill for amountIn before price impact.
func (v *PaperVenue) Quote(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal) (decimal.Decimal, error) {
	v.mu.RLock()
	fee := v.feeBps
	v.mu.RUnlock()
	return v.fill(ctx, tokenIn, tokenOut, amountIn, fee)
}

// Swap settles a trade for recipient.
func (v *PaperVenue) Swap(ctx context.Context, tokenIn, tokenOut string, amountIn, minOut decimal.Decimal, recipient string) (decimal.Decimal, error) {
	if !amountIn.IsPositive() {
		return decimal.Zero, model.NewError(model.KindValidation, model.CodeInvalidAmount, "swap amount %s", amountIn)
	}
	v.mu.RLock()
	cost := v.feeBps + v.impactBps
	v.mu.RUnlock()

	out, err := v.fill(ctx, tokenIn, tokenOut, amountIn, cost)
	if err != nil {
		return decimal.Zero, err
	}
	if out.LessThan(minOut) {
		return decimal.Zero, model.NewError(model.KindSlippage, model.CodeSlippage, "out %s below min %s", out, minOut)
	}
	if inv := v.book.BalanceOf(tokenOut, v.Address); inv.LessThan(out) {
		return decimal.Zero, model.NewError(model.KindLiquidity, model.CodeInsufficientLiquidity,
			"venue holds %s %s, need %s", inv, tokenOut, out)
	}
	if err := v.book.Transfer(tokenIn, recipient, v.Address, amountIn); err != nil {
		return decimal.Zero, err
	}
	if err := v.book.Transfer(tokenOut, v.Address, recipient, out); err != nil {
		return decimal.Zero, err
	}
	return out, nil
}

func (v *PaperVenue) fill(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal, costBps int64) (decimal.Decimal, error) {
	q, err := v.oracle.Quote(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	var gross decimal.Decimal
	switch {
	case tokenIn == v.Stable && tokenOut == v.Risk:
		gross, err = v.pricing.Amount(amountIn, q)
	case tokenIn == v.Risk && tokenOut == v.Stable:
		gross, err = v.pricing.Value(amountIn, q)
	default:
		return decimal.Zero, model.NewError(model.KindValidation, model.CodeInvalidParameter, "unsupported pair %s/%s", tokenIn, tokenOut)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return calculator.Perc(gross, calculator.PercPrecision-costBps), nil
}
