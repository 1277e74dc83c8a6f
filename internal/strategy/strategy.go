// Package strategy decides when and how much of the risk asset the pool
// should buy or sell.
package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/oracle"
)

// Portfolio is the read view of the pool a strategy evaluates against.
// Values are in stable base units, balances in each token's base units.
type Portfolio interface {
	TotalValue(ctx context.Context) (decimal.Decimal, error)
	RiskAssetValue(ctx context.Context) (decimal.Decimal, error)
	StableAssetValue(ctx context.Context) (decimal.Decimal, error)
	RiskAssetBalance() decimal.Decimal
	StableAssetBalance() decimal.Decimal
	SwapInProgress() bool
}

// Strategy produces swap decisions. Implementations are not safe for
// concurrent use; the pool serializes access.
type Strategy interface {
	// Name returns the strategy kind.
	Name() string

	// Eval computes the decision for the current portfolio without changing state.
	Eval(ctx context.Context, pf Portfolio) (model.SwapDecision, error)

	// Exec computes the decision and refreshes lastEvalTimestamp and any
	// moving average, whether or not a trade results.
	Exec(ctx context.Context, pf Portfolio, now time.Time) (model.SwapDecision, error)

	// ShouldPerformUpkeep reports whether the upkeep interval elapsed and no
	// swap is in flight.
	ShouldPerformUpkeep(pf Portfolio, now time.Time) bool

	LastEvalTimestamp() time.Time
	UpkeepInterval() time.Duration
	SetUpkeepInterval(d time.Duration)

	State() model.StrategyState
	Restore(s model.StrategyState)
}

// base carries the state every variant shares.
type base struct {
	kind     string
	oracle   oracle.Oracle
	pricing  calculator.Pricing
	lastEval time.Time
	interval time.Duration
}

func (b *base) Name() string                      { return b.kind }
func (b *base) LastEvalTimestamp() time.Time      { return b.lastEval }
func (b *base) UpkeepInterval() time.Duration     { return b.interval }
func (b *base) SetUpkeepInterval(d time.Duration) { b.interval = d }

func (b *base) ShouldPerformUpkeep(pf Portfolio, now time.Time) bool {
	if pf.SwapInProgress() {
		return false
	}
	return now.Sub(b.lastEval) >= b.interval
}

func (b *base) state() model.StrategyState {
	return model.StrategyState{
		Kind:              b.kind,
		LastEvalTimestamp: b.lastEval,
		UpkeepInterval:    b.interval,
		MovingAverage:     decimal.Zero,
	}
}

func (b *base) restore(s model.StrategyState) {
	b.lastEval = s.LastEvalTimestamp
	if s.UpkeepInterval > 0 {
		b.interval = s.UpkeepInterval
	}
}

// allocation returns part as a share of total scaled by PercPrecision.
func allocation(part, total decimal.Decimal) decimal.Decimal {
	q, err := calculator.MulDiv(part, calculator.PercPrecisionDec(), total)
	if err != nil {
		return decimal.Zero
	}
	return q
}

// pctToBps converts whole percentage points to PercPrecision units.
func pctToBps(pct int64) int64 {
	return pct * calculator.PercPrecision / 100
}

// sellValue converts a stable-unit value to risk units, capped at the risk balance.
func (b *base) sellValue(ctx context.Context, pf Portfolio, value decimal.Decimal) (model.SwapDecision, error) {
	if !value.IsPositive() {
		return model.NoAction, nil
	}
	q, err := b.oracle.Quote(ctx)
	if err != nil {
		return model.NoAction, err
	}
	amount, err := b.pricing.Amount(value, q)
	if err != nil {
		return model.NoAction, err
	}
	return model.Sell(calculator.MinDec(amount, pf.RiskAssetBalance())), nil
}
