package strategy

import (
	"context"
	"time"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/oracle"
)

// Rebalancing keeps the risk allocation near TargetPerc. It trades back to
// the exact target once the allocation drifts BandPerc points or more.
type Rebalancing struct {
	base
	TargetPerc int64
	BandPerc   int64
}

// NewRebalancing creates a rebalancing strategy.
func NewRebalancing(o oracle.Oracle, pricing calculator.Pricing, targetPerc, bandPerc int64, interval time.Duration) *Rebalancing {
	return &Rebalancing{
		base:       base{kind: KindRebalancing, oracle: o, pricing: pricing, interval: interval},
		TargetPerc: targetPerc,
		BandPerc:   bandPerc,
	}
}

func (s *Rebalancing) Eval(ctx context.Context, pf Portfolio) (model.SwapDecision, error) {
	total, err := pf.TotalValue(ctx)
	if err != nil {
		return model.NoAction, err
	}
	if !total.IsPositive() {
		return model.NoAction, nil
	}
	risk, err := pf.RiskAssetValue(ctx)
	if err != nil {
		return model.NoAction, err
	}

	current := allocation(risk, total).IntPart()
	target := pctToBps(s.TargetPerc)
	drift := current - target
	if drift < 0 {
		drift = -drift
	}
	if drift < pctToBps(s.BandPerc) {
		return model.NoAction, nil
	}

	targetValue := calculator.Perc(total, target)
	if current < target {
		return model.Buy(calculator.MinDec(targetValue.Sub(risk), pf.StableAssetBalance())), nil
	}
	return s.sellValue(ctx, pf, risk.Sub(targetValue))
}

func (s *Rebalancing) Exec(ctx context.Context, pf Portfolio, now time.Time) (model.SwapDecision, error) {
	d, err := s.Eval(ctx, pf)
	if err != nil {
		return model.NoAction, err
	}
	s.lastEval = now
	return d, nil
}

func (s *Rebalancing) State() model.StrategyState     { return s.state() }
func (s *Rebalancing) Restore(st model.StrategyState) { s.restore(st) }
