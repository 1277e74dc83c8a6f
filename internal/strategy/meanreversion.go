package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/oracle"
)

// MeanReversion sells into strength and buys into weakness around a moving
// average, while keeping both assets at or above MinAllocationPerc.
type MeanReversion struct {
	base
	Period            int
	MinAllocationPerc int64
	UpPerc            int64
	DownPerc          int64
	TokensToSwapPerc  int64
	movingAverage     decimal.Decimal
}

// MeanReversionParams configures NewMeanReversion. Percentages are whole points.
type MeanReversionParams struct {
	Period            int
	InitialMean       decimal.Decimal
	MinAllocationPerc int64
	UpPerc            int64
	DownPerc          int64
	TokensToSwapPerc  int64
}

// NewMeanReversion creates a mean reversion strategy.
func NewMeanReversion(o oracle.Oracle, pricing calculator.Pricing, p MeanReversionParams, interval time.Duration) *MeanReversion {
	return &MeanReversion{
		base:              base{kind: KindMeanReversion, oracle: o, pricing: pricing, interval: interval},
		Period:            p.Period,
		MinAllocationPerc: p.MinAllocationPerc,
		UpPerc:            p.UpPerc,
		DownPerc:          p.DownPerc,
		TokensToSwapPerc:  p.TokensToSwapPerc,
		movingAverage:     p.InitialMean,
	}
}

// MovingAverage returns the current average price.
func (s *MeanReversion) MovingAverage() decimal.Decimal { return s.movingAverage }

func (s *MeanReversion) Eval(ctx context.Context, pf Portfolio) (model.SwapDecision, error) {
	q, err := s.oracle.Quote(ctx)
	if err != nil {
		return model.NoAction, err
	}
	return s.decide(ctx, pf, q.Price)
}

func (s *MeanReversion) decide(ctx context.Context, pf Portfolio, price decimal.Decimal) (model.SwapDecision, error) {
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
	stable, err := pf.StableAssetValue(ctx)
	if err != nil {
		return model.NoAction, err
	}

	floor := pctToBps(s.MinAllocationPerc)
	floorValue := calculator.Perc(total, floor)

	if allocation(risk, total).IntPart() < floor {
		return model.Buy(calculator.MinDec(floorValue.Sub(risk), pf.StableAssetBalance())), nil
	}
	if allocation(stable, total).IntPart() < floor {
		return s.sellValue(ctx, pf, floorValue.Sub(stable))
	}
	if s.movingAverage.IsZero() {
		return model.NoAction, nil
	}

	upper := calculator.Perc(s.movingAverage, pctToBps(100+s.UpPerc))
	lower := calculator.Perc(s.movingAverage, pctToBps(100-s.DownPerc))
	switch {
	case price.GreaterThan(upper):
		amount := calculator.Perc(pf.RiskAssetBalance(), pctToBps(s.TokensToSwapPerc))
		limit, err := s.sellValue(ctx, pf, risk.Sub(floorValue))
		if err != nil {
			return model.NoAction, err
		}
		return model.Sell(calculator.MinDec(amount, limit.Amount)), nil
	case price.LessThan(lower):
		amount := calculator.Perc(pf.StableAssetBalance(), pctToBps(s.TokensToSwapPerc))
		return model.Buy(calculator.MinDec(amount, stable.Sub(floorValue))), nil
	default:
		return model.NoAction, nil
	}
}

func (s *MeanReversion) Exec(ctx context.Context, pf Portfolio, now time.Time) (model.SwapDecision, error) {
	q, err := s.oracle.Quote(ctx)
	if err != nil {
		return model.NoAction, err
	}
	d, err := s.decide(ctx, pf, q.Price)
	if err != nil {
		return model.NoAction, err
	}
	s.movingAverage = calculator.UpdateMovingAverage(s.movingAverage, q.Price, s.Period)
	s.lastEval = now
	return d, nil
}

func (s *MeanReversion) State() model.StrategyState {
	st := s.state()
	st.MovingAverage = s.movingAverage
	st.Period = s.Period
	return st
}

func (s *MeanReversion) Restore(st model.StrategyState) {
	s.restore(st)
	if st.MovingAverage.IsPositive() {
		s.movingAverage = st.MovingAverage
	}
}
