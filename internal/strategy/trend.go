package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/oracle"
)

// TrendFollow trades the whole of one side whenever the price crosses its
// moving average: BUY with all stable holdings below it, SELL all risk
// holdings above it.
type TrendFollow struct {
	base
	Period        int
	movingAverage decimal.Decimal
}

// NewTrendFollow creates a trend following strategy seeded with initialMean
// (a price with the oracle's decimals).
func NewTrendFollow(o oracle.Oracle, pricing calculator.Pricing, period int, initialMean decimal.Decimal, interval time.Duration) *TrendFollow {
	return &TrendFollow{
		base:          base{kind: KindTrendFollow, oracle: o, pricing: pricing, interval: interval},
		Period:        period,
		movingAverage: initialMean,
	}
}

// MovingAverage returns the current average price.
func (s *TrendFollow) MovingAverage() decimal.Decimal { return s.movingAverage }

func (s *TrendFollow) Eval(ctx context.Context, pf Portfolio) (model.SwapDecision, error) {
	q, err := s.oracle.Quote(ctx)
	if err != nil {
		return model.NoAction, err
	}
	return s.decide(pf, q.Price), nil
}

func (s *TrendFollow) decide(pf Portfolio, price decimal.Decimal) model.SwapDecision {
	if s.movingAverage.IsZero() {
		return model.NoAction
	}
	switch price.Cmp(s.movingAverage) {
	case -1:
		return model.Buy(pf.StableAssetBalance())
	case 1:
		return model.Sell(pf.RiskAssetBalance())
	default:
		return model.NoAction
	}
}

func (s *TrendFollow) Exec(ctx context.Context, pf Portfolio, now time.Time) (model.SwapDecision, error) {
	q, err := s.oracle.Quote(ctx)
	if err != nil {
		return model.NoAction, err
	}
	d := s.decide(pf, q.Price)
	s.movingAverage = calculator.UpdateMovingAverage(s.movingAverage, q.Price, s.Period)
	s.lastEval = now
	return d, nil
}

func (s *TrendFollow) State() model.StrategyState {
	st := s.state()
	st.MovingAverage = s.movingAverage
	st.Period = s.Period
	return st
}

func (s *TrendFollow) Restore(st model.StrategyState) {
	s.restore(st)
	if st.MovingAverage.IsPositive() {
		s.movingAverage = st.MovingAverage
	}
}
