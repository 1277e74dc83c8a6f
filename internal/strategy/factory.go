package strategy

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/oracle"
)

// Strategy kinds.
const (
	KindRebalancing   = "rebalancing"
	KindTrendFollow   = "trend_follow"
	KindMeanReversion = "mean_reversion"
)

// Factory errors
var (
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrMissingPeriod       = errors.New("moving average strategies require a positive period")
	ErrInvalidTarget       = errors.New("rebalancing target must be within 0..100")
	ErrInvalidBand         = errors.New("rebalancing band must be positive")
	ErrInvalidAllocation   = errors.New("mean reversion min allocation must be within 0..50")
	ErrInvalidBands        = errors.New("mean reversion bands must be positive and down below 100")
)

// Config selects and parameterizes a strategy. Percentages are whole points.
type Config struct {
	Kind              string
	UpkeepInterval    time.Duration
	TargetPerc        int64
	BandPerc          int64
	Period            int
	InitialMean       decimal.Decimal
	MinAllocationPerc int64
	UpPerc            int64
	DownPerc          int64
	TokensToSwapPerc  int64
}

// Default upkeep intervals.
const (
	DefaultRebalanceInterval = 24 * time.Hour
	DefaultTrendInterval     = 5 * 24 * time.Hour
	DefaultReversionInterval = 24 * time.Hour
)

// New creates the strategy named by cfg.Kind.
func New(cfg Config, o oracle.Oracle, pricing calculator.Pricing) (Strategy, error) {
	switch cfg.Kind {
	case KindRebalancing:
		if cfg.TargetPerc < 0 || cfg.TargetPerc > 100 {
			return nil, ErrInvalidTarget
		}
		if cfg.BandPerc <= 0 {
			return nil, ErrInvalidBand
		}
		return NewRebalancing(o, pricing, cfg.TargetPerc, cfg.BandPerc,
			intervalOr(cfg.UpkeepInterval, DefaultRebalanceInterval)), nil
	case KindTrendFollow:
		if cfg.Period <= 0 {
			return nil, ErrMissingPeriod
		}
		return NewTrendFollow(o, pricing, cfg.Period, cfg.InitialMean,
			intervalOr(cfg.UpkeepInterval, DefaultTrendInterval)), nil
	case KindMeanReversion:
		if cfg.Period <= 0 {
			return nil, ErrMissingPeriod
		}
		if cfg.MinAllocationPerc < 0 || cfg.MinAllocationPerc > 50 {
			return nil, ErrInvalidAllocation
		}
		if cfg.UpPerc <= 0 || cfg.DownPerc <= 0 || cfg.DownPerc >= 100 {
			return nil, ErrInvalidBands
		}
		return NewMeanReversion(o, pricing, MeanReversionParams{
			Period:            cfg.Period,
			InitialMean:       cfg.InitialMean,
			MinAllocationPerc: cfg.MinAllocationPerc,
			UpPerc:            cfg.UpPerc,
			DownPerc:          cfg.DownPerc,
			TokensToSwapPerc:  cfg.TokensToSwapPerc,
		}, intervalOr(cfg.UpkeepInterval, DefaultReversionInterval)), nil
	default:
		return nil, ErrUnknownStrategyType
	}
}

// MovingAverageSeeder is implemented by strategies that track a moving
// average and accept an externally computed seed.
type MovingAverageSeeder interface {
	SeedMovingAverage(ma decimal.Decimal)
}

// SeedMovingAverage replaces the average when ma is positive.
func (s *TrendFollow) SeedMovingAverage(ma decimal.Decimal) {
	if ma.IsPositive() {
		s.movingAverage = ma
	}
}

// SeedMovingAverage replaces the average when ma is positive.
func (s *MeanReversion) SeedMovingAverage(ma decimal.Decimal) {
	if ma.IsPositive() {
		s.movingAverage = ma
	}
}

func intervalOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
