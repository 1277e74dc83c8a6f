package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
)

// SetSwapMaxValue sets the largest TWAP chunk in stable base units.
func (p *Pool) SetSwapMaxValue(ctx context.Context, caller string, v decimal.Decimal) error {
	return p.set(ctx, caller, "swap_max_value", v.String(), func(s *Settings) { s.SwapMaxValue = v })
}

// SetSlippageThreshold sets the slippage ceiling in PercPrecision units.
func (p *Pool) SetSlippageThreshold(ctx context.Context, caller string, bps int64) error {
	return p.set(ctx, caller, "slippage_bps", fmt.Sprint(bps), func(s *Settings) { s.SlippageBps = bps })
}

// SetSwapInterval sets the minimum delay between TWAP chunks.
func (p *Pool) SetSwapInterval(ctx context.Context, caller string, d time.Duration) error {
	return p.set(ctx, caller, "swap_interval", d.String(), func(s *Settings) { s.SwapInterval = d })
}

// SetFeesPerc sets the performance fee in PercPrecision units.
func (p *Pool) SetFeesPerc(ctx context.Context, caller string, perc int64) error {
	return p.set(ctx, caller, "fees_perc", fmt.Sprint(perc), func(s *Settings) { s.FeesPerc = perc })
}

// SetUpkeepInterval sets the strategy evaluation interval.
func (p *Pool) SetUpkeepInterval(ctx context.Context, caller string, d time.Duration) error {
	return p.run(ctx, "set upkeep_interval", func(now time.Time) error {
		if err := p.requireOwner(caller); err != nil {
			return err
		}
		if d < 0 {
			return model.NewError(model.KindValidation, model.CodeInvalidParameter, "negative interval %s", d)
		}
		p.strategy.SetUpkeepInterval(d)
		p.emitSetting(caller, "upkeep_interval", d.String(), now)
		return nil
	})
}

func (p *Pool) set(ctx context.Context, caller, name, value string, apply func(*Settings)) error {
	return p.run(ctx, "set "+name, func(now time.Time) error {
		if err := p.requireOwner(caller); err != nil {
			return err
		}
		next := p.settings
		apply(&next)
		if err := validateSettings(next); err != nil {
			return err
		}
		p.settings = next
		p.emitSetting(caller, name, value, now)
		return nil
	})
}

func (p *Pool) emitSetting(caller, name, value string, now time.Time) {
	ev := model.NewEvent(model.EventSettingChanged, now)
	ev.Account = caller
	ev.Note = name + "=" + value
	p.emit(ev)
}

func validateSettings(s Settings) error {
	switch {
	case s.SwapMaxValue.IsNegative():
		return model.NewError(model.KindValidation, model.CodeInvalidParameter, "swap max value %s", s.SwapMaxValue)
	case s.SlippageBps < 0 || s.SlippageBps >= calculator.PercPrecision:
		return model.NewError(model.KindValidation, model.CodeInvalidParameter, "slippage %d out of range", s.SlippageBps)
	case s.SwapInterval < 0:
		return model.NewError(model.KindValidation, model.CodeInvalidParameter, "swap interval %s", s.SwapInterval)
	case s.FeesPerc < 0 || s.FeesPerc > calculator.PercPrecision:
		return model.NewError(model.KindValidation, model.CodeInvalidParameter, "fees %d out of range", s.FeesPerc)
	}
	return nil
}
