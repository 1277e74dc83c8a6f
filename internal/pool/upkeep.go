package pool

import (
	"context"
	"time"

	"PoolKeeper/internal/model"
	"PoolKeeper/internal/twap"
)

// CheckUpkeep reports whether PerformUpkeep would do anything. It is
// read-only and open to any caller. data is echoed back unchanged.
func (p *Pool) CheckUpkeep(ctx context.Context, data []byte) (bool, []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	needed, err := p.upkeepNeeded(ctx, p.now())
	if err != nil {
		return false, data, err
	}
	return needed, data, nil
}

// PerformUpkeep continues the in-flight swap or asks the strategy for a new
// decision. When the upkeep predicate no longer holds it returns nil without
// changing anything.
func (p *Pool) PerformUpkeep(ctx context.Context, data []byte) error {
	return p.run(ctx, "perform upkeep", func(now time.Time) error {
		needed, err := p.upkeepNeeded(ctx, now)
		if err != nil || !needed {
			return err
		}

		ev := model.NewEvent(model.EventUpkeep, now)
		if p.twap.InFlight() {
			ev.Note = "continue"
			p.emit(ev)
			return p.executeChunk(ctx, now)
		}

		d, err := p.strategy.Exec(ctx, p.view(), now)
		if err != nil {
			return err
		}
		ev.Side = d.Action
		ev.Amount = d.Amount
		ev.Note = "evaluate"
		p.emit(ev)
		if d.Action == model.ActionNone {
			return nil
		}
		return p.startSwap(ctx, d, now)
	})
}

func (p *Pool) upkeepNeeded(ctx context.Context, now time.Time) (bool, error) {
	if p.twap.InFlight() {
		return p.twap.Ready(now, p.settings.SwapInterval), nil
	}
	pf := p.view()
	if !p.strategy.ShouldPerformUpkeep(pf, now) {
		return false, nil
	}
	d, err := p.strategy.Eval(ctx, pf)
	if err != nil {
		return false, err
	}
	return d.Action != model.ActionNone, nil
}

// startSwap starts a TWAP for d and runs its first chunk immediately.
func (p *Pool) startSwap(ctx context.Context, d model.SwapDecision, now time.Time) error {
	if err := p.twap.Start(ctx, d, p.twapParams(), now); err != nil {
		return err
	}
	return p.executeChunk(ctx, now)
}

// executeChunk runs one TWAP chunk. A failed chunk restores the ledger it
// may have touched and is reported through its event only.
func (p *Pool) executeChunk(ctx context.Context, now time.Time) error {
	j := p.book.Begin(p.cfg.Address)
	res, err := p.twap.Continue(ctx, p.twapParams(), now)
	if err != nil {
		p.book.Commit(j)
		return err
	}
	if res.Failed {
		p.book.Revert(j)
	} else {
		p.book.Commit(j)
	}
	p.emit(res.Event)
	return nil
}

func (p *Pool) twapParams() twap.Params {
	return twap.Params{
		SwapMaxValue: p.settings.SwapMaxValue,
		SlippageBps:  p.settings.SlippageBps,
		SwapInterval: p.settings.SwapInterval,
	}
}
