package pool

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
)

// Deposit transfers amount of the stable asset from caller into the pool and
// mints shares for it. It then tries to put the new funds to work; a failure
// of that attempt is reported as a StrategyError event and does not revert
// the deposit.
func (p *Pool) Deposit(ctx context.Context, caller string, amount decimal.Decimal) (decimal.Decimal, error) {
	var minted decimal.Decimal
	err := p.run(ctx, "deposit", func(now time.Time) error {
		var err error
		minted, err = p.deposit(ctx, caller, amount, now)
		return err
	})
	return minted, err
}

func (p *Pool) deposit(ctx context.Context, caller string, amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if err := validAmount(amount); err != nil {
		return decimal.Zero, err
	}

	supply := p.book.TotalSupply(p.cfg.Share)
	minted := amount
	riskBefore, totalBefore := decimal.Zero, decimal.Zero
	if supply.IsPositive() {
		var err error
		if riskBefore, err = p.riskAssetValue(ctx); err != nil {
			return decimal.Zero, err
		}
		totalBefore = riskBefore.Add(p.stableBalance())
		if !totalBefore.IsPositive() {
			return decimal.Zero, model.NewError(model.KindValidation, model.CodeZeroValue, "pool value is zero with %s shares outstanding", supply)
		}
		if minted, err = calculator.MulDivUp(amount, supply, totalBefore); err != nil {
			return decimal.Zero, err
		}
	}

	if err := p.book.Transfer(p.cfg.Stable, caller, p.cfg.Address, amount); err != nil {
		return decimal.Zero, err
	}
	if err := p.book.Mint(p.cfg.Address, p.cfg.Share, caller, minted); err != nil {
		return decimal.Zero, err
	}

	acct := p.account(caller)
	acct.Deposited = acct.Deposited.Add(amount)
	p.accounts[caller] = acct
	p.totalDeposited = p.totalDeposited.Add(amount)

	ev := model.NewEvent(model.EventDeposit, now)
	ev.Account = caller
	ev.Amount = amount
	ev.Shares = minted
	p.emit(ev)

	p.deploy(ctx, amount, riskBefore, totalBefore, now)
	return minted, nil
}

// deploy puts a deposit to work unless a swap is already in flight. It rolls
// back its own effects on failure.
func (p *Pool) deploy(ctx context.Context, amount, riskBefore, totalBefore decimal.Decimal, now time.Time) {
	if p.twap.InFlight() {
		return
	}
	cp := p.checkpoint()
	err := func() error {
		d, err := p.depositDecision(ctx, amount, riskBefore, totalBefore, now)
		if err != nil {
			return err
		}
		if d.Action == model.ActionNone {
			return nil
		}
		return p.startSwap(ctx, d, now)
	}()
	if err == nil {
		p.commit(cp)
		return
	}
	p.rollback(cp)
	p.log.Warn("strategy kickoff failed", zap.Error(err))
	ev := model.NewEvent(model.EventStrategyError, now)
	ev.Reason = model.CodeOf(err)
	ev.Note = err.Error()
	p.emit(ev)
}

// depositDecision asks the strategy only for the first deposit into an empty
// pool or when its upkeep is due. Any other deposit buys the risk asset in
// the proportion the pool held before it, so the strategy's average and
// evaluation time are left alone.
func (p *Pool) depositDecision(ctx context.Context, amount, riskBefore, totalBefore decimal.Decimal, now time.Time) (model.SwapDecision, error) {
	pf := p.view()
	if !totalBefore.IsPositive() || p.strategy.ShouldPerformUpkeep(pf, now) {
		return p.strategy.Exec(ctx, pf, now)
	}
	buy, err := calculator.MulDiv(amount, riskBefore, totalBefore)
	if err != nil {
		return model.NoAction, err
	}
	p.log.Debug("deposit keeps allocation", zap.String("buy", buy.String()))
	return model.Buy(buy), nil
}

// WithdrawLP redeems shares for the stable asset, charging the performance
// fee in shares.
func (p *Pool) WithdrawLP(ctx context.Context, caller string, shares decimal.Decimal) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := p.run(ctx, "withdraw", func(now time.Time) error {
		var err error
		paid, err = p.withdraw(ctx, caller, shares, now)
		return err
	})
	return paid, err
}

// WithdrawAll redeems every share caller holds.
func (p *Pool) WithdrawAll(ctx context.Context, caller string) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := p.run(ctx, "withdraw all", func(now time.Time) error {
		var err error
		paid, err = p.withdraw(ctx, caller, p.book.BalanceOf(p.cfg.Share, caller), now)
		return err
	})
	return paid, err
}

func (p *Pool) withdraw(ctx context.Context, caller string, shares decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if err := validAmount(shares); err != nil {
		return decimal.Zero, err
	}
	if bal := p.book.BalanceOf(p.cfg.Share, caller); shares.GreaterThan(bal) {
		return decimal.Zero, model.NewError(model.KindValidation, model.CodeInsufficientShares, "withdraw %s shares with balance %s", shares, bal)
	}

	fee, err := p.feesForWithdraw(ctx, shares, caller)
	if err != nil {
		return decimal.Zero, err
	}
	net := shares.Sub(fee)

	value, err := p.sharesValue(ctx, net)
	if err != nil {
		return decimal.Zero, err
	}
	if err := p.book.Transfer(p.cfg.Share, caller, p.cfg.Address, fee); err != nil {
		return decimal.Zero, err
	}
	if err := p.book.Burn(p.cfg.Address, p.cfg.Share, caller, net); err != nil {
		return decimal.Zero, err
	}
	paid, err := p.payout(ctx, caller, value)
	if err != nil {
		return decimal.Zero, err
	}

	acct := p.account(caller)
	acct.Withdrawn = acct.Withdrawn.Add(paid)
	p.accounts[caller] = acct
	p.totalWithdrawn = p.totalWithdrawn.Add(paid)

	ev := model.NewEvent(model.EventWithdraw, now)
	ev.Account = caller
	ev.Shares = shares
	ev.Fee = fee
	ev.Amount = paid
	p.emit(ev)
	return paid, nil
}

// CollectFees redeems all fee shares held by the pool and pays the owner.
func (p *Pool) CollectFees(ctx context.Context, caller string, minOut decimal.Decimal) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := p.run(ctx, "collect fees", func(now time.Time) error {
		if err := p.requireOwner(caller); err != nil {
			return err
		}
		fees := p.book.BalanceOf(p.cfg.Share, p.cfg.Address)
		value, err := p.sharesValue(ctx, fees)
		if err != nil {
			return err
		}
		if err := p.book.Burn(p.cfg.Address, p.cfg.Share, p.cfg.Address, fees); err != nil {
			return err
		}
		if paid, err = p.payout(ctx, caller, value); err != nil {
			return err
		}
		if paid.LessThan(minOut) {
			return model.NewError(model.KindValidation, model.CodeMinOut, "fees %s below minimum %s", paid, minOut)
		}

		ev := model.NewEvent(model.EventFeesCollected, now)
		ev.Account = caller
		ev.Shares = fees
		ev.Amount = paid
		p.emit(ev)
		return nil
	})
	return paid, err
}

// payout pays value in the stable asset, first selling enough of the risk
// asset to cover any shortfall. The sale bypasses the TWAP engine.
func (p *Pool) payout(ctx context.Context, to string, value decimal.Decimal) (decimal.Decimal, error) {
	if !value.IsPositive() {
		return decimal.Zero, nil
	}
	stable := p.book.BalanceOf(p.cfg.Stable, p.cfg.Address)
	if stable.LessThan(value) {
		if err := p.coverShortfall(ctx, value.Sub(stable)); err != nil {
			return decimal.Zero, err
		}
		stable = p.book.BalanceOf(p.cfg.Stable, p.cfg.Address)
	}
	paid := calculator.MinDec(value, stable)
	if err := p.book.Transfer(p.cfg.Stable, p.cfg.Address, to, paid); err != nil {
		return decimal.Zero, err
	}
	return paid, nil
}

func (p *Pool) coverShortfall(ctx context.Context, shortfall decimal.Decimal) error {
	q, err := p.oracle.Quote(ctx)
	if err != nil {
		return err
	}
	amountIn, err := p.pricing.AmountUp(shortfall, q)
	if err != nil {
		return err
	}
	amountIn = calculator.MinDec(amountIn, p.book.BalanceOf(p.cfg.Risk, p.cfg.Address))
	if !amountIn.IsPositive() {
		return nil
	}
	expected, err := p.pricing.Value(amountIn, q)
	if err != nil {
		return err
	}
	minOut := calculator.Perc(expected, calculator.PercPrecision-p.settings.SlippageBps)
	out, err := p.executor.Swap(ctx, p.cfg.Risk, p.cfg.Stable, amountIn, minOut, p.cfg.Address)
	if err != nil {
		return err
	}
	p.log.Debug("withdrawal shortfall covered",
		zap.String("sold", amountIn.String()), zap.String("bought", out.String()))
	return nil
}

// gainsPerc is the aggregate gain of account in PercPrecision units:
// (withdrawn + value - deposited) / deposited, floored at zero. Holders that
// never deposited gain 100%.
func (p *Pool) gainsPerc(ctx context.Context, account string) (decimal.Decimal, error) {
	acct := p.account(account)
	if !acct.Deposited.IsPositive() {
		return calculator.PercPrecisionDec(), nil
	}
	value, err := p.sharesValue(ctx, p.book.BalanceOf(p.cfg.Share, account))
	if err != nil {
		return decimal.Zero, err
	}
	gain := acct.Gain(value)
	if !gain.IsPositive() {
		return decimal.Zero, nil
	}
	return calculator.MulDiv(gain, calculator.PercPrecisionDec(), acct.Deposited)
}

// feesForWithdraw is ceil(gains * shares * feesPerc / PercPrecision^2).
func (p *Pool) feesForWithdraw(ctx context.Context, shares decimal.Decimal, account string) (decimal.Decimal, error) {
	gains, err := p.gainsPerc(ctx, account)
	if err != nil {
		return decimal.Zero, err
	}
	if gains.IsZero() || !shares.IsPositive() {
		return decimal.Zero, nil
	}
	prec := calculator.PercPrecisionDec()
	fee, err := calculator.MulDivUp(gains.Mul(shares), decimal.NewFromInt(p.settings.FeesPerc), prec.Mul(prec))
	if err != nil {
		return decimal.Zero, err
	}
	return calculator.MinDec(fee, shares), nil
}

// sharesValue is shares * totalValue / totalShares, truncated.
func (p *Pool) sharesValue(ctx context.Context, shares decimal.Decimal) (decimal.Decimal, error) {
	supply := p.book.TotalSupply(p.cfg.Share)
	if !supply.IsPositive() || !shares.IsPositive() {
		return decimal.Zero, nil
	}
	total, err := p.totalValue(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return calculator.MulDiv(shares, total, supply)
}

func (p *Pool) account(addr string) model.Account {
	if a, ok := p.accounts[addr]; ok {
		return a
	}
	return model.Account{Deposited: decimal.Zero, Withdrawn: decimal.Zero}
}

func validAmount(v decimal.Decimal) error {
	if !v.IsPositive() || !v.Equal(v.Truncate(0)) {
		return model.NewError(model.KindValidation, model.CodeInvalidAmount, "invalid amount %s", v)
	}
	return nil
}
