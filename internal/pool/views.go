package pool

import (
	"context"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/strategy"
)

// view is the unlocked strategy.Portfolio of a pool, used while the lock is held.
type view struct{ p *Pool }

var _ strategy.Portfolio = view{}

func (p *Pool) view() view { return view{p: p} }

func (v view) TotalValue(ctx context.Context) (decimal.Decimal, error) {
	return v.p.totalValue(ctx)
}

func (v view) RiskAssetValue(ctx context.Context) (decimal.Decimal, error) {
	return v.p.riskAssetValue(ctx)
}

func (v view) StableAssetValue(context.Context) (decimal.Decimal, error) {
	return v.p.stableBalance(), nil
}

func (v view) RiskAssetBalance() decimal.Decimal   { return v.p.riskBalance() }
func (v view) StableAssetBalance() decimal.Decimal { return v.p.stableBalance() }
func (v view) SwapInProgress() bool                { return v.p.twap.InFlight() }

func (p *Pool) stableBalance() decimal.Decimal {
	return p.book.BalanceOf(p.cfg.Stable, p.cfg.Address)
}

func (p *Pool) riskBalance() decimal.Decimal {
	return p.book.BalanceOf(p.cfg.Risk, p.cfg.Address)
}

func (p *Pool) riskAssetValue(ctx context.Context) (decimal.Decimal, error) {
	risk := p.riskBalance()
	if risk.IsZero() {
		return decimal.Zero, nil
	}
	q, err := p.oracle.Quote(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return p.pricing.Value(risk, q)
}

func (p *Pool) totalValue(ctx context.Context) (decimal.Decimal, error) {
	risk, err := p.riskAssetValue(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return risk.Add(p.stableBalance()), nil
}

// TotalValue is the value of both holdings in stable base units.
func (p *Pool) TotalValue(ctx context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalValue(ctx)
}

// RiskAssetValue is the value of the risk holdings in stable base units.
func (p *Pool) RiskAssetValue(ctx context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.riskAssetValue(ctx)
}

// StableAssetValue is the stable balance; the stable asset is valued at par.
func (p *Pool) StableAssetValue(_ context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stableBalance(), nil
}

// Deposits returns the total ever deposited by account.
func (p *Pool) Deposits(account string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.account(account).Deposited
}

// Withdrawals returns the total ever paid out to account.
func (p *Pool) Withdrawals(account string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.account(account).Withdrawn
}

// TotalDeposited returns the sum of all deposits.
func (p *Pool) TotalDeposited() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalDeposited
}

// TotalWithdrawn returns the sum of all withdrawals.
func (p *Pool) TotalWithdrawn() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalWithdrawn
}

// FeesAccrued returns the fee shares held by the pool.
func (p *Pool) FeesAccrued() decimal.Decimal {
	return p.book.BalanceOf(p.cfg.Share, p.cfg.Address)
}

// TotalShares returns the share token supply.
func (p *Pool) TotalShares() decimal.Decimal {
	return p.book.TotalSupply(p.cfg.Share)
}

// SharesOf returns the share balance of account.
func (p *Pool) SharesOf(account string) decimal.Decimal {
	return p.book.BalanceOf(p.cfg.Share, account)
}

// TWAPSwaps returns the current swap descriptor.
func (p *Pool) TWAPSwaps() model.TWAPState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.twap.State()
}

// Settings returns the current admin settings.
func (p *Pool) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// StrategyState returns the strategy's persistent state.
func (p *Pool) StrategyState() model.StrategyState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.strategy.State()
}

// PortfolioPercentage is the share of the pool owned by account in
// PercPrecision units.
func (p *Pool) PortfolioPercentage(account string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.portfolioPercentage(account)
}

func (p *Pool) portfolioPercentage(account string) decimal.Decimal {
	supply := p.book.TotalSupply(p.cfg.Share)
	if !supply.IsPositive() {
		return decimal.Zero
	}
	pct, _ := calculator.MulDiv(p.book.BalanceOf(p.cfg.Share, account), calculator.PercPrecisionDec(), supply)
	return pct
}

// PortfolioValue is the stable value of the shares account holds.
func (p *Pool) PortfolioValue(ctx context.Context, account string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sharesValue(ctx, p.book.BalanceOf(p.cfg.Share, account))
}

// LPTokensValue is the stable value of shares before fees.
func (p *Pool) LPTokensValue(ctx context.Context, shares decimal.Decimal) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sharesValue(ctx, shares)
}

// FeesForWithdraw is the fee, in shares, account pays to withdraw shares.
func (p *Pool) FeesForWithdraw(ctx context.Context, shares decimal.Decimal, account string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feesForWithdraw(ctx, shares, account)
}

// GainsPerc is the unrealized gain of account in PercPrecision units.
func (p *Pool) GainsPerc(ctx context.Context, account string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gainsPerc(ctx, account)
}

// Summary values the whole pool.
func (p *Pool) Summary(ctx context.Context) (model.PoolSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, err := p.oracle.Quote(ctx)
	if err != nil {
		return model.PoolSummary{}, err
	}
	risk := p.riskBalance()
	riskValue, err := p.pricing.Value(risk, q)
	if err != nil {
		return model.PoolSummary{}, err
	}
	stable := p.stableBalance()
	return model.PoolSummary{
		StableBalance:  stable,
		RiskBalance:    risk,
		StableValue:    stable,
		RiskValue:      riskValue,
		TotalValue:     stable.Add(riskValue),
		TotalShares:    p.book.TotalSupply(p.cfg.Share),
		FeesAccrued:    p.book.BalanceOf(p.cfg.Share, p.cfg.Address),
		TotalDeposited: p.totalDeposited,
		TotalWithdrawn: p.totalWithdrawn,
		Price:          q,
		TWAP:           p.twap.State(),
		Strategy:       p.strategy.State(),
	}, nil
}

// Account returns the read view of a single holder.
func (p *Pool) Account(ctx context.Context, account string) (model.AccountSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct := p.account(account)
	shares := p.book.BalanceOf(p.cfg.Share, account)
	value, err := p.sharesValue(ctx, shares)
	if err != nil {
		return model.AccountSummary{}, err
	}
	gains, err := p.gainsPerc(ctx, account)
	if err != nil {
		return model.AccountSummary{}, err
	}
	return model.AccountSummary{
		Account:    account,
		Deposited:  acct.Deposited,
		Withdrawn:  acct.Withdrawn,
		Shares:     shares,
		Value:      value,
		GainsPerc:  gains,
		Percentage: p.portfolioPercentage(account),
	}, nil
}
