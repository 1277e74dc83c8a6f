package pool

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/registry"
)

// ModuleVersion is the version of the modules the pool installs.
const ModuleVersion = "1.0.0"

// Modules returns the registry modules exposing the pool. Amounts in
// arguments and results are human units of the token involved.
func (p *Pool) Modules() []registry.Module {
	return []registry.Module{p.accountingModule(), p.upkeepModule(), p.adminModule()}
}

// Install adds the pool modules to r.
func (p *Pool) Install(r *registry.Registry) error {
	cuts := make([]registry.Cut, 0, 3)
	for _, m := range p.Modules() {
		cuts = append(cuts, registry.Cut{Action: registry.Add, Module: m})
	}
	return r.Apply(p.cfg.Owner, cuts...)
}

func (p *Pool) accountingModule() registry.Module {
	return registry.Module{
		Name:    "accounting",
		Version: ModuleVersion,
		Ops: map[string]registry.Handler{
			"deposit": func(ctx context.Context, req registry.Request) (any, error) {
				amount, err := p.parseAmount(req, "amount", p.cfg.Stable)
				if err != nil {
					return nil, err
				}
				minted, err := p.Deposit(ctx, req.Caller, amount)
				return p.human(p.cfg.Share, minted), err
			},
			"withdraw": func(ctx context.Context, req registry.Request) (any, error) {
				shares, err := p.parseAmount(req, "shares", p.cfg.Share)
				if err != nil {
					return nil, err
				}
				paid, err := p.WithdrawLP(ctx, req.Caller, shares)
				return p.human(p.cfg.Stable, paid), err
			},
			"withdrawAll": func(ctx context.Context, req registry.Request) (any, error) {
				paid, err := p.WithdrawAll(ctx, req.Caller)
				return p.human(p.cfg.Stable, paid), err
			},
			"collectFees": func(ctx context.Context, req registry.Request) (any, error) {
				minOut := decimal.Zero
				if req.Arg("minOut") != "" {
					var err error
					if minOut, err = p.parseAmount(req, "minOut", p.cfg.Stable); err != nil {
						return nil, err
					}
				}
				paid, err := p.CollectFees(ctx, req.Caller, minOut)
				return p.human(p.cfg.Stable, paid), err
			},
			"totalValue": func(ctx context.Context, _ registry.Request) (any, error) {
				v, err := p.TotalValue(ctx)
				return p.human(p.cfg.Stable, v), err
			},
			"riskAssetValue": func(ctx context.Context, _ registry.Request) (any, error) {
				v, err := p.RiskAssetValue(ctx)
				return p.human(p.cfg.Stable, v), err
			},
			"stableAssetValue": func(ctx context.Context, _ registry.Request) (any, error) {
				v, err := p.StableAssetValue(ctx)
				return p.human(p.cfg.Stable, v), err
			},
			"deposits": func(_ context.Context, req registry.Request) (any, error) {
				return p.human(p.cfg.Stable, p.Deposits(accountArg(req))), nil
			},
			"withdrawals": func(_ context.Context, req registry.Request) (any, error) {
				return p.human(p.cfg.Stable, p.Withdrawals(accountArg(req))), nil
			},
			"twapSwaps": func(context.Context, registry.Request) (any, error) {
				return p.TWAPSwaps(), nil
			},
			"portfolioPercentage": func(_ context.Context, req registry.Request) (any, error) {
				return p.PortfolioPercentage(accountArg(req)), nil
			},
			"portfolioValue": func(ctx context.Context, req registry.Request) (any, error) {
				v, err := p.PortfolioValue(ctx, accountArg(req))
				return p.human(p.cfg.Stable, v), err
			},
			"lpTokensValue": func(ctx context.Context, req registry.Request) (any, error) {
				shares, err := p.parseAmount(req, "shares", p.cfg.Share)
				if err != nil {
					return nil, err
				}
				v, err := p.LPTokensValue(ctx, shares)
				return p.human(p.cfg.Stable, v), err
			},
			"feesForWithdraw": func(ctx context.Context, req registry.Request) (any, error) {
				shares, err := p.parseAmount(req, "shares", p.cfg.Share)
				if err != nil {
					return nil, err
				}
				v, err := p.FeesForWithdraw(ctx, shares, accountArg(req))
				return p.human(p.cfg.Share, v), err
			},
			"gainsPerc": func(ctx context.Context, req registry.Request) (any, error) {
				return p.GainsPerc(ctx, accountArg(req))
			},
			"summary": func(ctx context.Context, _ registry.Request) (any, error) {
				return p.Summary(ctx)
			},
			"account": func(ctx context.Context, req registry.Request) (any, error) {
				return p.Account(ctx, accountArg(req))
			},
		},
	}
}

func (p *Pool) upkeepModule() registry.Module {
	return registry.Module{
		Name:    "upkeep",
		Version: ModuleVersion,
		Ops: map[string]registry.Handler{
			"checkUpkeep": func(ctx context.Context, req registry.Request) (any, error) {
				needed, _, err := p.CheckUpkeep(ctx, []byte(req.Arg("data")))
				return needed, err
			},
			"performUpkeep": func(ctx context.Context, req registry.Request) (any, error) {
				if err := p.PerformUpkeep(ctx, []byte(req.Arg("data"))); err != nil {
					return nil, err
				}
				return p.TWAPSwaps(), nil
			},
		},
	}
}

func (p *Pool) adminModule() registry.Module {
	return registry.Module{
		Name:    "admin",
		Version: ModuleVersion,
		Ops: map[string]registry.Handler{
			"setSwapMaxValue": func(ctx context.Context, req registry.Request) (any, error) {
				v, err := p.parseAmount(req, "value", p.cfg.Stable)
				if err != nil {
					return nil, err
				}
				return nil, p.SetSwapMaxValue(ctx, req.Caller, v)
			},
			"setSlippageThreshold": func(ctx context.Context, req registry.Request) (any, error) {
				bps, err := intArg(req, "bps")
				if err != nil {
					return nil, err
				}
				return nil, p.SetSlippageThreshold(ctx, req.Caller, bps)
			},
			"setFeesPerc": func(ctx context.Context, req registry.Request) (any, error) {
				perc, err := intArg(req, "perc")
				if err != nil {
					return nil, err
				}
				return nil, p.SetFeesPerc(ctx, req.Caller, perc)
			},
			"setUpkeepInterval": func(ctx context.Context, req registry.Request) (any, error) {
				d, err := durationArg(req, "interval")
				if err != nil {
					return nil, err
				}
				return nil, p.SetUpkeepInterval(ctx, req.Caller, d)
			},
			"setSwapInterval": func(ctx context.Context, req registry.Request) (any, error) {
				d, err := durationArg(req, "interval")
				if err != nil {
					return nil, err
				}
				return nil, p.SetSwapInterval(ctx, req.Caller, d)
			},
		},
	}
}

func (p *Pool) parseAmount(req registry.Request, name, token string) (decimal.Decimal, error) {
	raw := req.Arg(name)
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, model.NewError(model.KindValidation, model.CodeInvalidAmount, "%s: cannot parse %q", name, raw)
	}
	dec, err := p.book.Decimals(token)
	if err != nil {
		return decimal.Zero, err
	}
	return calculator.ToUnits(v, dec), nil
}

func (p *Pool) human(token string, v decimal.Decimal) decimal.Decimal {
	dec, err := p.book.Decimals(token)
	if err != nil {
		return v
	}
	return calculator.FromUnits(v, dec)
}

func accountArg(req registry.Request) string {
	if a := req.Arg("account"); a != "" {
		return a
	}
	return req.Caller
}

func intArg(req registry.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(req.Arg(name), 10, 64)
	if err != nil {
		return 0, model.NewError(model.KindValidation, model.CodeInvalidParameter, "%s: %v", name, err)
	}
	return v, nil
}

func durationArg(req registry.Request, name string) (time.Duration, error) {
	d, err := time.ParseDuration(req.Arg(name))
	if err != nil {
		return 0, model.NewError(model.KindValidation, model.CodeInvalidParameter, "%s: %v", name, err)
	}
	return d, nil
}
