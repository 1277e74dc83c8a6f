package model

import (
	"github.com/shopspring/decimal"
)

// Account tracks the aggregate stable-asset flows of a share holder.
// Both totals only ever grow.
type Account struct {
	Deposited decimal.Decimal `json:"deposited"`
	Withdrawn decimal.Decimal `json:"withdrawn"`
}

// Gain is the aggregate profit of the account when its remaining shares are
// worth value: everything paid out plus value, less everything deposited.
func (a Account) Gain(value decimal.Decimal) decimal.Decimal {
	return a.Withdrawn.Add(value).Sub(a.Deposited)
}

// PoolSummary is a point-in-time valuation of the pool.
type PoolSummary struct {
	StableBalance  decimal.Decimal `json:"stable_balance"`
	RiskBalance    decimal.Decimal `json:"risk_balance"`
	StableValue    decimal.Decimal `json:"stable_value"`
	RiskValue      decimal.Decimal `json:"risk_value"`
	TotalValue     decimal.Decimal `json:"total_value"`
	TotalShares    decimal.Decimal `json:"total_shares"`
	FeesAccrued    decimal.Decimal `json:"fees_accrued"`
	TotalDeposited decimal.Decimal `json:"total_deposited"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	Price          PriceQuote      `json:"price"`
	TWAP           TWAPState       `json:"twap"`
	Strategy       StrategyState   `json:"strategy"`
}

// AccountSummary is the public read view of a single holder.
type AccountSummary struct {
	Account    string          `json:"account"`
	Deposited  decimal.Decimal `json:"deposited"`
	Withdrawn  decimal.Decimal `json:"withdrawn"`
	Shares     decimal.Decimal `json:"shares"`
	Value      decimal.Decimal `json:"value"`
	GainsPerc  decimal.Decimal `json:"gains_perc"`
	Percentage decimal.Decimal `json:"portfolio_percentage"`
}
