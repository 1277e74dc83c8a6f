package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the side of a strategy decision.
type Action int

const (
	ActionNone Action = iota
	ActionBuy
	ActionSell
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "NONE"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(b []byte) error {
	switch string(b) {
	case "BUY":
		*a = ActionBuy
	case "SELL":
		*a = ActionSell
	default:
		*a = ActionNone
	}
	return nil
}

// SwapDecision is the output of a strategy evaluation. Amount is denominated
// in the asset being sold: stable for BUY, risk for SELL.
type SwapDecision struct {
	Action Action          `json:"action"`
	Amount decimal.Decimal `json:"amount"`
}

// NoAction is the decision that trades nothing.
var NoAction = SwapDecision{Action: ActionNone, Amount: decimal.Zero}

// Buy returns a BUY decision spending amount of the stable asset.
func Buy(amount decimal.Decimal) SwapDecision {
	if !amount.IsPositive() {
		return NoAction
	}
	return SwapDecision{Action: ActionBuy, Amount: amount}
}

// Sell returns a SELL decision selling amount of the risk asset.
func Sell(amount decimal.Decimal) SwapDecision {
	if !amount.IsPositive() {
		return NoAction
	}
	return SwapDecision{Action: ActionSell, Amount: amount}
}

// StrategyState is the persistent state owned by a strategy.
type StrategyState struct {
	Kind              string          `json:"kind"`
	LastEvalTimestamp time.Time       `json:"last_eval_timestamp"`
	UpkeepInterval    time.Duration   `json:"upkeep_interval"`
	MovingAverage     decimal.Decimal `json:"moving_average"`
	Period            int             `json:"period"`
}
