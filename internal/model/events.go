package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies what happened inside the pool.
type EventType string

const (
	EventDeposit          EventType = "deposit"
	EventWithdraw         EventType = "withdraw"
	EventTradeCompleted   EventType = "trade_completed"
	EventSwapError        EventType = "swap_error"
	EventSlippageExceeded EventType = "slippage_exceeded"
	EventStrategyError    EventType = "strategy_error"
	EventFeesCollected    EventType = "fees_collected"
	EventUpkeep           EventType = "upkeep"
	EventSettingChanged   EventType = "setting_changed"
)

// Event is emitted by successful pool calls. Fields not relevant to the
// event type are left zero.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        EventType       `json:"type"`
	Time        time.Time       `json:"time"`
	Account     string          `json:"account,omitempty"`
	Side        Action          `json:"side"`
	Sold        decimal.Decimal `json:"sold"`
	Bought      decimal.Decimal `json:"bought"`
	Amount      decimal.Decimal `json:"amount"`
	Shares      decimal.Decimal `json:"shares"`
	Fee         decimal.Decimal `json:"fee"`
	SlippageBps decimal.Decimal `json:"slippage_bps"`
	Reason      string          `json:"reason,omitempty"`
	Note        string          `json:"note,omitempty"`
}

// NewEvent stamps a fresh event of type t.
func NewEvent(t EventType, at time.Time) Event {
	return Event{ID: uuid.New(), Type: t, Time: at}
}
