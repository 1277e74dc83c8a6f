package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents a single close observation from a market data source.
type Bar struct {
	Time  time.Time
	Close float64
}

// PriceQuote is the oracle view of the risk asset price in stable units.
// Freshness is not validated; ObservedAt is informational.
type PriceQuote struct {
	Price      decimal.Decimal `json:"price"`
	Decimals   uint8           `json:"decimals"`
	ObservedAt time.Time       `json:"observed_at"`
}
