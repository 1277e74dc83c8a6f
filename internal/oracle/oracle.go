// Package oracle adapts round-based price feeds into price quotes.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/model"
)

// RoundData mirrors the answer of an aggregator round.
type RoundData struct {
	RoundID         uint64
	Answer          decimal.Decimal
	StartedAt       time.Time
	UpdatedAt       time.Time
	AnsweredInRound uint64
}

// Feed is the round-based price source.
type Feed interface {
	LatestRoundData(ctx context.Context) (RoundData, error)
	Decimals(ctx context.Context) (uint8, error)
}

// Oracle yields the price of the risk asset in stable units.
type Oracle interface {
	Quote(ctx context.Context) (model.PriceQuote, error)
}

// Adapter turns a Feed into an Oracle. Only the answer and decimals are
// consumed; staleness is not checked.
type Adapter struct {
	Feed Feed
}

// NewAdapter wraps feed.
func NewAdapter(feed Feed) *Adapter {
	return &Adapter{Feed: feed}
}

// Quote reads the latest round.
func (a *Adapter) Quote(ctx context.Context) (model.PriceQuote, error) {
	rd, err := a.Feed.LatestRoundData(ctx)
	if err != nil {
		return model.PriceQuote{}, model.NewError(model.KindValidation, model.CodePriceFeed, "latest round: %v", err)
	}
	if !rd.Answer.IsPositive() {
		return model.PriceQuote{}, model.NewError(model.KindValidation, model.CodePriceFeed, "non-positive answer %s", rd.Answer)
	}
	dec, err := a.Feed.Decimals(ctx)
	if err != nil {
		return model.PriceQuote{}, model.NewError(model.KindValidation, model.CodePriceFeed, "decimals: %v", err)
	}
	return model.PriceQuote{Price: rd.Answer, Decimals: dec, ObservedAt: rd.UpdatedAt}, nil
}

// String describes the adapter for logs.
func (a *Adapter) String() string {
	return fmt.Sprintf("oracle(%T)", a.Feed)
}
