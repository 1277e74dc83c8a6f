package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// StaticFeed returns a controllable fixed price for paper trading and tests.
type StaticFeed struct {
	mu       sync.RWMutex
	price    decimal.Decimal
	decimals uint8
	round    uint64
	updated  time.Time
	err      error
}

// NewStaticFeed creates a feed answering price with the given decimals.
func NewStaticFeed(price decimal.Decimal, decimals uint8) *StaticFeed {
	return &StaticFeed{price: price, decimals: decimals, round: 1, updated: time.Now()}
}

// SetPrice publishes a new round.
func (f *StaticFeed) SetPrice(price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = price
	f.round++
	f.updated = time.Now()
}

// SetError makes subsequent reads fail with err until cleared with nil.
func (f *StaticFeed) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *StaticFeed) LatestRoundData(_ context.Context) (RoundData, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return RoundData{}, f.err
	}
	return RoundData{
		RoundID:         f.round,
		Answer:          f.price,
		StartedAt:       f.updated,
		UpdatedAt:       f.updated,
		AnsweredInRound: f.round,
	}, nil
}

func (f *StaticFeed) Decimals(_ context.Context) (uint8, error) {
	return f.decimals, nil
}
