// Package swap defines the swap venue contract used by the pool and a paper
// venue that settles against the in-process ledger.
package swap

import (
	"context"

	"github.com/shopspring/decimal"
)

// Executor exchanges tokenIn for tokenOut. Swap debits amountIn from
// recipient, credits the output to recipient and fails when the output would
// be below minOut.
type Executor interface {
	Quote(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal) (decimal.Decimal, error)
	Swap(ctx context.Context, tokenIn, tokenOut string, amountIn, minOut decimal.Decimal, recipient string) (decimal.Decimal, error)
}
