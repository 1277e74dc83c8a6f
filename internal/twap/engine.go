// Package twap executes one swap at a time in bounded chunks spread over
// successive upkeeps.
package twap

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/oracle"
	"PoolKeeper/internal/swap"
)

// MaxChunks bounds how many chunks any swap can take.
const MaxChunks = 256

var maxChunks = decimal.NewFromInt(MaxChunks)

// Params are the pool settings the engine reads on every call.
type Params struct {
	// SwapMaxValue is the largest chunk, in stable base units.
	SwapMaxValue decimal.Decimal
	// SlippageBps is the slippage ceiling in PercPrecision units.
	SlippageBps  int64
	SwapInterval time.Duration
}

// Result describes one chunk attempt.
type Result struct {
	Event    model.Event
	Failed   bool
	Complete bool
}

// Engine owns the in-flight swap descriptor. It is not safe for concurrent
// use; the pool serializes access.
type Engine struct {
	executor  swap.Executor
	oracle    oracle.Oracle
	pricing   calculator.Pricing
	stable    string
	risk      string
	recipient string

	state model.TWAPState
}

// New creates an idle engine trading for recipient.
func New(executor swap.Executor, o oracle.Oracle, pricing calculator.Pricing, stable, risk, recipient string) *Engine {
	return &Engine{
		executor:  executor,
		oracle:    o,
		pricing:   pricing,
		stable:    stable,
		risk:      risk,
		recipient: recipient,
		state:     model.TWAPState{Total: decimal.Zero, ChunkSize: decimal.Zero, Sold: decimal.Zero, Bought: decimal.Zero},
	}
}

// State returns a copy of the swap descriptor.
func (e *Engine) State() model.TWAPState { return e.state }

// Restore replaces the swap descriptor.
func (e *Engine) Restore(s model.TWAPState) { e.state = s }

// InFlight reports whether a swap still has an unsold remainder.
func (e *Engine) InFlight() bool { return e.state.InFlight() }

// Ready reports whether an in-flight swap may run its next chunk at now.
func (e *Engine) Ready(now time.Time, interval time.Duration) bool {
	return e.state.InFlight() && now.Sub(e.state.LastSwapTimestamp) >= interval
}

// Start begins executing d. It fails when a swap is already in flight.
func (e *Engine) Start(ctx context.Context, d model.SwapDecision, p Params, now time.Time) error {
	if e.state.InFlight() {
		return model.NewError(model.KindValidation, model.CodeTWAPPending, "swap in flight: %s of %s sold", e.state.Sold, e.state.Total)
	}
	if d.Action == model.ActionNone || !d.Amount.IsPositive() {
		return model.NewError(model.KindValidation, model.CodeNoSwap, "nothing to swap")
	}

	tokenIn, tokenOut := e.stable, e.risk
	maxIn := p.SwapMaxValue
	if d.Action == model.ActionSell {
		tokenIn, tokenOut = e.risk, e.stable
		q, err := e.oracle.Quote(ctx)
		if err != nil {
			return err
		}
		if maxIn, err = e.pricing.Amount(p.SwapMaxValue, q); err != nil {
			return err
		}
	}

	minChunk, _ := calculator.MulDivUp(d.Amount, decimal.NewFromInt(1), maxChunks)
	chunk := calculator.MaxDec(minChunk, calculator.MinDec(d.Amount, maxIn))

	e.state = model.TWAPState{
		Side:              d.Action,
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Total:             d.Amount,
		ChunkSize:         chunk,
		Sold:              decimal.Zero,
		Bought:            decimal.Zero,
		LastSwapTimestamp: now,
		Status:            model.TWAPInProgress,
	}
	return nil
}

// Continue executes the next chunk. Executor and oracle failures are
// reported in the result, leave sold, bought and the timestamp untouched and
// mark the swap ERRORED. The returned error is only set when nothing is in
// flight.
func (e *Engine) Continue(ctx context.Context, p Params, now time.Time) (Result, error) {
	if !e.state.InFlight() {
		return Result{}, model.NewError(model.KindValidation, model.CodeNoSwap, "no swap in flight")
	}
	chunk := calculator.MinDec(e.state.ChunkSize, e.state.Total.Sub(e.state.Sold))

	expected, err := e.expectedOut(ctx, chunk)
	if err != nil {
		return e.fail(now, chunk, err), nil
	}
	minOut := calculator.Perc(expected, calculator.PercPrecision-p.SlippageBps)

	out, err := e.executor.Swap(ctx, e.state.TokenIn, e.state.TokenOut, chunk, minOut, e.recipient)
	if err != nil {
		return e.fail(now, chunk, err), nil
	}

	e.state.Sold = e.state.Sold.Add(chunk)
	e.state.Bought = e.state.Bought.Add(out)
	e.state.LastSwapTimestamp = now
	e.state.LastError = ""
	e.state.Chunks++
	complete := !e.state.InFlight()
	if complete {
		e.state.Status = model.TWAPIdle
	} else {
		e.state.Status = model.TWAPInProgress
	}

	ev := model.NewEvent(model.EventTradeCompleted, now)
	ev.Side = e.state.Side
	ev.Sold = chunk
	ev.Bought = out
	ev.SlippageBps = observedSlippage(expected, out)
	if complete {
		ev.Note = "complete"
	}
	return Result{Event: ev, Complete: complete}, nil
}

func (e *Engine) expectedOut(ctx context.Context, amountIn decimal.Decimal) (decimal.Decimal, error) {
	q, err := e.oracle.Quote(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if e.state.Side == model.ActionBuy {
		return e.pricing.Amount(amountIn, q)
	}
	return e.pricing.Value(amountIn, q)
}

func (e *Engine) fail(now time.Time, chunk decimal.Decimal, err error) Result {
	code := model.CodeOf(err)
	if code == "" {
		code = model.CodeTransferFailed
	}
	e.state.Status = model.TWAPErrored
	e.state.LastError = code

	typ := model.EventSwapError
	if errors.Is(err, model.ErrSlippage) {
		typ = model.EventSlippageExceeded
	}
	ev := model.NewEvent(typ, now)
	ev.Side = e.state.Side
	ev.Amount = chunk
	ev.Reason = code
	ev.Note = err.Error()
	return Result{Event: ev, Failed: true}
}

// observedSlippage is the shortfall of out against expected in PercPrecision
// units. Negative values mean a better fill than the oracle price.
func observedSlippage(expected, out decimal.Decimal) decimal.Decimal {
	if !expected.IsPositive() {
		return decimal.Zero
	}
	s, _ := calculator.MulDiv(expected.Sub(out), calculator.PercPrecisionDec(), expected)
	return s
}
