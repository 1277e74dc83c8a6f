// Package ledger holds fungible token balances for the stable asset, the risk
// asset and the pool share token.
package ledger

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/model"
)

type token struct {
	decimals uint8
	minter   string
	supply   decimal.Decimal
	balances map[string]decimal.Decimal
}

// Book is an in-process token ledger. It is safe for concurrent use.
type Book struct {
	mu       sync.RWMutex
	tokens   map[string]*token
	paused   bool
	journals []*Journal
}

// NewBook creates an empty ledger.
func NewBook() *Book {
	return &Book{tokens: make(map[string]*token)}
}

// Register adds a token. Registering an existing symbol only updates its decimals.
func (b *Book) Register(symbol string, decimals uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tokens[symbol]; ok {
		t.decimals = decimals
		return
	}
	b.tokens[symbol] = &token{decimals: decimals, supply: decimal.Zero, balances: make(map[string]decimal.Decimal)}
}

// Decimals returns the precision of symbol.
func (b *Book) Decimals(symbol string) (uint8, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, err := b.get(symbol)
	if err != nil {
		return 0, err
	}
	return t.decimals, nil
}

// BalanceOf returns the balance of holder in symbol. Unknown tokens report zero.
func (b *Book) BalanceOf(symbol, holder string) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tokens[symbol]
	if !ok {
		return decimal.Zero
	}
	return balance(t, holder)
}

// TotalSupply returns the circulating supply of symbol.
func (b *Book) TotalSupply(symbol string) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tokens[symbol]
	if !ok {
		return decimal.Zero
	}
	return t.supply
}

// Transfer moves amount of symbol from one holder to another.
func (b *Book) Transfer(symbol, from, to string, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if amount.IsNegative() {
		return model.NewError(model.KindValidation, model.CodeInvalidAmount, "negative transfer %s", amount)
	}
	if b.paused {
		return model.NewError(model.KindTransfer, model.CodeTransferFailed, "transfers paused")
	}
	t, err := b.get(symbol)
	if err != nil {
		return err
	}
	fb := balance(t, from)
	if fb.LessThan(amount) {
		return model.NewError(model.KindTransfer, model.CodeTransferFailed,
			"%s balance of %s is %s, need %s", symbol, from, fb, amount)
	}
	if from == to || amount.IsZero() {
		return nil
	}
	t.balances[from] = fb.Sub(amount)
	t.balances[to] = balance(t, to).Add(amount)
	b.record(entry{symbol: symbol, from: from, to: to, amount: amount})
	return nil
}

// SetMinter grants mint and burn authority on symbol to holder.
func (b *Book) SetMinter(symbol, holder string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.get(symbol)
	if err != nil {
		return err
	}
	t.minter = holder
	return nil
}

// Mint creates amount of symbol for to. Only the minter may call it.
func (b *Book) Mint(caller, symbol, to string, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.minterToken(caller, symbol, amount)
	if err != nil {
		return err
	}
	t.balances[to] = balance(t, to).Add(amount)
	t.supply = t.supply.Add(amount)
	b.record(entry{symbol: symbol, to: to, minter: caller, amount: amount})
	return nil
}

// Burn destroys amount of symbol held by from. Only the minter may call it.
func (b *Book) Burn(caller, symbol, from string, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.minterToken(caller, symbol, amount)
	if err != nil {
		return err
	}
	fb := balance(t, from)
	if fb.LessThan(amount) {
		return model.NewError(model.KindValidation, model.CodeInsufficientShares,
			"burn %s from %s with balance %s", amount, from, fb)
	}
	t.balances[from] = fb.Sub(amount)
	t.supply = t.supply.Sub(amount)
	b.record(entry{symbol: symbol, from: from, minter: caller, amount: amount})
	return nil
}

// Credit creates balance outside of minter control. It seeds wallets and
// venue inventory.
func (b *Book) Credit(symbol, to string, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.get(symbol)
	if err != nil {
		return err
	}
	t.balances[to] = balance(t, to).Add(amount)
	t.supply = t.supply.Add(amount)
	b.record(entry{symbol: symbol, to: to, amount: amount})
	return nil
}

// SetPaused halts or resumes every transfer in the book.
func (b *Book) SetPaused(paused bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = paused
}

// Holders lists the accounts with a positive balance of symbol, sorted.
func (b *Book) Holders(symbol string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tokens[symbol]
	if !ok {
		return nil
	}
	var out []string
	for h, v := range t.balances {
		if v.IsPositive() {
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out
}

func (b *Book) get(symbol string) (*token, error) {
	t, ok := b.tokens[symbol]
	if !ok {
		return nil, model.NewError(model.KindValidation, model.CodeInvalidParameter, "unknown token %q", symbol)
	}
	return t, nil
}

func (b *Book) minterToken(caller, symbol string, amount decimal.Decimal) (*token, error) {
	t, err := b.get(symbol)
	if err != nil {
		return nil, err
	}
	if t.minter == "" || t.minter != caller {
		return nil, model.NewError(model.KindAuthorization, model.CodeOnlyOwner, "%s is not the %s minter", caller, symbol)
	}
	if amount.IsNegative() {
		return nil, model.NewError(model.KindValidation, model.CodeInvalidAmount, "negative amount %s", amount)
	}
	return t, nil
}

func balance(t *token, holder string) decimal.Decimal {
	if v, ok := t.balances[holder]; ok {
		return v
	}
	return decimal.Zero
}
