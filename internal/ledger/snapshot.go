package ledger

import (
	"github.com/shopspring/decimal"
)

// TokenSnapshot is the serialisable form of one token.
type TokenSnapshot struct {
	Decimals uint8                      `json:"decimals"`
	Minter   string                     `json:"minter,omitempty"`
	Supply   decimal.Decimal            `json:"supply"`
	Balances map[string]decimal.Decimal `json:"balances"`
}

// Snapshot is a deep copy of the whole book.
type Snapshot struct {
	Tokens map[string]TokenSnapshot `json:"tokens"`
	Paused bool                     `json:"paused"`
}

// Snapshot copies the current balances.
func (b *Book) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := Snapshot{Tokens: make(map[string]TokenSnapshot, len(b.tokens)), Paused: b.paused}
	for sym, t := range b.tokens {
		bals := make(map[string]decimal.Decimal, len(t.balances))
		for h, v := range t.balances {
			bals[h] = v
		}
		s.Tokens[sym] = TokenSnapshot{Decimals: t.decimals, Minter: t.minter, Supply: t.supply, Balances: bals}
	}
	return s
}

// Restore replaces the book contents with s.
func (b *Book) Restore(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]*token, len(s.Tokens))
	for sym, ts := range s.Tokens {
		bals := make(map[string]decimal.Decimal, len(ts.Balances))
		for h, v := range ts.Balances {
			bals[h] = v
		}
		b.tokens[sym] = &token{decimals: ts.Decimals, minter: ts.Minter, supply: ts.Supply, balances: bals}
	}
	b.paused = s.Paused
}
