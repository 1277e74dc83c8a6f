package ledger

import (
	"github.com/shopspring/decimal"
)

// Journal records, in order, every change to the book that involves one
// holder, either as a party or as the minter. Reverting it undoes only those changes, so a failed call by one
// book user never rewinds what other users did in the meantime.
type Journal struct {
	holder  string
	entries []entry
}

// Len returns the number of recorded changes.
func (j *Journal) Len() int { return len(j.entries) }

// entry moves amount of symbol from one holder to another. An empty from
// creates supply and an empty to destroys it. minter is set for mints and
// burns.
type entry struct {
	symbol string
	from   string
	to     string
	minter string
	amount decimal.Decimal
}

func (e entry) inverse() entry {
	return entry{symbol: e.symbol, from: e.to, to: e.from, minter: e.minter, amount: e.amount}
}

func (e entry) involves(holder string) bool {
	return e.from == holder || e.to == holder || e.minter == holder
}

// Begin starts a journal of the changes that involve holder. Journals nest:
// every open journal for the holder records the same changes.
func (b *Book) Begin(holder string) *Journal {
	b.mu.Lock()
	defer b.mu.Unlock()
	j := &Journal{holder: holder}
	b.journals = append(b.journals, j)
	return j
}

// Commit closes j and keeps its changes.
func (b *Book) Commit(j *Journal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.close(j)
}

// Revert closes j and undoes its changes, newest first. Journals still open
// record the undo as ordinary changes.
func (b *Book) Revert(j *Journal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.close(j)
	for i := len(j.entries) - 1; i >= 0; i-- {
		inv := j.entries[i].inverse()
		t, ok := b.tokens[inv.symbol]
		if !ok {
			continue
		}
		apply(t, inv)
		b.record(inv)
	}
	j.entries = nil
}

func (b *Book) close(j *Journal) {
	for i, open := range b.journals {
		if open == j {
			b.journals = append(b.journals[:i], b.journals[i+1:]...)
			return
		}
	}
}

func (b *Book) record(e entry) {
	for _, j := range b.journals {
		if e.involves(j.holder) {
			j.entries = append(j.entries, e)
		}
	}
}

func apply(t *token, e entry) {
	if e.from == "" {
		t.supply = t.supply.Add(e.amount)
	} else {
		t.balances[e.from] = balance(t, e.from).Sub(e.amount)
	}
	if e.to == "" {
		t.supply = t.supply.Sub(e.amount)
	} else {
		t.balances[e.to] = balance(t, e.to).Add(e.amount)
	}
}
