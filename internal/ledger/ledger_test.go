package ledger

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PoolKeeper/internal/model"
)

var decEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newBook(t *testing.T) *Book {
	t.Helper()
	b := NewBook()
	b.Register("USDC", 6)
	b.Register("LP", 18)
	require.NoError(t, b.SetMinter("LP", "pool"))
	require.NoError(t, b.Credit("USDC", "alice", amt(1000)))
	return b
}

func TestTransfer(t *testing.T) {
	b := newBook(t)

	require.NoError(t, b.Transfer("USDC", "alice", "bob", amt(400)))
	assert.True(t, b.BalanceOf("USDC", "alice").Equal(amt(600)))
	assert.True(t, b.BalanceOf("USDC", "bob").Equal(amt(400)))
	assert.True(t, b.TotalSupply("USDC").Equal(amt(1000)))

	err := b.Transfer("USDC", "bob", "alice", amt(401))
	assert.True(t, errors.Is(err, model.ErrTransfer))
	assert.Equal(t, model.CodeTransferFailed, model.CodeOf(err))

	b.SetPaused(true)
	err = b.Transfer("USDC", "alice", "bob", amt(1))
	assert.Equal(t, model.CodeTransferFailed, model.CodeOf(err))
	b.SetPaused(false)

	_, err = b.Decimals("DAI")
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestMintBurnAuthority(t *testing.T) {
	b := newBook(t)

	err := b.Mint("alice", "LP", "alice", amt(10))
	assert.True(t, errors.Is(err, model.ErrAuthorization))

	require.NoError(t, b.Mint("pool", "LP", "alice", amt(10)))
	require.NoError(t, b.Burn("pool", "LP", "alice", amt(4)))
	assert.True(t, b.TotalSupply("LP").Equal(amt(6)))

	err = b.Burn("pool", "LP", "alice", amt(7))
	assert.Equal(t, model.CodeInsufficientShares, model.CodeOf(err))
	assert.Equal(t, []string{"alice"}, b.Holders("LP"))
}

func TestSnapshotRestore(t *testing.T) {
	b := newBook(t)
	snap := b.Snapshot()

	require.NoError(t, b.Transfer("USDC", "alice", "bob", amt(1000)))
	require.NoError(t, b.Mint("pool", "LP", "bob", amt(3)))

	b.Restore(snap)
	if diff := cmp.Diff(snap, b.Snapshot(), decEqual); diff != "" {
		t.Errorf("restored book mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, b.BalanceOf("USDC", "bob").IsZero())
	assert.True(t, b.TotalSupply("LP").IsZero())
}

func TestJournalRevertKeepsOtherHolders(t *testing.T) {
	b := newBook(t)
	require.NoError(t, b.Credit("USDC", "bob", amt(50)))

	j := b.Begin("pool")
	require.NoError(t, b.Transfer("USDC", "alice", "pool", amt(100)))
	require.NoError(t, b.Mint("pool", "LP", "alice", amt(100)))
	// another user of the book moves funds while the call is open
	require.NoError(t, b.Transfer("USDC", "bob", "carol", amt(20)))
	require.NoError(t, b.Transfer("USDC", "alice", "carol", amt(5)))
	assert.Equal(t, 2, j.Len())

	b.Revert(j)
	assert.True(t, b.BalanceOf("USDC", "pool").IsZero())
	assert.True(t, b.BalanceOf("USDC", "alice").Equal(amt(995)))
	assert.True(t, b.BalanceOf("LP", "alice").IsZero())
	assert.True(t, b.TotalSupply("LP").IsZero())
	assert.True(t, b.BalanceOf("USDC", "carol").Equal(amt(25)))
	assert.True(t, b.BalanceOf("USDC", "bob").Equal(amt(30)))
	assert.Zero(t, j.Len())

	// a closed journal records nothing further
	require.NoError(t, b.Transfer("USDC", "alice", "pool", amt(1)))
	assert.Zero(t, j.Len())
}

func TestNestedJournals(t *testing.T) {
	tests := []struct {
		name       string
		outer      func(b *Book, j *Journal)
		wantPool   int64
		wantSupply int64
	}{
		{name: "outer commit keeps outer changes", outer: (*Book).Commit, wantPool: 100, wantSupply: 10},
		{name: "outer revert undoes everything", outer: (*Book).Revert, wantPool: 0, wantSupply: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBook(t)
			outer := b.Begin("pool")
			require.NoError(t, b.Transfer("USDC", "alice", "pool", amt(100)))
			require.NoError(t, b.Mint("pool", "LP", "alice", amt(10)))

			inner := b.Begin("pool")
			require.NoError(t, b.Transfer("USDC", "pool", "venue", amt(60)))
			b.Revert(inner)
			assert.True(t, b.BalanceOf("USDC", "pool").Equal(amt(100)))
			assert.True(t, b.BalanceOf("USDC", "venue").IsZero())

			tt.outer(b, outer)
			assert.True(t, b.BalanceOf("USDC", "pool").Equal(amt(tt.wantPool)))
			assert.True(t, b.BalanceOf("USDC", "alice").Equal(amt(1000-tt.wantPool)))
			assert.True(t, b.BalanceOf("USDC", "venue").IsZero())
			assert.True(t, b.TotalSupply("LP").Equal(amt(tt.wantSupply)))
		})
	}
}
