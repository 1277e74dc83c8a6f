package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"PoolKeeper/internal/config"
	"PoolKeeper/internal/registry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c, err := config.Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	c.Oracle.Price = "20000"
	c.StateFile = filepath.Join(dir, "state.json")
	c.Database.SQLitePath = filepath.Join(dir, "history.db")
	c.Venue.RiskInventory = "10"
	c.Venue.StableInventory = "100000"
	c.Pool.Accounts = map[string]string{"alice": "10000"}
	require.NoError(t, c.Validate())
	return c
}

func registryReq(caller string, kv ...string) registry.Request {
	req := registry.Request{Caller: caller, Args: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		req.Args[kv[i]] = kv[i+1]
	}
	return req
}

func TestParseCallArgs(t *testing.T) {
	req, err := parseCallArgs([]string{"amount=1000", "account=alice", "data="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"amount": "1000", "account": "alice", "data": ""}, req.Args)

	_, err = parseCallArgs([]string{"amount"})
	assert.Error(t, err)
	_, err = parseCallArgs([]string{"=1"})
	assert.Error(t, err)
}

func TestBuildAppDepositAndRestore(t *testing.T) {
	c := testConfig(t)
	ctx := context.Background()

	a, err := buildApp(ctx, c, zap.NewNop())
	require.NoError(t, err)
	res, err := a.registry.Call(ctx, "deposit", registryReq("alice", "amount", "1000"))
	require.NoError(t, err)
	assert.Equal(t, "1000", res.(interface{ String() string }).String())
	a.Close()

	// state and balances survive a restart without reseeding
	b, err := buildApp(ctx, c, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()
	assert.True(t, b.pool.Restored())
	assert.Equal(t, "9000000000", b.book.BalanceOf("USDC", "alice").String())
	assert.Equal(t, "1000000000", b.pool.SharesOf("alice").String())
}

func TestCallCommand(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	var out bytes.Buffer
	callCmd.SetOut(&out)
	callCmd.SetContext(context.Background())
	callerFlag = "alice"
	t.Cleanup(func() { callerFlag = "" })

	require.NoError(t, callCmd.RunE(callCmd, []string{"deposit", "amount=500"}))
	assert.Equal(t, "\"500\"\n", out.String())
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "📦 资金池状态", stripTags("📦 <b>资金池状态</b>"))
}
