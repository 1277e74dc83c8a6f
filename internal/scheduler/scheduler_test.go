package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"PoolKeeper/internal/model"
	"PoolKeeper/internal/notifier"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeKeeper struct {
	mu        sync.Mutex
	needed    bool
	checkErr  error
	performed int
}

func (k *fakeKeeper) CheckUpkeep(_ context.Context, data []byte) (bool, []byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.needed, data, k.checkErr
}

func (k *fakeKeeper) PerformUpkeep(context.Context, []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.performed++
	k.needed = false
	return nil
}

func (k *fakeKeeper) Summary(context.Context) (model.PoolSummary, error) {
	return model.PoolSummary{
		TotalValue: decimal.NewFromInt(10_000_000_000),
		Price:      model.PriceQuote{Price: decimal.NewFromInt(2_000_000_000_000), Decimals: 8},
		Strategy:   model.StrategyState{Kind: "rebalancing"},
	}, nil
}

func (k *fakeKeeper) TWAPSwaps() model.TWAPState { return model.TWAPState{} }

func (k *fakeKeeper) count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.performed
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingSender) SendWithRetry(_ context.Context, text string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
	return nil
}

var units = notifier.Units{Stable: "USDC", Risk: "WBTC", StableDecimals: 6, RiskDecimals: 8}

func TestRunUpkeepNow(t *testing.T) {
	k := &fakeKeeper{needed: true}
	s := NewScheduler(context.Background(), k, nil, nil, units, nil)

	performed, err := s.RunUpkeepNow(context.Background())
	require.NoError(t, err)
	assert.True(t, performed)

	performed, err = s.RunUpkeepNow(context.Background())
	require.NoError(t, err)
	assert.False(t, performed)
	assert.Equal(t, 1, k.count())
}

func TestRunUpkeepNowCheckError(t *testing.T) {
	k := &fakeKeeper{checkErr: errors.New("feed down")}
	s := NewScheduler(context.Background(), k, nil, nil, units, nil)

	_, err := s.RunUpkeepNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check upkeep: feed down")
	assert.Zero(t, k.count())
}

func TestUpkeepTaskReportsFailure(t *testing.T) {
	sender := &recordingSender{}
	s := NewScheduler(context.Background(), &fakeKeeper{checkErr: errors.New("feed down")}, sender, nil, units, nil)

	s.upkeepTask()
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "feed down")
}

func TestReportTask(t *testing.T) {
	sender := &recordingSender{}
	s := NewScheduler(context.Background(), &fakeKeeper{}, sender, nil, units, nil)

	s.reportTask()
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "总价值: 10000.00 USDC")
}

func TestHandleCommand(t *testing.T) {
	k := &fakeKeeper{needed: true}
	s := NewScheduler(context.Background(), k, nil, nil, units, nil)
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/status"), "资金池状态")
	assert.Contains(t, s.HandleCommand(ctx, "/twap"), "无进行中")
	assert.Contains(t, s.HandleCommand(ctx, "/upkeep"), "TWAP")
	assert.Equal(t, "无需维护", s.HandleCommand(ctx, "/upkeep"))
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "可用命令")
	assert.Contains(t, s.HandleCommand(ctx, ""), "可用命令")
	assert.Equal(t, 1, k.count())
}

func TestRegisterAllRejectsBadSpec(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeKeeper{}, nil, nil, units, nil)
	assert.Error(t, s.RegisterAll("not a cron", ""))
}

func TestCronDrivesUpkeep(t *testing.T) {
	k := &fakeKeeper{needed: true}
	s := NewScheduler(context.Background(), k, nil, nil, units, nil)
	require.NoError(t, s.RegisterAll("* * * * * *", ""))

	s.Start()
	assert.Eventually(t, func() bool { return k.count() == 1 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}
