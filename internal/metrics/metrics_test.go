package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PoolKeeper/internal/model"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHandleEvent(t *testing.T) {
	m := NewMetrics("")
	ctx := context.Background()
	now := time.Now()

	trade := model.NewEvent(model.EventTradeCompleted, now)
	trade.Side = model.ActionBuy
	trade.SlippageBps = decimal.NewFromInt(3)
	require.NoError(t, m.HandleEvent(ctx, trade))
	require.NoError(t, m.HandleEvent(ctx, trade))

	fail := model.NewEvent(model.EventSlippageExceeded, now)
	fail.Reason = model.CodeSlippage
	require.NoError(t, m.HandleEvent(ctx, fail))

	upkeep := model.NewEvent(model.EventUpkeep, now)
	upkeep.Note = "continue"
	require.NoError(t, m.HandleEvent(ctx, upkeep))

	m.ObserveCheck(true, nil)
	m.ObserveCheck(false, errors.New("feed down"))

	body := scrape(t, m)
	assert.Contains(t, body, `pool_keeper_twap_chunks_total{side="BUY"} 2`)
	assert.Contains(t, body, `pool_keeper_twap_failures_total{reason="SL"} 1`)
	assert.Contains(t, body, `pool_keeper_pool_events_total{type="trade_completed"} 2`)
	assert.Contains(t, body, `pool_keeper_upkeep_performed_total{kind="continue"} 1`)
	assert.Contains(t, body, `pool_keeper_upkeep_checks_total{result="needed"} 1`)
	assert.Contains(t, body, `pool_keeper_upkeep_checks_total{result="error"} 1`)
	assert.Contains(t, body, `pool_keeper_twap_slippage_bps_count 2`)
}

func TestObserveSummary(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveSummary(model.PoolSummary{
		StableBalance: decimal.NewFromInt(4_000_000_000),
		RiskBalance:   decimal.NewFromInt(30_000_000),
		TotalValue:    decimal.NewFromInt(10_000_000_000),
		TotalShares:   decimal.NewFromInt(10_000_000_000),
		Price:         model.PriceQuote{Price: decimal.NewFromInt(2_000_000_000_000), Decimals: 8},
		TWAP: model.TWAPState{
			Total:  decimal.NewFromInt(100),
			Sold:   decimal.NewFromInt(25),
			Status: model.TWAPInProgress,
		},
	}, 6, 8)

	body := scrape(t, m)
	assert.Contains(t, body, "test_pool_total_value 10000\n")
	assert.Contains(t, body, "test_pool_risk_balance 0.3\n")
	assert.Contains(t, body, "test_oracle_risk_price 20000\n")
	assert.Contains(t, body, "test_twap_progress_ratio 0.25\n")
	assert.Contains(t, body, "test_twap_in_flight 1\n")
}
