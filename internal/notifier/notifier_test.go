package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PoolKeeper/internal/model"
)

var testUnits = Units{Stable: "USDC", Risk: "WBTC", StableDecimals: 6, RiskDecimals: 8}

type botServer struct {
	mu   sync.Mutex
	sent []map[string]string
}

func (s *botServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bottoken/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		s.mu.Lock()
		s.sent = append(s.sent, payload)
		s.mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	})
	return mux
}

func (s *botServer) messages() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.sent...)
}

func newTestNotifier(t *testing.T) (*TelegramNotifier, *botServer) {
	bot := &botServer{}
	srv := httptest.NewServer(bot.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("token", "42", "", testUnits, nil)
	n.BaseURL = srv.URL
	return n, bot
}

func TestSend(t *testing.T) {
	n, bot := newTestNotifier(t)
	require.NoError(t, n.Send(context.Background(), "hello"))

	msgs := bot.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "42", msgs[0]["chat_id"])
	assert.Equal(t, "hello", msgs[0]["text"])
	assert.Equal(t, "HTML", msgs[0]["parse_mode"])
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	n := NewTelegramNotifier("token", "42", "", testUnits, nil)
	n.BaseURL = srv.URL

	err := n.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestHandleEventAlertsOnlyOnFailures(t *testing.T) {
	n, bot := newTestNotifier(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, n.HandleEvent(ctx, model.NewEvent(model.EventDeposit, now)))
	require.NoError(t, n.HandleEvent(ctx, model.NewEvent(model.EventTradeCompleted, now)))
	assert.Empty(t, bot.messages())

	ev := model.NewEvent(model.EventSlippageExceeded, now)
	ev.Side = model.ActionBuy
	ev.Amount = decimal.NewFromInt(23_437_500)
	ev.Reason = model.CodeSlippage
	require.NoError(t, n.HandleEvent(ctx, ev))

	msgs := bot.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0]["text"], "滑点超限")
	assert.Contains(t, msgs[0]["text"], "23.44 USDC")
	assert.Contains(t, msgs[0]["text"], "原因: SL")
}

func TestFormatTWAP(t *testing.T) {
	assert.Contains(t, FormatTWAP(model.TWAPState{}, testUnits), "无进行中")

	s := model.TWAPState{
		Side:      model.ActionSell,
		Total:     decimal.NewFromInt(100_000_000),
		ChunkSize: decimal.NewFromInt(25_000_000),
		Sold:      decimal.NewFromInt(50_000_000),
		Bought:    decimal.NewFromInt(20_000_000_000),
		Status:    model.TWAPInProgress,
		Chunks:    2,
	}
	out := FormatTWAP(s, testUnits)
	assert.Contains(t, out, "SELL | IN_PROGRESS")
	assert.Contains(t, out, "0.5 WBTC / 1 WBTC (2 笔)")
	assert.Contains(t, out, "20000.00 USDC")
}

func TestFormatPoolStatus(t *testing.T) {
	s := model.PoolSummary{
		StableBalance: decimal.NewFromInt(4_000_000_000),
		RiskBalance:   decimal.NewFromInt(30_000_000),
		RiskValue:     decimal.NewFromInt(6_000_000_000),
		TotalValue:    decimal.NewFromInt(10_000_000_000),
		TotalShares:   decimal.NewFromInt(10_000_000_000),
		Price:         model.PriceQuote{Price: decimal.NewFromInt(2_000_000_000_000), Decimals: 8},
		Strategy:      model.StrategyState{Kind: "rebalancing"},
	}
	out := FormatPoolStatus(s, testUnits)
	assert.Contains(t, out, "WBTC 价格: 20000.00")
	assert.Contains(t, out, "总价值: 10000.00 USDC")
	assert.Contains(t, out, "风险资产: 0.3 WBTC (≈ 6000.00 USDC)")
	assert.Contains(t, out, "策略: rebalancing\n")
}

func TestFormatTrade(t *testing.T) {
	ev := model.Event{
		Side:        model.ActionBuy,
		Sold:        decimal.NewFromInt(23_437_500),
		Bought:      decimal.NewFromInt(117_187),
		SlippageBps: decimal.NewFromInt(30),
	}
	out := FormatTrade(ev, testUnits)
	assert.Contains(t, out, "卖出: 23.44 USDC")
	assert.Contains(t, out, "买入: 0.00117187 WBTC")
	assert.Contains(t, out, "滑点: 0.30%")
}
