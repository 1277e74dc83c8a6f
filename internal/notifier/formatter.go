package notifier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
)

// Units names the pool's tokens for display. Shares use the stable decimals.
type Units struct {
	Stable         string
	Risk           string
	StableDecimals uint8
	RiskDecimals   uint8
}

func (u Units) stable(v decimal.Decimal) string {
	return fmt.Sprintf("%s %s", calculator.FromUnits(v, u.StableDecimals).StringFixed(2), u.Stable)
}

func (u Units) risk(v decimal.Decimal) string {
	return fmt.Sprintf("%s %s", calculator.FromUnits(v, u.RiskDecimals).String(), u.Risk)
}

func (u Units) shares(v decimal.Decimal) string {
	return calculator.FromUnits(v, u.StableDecimals).String() + " LP"
}

// sold formats an amount of the asset sold on side.
func (u Units) sold(side model.Action, v decimal.Decimal) string {
	if side == model.ActionSell {
		return u.risk(v)
	}
	return u.stable(v)
}

func (u Units) bought(side model.Action, v decimal.Decimal) string {
	if side == model.ActionSell {
		return u.stable(v)
	}
	return u.risk(v)
}

func bps(v decimal.Decimal) string {
	return v.Div(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

// FormatPoolStatus formats a pool summary for display.
func FormatPoolStatus(s model.PoolSummary, u Units) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>资金池状态</b> | %s\n\n", s.Price.ObservedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("%s 价格: %s\n", u.Risk, calculator.FromUnits(s.Price.Price, s.Price.Decimals).StringFixed(2)))
	b.WriteString(fmt.Sprintf("总价值: %s\n", u.stable(s.TotalValue)))
	b.WriteString(fmt.Sprintf("稳定资产: %s\n", u.stable(s.StableBalance)))
	b.WriteString(fmt.Sprintf("风险资产: %s (≈ %s)\n", u.risk(s.RiskBalance), u.stable(s.RiskValue)))
	b.WriteString(fmt.Sprintf("LP 总量: %s\n", u.shares(s.TotalShares)))
	b.WriteString(fmt.Sprintf("待收手续费: %s\n", u.shares(s.FeesAccrued)))
	b.WriteString(fmt.Sprintf("累计存入: %s | 累计取出: %s\n\n", u.stable(s.TotalDeposited), u.stable(s.TotalWithdrawn)))

	b.WriteString(fmt.Sprintf("策略: %s", s.Strategy.Kind))
	if !s.Strategy.MovingAverage.IsZero() {
		b.WriteString(fmt.Sprintf(" | MA%d: %s", s.Strategy.Period,
			calculator.FromUnits(s.Strategy.MovingAverage, s.Price.Decimals).StringFixed(2)))
	}
	b.WriteString("\n")
	if !s.Strategy.LastEvalTimestamp.IsZero() {
		b.WriteString(fmt.Sprintf("上次评估: %s\n", s.Strategy.LastEvalTimestamp.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatTWAP formats the swap progress.
func FormatTWAP(s model.TWAPState, u Units) string {
	if s.Total.IsZero() {
		return "🔄 <b>TWAP</b>\n\n当前无进行中的交易"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔄 <b>TWAP</b> %s | %s\n\n", s.Side, s.Status))
	b.WriteString(fmt.Sprintf("进度: %s / %s (%d 笔)\n", u.sold(s.Side, s.Sold), u.sold(s.Side, s.Total), s.Chunks))
	b.WriteString(fmt.Sprintf("每笔: %s\n", u.sold(s.Side, s.ChunkSize)))
	b.WriteString(fmt.Sprintf("已买入: %s\n", u.bought(s.Side, s.Bought)))
	if !s.LastSwapTimestamp.IsZero() {
		b.WriteString(fmt.Sprintf("上次成交: %s\n", s.LastSwapTimestamp.Format("2006-01-02 15:04")))
	}
	if s.LastError != "" {
		b.WriteString(fmt.Sprintf("⚠️ 最近错误: %s\n", s.LastError))
	}
	return b.String()
}

// FormatAlert formats a failure event.
func FormatAlert(ev model.Event, u Units) string {
	var b strings.Builder
	switch ev.Type {
	case model.EventSlippageExceeded:
		b.WriteString("🚨 <b>滑点超限</b>\n\n")
	case model.EventSwapError:
		b.WriteString("🚨 <b>交易失败</b>\n\n")
	case model.EventStrategyError:
		b.WriteString("⚠️ <b>策略执行失败</b>\n\n")
	default:
		b.WriteString(fmt.Sprintf("ℹ️ <b>%s</b>\n\n", ev.Type))
	}
	if ev.Side != model.ActionNone {
		b.WriteString(fmt.Sprintf("方向: %s\n", ev.Side))
	}
	if !ev.Amount.IsZero() {
		b.WriteString(fmt.Sprintf("数量: %s\n", u.sold(ev.Side, ev.Amount)))
	}
	if ev.Reason != "" {
		b.WriteString(fmt.Sprintf("原因: %s\n", ev.Reason))
	}
	if ev.Note != "" {
		b.WriteString(fmt.Sprintf("详情: %s\n", ev.Note))
	}
	b.WriteString(fmt.Sprintf("时间: %s", ev.Time.Format("2006-01-02 15:04:05")))
	return b.String()
}

// FormatTrade formats a completed swap chunk.
func FormatTrade(ev model.Event, u Units) string {
	return fmt.Sprintf("✅ <b>TWAP 成交</b> %s\n卖出: %s\n买入: %s\n滑点: %s",
		ev.Side, u.sold(ev.Side, ev.Sold), u.bought(ev.Side, ev.Bought), bps(ev.SlippageBps))
}
