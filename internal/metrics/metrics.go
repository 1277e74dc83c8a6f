// Package metrics exposes pool activity and valuation to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
)

// Metrics holds all Prometheus metrics for the keeper.
type Metrics struct {
	registry *prometheus.Registry

	// Event metrics
	EventsTotal   *prometheus.CounterVec
	TradeChunks   *prometheus.CounterVec
	SwapFailures  *prometheus.CounterVec
	TradeSlippage prometheus.Histogram
	UpkeepsTotal  *prometheus.CounterVec

	// Upkeep gate
	UpkeepChecks *prometheus.CounterVec

	// Valuation gauges
	TotalValue    prometheus.Gauge
	StableBalance prometheus.Gauge
	RiskBalance   prometheus.Gauge
	TotalShares   prometheus.Gauge
	RiskPrice     prometheus.Gauge
	TWAPProgress  prometheus.Gauge
	TWAPInFlight  prometheus.Gauge
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pool_keeper"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "events_total",
			Help:      "Total number of pool events by type",
		}, []string{"type"}),
		TradeChunks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "twap",
			Name:      "chunks_total",
			Help:      "Total number of executed TWAP chunks by side",
		}, []string{"side"}),
		SwapFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "twap",
			Name:      "failures_total",
			Help:      "Total number of failed TWAP chunks by reason code",
		}, []string{"reason"}),
		TradeSlippage: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "twap",
			Name:      "slippage_bps",
			Help:      "Observed slippage of executed chunks against the oracle price",
			Buckets:   []float64{-50, 0, 5, 10, 25, 50, 100, 200, 500},
		}),
		UpkeepsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upkeep",
			Name:      "performed_total",
			Help:      "Total number of performed upkeeps by kind",
		}, []string{"kind"}),
		UpkeepChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upkeep",
			Name:      "checks_total",
			Help:      "Total number of upkeep checks by result",
		}, []string{"result"}),

		TotalValue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "total_value",
			Help:      "Pool value in stable units",
		}),
		StableBalance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "stable_balance",
			Help:      "Stable asset held by the pool",
		}),
		RiskBalance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "risk_balance",
			Help:      "Risk asset held by the pool",
		}),
		TotalShares: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "total_shares",
			Help:      "Outstanding share supply",
		}),
		RiskPrice: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "risk_price",
			Help:      "Latest oracle price of the risk asset",
		}),
		TWAPProgress: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "twap",
			Name:      "progress_ratio",
			Help:      "Sold share of the current TWAP total",
		}),
		TWAPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "twap",
			Name:      "in_flight",
			Help:      "1 while a TWAP swap is in flight",
		}),
	}
}

// HandleEvent counts pool events.
func (m *Metrics) HandleEvent(_ context.Context, ev model.Event) error {
	m.EventsTotal.WithLabelValues(string(ev.Type)).Inc()
	switch ev.Type {
	case model.EventTradeCompleted:
		m.TradeChunks.WithLabelValues(ev.Side.String()).Inc()
		m.TradeSlippage.Observe(ev.SlippageBps.InexactFloat64())
	case model.EventSwapError, model.EventSlippageExceeded:
		m.SwapFailures.WithLabelValues(ev.Reason).Inc()
	case model.EventUpkeep:
		m.UpkeepsTotal.WithLabelValues(ev.Note).Inc()
	}
	return nil
}

// ObserveCheck counts an upkeep check result.
func (m *Metrics) ObserveCheck(needed bool, err error) {
	result := "idle"
	switch {
	case err != nil:
		result = "error"
	case needed:
		result = "needed"
	}
	m.UpkeepChecks.WithLabelValues(result).Inc()
}

// ObserveSummary refreshes the valuation gauges in human units.
func (m *Metrics) ObserveSummary(s model.PoolSummary, stableDecimals, riskDecimals uint8) {
	m.TotalValue.Set(human(s.TotalValue, stableDecimals))
	m.StableBalance.Set(human(s.StableBalance, stableDecimals))
	m.RiskBalance.Set(human(s.RiskBalance, riskDecimals))
	m.TotalShares.Set(human(s.TotalShares, stableDecimals))
	m.RiskPrice.Set(human(s.Price.Price, s.Price.Decimals))

	progress := 0.0
	if s.TWAP.Total.IsPositive() {
		progress = s.TWAP.Sold.Div(s.TWAP.Total).InexactFloat64()
	}
	m.TWAPProgress.Set(progress)
	if s.TWAP.InFlight() {
		m.TWAPInFlight.Set(1)
	} else {
		m.TWAPInFlight.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func human(v decimal.Decimal, decimals uint8) float64 {
	return calculator.FromUnits(v, decimals).InexactFloat64()
}
