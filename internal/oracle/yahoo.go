package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/model"
)

const (
	defaultYahooBaseURL = "https://query1.finance.yahoo.com"
	defaultRoundTTL     = 15 * time.Second
)

// YahooFeed implements Feed using the Yahoo Finance chart API. The answer is
// the last close scaled to Decimals. A round is reused for RoundTTL, so the
// several quotes taken during one pool call cost a single request.
type YahooFeed struct {
	Client   *http.Client
	BaseURL  string
	Symbol   string
	Scale    uint8
	Limiter  *rate.Limiter
	RoundTTL time.Duration

	mu        sync.Mutex
	round     uint64
	last      RoundData
	fetchedAt time.Time
	now       func() time.Time
}

// NewYahooFeed creates a feed for symbol (for example "BTC-USD").
func NewYahooFeed(symbol string, scale uint8, proxyURL string) *YahooFeed {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFeed{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL:  defaultYahooBaseURL,
		Symbol:   symbol,
		Scale:    scale,
		Limiter:  rate.NewLimiter(rate.Every(2*time.Second), 1),
		RoundTTL: defaultRoundTTL,
		now:      time.Now,
	}
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []interface{} `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (f *YahooFeed) fetchChart(ctx context.Context, interval, rng string) ([]model.Bar, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("yahoo rate limit: %w", err)
		}
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.Symbol), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) {
			break
		}
		c := toFloat(closes[i])
		if c == 0 {
			continue // null bar
		}
		bars = append(bars, model.Bar{Time: time.Unix(ts, 0), Close: c})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// DailyCloses returns up to days daily bars, oldest first.
func (f *YahooFeed) DailyCloses(ctx context.Context, days int) ([]model.Bar, error) {
	rng := "2y"
	if days <= 30 {
		rng = "1mo"
	} else if days <= 90 {
		rng = "3mo"
	} else if days <= 180 {
		rng = "6mo"
	} else if days <= 365 {
		rng = "1y"
	}
	bars, err := f.fetchChart(ctx, "1d", rng)
	if err != nil {
		return nil, err
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func (f *YahooFeed) LatestRoundData(ctx context.Context) (RoundData, error) {
	if rd, ok := f.cached(); ok {
		return rd, nil
	}
	bars, err := f.fetchChart(ctx, "1d", "1d")
	if err != nil {
		return RoundData{}, err
	}
	if len(bars) == 0 {
		return RoundData{}, fmt.Errorf("yahoo: no price data")
	}
	last := bars[len(bars)-1]

	f.mu.Lock()
	defer f.mu.Unlock()
	f.round++
	f.last = RoundData{
		RoundID:         f.round,
		Answer:          calculator.ToUnits(decimal.NewFromFloat(last.Close), f.Scale),
		StartedAt:       last.Time,
		UpdatedAt:       last.Time,
		AnsweredInRound: f.round,
	}
	f.fetchedAt = f.clock()
	return f.last, nil
}

func (f *YahooFeed) cached() (RoundData, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.round == 0 || f.RoundTTL <= 0 || f.clock().Sub(f.fetchedAt) >= f.RoundTTL {
		return RoundData{}, false
	}
	return f.last, true
}

func (f *YahooFeed) clock() time.Time {
	if f.now == nil {
		return time.Now()
	}
	return f.now()
}

func (f *YahooFeed) Decimals(_ context.Context) (uint8, error) {
	return f.Scale, nil
}
