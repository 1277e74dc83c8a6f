package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/strategy"
)

// TokenConfig describes a ledger token.
type TokenConfig struct {
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
}

// Config holds all application configuration. Amounts are human units.
type Config struct {
	Pool struct {
		Address      string        `yaml:"address"`
		Owner        string        `yaml:"owner"`
		Stable       TokenConfig   `yaml:"stable"`
		Risk         TokenConfig   `yaml:"risk"`
		Share        TokenConfig   `yaml:"share"`
		FeesPerc     int64         `yaml:"fees_perc"`
		SwapMaxValue string        `yaml:"swap_max_value"`
		SlippageBps  int64         `yaml:"slippage_bps"`
		SwapInterval time.Duration `yaml:"swap_interval"`
		// Accounts are paper wallets credited with stable on first start.
		Accounts map[string]string `yaml:"accounts"`
	} `yaml:"pool"`
	Venue struct {
		Address         string `yaml:"address"`
		FeeBps          int64  `yaml:"fee_bps"`
		StableInventory string `yaml:"stable_inventory"`
		RiskInventory   string `yaml:"risk_inventory"`
	} `yaml:"venue"`
	Strategy struct {
		Kind              string        `yaml:"kind"`
		UpkeepInterval    time.Duration `yaml:"upkeep_interval"`
		TargetPerc        int64         `yaml:"target_perc"`
		BandPerc          int64         `yaml:"band_perc"`
		Period            int           `yaml:"period"`
		InitialMean       string        `yaml:"initial_mean"`
		MinAllocationPerc int64         `yaml:"min_allocation_perc"`
		UpPerc            int64         `yaml:"up_perc"`
		DownPerc          int64         `yaml:"down_perc"`
		TokensToSwapPerc  int64         `yaml:"tokens_to_swap_perc"`
		SeedFromHistory   bool          `yaml:"seed_from_history"`
	} `yaml:"strategy"`
	Oracle struct {
		Source   string `yaml:"source"`
		Price    string `yaml:"price"`
		Decimals uint8  `yaml:"decimals"`
		Symbol   string `yaml:"symbol"`
	} `yaml:"oracle"`
	Schedule struct {
		UpkeepCron string `yaml:"upkeep_cron"`
		ReportCron string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	StateFile string `yaml:"state_file"`
	HTTP      struct {
		Listen    string  `yaml:"listen"`
		RateLimit float64 `yaml:"rate_limit"`
		Burst     int     `yaml:"burst"`
	} `yaml:"http"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Oracle sources.
const (
	SourceStatic = "static"
	SourceYahoo  = "yahoo"
)

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("POOL_OWNER"); v != "" {
		cfg.Pool.Owner = v
	}
	if v := os.Getenv("STRATEGY_KIND"); v != "" {
		cfg.Strategy.Kind = v
	}
	if v := os.Getenv("ORACLE_SOURCE"); v != "" {
		cfg.Oracle.Source = v
	}
	if v := os.Getenv("SLIPPAGE_BPS"); v != "" {
		if bps, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Pool.SlippageBps = bps
		}
	}
	if v := os.Getenv("CRON_UPKEEP"); v != "" {
		cfg.Schedule.UpkeepCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
	if v := os.Getenv("HTTP_LISTEN"); v != "" {
		cfg.HTTP.Listen = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Pool.Address == "" {
		c.Pool.Address = "pool"
	}
	if c.Pool.Owner == "" {
		c.Pool.Owner = "owner"
	}
	if c.Pool.Stable.Symbol == "" {
		c.Pool.Stable = TokenConfig{Symbol: "USDC", Decimals: 6}
	}
	if c.Pool.Risk.Symbol == "" {
		c.Pool.Risk = TokenConfig{Symbol: "WBTC", Decimals: 8}
	}
	if c.Pool.Share.Symbol == "" {
		c.Pool.Share.Symbol = "POOL-LP"
	}
	// Shares are minted 1:1 with the first deposit.
	c.Pool.Share.Decimals = c.Pool.Stable.Decimals
	if c.Pool.SwapMaxValue == "" {
		c.Pool.SwapMaxValue = "1000"
	}
	if c.Pool.SlippageBps == 0 {
		c.Pool.SlippageBps = 50
	}
	if c.Pool.SwapInterval == 0 {
		c.Pool.SwapInterval = 5 * time.Minute
	}
	if c.Venue.Address == "" {
		c.Venue.Address = "venue"
	}
	if c.Strategy.Kind == "" {
		c.Strategy.Kind = strategy.KindRebalancing
	}
	if c.Strategy.TargetPerc == 0 && c.Strategy.Kind == strategy.KindRebalancing {
		c.Strategy.TargetPerc = 60
	}
	if c.Strategy.BandPerc == 0 {
		c.Strategy.BandPerc = 10
	}
	if c.Oracle.Source == "" {
		c.Oracle.Source = SourceStatic
	}
	if c.Oracle.Decimals == 0 {
		c.Oracle.Decimals = 8
	}
	if c.Oracle.Symbol == "" {
		c.Oracle.Symbol = "BTC-USD"
	}
	if c.Schedule.UpkeepCron == "" {
		c.Schedule.UpkeepCron = "0 * * * * *"
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 0 9 * * *"
	}
	if c.StateFile == "" {
		c.StateFile = "data/pool_state.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/pool_keeper.db"
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = ":8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 1
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Pool.Address == c.Pool.Owner || c.Pool.Address == c.Venue.Address {
		return fmt.Errorf("pool.address must differ from the owner and venue")
	}
	if c.Pool.Stable.Symbol == c.Pool.Risk.Symbol {
		return fmt.Errorf("pool.stable and pool.risk must be different tokens")
	}
	if _, err := c.SwapMaxValue(); err != nil {
		return err
	}
	if c.Pool.SlippageBps < 0 || c.Pool.SlippageBps >= calculator.PercPrecision {
		return fmt.Errorf("pool.slippage_bps must be within 0..%d", calculator.PercPrecision-1)
	}
	if c.Pool.FeesPerc < 0 || c.Pool.FeesPerc > calculator.PercPrecision {
		return fmt.Errorf("pool.fees_perc must be within 0..%d", calculator.PercPrecision)
	}
	for acct, amt := range c.Pool.Accounts {
		if _, err := parseHuman(amt); err != nil {
			return fmt.Errorf("pool.accounts.%s: %w", acct, err)
		}
	}
	switch c.Oracle.Source {
	case SourceStatic:
		if _, err := parseHuman(c.Oracle.Price); err != nil {
			return fmt.Errorf("oracle.price: %w", err)
		}
	case SourceYahoo:
		if c.Oracle.Symbol == "" {
			return fmt.Errorf("oracle.symbol is required for the yahoo source")
		}
	default:
		return fmt.Errorf("oracle.source must be %q or %q", SourceStatic, SourceYahoo)
	}
	if c.Strategy.InitialMean != "" {
		if _, err := parseHuman(c.Strategy.InitialMean); err != nil {
			return fmt.Errorf("strategy.initial_mean: %w", err)
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// SwapMaxValue returns the swap cap in stable base units.
func (c *Config) SwapMaxValue() (decimal.Decimal, error) {
	v, err := parseHuman(c.Pool.SwapMaxValue)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pool.swap_max_value: %w", err)
	}
	return calculator.ToUnits(v, c.Pool.Stable.Decimals), nil
}

// StrategyConfig converts the strategy section for strategy.New. The
// initial mean is scaled to the oracle decimals.
func (c *Config) StrategyConfig() strategy.Config {
	var mean decimal.Decimal
	if v, err := parseHuman(c.Strategy.InitialMean); err == nil {
		mean = calculator.ToUnits(v, c.Oracle.Decimals)
	}
	return strategy.Config{
		Kind:              c.Strategy.Kind,
		UpkeepInterval:    c.Strategy.UpkeepInterval,
		TargetPerc:        c.Strategy.TargetPerc,
		BandPerc:          c.Strategy.BandPerc,
		Period:            c.Strategy.Period,
		InitialMean:       mean,
		MinAllocationPerc: c.Strategy.MinAllocationPerc,
		UpPerc:            c.Strategy.UpPerc,
		DownPerc:          c.Strategy.DownPerc,
		TokensToSwapPerc:  c.Strategy.TokensToSwapPerc,
	}
}

// StaticPrice returns the configured static price in oracle base units.
func (c *Config) StaticPrice() decimal.Decimal {
	v, _ := parseHuman(c.Oracle.Price)
	return calculator.ToUnits(v, c.Oracle.Decimals)
}

func parseHuman(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return v, nil
}

// ParseAmount converts a human amount string to base units.
func ParseAmount(s string, decimals uint8) (decimal.Decimal, error) {
	v, err := parseHuman(s)
	if err != nil {
		return decimal.Zero, err
	}
	return calculator.ToUnits(v, decimals), nil
}
