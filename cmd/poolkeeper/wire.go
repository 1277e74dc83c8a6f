package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/config"
	"PoolKeeper/internal/ledger"
	"PoolKeeper/internal/metrics"
	"PoolKeeper/internal/notifier"
	"PoolKeeper/internal/oracle"
	"PoolKeeper/internal/pool"
	"PoolKeeper/internal/recorder"
	"PoolKeeper/internal/registry"
	"PoolKeeper/internal/strategy"
	"PoolKeeper/internal/swap"
)

// app holds the wired components of a keeper process.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	book     *ledger.Book
	feed     oracle.Feed
	venue    *swap.PaperVenue
	pool     *pool.Pool
	registry *registry.Registry
	recorder recorder.Recorder
	metrics  *metrics.Metrics
	notifier *notifier.TelegramNotifier
	units    notifier.Units
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: logger}
	stable, risk, share := cfg.Pool.Stable, cfg.Pool.Risk, cfg.Pool.Share
	a.units = notifier.Units{
		Stable:         stable.Symbol,
		Risk:           risk.Symbol,
		StableDecimals: stable.Decimals,
		RiskDecimals:   risk.Decimals,
	}

	a.book = ledger.NewBook()
	a.book.Register(stable.Symbol, stable.Decimals)
	a.book.Register(risk.Symbol, risk.Decimals)
	a.book.Register(share.Symbol, share.Decimals)

	// Init price feed
	switch cfg.Oracle.Source {
	case config.SourceYahoo:
		a.feed = oracle.NewYahooFeed(cfg.Oracle.Symbol, cfg.Oracle.Decimals, cfg.Proxy)
	default:
		a.feed = oracle.NewStaticFeed(cfg.StaticPrice(), cfg.Oracle.Decimals)
	}
	o := oracle.NewAdapter(a.feed)
	logger.Info("price feed", zap.String("source", cfg.Oracle.Source), zap.Stringer("oracle", o))

	pricing := calculator.Pricing{StableDecimals: stable.Decimals, RiskDecimals: risk.Decimals}
	a.venue = swap.NewPaperVenue(cfg.Venue.Address, stable.Symbol, risk.Symbol, a.book, o, pricing, cfg.Venue.FeeBps)

	strat, err := strategy.New(cfg.StrategyConfig(), o, pricing)
	if err != nil {
		return nil, fmt.Errorf("strategy %q: %w", cfg.Strategy.Kind, err)
	}
	if cfg.Strategy.SeedFromHistory {
		a.seedMovingAverage(ctx, strat)
	}

	// Init recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
			a.recorder = recorder.NewNoopRecorder()
		} else {
			a.recorder = sr
		}
	} else {
		a.recorder = recorder.NewNoopRecorder()
	}

	a.metrics = metrics.NewMetrics("")
	sinks := []pool.EventSink{a.recorder, a.metrics}
	if cfg.TelegramEnabled() {
		a.notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, a.units, logger)
		sinks = append(sinks, a.notifier)
	}

	swapMax, err := cfg.SwapMaxValue()
	if err != nil {
		return nil, err
	}
	a.pool, err = pool.New(pool.Config{
		Address: cfg.Pool.Address,
		Owner:   cfg.Pool.Owner,
		Stable:  stable.Symbol,
		Risk:    risk.Symbol,
		Share:   share.Symbol,
		Settings: pool.Settings{
			SwapMaxValue: swapMax,
			SlippageBps:  cfg.Pool.SlippageBps,
			SwapInterval: cfg.Pool.SwapInterval,
			FeesPerc:     cfg.Pool.FeesPerc,
		},
		StateFile: cfg.StateFile,
	}, pool.Deps{
		Book:     a.book,
		Oracle:   o,
		Executor: a.venue,
		Strategy: strat,
		Logger:   logger,
		Sinks:    sinks,
	})
	if err != nil {
		a.recorder.Close()
		return nil, err
	}
	if !a.pool.Restored() {
		if err := a.seedBalances(); err != nil {
			a.recorder.Close()
			return nil, err
		}
	}

	a.registry = registry.New(cfg.Pool.Owner)
	if err := a.pool.Install(a.registry); err != nil {
		a.recorder.Close()
		return nil, fmt.Errorf("install pool modules: %w", err)
	}
	return a, nil
}

type credit struct {
	token  config.TokenConfig
	holder string
	amount string
}

// seedBalances credits the paper wallets and venue inventory of a fresh pool.
func (a *app) seedBalances() error {
	cfg := a.cfg
	credits := []credit{
		{cfg.Pool.Stable, cfg.Venue.Address, cfg.Venue.StableInventory},
		{cfg.Pool.Risk, cfg.Venue.Address, cfg.Venue.RiskInventory},
	}
	for acct, amt := range cfg.Pool.Accounts {
		credits = append(credits, credit{cfg.Pool.Stable, acct, amt})
	}

	for _, c := range credits {
		if c.amount == "" {
			continue
		}
		v, err := config.ParseAmount(c.amount, c.token.Decimals)
		if err != nil {
			return fmt.Errorf("seed %s for %s: %w", c.token.Symbol, c.holder, err)
		}
		if err := a.book.Credit(c.token.Symbol, c.holder, v); err != nil {
			return fmt.Errorf("seed %s for %s: %w", c.token.Symbol, c.holder, err)
		}
		a.log.Info("seeded balance",
			zap.String("token", c.token.Symbol),
			zap.String("holder", c.holder),
			zap.String("amount", c.amount),
		)
	}
	return nil
}

// seedMovingAverage replaces the configured initial mean with the average
// of recent daily closes when the feed can provide them.
func (a *app) seedMovingAverage(ctx context.Context, strat strategy.Strategy) {
	seeder, ok := strat.(strategy.MovingAverageSeeder)
	if !ok {
		return
	}
	yf, ok := a.feed.(*oracle.YahooFeed)
	if !ok {
		a.log.Warn("seed_from_history needs the yahoo oracle source")
		return
	}
	period := a.cfg.Strategy.Period
	bars, err := yf.DailyCloses(ctx, period)
	if err != nil {
		a.log.Warn("fetch daily closes", zap.Error(err))
		return
	}
	ma, err := calculator.SeedFromBars(bars, a.cfg.Oracle.Decimals, period)
	if err != nil {
		a.log.Warn("seed moving average", zap.Error(err))
		return
	}
	seeder.SeedMovingAverage(ma)
	a.log.Info("moving average seeded", zap.Int("period", period), zap.String("ma", ma.String()))
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.log.Warn("close recorder", zap.Error(err))
	}
}
