package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"PoolKeeper/internal/api"
	"PoolKeeper/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the keeper: scheduled upkeep, HTTP API and Telegram commands",
	Args:  cobra.NoArgs,
	RunE:  runKeeper,
}

func runKeeper(cmd *cobra.Command, args []string) error {
	ctx, stop := interruptible(cmd.Context())
	defer stop()

	logger.Info("PoolKeeper starting...", zap.String("config", cfgPath))
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// A nil *TelegramNotifier must not become a non-nil Sender.
	var sender scheduler.Sender
	if a.notifier != nil {
		sender = a.notifier
	}
	sched := scheduler.NewScheduler(ctx, a.pool, sender, a.recorder, a.units, logger)
	if err := sched.RegisterAll(cfg.Schedule.UpkeepCron, cfg.Schedule.ReportCron); err != nil {
		return err
	}

	server := api.NewServer(a.registry, api.Options{
		Metrics:        a.metrics,
		StableDecimals: cfg.Pool.Stable.Decimals,
		RiskDecimals:   cfg.Pool.Risk.Decimals,
		Limiter:        rate.NewLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.Burst),
		Logger:         logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	sched.Start()
	g.Go(func() error {
		<-gctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.HTTP.Listen)
	})
	if a.notifier != nil {
		g.Go(func() error {
			a.notifier.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
		logger.Info("Telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		g.Go(func() error {
			performed, err := sched.RunUpkeepNow(gctx)
			if err != nil {
				logger.Warn("initial upkeep failed", zap.Error(err))
			} else {
				logger.Info("initial upkeep", zap.Bool("performed", performed))
			}
			return nil
		})
	}

	logger.Info("PoolKeeper is running. Press Ctrl+C to stop.")
	err = g.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("PoolKeeper stopped")
	return nil
}

// interruptible cancels one-shot commands on Ctrl+C.
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
