package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"PoolKeeper/internal/model"
	"PoolKeeper/internal/notifier"
	"PoolKeeper/internal/recorder"
)

// Keeper is the pool surface the scheduler drives.
type Keeper interface {
	CheckUpkeep(ctx context.Context, data []byte) (bool, []byte, error)
	PerformUpkeep(ctx context.Context, data []byte) error
	Summary(ctx context.Context) (model.PoolSummary, error)
	TWAPSwaps() model.TWAPState
}

// Sender delivers operator messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Keeper   Keeper
	Notifier Sender
	Recorder recorder.Recorder
	Units    notifier.Units
	Ctx      context.Context

	upkeepMu sync.Mutex
	log      *zap.Logger
}

// NewScheduler creates a new Scheduler. tn may be nil to disable messages.
func NewScheduler(ctx context.Context, k Keeper, tn Sender, rec recorder.Recorder, units notifier.Units, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	logger = logger.Named("scheduler")
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		Keeper:   k,
		Notifier: tn,
		Recorder: rec,
		Units:    units,
		Ctx:      ctx,
		log:      logger,
	}
}

// RegisterAll registers the upkeep and report tasks.
func (s *Scheduler) RegisterAll(upkeepCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(upkeepCron, s.upkeepTask); err != nil {
		return fmt.Errorf("register upkeep task: %w", err)
	}
	if reportCron != "" {
		if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
			return fmt.Errorf("register report task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunUpkeepNow checks the upkeep gate and performs upkeep when it is open.
// It reports whether upkeep was performed.
func (s *Scheduler) RunUpkeepNow(ctx context.Context) (bool, error) {
	s.upkeepMu.Lock()
	defer s.upkeepMu.Unlock()

	needed, data, err := s.Keeper.CheckUpkeep(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("check upkeep: %w", err)
	}
	if !needed {
		return false, nil
	}
	if err := s.Keeper.PerformUpkeep(ctx, data); err != nil {
		return false, fmt.Errorf("perform upkeep: %w", err)
	}
	return true, nil
}

func (s *Scheduler) upkeepTask() {
	performed, err := s.RunUpkeepNow(s.Ctx)
	if err != nil {
		s.log.Error("upkeep failed", zap.Error(err))
		s.trySend(fmt.Sprintf("❌ Upkeep 失败: %v", err))
		return
	}
	if performed {
		twap := s.Keeper.TWAPSwaps()
		s.log.Info("upkeep performed",
			zap.Stringer("status", twap.Status),
			zap.String("sold", twap.Sold.String()),
			zap.String("total", twap.Total.String()),
		)
	}
}

func (s *Scheduler) reportTask() {
	s.log.Info("running report task")
	summary, err := s.Keeper.Summary(s.Ctx)
	if err != nil {
		s.log.Error("pool summary", zap.Error(err))
		s.trySend(fmt.Sprintf("❌ 资金池估值失败: %v", err))
		return
	}
	if err := s.Recorder.RecordSnapshot(s.Ctx, summary); err != nil {
		s.log.Error("record snapshot", zap.Error(err))
	}
	s.trySend(notifier.FormatPoolStatus(summary, s.Units))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	var verb string
	if f := strings.Fields(command); len(f) > 0 {
		verb = f[0]
	}
	switch verb {
	case "查看资金状态", "/status":
		summary, err := s.Keeper.Summary(ctx)
		if err != nil {
			return fmt.Sprintf("❌ 资金池估值失败: %v", err)
		}
		return notifier.FormatPoolStatus(summary, s.Units)
	case "查看交易进度", "/twap":
		return notifier.FormatTWAP(s.Keeper.TWAPSwaps(), s.Units)
	case "执行维护", "/upkeep":
		performed, err := s.RunUpkeepNow(ctx)
		switch {
		case err != nil:
			return fmt.Sprintf("❌ Upkeep 失败: %v", err)
		case !performed:
			return "无需维护"
		}
		return notifier.FormatTWAP(s.Keeper.TWAPSwaps(), s.Units)
	default:
		return "可用命令:\n• /status 查看资金状态\n• /twap 查看交易进度\n• /upkeep 执行维护"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
