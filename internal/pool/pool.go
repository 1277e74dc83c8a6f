// Package pool implements the investment pool: share accounting, the upkeep
// gate and the owner admin surface.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"PoolKeeper/internal/calculator"
	"PoolKeeper/internal/ledger"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/oracle"
	"PoolKeeper/internal/strategy"
	"PoolKeeper/internal/swap"
	"PoolKeeper/internal/twap"
)

// DefaultFeesPerc is a 1% performance fee in PercPrecision units.
const DefaultFeesPerc = 100

// Settings are the owner-adjustable parameters.
type Settings struct {
	SwapMaxValue decimal.Decimal `json:"swap_max_value"`
	SlippageBps  int64           `json:"slippage_bps"`
	SwapInterval time.Duration   `json:"swap_interval"`
	FeesPerc     int64           `json:"fees_perc"`
}

// Config identifies the pool and its tokens in the ledger.
type Config struct {
	Address   string
	Owner     string
	Stable    string
	Risk      string
	Share     string
	Settings  Settings
	StateFile string
}

// EventSink receives the events of every successful call, in order.
type EventSink interface {
	HandleEvent(ctx context.Context, ev model.Event) error
}

// Deps are the collaborators of a pool.
type Deps struct {
	Book     *ledger.Book
	Oracle   oracle.Oracle
	Executor swap.Executor
	Strategy strategy.Strategy
	Logger   *zap.Logger
	Sinks    []EventSink
	Now      func() time.Time
}

// Pool is a two-asset investment pool. Every mutating call is serialized
// and either fully applied or fully rolled back.
type Pool struct {
	mu sync.Mutex

	cfg      Config
	settings Settings
	pricing  calculator.Pricing

	book     *ledger.Book
	oracle   oracle.Oracle
	executor swap.Executor
	strategy strategy.Strategy
	twap     *twap.Engine

	accounts       map[string]model.Account
	totalDeposited decimal.Decimal
	totalWithdrawn decimal.Decimal

	pending  []model.Event
	sinks    []EventSink
	log      *zap.Logger
	now      func() time.Time
	restored bool
}

// New creates a pool, restoring it from cfg.StateFile when one exists.
func New(cfg Config, deps Deps) (*Pool, error) {
	if cfg.Address == "" || cfg.Owner == "" {
		return nil, fmt.Errorf("pool: address and owner are required")
	}
	if deps.Book == nil || deps.Oracle == nil || deps.Executor == nil || deps.Strategy == nil {
		return nil, fmt.Errorf("pool: book, oracle, executor and strategy are required")
	}
	stableDec, err := deps.Book.Decimals(cfg.Stable)
	if err != nil {
		return nil, fmt.Errorf("pool: stable token: %w", err)
	}
	riskDec, err := deps.Book.Decimals(cfg.Risk)
	if err != nil {
		return nil, fmt.Errorf("pool: risk token: %w", err)
	}
	if _, err := deps.Book.Decimals(cfg.Share); err != nil {
		return nil, fmt.Errorf("pool: share token: %w", err)
	}
	if err := deps.Book.SetMinter(cfg.Share, cfg.Address); err != nil {
		return nil, fmt.Errorf("pool: share minter: %w", err)
	}

	settings := cfg.Settings
	if settings.FeesPerc == 0 {
		settings.FeesPerc = DefaultFeesPerc
	}
	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	pricing := calculator.Pricing{StableDecimals: stableDec, RiskDecimals: riskDec}
	p := &Pool{
		cfg:            cfg,
		settings:       settings,
		pricing:        pricing,
		book:           deps.Book,
		oracle:         deps.Oracle,
		executor:       deps.Executor,
		strategy:       deps.Strategy,
		twap:           twap.New(deps.Executor, deps.Oracle, pricing, cfg.Stable, cfg.Risk, cfg.Address),
		accounts:       make(map[string]model.Account),
		totalDeposited: decimal.Zero,
		totalWithdrawn: decimal.Zero,
		sinks:          deps.Sinks,
		log:            logger.Named("pool"),
		now:            now,
	}

	if cfg.StateFile != "" {
		snap, err := LoadState(cfg.StateFile)
		if err != nil {
			return nil, fmt.Errorf("pool: load state: %w", err)
		}
		if snap != nil {
			p.restore(snap)
			p.restored = true
			p.log.Info("state restored", zap.String("file", cfg.StateFile), zap.Time("updated_at", snap.UpdatedAt))
		}
	}
	return p, nil
}

// Restored reports whether the pool was loaded from its state file.
func (p *Pool) Restored() bool { return p.restored }

// Owner returns the admin address.
func (p *Pool) Owner() string { return p.cfg.Owner }

// Address returns the pool's own holder address.
func (p *Pool) Address() string { return p.cfg.Address }

// Tokens returns the stable, risk and share token symbols.
func (p *Pool) Tokens() (stable, risk, share string) {
	return p.cfg.Stable, p.cfg.Risk, p.cfg.Share
}

// Pricing returns the decimals used for valuation.
func (p *Pool) Pricing() calculator.Pricing { return p.pricing }

// AddSink registers an additional event sink.
func (p *Pool) AddSink(s EventSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
}

type checkpoint struct {
	book           *ledger.Journal
	accounts       map[string]model.Account
	totalDeposited decimal.Decimal
	totalWithdrawn decimal.Decimal
	settings       Settings
	twap           model.TWAPState
	strategy       model.StrategyState
	events         int
}

func (p *Pool) checkpoint() checkpoint {
	accounts := make(map[string]model.Account, len(p.accounts))
	for k, v := range p.accounts {
		accounts[k] = v
	}
	return checkpoint{
		book:           p.book.Begin(p.cfg.Address),
		accounts:       accounts,
		totalDeposited: p.totalDeposited,
		totalWithdrawn: p.totalWithdrawn,
		settings:       p.settings,
		twap:           p.twap.State(),
		strategy:       p.strategy.State(),
		events:         len(p.pending),
	}
}

// commit keeps everything done since cp.
func (p *Pool) commit(cp checkpoint) {
	p.book.Commit(cp.book)
}

// rollback undoes everything done since cp. Only ledger changes that involve
// the pool are undone; other users of a shared book are left alone.
func (p *Pool) rollback(cp checkpoint) {
	p.book.Revert(cp.book)
	p.accounts = cp.accounts
	p.totalDeposited = cp.totalDeposited
	p.totalWithdrawn = cp.totalWithdrawn
	p.settings = cp.settings
	p.twap.Restore(cp.twap)
	p.strategy.Restore(cp.strategy)
	p.strategy.SetUpkeepInterval(cp.strategy.UpkeepInterval)
	p.pending = p.pending[:cp.events]
}

// run executes fn under the pool lock as one all-or-nothing call. Events
// emitted by fn are published after the lock is released, only on success.
func (p *Pool) run(ctx context.Context, op string, fn func(now time.Time) error) error {
	p.mu.Lock()
	now := p.now()
	cp := p.checkpoint()
	if err := fn(now); err != nil {
		p.rollback(cp)
		p.mu.Unlock()
		p.log.Debug("call reverted", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	p.commit(cp)
	events := p.pending
	p.pending = nil
	if len(events) > 0 {
		if err := p.save(now); err != nil {
			p.log.Error("failed to save pool state", zap.String("op", op), zap.Error(err))
		}
	}
	p.mu.Unlock()

	p.publish(ctx, events)
	return nil
}

func (p *Pool) emit(ev model.Event) {
	p.pending = append(p.pending, ev)
}

func (p *Pool) publish(ctx context.Context, events []model.Event) {
	if len(events) == 0 {
		return
	}
	p.mu.Lock()
	sinks := append([]EventSink(nil), p.sinks...)
	p.mu.Unlock()
	for _, ev := range events {
		p.log.Info("event",
			zap.String("type", string(ev.Type)),
			zap.String("account", ev.Account),
			zap.Stringer("side", ev.Side),
			zap.String("amount", ev.Amount.String()),
			zap.String("reason", ev.Reason),
		)
		for _, s := range sinks {
			if err := s.HandleEvent(ctx, ev); err != nil {
				p.log.Warn("event sink failed", zap.String("type", string(ev.Type)), zap.Error(err))
			}
		}
	}
}

func (p *Pool) requireOwner(caller string) error {
	if caller != p.cfg.Owner {
		return model.NewError(model.KindAuthorization, model.CodeOnlyOwner, "%s is not the owner", caller)
	}
	return nil
}
