package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"PoolKeeper/internal/model"
)

// SQLiteRecorder persists pool history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the keeper writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger.Named("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pool_events (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			type         TEXT NOT NULL,
			account      TEXT,
			side         TEXT,
			sold         TEXT,
			bought       TEXT,
			amount       TEXT,
			shares       TEXT,
			fee          TEXT,
			slippage_bps TEXT,
			reason       TEXT,
			note         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON pool_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON pool_events(type)`,

		`CREATE TABLE IF NOT EXISTS pool_snapshots (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			price          TEXT,
			stable_balance TEXT,
			risk_balance   TEXT,
			risk_value     TEXT,
			total_value    TEXT,
			total_shares   TEXT,
			fees_accrued   TEXT,
			twap_status    TEXT,
			twap_sold      TEXT,
			twap_total     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON pool_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordEvent(ctx context.Context, ev model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO pool_events
		(id, timestamp, type, account, side, sold, bought, amount, shares, fee, slippage_bps, reason, note)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ev.ID.String(), ev.Time.UnixMilli(), string(ev.Type), ev.Account, ev.Side.String(),
		ev.Sold.String(), ev.Bought.String(), ev.Amount.String(), ev.Shares.String(),
		ev.Fee.String(), ev.SlippageBps.String(), ev.Reason, ev.Note,
	)
	return err
}

func (r *SQLiteRecorder) HandleEvent(ctx context.Context, ev model.Event) error {
	return r.RecordEvent(ctx, ev)
}

func (r *SQLiteRecorder) RecordSnapshot(ctx context.Context, s model.PoolSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO pool_snapshots
		(timestamp, price, stable_balance, risk_balance, risk_value, total_value,
		 total_shares, fees_accrued, twap_status, twap_sold, twap_total)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().UnixMilli(), s.Price.Price.String(),
		s.StableBalance.String(), s.RiskBalance.String(), s.RiskValue.String(), s.TotalValue.String(),
		s.TotalShares.String(), s.FeesAccrued.String(),
		s.TWAP.Status.String(), s.TWAP.Sold.String(), s.TWAP.Total.String(),
	)
	return err
}

// RecentEvents returns up to limit events, newest first.
func (r *SQLiteRecorder) RecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, timestamp, type, account, side, sold, bought,
		amount, shares, fee, slippage_bps, reason, note
		FROM pool_events ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			id, typ, account, side, reason, note      string
			ts                                        int64
			sold, bought, amount, shares, fee, slipps string
		)
		if err := rows.Scan(&id, &ts, &typ, &account, &side, &sold, &bought,
			&amount, &shares, &fee, &slipps, &reason, &note); err != nil {
			return nil, err
		}
		ev := model.Event{
			Type:    model.EventType(typ),
			Time:    time.UnixMilli(ts),
			Account: account,
			Reason:  reason,
			Note:    note,
		}
		if ev.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("event id %q: %w", id, err)
		}
		_ = ev.Side.UnmarshalText([]byte(side))
		ev.Sold = parseDecimal(sold)
		ev.Bought = parseDecimal(bought)
		ev.Amount = parseDecimal(amount)
		ev.Shares = parseDecimal(shares)
		ev.Fee = parseDecimal(fee)
		ev.SlippageBps = parseDecimal(slipps)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
