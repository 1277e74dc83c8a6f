package pool

import (
	"encoding/json"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"PoolKeeper/internal/ledger"
	"PoolKeeper/internal/model"
)

// Snapshot is the persisted form of a pool.
type Snapshot struct {
	Ledger         ledger.Snapshot          `json:"ledger"`
	Accounts       map[string]model.Account `json:"accounts"`
	TotalDeposited decimal.Decimal          `json:"total_deposited"`
	TotalWithdrawn decimal.Decimal          `json:"total_withdrawn"`
	Settings       Settings                 `json:"settings"`
	TWAP           model.TWAPState          `json:"twap"`
	Strategy       model.StrategyState      `json:"strategy"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// LoadState reads a pool snapshot from a JSON file. Returns nil if the file doesn't exist.
func LoadState(filePath string) (*Snapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveState writes the pool snapshot to a JSON file.
func SaveState(filePath string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

func (p *Pool) snapshot(now time.Time) *Snapshot {
	accounts := make(map[string]model.Account, len(p.accounts))
	for k, v := range p.accounts {
		accounts[k] = v
	}
	return &Snapshot{
		Ledger:         p.book.Snapshot(),
		Accounts:       accounts,
		TotalDeposited: p.totalDeposited,
		TotalWithdrawn: p.totalWithdrawn,
		Settings:       p.settings,
		TWAP:           p.twap.State(),
		Strategy:       p.strategy.State(),
		UpdatedAt:      now,
	}
}

func (p *Pool) restore(s *Snapshot) {
	p.book.Restore(s.Ledger)
	p.accounts = make(map[string]model.Account, len(s.Accounts))
	for k, v := range s.Accounts {
		p.accounts[k] = v
	}
	p.totalDeposited = s.TotalDeposited
	p.totalWithdrawn = s.TotalWithdrawn
	p.settings = s.Settings
	p.twap.Restore(s.TWAP)
	p.strategy.Restore(s.Strategy)
}

func (p *Pool) save(now time.Time) error {
	if p.cfg.StateFile == "" {
		return nil
	}
	return SaveState(p.cfg.StateFile, p.snapshot(now))
}

// Snapshot returns the current persisted form of the pool.
func (p *Pool) Snapshot() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot(p.now())
}
