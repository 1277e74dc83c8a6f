package recorder

import (
	"context"

	"PoolKeeper/internal/model"
)

// Recorder persists pool history for analysis.
type Recorder interface {
	RecordEvent(ctx context.Context, ev model.Event) error
	RecordSnapshot(ctx context.Context, s model.PoolSummary) error
	RecentEvents(ctx context.Context, limit int) ([]model.Event, error)
	// HandleEvent lets a recorder subscribe to pool events.
	HandleEvent(ctx context.Context, ev model.Event) error
	Close() error
}
