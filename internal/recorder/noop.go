package recorder

import (
	"context"

	"PoolKeeper/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvent(context.Context, model.Event) error          { return nil }
func (n *NoopRecorder) RecordSnapshot(context.Context, model.PoolSummary) error { return nil }
func (n *NoopRecorder) HandleEvent(context.Context, model.Event) error          { return nil }
func (n *NoopRecorder) Close() error                                            { return nil }

func (n *NoopRecorder) RecentEvents(context.Context, int) ([]model.Event, error) {
	return nil, nil
}
