package repository

import (
	"context"
	"time"

	"github.com/timmy/insights/internal/logger"
	"github.com/timmy/insights/internal/store"
)

// Mirror writes store events to the database from its own goroutine.
// Only the newest pending event is kept; older ones are superseded
// because every event carries the full sequence.
type Mirror struct {
	repo    *DatasetRepository
	pending chan store.Event
	written chan uint64 // optional, receives each persisted version
}

// NewMirror creates a mirror for repo. Subscribe it to a store and call Run.
func NewMirror(repo *DatasetRepository) *Mirror {
	return &Mirror{repo: repo, pending: make(chan store.Event, 1)}
}

// OnDatasets never blocks the store.
func (m *Mirror) OnDatasets(ev store.Event) {
	for {
		select {
		case m.pending <- ev:
			return
		default:
		}
		select {
		case <-m.pending:
		default:
		}
	}
}

// Run persists events until ctx ends, then flushes the last pending one.
func (m *Mirror) Run(ctx context.Context) error {
	ctx = logger.SetComponent(ctx, "mirror")
	for {
		select {
		case ev := <-m.pending:
			m.write(ctx, ev)
		case <-ctx.Done():
			select {
			case ev := <-m.pending:
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				m.write(flushCtx, ev)
				cancel()
			default:
			}
			return nil
		}
	}
}

func (m *Mirror) write(ctx context.Context, ev store.Event) {
	start := time.Now()
	if err := m.repo.ReplaceAll(ctx, ev.Datasets); err != nil {
		logger.FromContext(ctx).WithError(err).
			WithField(logger.FieldVersion, ev.Version).
			Error("Failed to mirror datasets")
		return
	}
	logger.With(logger.Fields{logger.FieldVersion: ev.Version}).
		WithCount(len(ev.Datasets)).
		WithDuration(start).
		Debug(ctx, "Datasets mirrored")
	if m.written != nil {
		m.written <- ev.Version
	}
}
