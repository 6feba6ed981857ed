package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/logger"
	"github.com/timmy/insights/internal/store"
)

// datasetsEvent is the payload of a "datasets" server-sent event.
type datasetsEvent struct {
	Version  uint64           `json:"version"`
	Op       string           `json:"op"`
	ID       string           `json:"id,omitempty"`
	Datasets []domain.Dataset `json:"datasets"`
}

// latest is a store observer that keeps only the newest undelivered
// event. Store callbacks are serialised, so drain-then-send never blocks.
type latest chan store.Event

func (l latest) OnDatasets(ev store.Event) {
	select {
	case <-l:
	default:
	}
	l <- ev
}

// Events handles GET /api/v1/datasets/events. The current snapshot is
// sent first, then one event per store change. A slow client skips
// intermediate snapshots.
func (h *DatasetHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	ch := make(latest, 1)
	sub := h.store.Subscribe(ch)
	defer sub.Cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	logger.CtxDebug(ctx, "Event stream opened")
	first := datasetsEvent{Version: h.store.Version(), Op: "snapshot", Datasets: h.store.Snapshot()}
	c.SSEvent("datasets", first)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-ch:
			if ev.Version <= first.Version {
				return true
			}
			c.SSEvent("datasets", datasetsEvent{Version: ev.Version, Op: ev.Op, ID: ev.ID, Datasets: ev.Datasets})
			return true
		}
	})
	logger.CtxDebug(ctx, "Event stream closed")
}
