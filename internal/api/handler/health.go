package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store DatasetStore
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(s DatasetStore) *HealthHandler {
	return &HealthHandler{store: s}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"datasets": len(h.store.Snapshot()),
		"version":  h.store.Version(),
	})
}
