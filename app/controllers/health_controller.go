package controllers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/shashiranjanraj/bookstore/pkg/ctx"
)

// Pinger is anything whose liveness the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	store    Pinger
	draining atomic.Bool
}

func NewHealthController(store Pinger) *HealthController {
	return &HealthController{store: store}
}

// MarkNotServing makes /health report 503 from now on.
func (h *HealthController) MarkNotServing() { h.draining.Store(true) }

// Show GET /health
func (h *HealthController) Show(c *ctx.Context) {
	if h.draining.Load() {
		c.Error(http.StatusServiceUnavailable, "shutting down")
		return
	}

	pingCtx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(pingCtx); err != nil {
		c.Error(http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	c.Success(map[string]string{"status": "ok"})
}
