package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradsmart-api/internal/service"
	"github.com/noah-isme/gradsmart-api/pkg/database"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      pinger
	caps    database.Capabilities
}

// NewMetricsHandler constructs a metrics handler. db may be nil.
func NewMetricsHandler(metrics *service.MetricsService, db pinger, caps database.Capabilities) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, caps: caps}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health reports database reachability and which optional tables are active.
func (h *MetricsHandler) Health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status": status,
		"capabilities": gin.H{
			"classwork":     h.caps.Classwork,
			"submissions":   h.caps.Submissions,
			"gradebook":     h.caps.Gradebook,
			"instructors":   h.caps.Instructors,
			"notifications": h.caps.Notifications,
		},
	})
}
