package handler

import (
	"context"
	"net/http"

	"campaignhub/internal/service"
)

// HealthChecker reports dependency health
type HealthChecker interface {
	CheckHealth(ctx context.Context) *service.HealthStatus
}

// HealthHandler handles health check requests
type HealthHandler struct {
	healthService HealthChecker
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(healthService HealthChecker) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// HandleHealth handles GET /health. Degraded still answers 200 because
// synchronous dispatch works without the queue or redis.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthStatus := h.healthService.CheckHealth(r.Context())

	status := http.StatusOK
	if healthStatus.Status == service.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	_ = WriteJSON(w, status, healthStatus)
}
