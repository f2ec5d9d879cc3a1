package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
)

// Health status constants
const (
	StatusHealthy      = "healthy"
	StatusDegraded     = "degraded"
	StatusUnhealthy    = "unhealthy"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
)

const healthCheckTimeout = 2 * time.Second

// HealthStatus represents the overall health status of the application
type HealthStatus struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
}

// QueueProbe reports whether the broker connection is up
type QueueProbe interface {
	IsConnected() bool
}

// HealthChecker handles health check operations
type HealthChecker struct {
	db      *sql.DB
	queue   QueueProbe
	redis   *redis.Client
	version string
}

// NewHealthService creates a new HealthChecker. queue and redisClient may
// be nil when those dependencies are not in use.
func NewHealthService(db *sql.DB, queue QueueProbe, redisClient *redis.Client, version string) *HealthChecker {
	return &HealthChecker{
		db:      db,
		queue:   queue,
		redis:   redisClient,
		version: version,
	}
}

// checkDatabase verifies PostgreSQL connectivity with a timeout
func (h *HealthChecker) checkDatabase(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

func (h *HealthChecker) checkQueue() string {
	if h.queue == nil {
		return StatusDisabled
	}
	if !h.queue.IsConnected() {
		return StatusDisconnected
	}
	return StatusConnected
}

func (h *HealthChecker) checkRedis(ctx context.Context) string {
	if h.redis == nil {
		return StatusDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := h.redis.Ping(ctx).Err(); err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

// determineOverallStatus calculates the overall health status based on service statuses
func (h *HealthChecker) determineOverallStatus(services map[string]string) string {
	// Without the database nothing can be dispatched
	if services["database"] == StatusDisconnected {
		return StatusUnhealthy
	}

	// Synchronous dispatch still works without the queue or redis
	if services["queue"] == StatusDisconnected || services["redis"] == StatusDisconnected {
		return StatusDegraded
	}

	return StatusHealthy
}

// CheckHealth performs health checks on all dependencies and returns the overall status
func (h *HealthChecker) CheckHealth(ctx context.Context) *HealthStatus {
	services := map[string]string{
		"database": h.checkDatabase(ctx),
		"queue":    h.checkQueue(),
		"redis":    h.checkRedis(ctx),
	}

	return &HealthStatus{
		Status:    h.determineOverallStatus(services),
		Services:  services,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
}
