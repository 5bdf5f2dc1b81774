package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// HealthCheck reports Redis reachability for the /health endpoint.
type HealthCheck struct {
	client *goredis.Client
}

// NewHealthCheck wraps the shared Redis client as a ports.HealthChecker.
func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping issues a Redis PING.
func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

// Name identifies this dependency in the health report.
func (h *HealthCheck) Name() string {
	return "redis"
}
