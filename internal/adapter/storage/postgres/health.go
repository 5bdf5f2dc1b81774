package postgres

import "context"

// HealthCheck reports PostgreSQL reachability for the /health endpoint.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck wraps the connection pool as a ports.HealthChecker.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping runs a trivial query against the pool.
func (h *HealthCheck) Ping(ctx context.Context) error {
	_, err := h.pool.Exec(ctx, "SELECT 1")
	return err
}

// Name identifies this dependency in the health report.
func (h *HealthCheck) Name() string {
	return "postgresql"
}
