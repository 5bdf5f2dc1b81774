package ports

import "context"

// HealthChecker probes one external dependency for the /health endpoint.
type HealthChecker interface {
	// Ping verifies connectivity, returning nil when the dependency is
	// reachable.
	Ping(ctx context.Context) error
	// Name identifies the dependency in the health report ("postgresql",
	// "redis").
	Name() string
}
