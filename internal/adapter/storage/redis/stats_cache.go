package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nodefoundry-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// StatsCache implements ports.StatsCache using Redis.
// Platform stats aggregate several table scans, so reads are served from a
// short-lived cached snapshot.
type StatsCache struct {
	client *goredis.Client
	key    string
}

// NewStatsCache creates a new Redis-backed stats cache.
func NewStatsCache(client *goredis.Client) *StatsCache {
	return &StatsCache{
		client: client,
		key:    "stats:platform",
	}
}

// Get retrieves the cached stats snapshot.
// Returns nil, nil if no snapshot is cached.
func (c *StatsCache) Get(ctx context.Context) (*domain.PlatformStats, error) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis stats get: %w", err)
	}

	stats := &domain.PlatformStats{}
	if err := json.Unmarshal(val, stats); err != nil {
		return nil, fmt.Errorf("redis stats unmarshal: %w", err)
	}
	return stats, nil
}

// Set stores a stats snapshot with TTL.
func (c *StatsCache) Set(ctx context.Context, stats *domain.PlatformStats, ttl time.Duration) error {
	val, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("redis stats marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis stats set: %w", err)
	}
	return nil
}
