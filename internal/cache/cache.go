// Package cache wipes the read-side response cache after an ingestion run,
// so the API layer serves fresh aggregates. Only invalidate-all is
// supported; there is no partial invalidation.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPattern matches every cached response entry.
const keyPattern = "cache:*"

// scanCount is the per-iteration SCAN batch size.
const scanCount = 500

// Invalidator removes cached entries from Redis.
type Invalidator struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewInvalidator creates an invalidator over an existing Redis client.
func NewInvalidator(rdb *redis.Client, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{rdb: rdb, logger: logger}
}

// InvalidateAll unlinks every cache entry. Unlink is used over Del so
// reclamation happens off the Redis main thread.
func (i *Invalidator) InvalidateAll(ctx context.Context) error {
	start := time.Now()

	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := i.rdb.Scan(ctx, cursor, keyPattern, scanCount).Result()
		if err != nil {
			return fmt.Errorf("scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			if err := i.rdb.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("unlink cache keys: %w", err)
			}
			removed += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	i.logger.Info("cache invalidated",
		"keys", removed,
		"duration", time.Since(start),
	)
	return nil
}
