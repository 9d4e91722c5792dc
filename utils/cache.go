// File: utils/cache.go
package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medibook/config"
	"medibook/models"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient connects to the configured Redis server on the given DB and pings it.
func NewRedisClient(ctx context.Context, cfg config.Config, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (db %d): %w", db, err)
	}
	return client, nil
}

// AvailabilityCache is a short-lived cache for availability windows, filled by readers and
// refreshed by writers after each commit. Entries are hashes holding the window version
// and its JSON. Transactions never read from it; it only serves GetDoctorAvailability.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAvailabilityCache returns nil when client is nil; a nil cache is a no-op.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultAvailabilityCacheTTL
	}
	return &AvailabilityCache{client: client, ttl: ttl}
}

func availabilityCacheKey(doctorID, date string) string {
	return AvailabilityCachePrefix + doctorID + ":" + date
}

// setIfNewer stores a window unless the cached copy carries a higher version, so a
// reader that loaded a window before a commit cannot overwrite the writer's refresh.
// KEYS[1] = entry, ARGV = version, encoded window, ttl in milliseconds.
var setIfNewer = redis.NewScript(`
local cached = redis.call("HGET", KEYS[1], "version")
if cached and tonumber(cached) > tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "version", ARGV[1], "window", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`)

// Get returns (nil, nil) on a cache miss.
func (c *AvailabilityCache) Get(ctx context.Context, doctorID, date string) (*models.AvailabilityWindow, error) {
	if c == nil {
		return nil, nil
	}
	raw, err := c.client.HGet(ctx, availabilityCacheKey(doctorID, date), "window").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("availability cache get: %w", err)
	}
	var w models.AvailabilityWindow
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("availability cache decode: %w", err)
	}
	return &w, nil
}

// Set caches w unless a newer version is already cached. It reports whether w was stored.
func (c *AvailabilityCache) Set(ctx context.Context, w models.AvailabilityWindow) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return false, fmt.Errorf("availability cache encode: %w", err)
	}
	stored, err := setIfNewer.Run(ctx, c.client,
		[]string{availabilityCacheKey(w.DoctorID, w.Date)},
		w.Version, raw, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("availability cache set: %w", err)
	}
	return stored == 1, nil
}

// Invalidate drops cached windows; writers fall back to it when a refresh fails.
func (c *AvailabilityCache) Invalidate(ctx context.Context, doctorID string, dates ...string) error {
	if c == nil || len(dates) == 0 {
		return nil
	}
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = availabilityCacheKey(doctorID, d)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("availability cache invalidate: %w", err)
	}
	return nil
}

// Ping reports cache connectivity for the health monitor.
func (c *AvailabilityCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
