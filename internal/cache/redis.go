package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cricketfancy/settlement/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisCache holds timeline snapshots for a few seconds so sibling session
// pollers of the same event share one upstream fetch. Losing redis never
// breaks resolution; callers fall back to direct fetches.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Config holds redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.TTL).Msg("Redis snapshot cache connected")

	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

func snapshotKey(eventID int64) string {
	return fmt.Sprintf("timeline:%d", eventID)
}

// GetSnapshot returns a cached snapshot, or false on miss or any error.
func (c *RedisCache) GetSnapshot(ctx context.Context, eventID int64) (*models.TimelineSnapshot, bool) {
	raw, err := c.client.Get(ctx, snapshotKey(eventID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Int64("event_id", eventID).Msg("Snapshot cache read failed")
		}
		return nil, false
	}

	var snap models.TimelineSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		log.Warn().Err(err).Int64("event_id", eventID).Msg("Snapshot cache entry corrupt")
		return nil, false
	}
	return &snap, true
}

// PutSnapshot stores a snapshot with the configured TTL. Errors are logged
// and swallowed.
func (c *RedisCache) PutSnapshot(ctx context.Context, eventID int64, snap *models.TimelineSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		log.Warn().Err(err).Int64("event_id", eventID).Msg("Failed to marshal snapshot for cache")
		return
	}

	if err := c.client.Set(ctx, snapshotKey(eventID), raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Int64("event_id", eventID).Msg("Snapshot cache write failed")
	}
}

// Close closes the redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
