package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/substationlabs/assetview-backend/internal/platform/envutil"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

const snapshotKey = "assetview:hierarchy:snapshot"

// RebuildEvent is published on the rebuild channel whenever a new hierarchy
// snapshot is stored, so sibling instances can drop their in-memory copy.
type RebuildEvent struct {
	TotalAssets int       `json:"total_assets"`
	BuiltAt     time.Time `json:"built_at"`
}

type SnapshotCache interface {
	GetSnapshot(ctx context.Context) ([]byte, error)
	SetSnapshot(ctx context.Context, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context) error
	PublishRebuilt(ctx context.Context, event RebuildEvent) error
	Close() error
}

type snapshotCache struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewSnapshotCache returns (nil, nil) when REDIS_ADDR is unset: the cache is
// optional and callers treat a nil cache as "caching disabled".
func NewSnapshotCache(log *logger.Logger) (SnapshotCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := envutil.Get("REDIS_ADDR", "")
	if addr == "" {
		return nil, nil
	}
	channel := envutil.Get("REDIS_CHANNEL", "hierarchy.rebuilt")

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.Get("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &snapshotCache{
		log:     log.With("service", "RedisSnapshotCache"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (c *snapshotCache) GetSnapshot(ctx context.Context) ([]byte, error) {
	if c == nil || c.rdb == nil {
		return nil, nil
	}
	raw, err := c.rdb.Get(ctx, snapshotKey).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get snapshot: %w", err)
	}
	return raw, nil
}

func (c *snapshotCache) SetSnapshot(ctx context.Context, payload []byte, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("snapshot cache not initialized")
	}
	if err := c.rdb.Set(ctx, snapshotKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

func (c *snapshotCache) Invalidate(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, snapshotKey).Err(); err != nil {
		return fmt.Errorf("redis del snapshot: %w", err)
	}
	return nil
}

func (c *snapshotCache) PublishRebuilt(ctx context.Context, event RebuildEvent) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, c.channel, raw).Err()
}

func (c *snapshotCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
