package app

import (
	"context"
	"fmt"

	"github.com/substationlabs/assetview-backend/internal/platform/gcs"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
	"github.com/substationlabs/assetview-backend/internal/platform/neo4jdb"
	"github.com/substationlabs/assetview-backend/internal/platform/redis"
)

// Clients holds external infrastructure. Bucket is required; Cache and
// Graph stay nil when their env vars are unset and every consumer
// tolerates that.
type Clients struct {
	Bucket gcs.BucketService
	Cache  redis.SnapshotCache
	Graph  *neo4jdb.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	bucket, err := gcs.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}

	cache, err := redis.NewSnapshotCache(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis snapshot cache: %w", err)
	}

	graph, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return Clients{}, fmt.Errorf("init neo4j client: %w", err)
	}

	return Clients{
		Bucket: bucket,
		Cache:  cache,
		Graph:  graph,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Graph != nil {
		_ = c.Graph.Close(context.Background())
	}
}
