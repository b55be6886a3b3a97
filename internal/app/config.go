package app

import (
	"time"

	"github.com/substationlabs/assetview-backend/internal/platform/envutil"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	// HierarchyCacheTTL bounds how stale a cached hierarchy snapshot may
	// get before a Get rebuilds it even without an invalidation.
	HierarchyCacheTTL    time.Duration
	MaxConcurrentUploads int
	ImportHistoryLimit   int
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:                 envutil.Get("PORT", "8080"),
		Environment:          envutil.Get("APP_ENV", "development"),
		Version:              envutil.Get("APP_VERSION", "dev"),
		HierarchyCacheTTL:    envutil.Duration("HIERARCHY_CACHE_TTL", 5*time.Minute),
		MaxConcurrentUploads: envutil.Int("MAX_CONCURRENT_UPLOADS", 4),
		ImportHistoryLimit:   envutil.Int("IMPORT_HISTORY_LIMIT", 20),
	}
	log.Info("Configuration loaded",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"hierarchy_cache_ttl", cfg.HierarchyCacheTTL,
		"max_concurrent_uploads", cfg.MaxConcurrentUploads,
	)
	return cfg
}
