package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/substationlabs/assetview-backend/internal/classify"
	"github.com/substationlabs/assetview-backend/internal/data/graph"
	"github.com/substationlabs/assetview-backend/internal/data/repos/assets"
	"github.com/substationlabs/assetview-backend/internal/platform/dbctx"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
	"github.com/substationlabs/assetview-backend/internal/platform/neo4jdb"
	"github.com/substationlabs/assetview-backend/internal/platform/redis"
)

// HierarchyStats is the aggregate DTO served by the stats endpoint.
// CircularReferences is always empty: the builder keys nodes by path prefix,
// so cycles cannot be constructed; the field stays for API compatibility.
type HierarchyStats struct {
	TotalAssets        int         `json:"total_assets"`
	TotalCategories    int         `json:"total_categories"`
	OrphanCount        int         `json:"orphan_count"`
	MaxDepth           int         `json:"max_depth"`
	LevelDistribution  map[int]int `json:"level_distribution"`
	DistinctPaths      []string    `json:"distinct_paths"`
	CircularReferences []string    `json:"circular_references"`
	BuiltAt            time.Time   `json:"built_at"`
}

type HierarchyService interface {
	// Get returns the current hierarchy snapshot, building one if none
	// exists. refresh forces a rebuild from the live record set.
	Get(ctx context.Context, refresh bool) (*classify.HierarchyResult, error)
	Stats(ctx context.Context) (*HierarchyStats, error)
	Orphans(ctx context.Context) ([]classify.Record, error)
	// Invalidate drops the cached snapshot after record mutations; the next
	// Get rebuilds.
	Invalidate(ctx context.Context)
}

type hierarchyService struct {
	db         *gorm.DB
	log        *logger.Logger
	schema     classify.Schema
	builder    *classify.Builder
	recordRepo assets.RecordRepo
	cache      redis.SnapshotCache
	neo        *neo4jdb.Client
	cacheTTL   time.Duration

	// mu serializes rebuilds; concurrent refreshes over the same dataset
	// would race the snapshot write and the winner must be the last writer.
	mu sync.Mutex

	snapMu   sync.RWMutex
	snapshot *classify.HierarchyResult
	builtAt  time.Time
}

func NewHierarchyService(
	db *gorm.DB,
	baseLog *logger.Logger,
	schema classify.Schema,
	recordRepo assets.RecordRepo,
	cache redis.SnapshotCache,
	neo *neo4jdb.Client,
	cacheTTL time.Duration,
) HierarchyService {
	serviceLog := baseLog.With("service", "HierarchyService")
	return &hierarchyService{
		db:         db,
		log:        serviceLog,
		schema:     schema,
		builder:    classify.NewBuilder(schema),
		recordRepo: recordRepo,
		cache:      cache,
		neo:        neo,
		cacheTTL:   cacheTTL,
	}
}

func (hs *hierarchyService) Get(ctx context.Context, refresh bool) (*classify.HierarchyResult, error) {
	if !refresh {
		if snap := hs.memorySnapshot(); snap != nil {
			return snap, nil
		}
		if snap := hs.redisSnapshot(ctx); snap != nil {
			hs.storeSnapshot(snap, time.Now())
			return snap, nil
		}
	}
	return hs.rebuild(ctx)
}

func (hs *hierarchyService) Stats(ctx context.Context) (*HierarchyStats, error) {
	result, err := hs.Get(ctx, false)
	if err != nil {
		return nil, err
	}

	hs.snapMu.RLock()
	builtAt := hs.builtAt
	hs.snapMu.RUnlock()

	total := 0
	var walk func(nodes []*classify.CategoryNode)
	walk = func(nodes []*classify.CategoryNode) {
		for _, n := range nodes {
			total++
			walk(n.Children)
		}
	}
	walk(result.Roots)

	return &HierarchyStats{
		TotalAssets:        result.TotalCount,
		TotalCategories:    total,
		OrphanCount:        len(result.Orphans),
		MaxDepth:           result.MaxDepth,
		LevelDistribution:  result.LevelDistribution,
		DistinctPaths:      result.DistinctPaths,
		CircularReferences: []string{},
		BuiltAt:            builtAt,
	}, nil
}

func (hs *hierarchyService) Orphans(ctx context.Context) ([]classify.Record, error) {
	result, err := hs.Get(ctx, false)
	if err != nil {
		return nil, err
	}
	return result.Orphans, nil
}

func (hs *hierarchyService) Invalidate(ctx context.Context) {
	hs.snapMu.Lock()
	hs.snapshot = nil
	hs.builtAt = time.Time{}
	hs.snapMu.Unlock()

	if hs.cache != nil {
		if err := hs.cache.Invalidate(ctx); err != nil {
			hs.log.Warn("snapshot cache invalidate failed", "error", err)
		}
	}
}

// rebuild materializes the full record set, then hands the pure builder an
// already-complete slice; the build itself never touches the database.
func (hs *hierarchyService) rebuild(ctx context.Context) (*classify.HierarchyResult, error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	ctx, span := otel.Tracer("assetview/hierarchy").Start(ctx, "hierarchy.rebuild")
	defer span.End()

	rows, err := hs.recordRepo.GetAll(dbctx.Context{Ctx: ctx})
	if err != nil {
		hs.log.Error("GetAll failed", "error", err)
		return nil, fmt.Errorf("load records: %w", err)
	}

	records := make([]classify.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.ToClassifyRecord(hs.schema.LevelKeys))
	}

	result := hs.builder.Build(records)
	builtAt := time.Now()
	hs.storeSnapshot(result, builtAt)

	span.SetAttributes(
		attribute.Int("hierarchy.total_assets", result.TotalCount),
		attribute.Int("hierarchy.distinct_paths", len(result.DistinctPaths)),
		attribute.Int("hierarchy.orphans", len(result.Orphans)),
	)

	hs.log.Info("hierarchy rebuilt",
		"total_assets", result.TotalCount,
		"distinct_paths", len(result.DistinctPaths),
		"orphans", len(result.Orphans),
		"max_depth", result.MaxDepth,
	)

	if hs.cache != nil {
		if raw, err := json.Marshal(result); err != nil {
			hs.log.Warn("snapshot marshal failed", "error", err)
		} else if err := hs.cache.SetSnapshot(ctx, raw, hs.cacheTTL); err != nil {
			hs.log.Warn("snapshot cache write failed", "error", err)
		} else if err := hs.cache.PublishRebuilt(ctx, redis.RebuildEvent{
			TotalAssets: result.TotalCount,
			BuiltAt:     builtAt,
		}); err != nil {
			hs.log.Warn("rebuild publish failed", "error", err)
		}
	}

	// Graph mirroring is best-effort: a neo4j outage must not fail reads.
	if hs.neo != nil {
		if err := graph.UpsertHierarchyGraph(ctx, hs.neo, hs.log, result); err != nil {
			hs.log.Warn("hierarchy graph mirror failed", "error", err)
		}
	}

	return result, nil
}

func (hs *hierarchyService) memorySnapshot() *classify.HierarchyResult {
	hs.snapMu.RLock()
	defer hs.snapMu.RUnlock()
	return hs.snapshot
}

func (hs *hierarchyService) redisSnapshot(ctx context.Context) *classify.HierarchyResult {
	if hs.cache == nil {
		return nil
	}
	raw, err := hs.cache.GetSnapshot(ctx)
	if err != nil {
		hs.log.Warn("snapshot cache read failed", "error", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	var result classify.HierarchyResult
	if err := json.Unmarshal(raw, &result); err != nil {
		hs.log.Warn("snapshot cache payload invalid", "error", err)
		return nil
	}
	return &result
}

func (hs *hierarchyService) storeSnapshot(result *classify.HierarchyResult, builtAt time.Time) {
	hs.snapMu.Lock()
	hs.snapshot = result
	hs.builtAt = builtAt
	hs.snapMu.Unlock()
}
