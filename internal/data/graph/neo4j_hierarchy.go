package graph

import (
	"context"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/substationlabs/assetview-backend/internal/classify"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
	"github.com/substationlabs/assetview-backend/internal/platform/neo4jdb"
)

// UpsertHierarchyGraph mirrors a built hierarchy into neo4j: one Category
// node per tree node, HAS_CHILD edges between parent and child categories,
// and HAS_ASSET edges from leaf categories to the Asset nodes filed under
// them. Categories and assets absent from this build are detached-deleted,
// so the graph always reflects the latest rebuild.
func UpsertHierarchyGraph(
	ctx context.Context,
	client *neo4jdb.Client,
	log *logger.Logger,
	result *classify.HierarchyResult,
) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if result == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	categoryRows := make([]map[string]any, 0, len(result.DistinctPaths))
	childRels := make([]map[string]any, 0, len(result.DistinctPaths))
	assetRows := make([]map[string]any, 0, result.TotalCount)
	assetRels := make([]map[string]any, 0, result.TotalCount)

	var walk func(node *classify.CategoryNode, parentID string)
	walk = func(node *classify.CategoryNode, parentID string) {
		if node == nil || strings.TrimSpace(node.ID) == "" {
			return
		}
		categoryRows = append(categoryRows, map[string]any{
			"id":          node.ID,
			"label":       node.Label,
			"level":       int64(node.Level),
			"path":        node.Path,
			"asset_count": int64(node.AssetCount),
			"synced_at":   now,
		})
		if parentID != "" {
			childRels = append(childRels, map[string]any{
				"parent_id": parentID,
				"child_id":  node.ID,
				"synced_at": now,
			})
		}
		for _, rec := range node.Assets {
			if strings.TrimSpace(rec.Key) == "" {
				continue
			}
			assetRows = append(assetRows, map[string]any{
				"key":          rec.Key,
				"display_name": rec.DisplayName,
				"category":     rec.Category,
				"synced_at":    now,
			})
			assetRels = append(assetRels, map[string]any{
				"category_id": node.ID,
				"asset_key":   rec.Key,
				"synced_at":   now,
			})
		}
		for _, child := range node.Children {
			walk(child, node.ID)
		}
	}
	for _, root := range result.Roots {
		walk(root, "")
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Best-effort schema init.
	{
		stmts := []string{
			`CREATE CONSTRAINT category_id_unique IF NOT EXISTS FOR (c:Category) REQUIRE c.id IS UNIQUE`,
			`CREATE CONSTRAINT asset_key_unique IF NOT EXISTS FOR (a:Asset) REQUIRE a.key IS UNIQUE`,
		}
		for _, q := range stmts {
			if res, err := session.Run(ctx, q, nil); err != nil {
				if log != nil {
					log.Warn("neo4j schema init failed (continuing)", "error", err)
				}
			} else {
				_, _ = res.Consume(ctx)
			}
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(categoryRows) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rows AS c
MERGE (cn:Category {id: c.id})
SET cn += c
`, map[string]any{"rows": categoryRows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(childRels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (p:Category {id: r.parent_id})
MATCH (c:Category {id: r.child_id})
MERGE (p)-[e:HAS_CHILD]->(c)
SET e.synced_at = r.synced_at
`, map[string]any{"rels": childRels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(assetRows) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rows AS a
MERGE (an:Asset {key: a.key})
SET an += a
`, map[string]any{"rows": assetRows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(assetRels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (c:Category {id: r.category_id})
MATCH (a:Asset {key: r.asset_key})
MERGE (c)-[e:HAS_ASSET]->(a)
SET e.synced_at = r.synced_at
`, map[string]any{"rels": assetRels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		// Drop whatever the latest build no longer produces.
		for _, q := range []string{
			`MATCH (c:Category) WHERE c.synced_at IS NULL OR c.synced_at <> $synced_at DETACH DELETE c`,
			`MATCH (a:Asset) WHERE a.synced_at IS NULL OR a.synced_at <> $synced_at DETACH DELETE a`,
		} {
			res, err := tx.Run(ctx, q, map[string]any{"synced_at": now})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})

	return err
}
