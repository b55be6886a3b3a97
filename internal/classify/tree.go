package classify

import (
	"sort"
	"strings"
)

// Record is the builder's read-only view of one asset record: a stable
// canonical key, display fields, and the raw classification attribute map.
type Record struct {
	Key         string         `json:"key"`
	DisplayName string         `json:"display_name"`
	Category    string         `json:"category"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// CategoryNode is a synthetic grouping node. Category nodes and record
// leaves live in disjoint identity spaces: node ids carry the "category:"
// prefix, which no normalized record key can contain.
type CategoryNode struct {
	ID         string          `json:"id"`
	Label      string          `json:"label"`
	Level      int             `json:"level"`
	Path       string          `json:"path"`
	AssetCount int             `json:"asset_count"`
	Children   []*CategoryNode `json:"children"`
	Assets     []Record        `json:"assets"`
}

// CategoryID returns the synthetic node id for a category path.
func CategoryID(path string) string { return "category:" + path }

// HierarchyResult is the output of one full build over a record set.
type HierarchyResult struct {
	Roots             []*CategoryNode `json:"roots"`
	Orphans           []Record        `json:"orphans"`
	TotalCount        int             `json:"total_count"`
	MaxDepth          int             `json:"max_depth"`
	LevelDistribution map[int]int     `json:"level_distribution"`
	DistinctPaths     []string        `json:"distinct_paths"`
}

// Builder groups records by classification path and assembles the category
// forest. A Builder holds no per-build state: every Build call works off
// its own node map, so one Builder is safe for concurrent builds over
// independent record sets.
type Builder struct {
	schema    Schema
	extractor *Extractor
}

func NewBuilder(schema Schema) *Builder {
	return &Builder{schema: schema, extractor: NewExtractor(schema)}
}

// Build derives the category forest, orphan set and aggregate counters for
// records. Input order is irrelevant: every slice in the result is sorted.
// Build never fails; zero records yield a well-formed empty result. Every
// record lands in exactly one place, a leaf under its full path or the
// orphan set.
func (b *Builder) Build(records []Record) *HierarchyResult {
	res := &HierarchyResult{
		Roots:             []*CategoryNode{},
		Orphans:           []Record{},
		LevelDistribution: make(map[int]int, len(b.schema.LevelKeys)+1),
		DistinctPaths:     []string{},
	}
	for i := 0; i <= len(b.schema.LevelKeys); i++ {
		res.LevelDistribution[i] = 0
	}

	groups := make(map[string][]Record)
	for _, rec := range records {
		c := b.extractor.Extract(rec.Attributes)
		res.TotalCount++
		res.LevelDistribution[c.Depth]++
		if c.Depth > res.MaxDepth {
			res.MaxDepth = c.Depth
		}
		if c.Path == "" {
			res.Orphans = append(res.Orphans, rec)
			continue
		}
		groups[c.Path] = append(groups[c.Path], rec)
	}

	// nodes is scoped to this build; category identity never outlives it.
	nodes := make(map[string]*CategoryNode)
	for path := range groups {
		segments := strings.Split(path, b.schema.Separator)
		for i := 1; i <= len(segments); i++ {
			prefix := strings.Join(segments[:i], b.schema.Separator)
			if _, ok := nodes[prefix]; !ok {
				nodes[prefix] = &CategoryNode{
					ID:       CategoryID(prefix),
					Label:    segments[i-1],
					Level:    i - 1,
					Path:     prefix,
					Children: []*CategoryNode{},
					Assets:   []Record{},
				}
			}
		}
	}

	for path, recs := range groups {
		node := nodes[path]
		node.Assets = append(node.Assets, recs...)
		node.AssetCount = len(node.Assets)
		res.DistinctPaths = append(res.DistinctPaths, path)
	}

	for _, node := range nodes {
		if node.Level == 0 {
			res.Roots = append(res.Roots, node)
			continue
		}
		parentPath := node.Path[:strings.LastIndex(node.Path, b.schema.Separator)]
		if parent, ok := nodes[parentPath]; ok {
			parent.Children = append(parent.Children, node)
		}
	}

	sortNodes(res.Roots)
	sortRecords(res.Orphans)
	sort.Strings(res.DistinctPaths)
	return res
}

// sortNodes orders siblings case-sensitively by label and each node's
// assets by display name then key, recursively. Sibling labels are unique
// (equal labels would have merged into one path), so the order is total.
func sortNodes(nodes []*CategoryNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Label < nodes[j].Label })
	for _, n := range nodes {
		sortRecords(n.Assets)
		sortNodes(n.Children)
	}
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].DisplayName != recs[j].DisplayName {
			return recs[i].DisplayName < recs[j].DisplayName
		}
		return recs[i].Key < recs[j].Key
	})
}
