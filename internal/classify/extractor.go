package classify

import "strings"

// Classification is the derived placement of one record: the trimmed level
// values as read, the contiguous depth from the root, and the joined path.
// It is recomputed on every build and never treated as stored state.
type Classification struct {
	Levels []string
	Depth  int
	Path   string
}

// Segments returns the level values that count toward the path, i.e. the
// contiguous non-empty prefix.
func (c Classification) Segments() []string {
	return c.Levels[:c.Depth]
}

// Extractor reads ordered classification attributes off a record's
// attribute map.
type Extractor struct {
	levelKeys []string
	separator string
}

func NewExtractor(schema Schema) *Extractor {
	return &Extractor{levelKeys: schema.LevelKeys, separator: schema.Separator}
}

// Extract computes depth and path for one attribute map. Missing, blank and
// non-string values are all treated as empty; a malformed attribute never
// fails the record. Depth stops at the first empty level even when deeper
// levels hold values: classification is contiguous from the root, so a
// record with [A, B, "", D] lands at depth 2 under A/B and D is ignored.
func (e *Extractor) Extract(attrs map[string]any) Classification {
	levels := make([]string, len(e.levelKeys))
	for i, key := range e.levelKeys {
		levels[i] = stringValue(attrs[key])
	}
	depth := len(levels)
	for i, v := range levels {
		if v == "" {
			depth = i
			break
		}
	}
	return Classification{
		Levels: levels,
		Depth:  depth,
		Path:   strings.Join(levels[:depth], e.separator),
	}
}

// stringValue trims string attributes and flattens everything else,
// nil included, to "".
func stringValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
