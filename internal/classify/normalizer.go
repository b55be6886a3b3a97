package classify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoIdentifierMatch reports that a filename survived the whole rule
// cascade without producing a key. Callers decide whether that means skip
// or surface; a batch scan never aborts on it.
var ErrNoIdentifierMatch = errors.New("no identifier match")

// Rule identifies which cascade rule produced a key.
type Rule int

const (
	RuleNone Rule = iota
	RuleModelSuffix
	RulePanoramaSuffix
	RuleStrictIdentifier
	RuleRelaxedIdentifier
)

func (r Rule) String() string {
	switch r {
	case RuleModelSuffix:
		return "model_suffix"
	case RulePanoramaSuffix:
		return "panorama_suffix"
	case RuleStrictIdentifier:
		return "strict_identifier"
	case RuleRelaxedIdentifier:
		return "relaxed_identifier"
	default:
		return "none"
	}
}

// Match is one successful normalization: the canonical lowercase key plus
// the rule that produced it, kept for diagnostics and for deriving a stored
// file's kind.
type Match struct {
	Key  string
	Rule Rule
}

type ruleFunc func(name string) (string, bool)

type namedRule struct {
	rule Rule
	fn   ruleFunc
}

// Identifier shapes: five hyphen-separated groups (8-4-4-4-12) with an
// optional trailing hyphenated suffix group. Strict is hex only; relaxed
// tolerates alphanumeric groups of the same widths.
var (
	strictIDPattern  = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}(?:-[0-9a-f]+)?$`)
	relaxedIDPattern = regexp.MustCompile(`^(?i)[0-9a-z]{8}-[0-9a-z]{4}-[0-9a-z]{4}-[0-9a-z]{4}-[0-9a-z]{12}(?:-[0-9a-z]+)?$`)
)

// Normalizer resolves arbitrary filenames to canonical lookup keys through
// an ordered rule cascade: model suffix strip, panorama suffix strip,
// strict identifier, relaxed identifier. First success wins. Normalize is
// pure and deterministic, so one Normalizer is safe for concurrent use.
type Normalizer struct {
	rules []namedRule
}

func NewNormalizer(schema Schema) *Normalizer {
	return &Normalizer{rules: []namedRule{
		{RuleModelSuffix, stripSuffixRule(lowerAll(schema.ModelSuffixes))},
		{RulePanoramaSuffix, stripSuffixRule(panoramaSuffixes(schema.PanoramaMarkers, schema.ImageSuffixes))},
		{RuleStrictIdentifier, patternRule(strictIDPattern)},
		{RuleRelaxedIdentifier, patternRule(relaxedIDPattern)},
	}}
}

// Normalize resolves filename to a canonical lowercase key. Filenames that
// match no rule return ErrNoIdentifierMatch.
func (n *Normalizer) Normalize(filename string) (Match, error) {
	name := strings.TrimSpace(filename)
	for _, r := range n.rules {
		if key, ok := r.fn(name); ok {
			return Match{Key: key, Rule: r.rule}, nil
		}
	}
	return Match{}, fmt.Errorf("normalize %q: %w", filename, ErrNoIdentifierMatch)
}

// stripSuffixRule matches filenames carrying one of the given suffixes,
// case-insensitively. The remainder is returned lowercased even when it is
// not identifier-shaped, so historically misnamed files keep resolving; an
// empty remainder disqualifies the suffix.
func stripSuffixRule(suffixes []string) ruleFunc {
	return func(name string) (string, bool) {
		lower := strings.ToLower(name)
		for _, suf := range suffixes {
			if suf == "" || !strings.HasSuffix(lower, suf) {
				continue
			}
			rest := lower[:len(lower)-len(suf)]
			if rest == "" {
				continue
			}
			return rest, true
		}
		return "", false
	}
}

// patternRule matches the whole name against re and returns it lowercased.
func patternRule(re *regexp.Regexp) ruleFunc {
	return func(name string) (string, bool) {
		if name == "" || !re.MatchString(name) {
			return "", false
		}
		return strings.ToLower(name), true
	}
}

// panoramaSuffixes expands marker tokens against image extensions, e.g.
// "_360" x ".jpg" -> "_360.jpg".
func panoramaSuffixes(markers, imageSuffixes []string) []string {
	out := make([]string, 0, len(markers)*len(imageSuffixes))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		for _, ext := range imageSuffixes {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			out = append(out, m+ext)
		}
	}
	return out
}
