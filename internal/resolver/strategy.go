package resolver

import "strings"

// Strategy derives one lookup key from a normalized location slug and
// normalized display name. An empty result means "no key".
type Strategy func(slug, name string) string

// marker is the token assets commonly use to tag city elements.
const marker = "city"

func Identity(slug, _ string) string    { return slug }
func NoHyphens(slug, _ string) string   { return strings.ReplaceAll(slug, "-", "") }
func Underscores(slug, _ string) string { return strings.ReplaceAll(slug, "-", "_") }

func MarkerPrefix(slug, _ string) string {
	if slug == "" {
		return ""
	}
	return marker + "-" + slug
}

func MarkerSuffix(slug, _ string) string {
	if slug == "" {
		return ""
	}
	return slug + "-" + marker
}

func FirstSegment(slug, _ string) string {
	first, _, _ := strings.Cut(slug, "-")
	return first
}

// OnName applies s to the display name instead of the slug.
func OnName(s Strategy) Strategy {
	return func(_, name string) string {
		if name == "" {
			return ""
		}
		return s(name, name)
	}
}

// DefaultStrategies is the probing order used by New.
var DefaultStrategies = []Strategy{
	Identity,
	NoHyphens,
	Underscores,
	MarkerPrefix,
	MarkerSuffix,
	FirstSegment,
	OnName(Identity),
	OnName(NoHyphens),
	OnName(Underscores),
	OnName(MarkerPrefix),
	OnName(MarkerSuffix),
	OnName(FirstSegment),
}

// Keys runs every strategy in order and returns the distinct non-empty
// keys.
func Keys(strategies []Strategy, slug, name string) []string {
	seen := make(map[string]bool, len(strategies))
	keys := make([]string, 0, len(strategies))
	for _, s := range strategies {
		k := s(slug, name)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}
