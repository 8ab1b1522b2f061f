// Package slug canonicalizes region and location identifiers coming from
// vector map assets and the data provider into one lowercase, hyphenated
// key space.
package slug

import (
	"regexp"
	"strings"
)

var (
	regionPrefixRe = regexp.MustCompile(`^(state|usa|us)-`)
	nonRegionRe    = regexp.MustCompile(`[^a-z-]+`)
	nonLocationRe  = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeRegion maps a raw region identifier ("state-TX", "US_FL",
// "TEXAS", "tx") to its canonical slug ("texas"). Leading and trailing
// hyphens are trimmed, so "---" normalizes to "". Tokens of three
// characters or fewer are expanded through the abbreviation table when
// possible.
func NormalizeRegion(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToLower(raw)
	s = strings.ReplaceAll(s, "_", "-")
	s = nonRegionRe.ReplaceAllString(s, "")

	// Stacked prefixes ("state-us-tx") would otherwise survive one pass.
	for {
		stripped := regionPrefixRe.ReplaceAllString(strings.Trim(s, "-"), "")
		if stripped == s {
			break
		}
		s = stripped
	}

	if len(s) <= 3 {
		if full, ok := abbrToState[s]; ok {
			return full
		}
	}
	return s
}

// NormalizeLocation lower-cases a location identifier, collapses every run
// of non-alphanumeric characters to a single hyphen and trims hyphens from
// both ends: "Los Angeles" and "los_angeles" both become "los-angeles".
func NormalizeLocation(raw string) string {
	if raw == "" {
		return ""
	}
	s := nonLocationRe.ReplaceAllString(strings.ToLower(raw), "-")
	return strings.Trim(s, "-")
}

// Abbreviation returns the two-letter postal code for a state slug, or
// the slug itself when it is not a known state.
func Abbreviation(stateSlug string) string {
	if abbr, ok := stateToAbbr[stateSlug]; ok {
		return abbr
	}
	return stateSlug
}

// IsState reports whether the canonical slug is one of the US states or
// the capital district.
func IsState(s string) bool {
	_, ok := stateToAbbr[s]
	return ok
}

// ParseList splits a comma-separated list of region slugs, normalizing
// each entry and dropping empties.
func ParseList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if s := NormalizeRegion(strings.TrimSpace(part)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Titleize turns a slug back into a display name: "los-angeles" becomes
// "Los Angeles".
func Titleize(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
