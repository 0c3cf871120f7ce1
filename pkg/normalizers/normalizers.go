// Package normalizers provides the key normalization used for identity matching
package normalizers

import (
	"strings"
	"unicode"
)

// CollapseWhitespace trims the string and reduces every whitespace run to a single space
func CollapseWhitespace(s string) string {
	var result strings.Builder
	prevSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		result.WriteRune(r)
		prevSpace = false
	}
	return result.String()
}

// NameKey is the exact-match key for a full name: lowercase, trimmed, single-spaced.
// Punctuation and suffixes are kept so "Jr." variants stay distinct keys.
func NameKey(s string) string {
	return strings.ToLower(CollapseWhitespace(s))
}

// TeamKey is the case-insensitive key for a team name
func TeamKey(s string) string {
	return strings.ToLower(CollapseWhitespace(s))
}

// Position upper-cases a position abbreviation ("qb" -> "QB")
func Position(s string) string {
	return strings.ToUpper(CollapseWhitespace(s))
}

// SplitName splits a full name into first name and the remainder.
// A single token becomes the first name with an empty last name.
func SplitName(s string) (first, last string) {
	name := CollapseWhitespace(s)
	first, last, _ = strings.Cut(name, " ")
	return first, last
}

// OptionalKey returns a pointer to the team key, or nil when the team is absent or blank
func OptionalKey(team *string) *string {
	if team == nil {
		return nil
	}
	key := TeamKey(*team)
	if key == "" {
		return nil
	}
	return &key
}
