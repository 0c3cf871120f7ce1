package matching

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/Ramsey-B/sage/pkg/normalizers"
)

// Scorer computes name similarity on a 0-100 scale
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score implements NameScorer with the token sort ratio
func (s *Scorer) Score(a, b string) float64 {
	return s.TokenSortRatio(a, b)
}

// TokenSortRatio normalizes both names, sorts their tokens and compares the rejoined strings.
// Word order ("Manning Arch" vs "Arch Manning") does not affect the score.
func (s *Scorer) TokenSortRatio(a, b string) float64 {
	return s.Ratio(sortTokens(a), sortTokens(b))
}

// Ratio is the Levenshtein similarity of two strings scaled to 0-100
func (s *Scorer) Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 100
	}
	distance := levenshtein.ComputeDistance(a, b)
	return (1 - float64(distance)/float64(maxLen)) * 100
}

func sortTokens(s string) string {
	tokens := strings.Fields(strings.ToLower(normalizers.CollapseWhitespace(s)))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
