// Package similarity scores how close two free-text answers are on a
// [0,1] scale. Semantic matches (synonyms, shared category) are ranked
// above shallow character similarity so that coincidental string
// overlap between unrelated words cannot outscore a real match.
package similarity

import (
	"strings"
)

// Score tiers, first match wins.
const (
	scoreExact       = 1.0
	scoreSynonym     = 0.8
	scoreCategory    = 0.5
	scoreContainment = 0.3

	// Edit distance only applies to short words, and the ratio is
	// scaled down so it always lands below the synonym tiers.
	editDistanceMaxLen   = 8
	editDistanceMinRatio = 0.6
	editDistanceScale    = 0.4
)

// Score returns the closeness of two answers in [0,1]. It is symmetric
// and returns 0 when either side normalizes to empty.
func Score(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return scoreExact
	}
	if isSynonym(a, b) {
		return scoreSynonym
	}
	if ca, cb := FindCategory(a), FindCategory(b); ca != "" && ca == cb {
		return scoreCategory
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return scoreContainment
	}
	return editDistanceScore(a, b)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func editDistanceScore(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > editDistanceMaxLen || len(rb) > editDistanceMaxLen {
		return 0
	}
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	ratio := float64(maxLen-levenshtein(ra, rb)) / float64(maxLen)
	if ratio <= editDistanceMinRatio {
		return 0
	}
	return ratio * editDistanceScale
}

// levenshtein computes the classic single-character-edit distance with
// a two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
