// Package similarity scores how alike two records look. Everything here is
// pure computation over strings, safe to call from any goroutine.
package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	// DefaultLevenshteinWeight blends edit distance against token overlap.
	// Levenshtein catches typos, Jaccard catches reordered or partial names;
	// neither works alone.
	DefaultLevenshteinWeight = 0.6

	// DefaultThreshold is the minimum combined score for a duplicate pair.
	DefaultThreshold = 0.7

	// exactMatchScore is forced when two entities share an authoritative
	// external key. Kept just under 1.0 so a key match stays distinguishable
	// from a textual exact match.
	exactMatchScore = 0.99
)

// NormalizeString lowercases, drops everything that is not a letter, digit
// or space, collapses whitespace runs and trims. Every other scoring
// function builds on this canonical form.
func NormalizeString(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// LevenshteinDistance is the classic edit distance with unit costs for
// substitution, insertion and deletion. Operates on the raw inputs.
func LevenshteinDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// LevenshteinSimilarity normalizes both inputs and maps their edit distance
// into [0,1]; 1 means identical after normalization.
func LevenshteinSimilarity(a, b string) float64 {
	na := NormalizeString(a)
	nb := NormalizeString(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	return 1.0 - float64(LevenshteinDistance(na, nb))/float64(longest)
}

// Tokenize splits the normalized input into a set of words.
func Tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(NormalizeString(s)) {
		tokens[word] = struct{}{}
	}
	return tokens
}

// JaccardSimilarity is |A∩B| / |A∪B|. Two empty sets are vacuously
// identical.
func JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// TokenJaccardSimilarity is the Jaccard score over the two inputs' word
// sets.
func TokenJaccardSimilarity(a, b string) float64 {
	return JaccardSimilarity(Tokenize(a), Tokenize(b))
}

// CombinedSimilarity blends character-level and word-level similarity with
// the default Levenshtein weight.
func CombinedSimilarity(a, b string) float64 {
	return CombinedSimilarityWeighted(a, b, DefaultLevenshteinWeight)
}

// CombinedSimilarityWeighted blends the two scores with an explicit
// Levenshtein weight in [0,1].
func CombinedSimilarityWeighted(a, b string, levenshteinWeight float64) float64 {
	return LevenshteinSimilarity(a, b)*levenshteinWeight +
		TokenJaccardSimilarity(a, b)*(1.0-levenshteinWeight)
}

// Pair holds two entities scored at or above the scan threshold.
type Pair[T any] struct {
	Entity1    T       `json:"entity1"`
	Entity2    T       `json:"entity2"`
	Similarity float64 `json:"similarity"`
}

// FindDuplicatePairs scores every unordered pair in entities and returns
// the ones at or above threshold, highest similarity first. Scores are
// rounded to two decimals. When exactMatchKey is non-nil and two entities
// share the same non-empty key, the pair scores exactMatchScore without any
// text comparison. O(n²) comparisons; duplicate scans run over bounded
// admin batches, not hot paths.
func FindDuplicatePairs[T any](entities []T, comparisonString func(T) string, threshold float64, exactMatchKey func(T) string) []Pair[T] {
	pairs := []Pair[T]{}
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			var score float64
			keyMatched := false
			if exactMatchKey != nil {
				k1 := exactMatchKey(entities[i])
				k2 := exactMatchKey(entities[j])
				if k1 != "" && k1 == k2 {
					score = exactMatchScore
					keyMatched = true
				}
			}
			if !keyMatched {
				score = CombinedSimilarity(comparisonString(entities[i]), comparisonString(entities[j]))
			}
			score = math.Round(score*100) / 100
			if score >= threshold {
				pairs = append(pairs, Pair[T]{
					Entity1:    entities[i],
					Entity2:    entities[j],
					Similarity: score,
				})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].Similarity > pairs[b].Similarity
	})
	return pairs
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
