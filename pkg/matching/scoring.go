// Package matching resolves free-text names against canonical registries.
package matching

import "strings"

// Similarity scores two strings between 0.0 (no similarity) and 1.0 (equal).
// The algorithm is injectable so resolve logic stays independent of it.
type Similarity interface {
	Score(a, b string) float64
}

// Scorer provides string comparison algorithms.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// ExactMatch returns 1.0 for exact match, 0.0 otherwise.
func (s *Scorer) ExactMatch(a, b string, caseSensitive bool) float64 {
	if !caseSensitive {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	if a == b {
		return 1.0
	}
	return 0.0
}

// Levenshtein calculates a normalized edit similarity between two strings,
// between 0.0 and 1.0.
func (s *Scorer) Levenshtein(a, b string) float64 {
	distance := s.LevenshteinDistance(a, b)
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings.
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// JaroWinkler calculates the Jaro-Winkler similarity between two strings.
func (s *Scorer) JaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}

	jaro := s.Jaro(a, b)

	// Winkler modification: boost for common prefix
	prefixLen := 0
	maxPrefix := 4
	for i := 0; i < len(a) && i < len(b) && i < maxPrefix; i++ {
		if a[i] == b[i] {
			prefixLen++
		} else {
			break
		}
	}

	scalingFactor := 0.1
	return jaro + float64(prefixLen)*scalingFactor*(1.0-jaro)
}

// Jaro calculates the Jaro similarity between two strings.
func (s *Scorer) Jaro(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	matchDist := max(len(a), len(b))/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	transpositions := 0

	for i := 0; i < len(a); i++ {
		start := max(0, i-matchDist)
		end := min(len(b), i+matchDist+1)

		for j := start; j < end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	k := 0
	for i := 0; i < len(a); i++ {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2

	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}

// EditSimilarity is the default Similarity strategy, backed by normalized
// Levenshtein distance.
type EditSimilarity struct {
	scorer *Scorer
}

// NewEditSimilarity creates the default edit-distance similarity.
func NewEditSimilarity() *EditSimilarity {
	return &EditSimilarity{scorer: NewScorer()}
}

func (e *EditSimilarity) Score(a, b string) float64 {
	return e.scorer.Levenshtein(a, b)
}

// JaroWinklerSimilarity is an alternative Similarity strategy that favors
// strings sharing a common prefix, useful for short code-like names.
type JaroWinklerSimilarity struct {
	scorer *Scorer
}

// NewJaroWinklerSimilarity creates a Jaro-Winkler similarity.
func NewJaroWinklerSimilarity() *JaroWinklerSimilarity {
	return &JaroWinklerSimilarity{scorer: NewScorer()}
}

func (j *JaroWinklerSimilarity) Score(a, b string) float64 {
	return j.scorer.JaroWinkler(a, b)
}
