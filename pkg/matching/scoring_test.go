package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_ExactMatch(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 1.0, scorer.ExactMatch("acme srl", "acme srl", true))
	assert.Equal(t, 0.0, scorer.ExactMatch("acme srl", "acme spa", true))
}

func TestScorer_LevenshteinDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{
			name:     "identical strings",
			a:        "kitten",
			b:        "kitten",
			expected: 0,
		},
		{
			name:     "classic substitution chain",
			a:        "kitten",
			b:        "sitting",
			expected: 3,
		},
		{
			name:     "empty against non-empty",
			a:        "",
			b:        "abc",
			expected: 3,
		},
		{
			name:     "single trailing insert",
			a:        "acme srl",
			b:        "acme srll",
			expected: 1,
		},
	}

	scorer := NewScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scorer.LevenshteinDistance(tt.a, tt.b))
			assert.Equal(t, tt.expected, scorer.LevenshteinDistance(tt.b, tt.a))
		})
	}
}

func TestScorer_Levenshtein(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 1.0, scorer.Levenshtein("acme", "acme"))
	assert.Equal(t, 0.0, scorer.Levenshtein("", "acme"))
	assert.InDelta(t, 0.8889, scorer.Levenshtein("acme srl", "acme srll"), 0.0001)
	assert.InDelta(t, 0.875, scorer.Levenshtein("acme srl", "acmy srl"), 0.0001)
}

func TestScorer_JaroWinkler(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 1.0, scorer.JaroWinkler("martha", "martha"))
	assert.Equal(t, 0.0, scorer.JaroWinkler("", "martha"))
	assert.InDelta(t, 0.9611, scorer.JaroWinkler("martha", "marhta"), 0.0001)

	// shared prefix boosts the score above plain Jaro
	assert.Greater(t, scorer.JaroWinkler("acme srl", "acme spa"), scorer.Jaro("acme srl", "acme spa"))
}
