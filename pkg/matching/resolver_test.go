package matching

import (
	"testing"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCounterpartyResolver(floor float64) *Resolver {
	reg := CounterpartyRegistry([]models.Counterparty{
		{ID: "cp-1", DisplayName: "ACME Srl"},
		{ID: "cp-2", DisplayName: "Beta Costruzioni SpA"},
		{ID: "cp-3", DisplayName: "Gamma Impianti"},
	})
	return NewResolver(reg, NewEditSimilarity(), floor)
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		freeText   string
		expectedID string
		resolved   bool
	}{
		{
			name:       "exact match after normalization",
			freeText:   "  ACME SRL ",
			expectedID: "cp-1",
			resolved:   true,
		},
		{
			name:       "registry name contained in input",
			freeText:   "fattura acme srl marzo",
			expectedID: "cp-1",
			resolved:   true,
		},
		{
			name:       "input contained in registry name",
			freeText:   "beta costruzioni",
			expectedID: "cp-2",
			resolved:   true,
		},
		{
			name:       "fuzzy match above the floor",
			freeText:   "beta costruzzioni spa",
			expectedID: "cp-2",
			resolved:   true,
		},
		{
			name:     "fuzzy match below the floor abstains",
			freeText: "acmy srl",
			resolved: false,
		},
		{
			name:     "empty input",
			freeText: "   ",
			resolved: false,
		},
		{
			name:     "unrelated name",
			freeText: "delta logistics",
			resolved: false,
		},
	}

	resolver := testCounterpartyResolver(0.88)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := resolver.Resolve(tt.freeText)
			assert.Equal(t, tt.resolved, ok)
			assert.Equal(t, tt.expectedID, id)
		})
	}
}

func TestResolver_Deterministic(t *testing.T) {
	resolver := testCounterpartyResolver(0.88)

	first, ok := resolver.Resolve("acme srll")
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		id, ok := resolver.Resolve("acme srll")
		require.True(t, ok)
		assert.Equal(t, first, id)
	}
}

func TestCostCenterRegistry_CodeKeys(t *testing.T) {
	code := "CNT-07"
	reg := CostCenterRegistry([]models.CostCenter{
		{ID: "cc-1", Name: "Cantiere Via Roma"},
		{ID: "cc-2", Name: "Cantiere Stazione", Code: &code},
	})
	resolver := NewResolver(reg, NewEditSimilarity(), 0.85)

	id, ok := resolver.Resolve("cnt-07")
	require.True(t, ok)
	assert.Equal(t, "cc-2", id)

	id, ok = resolver.Resolve("via roma")
	require.True(t, ok)
	assert.Equal(t, "cc-1", id)
}

func TestRegistry_FirstIdentityWins(t *testing.T) {
	reg := NewRegistry()
	reg.Add("ACME Srl", "cp-1")
	reg.Add("acme srl", "cp-9")

	assert.Equal(t, 1, reg.Len())

	resolver := NewResolver(reg, NewEditSimilarity(), 0.88)
	id, ok := resolver.Resolve("ACME SRL")
	require.True(t, ok)
	assert.Equal(t, "cp-1", id)
}
