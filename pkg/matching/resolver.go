package matching

import (
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
	"strings"
)

// Registry is an immutable snapshot of canonical names taken at the start of
// a run. It is built once, passed into resolvers, and never mutated, so a
// resolver can be tested in isolation and runs cannot leak state into each
// other.
type Registry struct {
	entries []registryEntry
	byName  map[string]string
}

type registryEntry struct {
	name string // normalized
	id   string
}

// NewRegistry builds an empty registry snapshot.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]string)}
}

// Add registers a normalized key for an identity. Empty keys are ignored; the
// first identity registered for a key wins.
func (r *Registry) Add(name, id string) {
	key := normalize.Text(name)
	if key == "" {
		return
	}
	if _, ok := r.byName[key]; ok {
		return
	}
	r.byName[key] = id
	r.entries = append(r.entries, registryEntry{name: key, id: id})
}

// Len returns the number of distinct keys in the snapshot.
func (r *Registry) Len() int {
	return len(r.entries)
}

// CounterpartyRegistry builds a snapshot keyed by display name.
func CounterpartyRegistry(counterparties []models.Counterparty) *Registry {
	reg := NewRegistry()
	for _, c := range counterparties {
		reg.Add(c.DisplayName, c.ID)
	}
	return reg
}

// CostCenterRegistry builds a snapshot keyed by both name and short code.
func CostCenterRegistry(costCenters []models.CostCenter) *Registry {
	reg := NewRegistry()
	for _, c := range costCenters {
		reg.Add(c.Name, c.ID)
		if c.Code != nil {
			reg.Add(*c.Code, c.ID)
		}
	}
	return reg
}

// Resolver maps free-text names to canonical identities with staged matching:
// exact, then bidirectional containment, then fuzzy similarity against every
// registry name. The best fuzzy candidate is accepted only at or above the
// configured floor; below it the resolver abstains rather than guess.
type Resolver struct {
	registry   *Registry
	similarity Similarity
	floor      float64
}

// NewResolver creates a resolver over a registry snapshot.
func NewResolver(registry *Registry, similarity Similarity, floor float64) *Resolver {
	if similarity == nil {
		similarity = NewEditSimilarity()
	}
	return &Resolver{
		registry:   registry,
		similarity: similarity,
		floor:      floor,
	}
}

// Resolve returns the canonical identity for a free-text name, or false when
// no stage produces a match.
func (r *Resolver) Resolve(freeText string) (string, bool) {
	target := normalize.Text(freeText)
	if target == "" {
		return "", false
	}

	if id, ok := r.registry.byName[target]; ok {
		return id, true
	}

	for _, entry := range r.registry.entries {
		if strings.Contains(target, entry.name) || strings.Contains(entry.name, target) {
			return entry.id, true
		}
	}

	bestScore, bestID := 0.0, ""
	for _, entry := range r.registry.entries {
		score := r.similarity.Score(target, entry.name)
		if score > bestScore {
			bestScore, bestID = score, entry.id
		}
	}
	if bestScore >= r.floor {
		return bestID, true
	}
	return "", false
}
