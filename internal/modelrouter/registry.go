// Package modelrouter holds the model profile registry, the
// complexity-based routing strategy table, and the outbound Provider
// Client with its retry/backoff policy. The Client holds a single
// ProviderDriver and calls it through its Call method; drivers are not
// looked up by kind.
package modelrouter

import (
	"sort"
	"sync"

	"github.com/agentoven/llmguardian/pkg/models"
)

// Registry holds model profiles keyed by modelId with a designated
// fallback. Read-only after startup; lookups take the read lock, and
// there is no method that reloads profiles.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]models.ModelProfile
	order    []string
	fallback string
}

// NewRegistry builds a Registry from a profile list and a fallback
// model id. The fallback must be present in profiles.
func NewRegistry(profiles []models.ModelProfile, fallbackModelID string) *Registry {
	r := &Registry{
		profiles: make(map[string]models.ModelProfile, len(profiles)),
		fallback: fallbackModelID,
	}
	for _, p := range profiles {
		r.profiles[p.ModelID] = p
		r.order = append(r.order, p.ModelID)
	}
	return r
}

// Get looks up a profile by id in O(1).
func (r *Registry) Get(modelID string) (models.ModelProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[modelID]
	return p, ok
}

// Fallback returns the registry's designated fallback profile.
func (r *Registry) Fallback() models.ModelProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[r.fallback]
}

// Enabled returns all enabled profiles in registration order.
func (r *Registry) Enabled() []models.ModelProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ModelProfile, 0, len(r.order))
	for _, id := range r.order {
		if p := r.profiles[id]; p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Cheapest returns the enabled profile with the lowest blended
// input+output cost per 1k tokens.
func (r *Registry) Cheapest() (models.ModelProfile, bool) {
	enabled := r.Enabled()
	if len(enabled) == 0 {
		return models.ModelProfile{}, false
	}
	sort.Slice(enabled, func(i, j int) bool {
		return blendedCost(enabled[i]) < blendedCost(enabled[j])
	})
	return enabled[0], true
}

// MostCapable returns the enabled profile with the highest capability
// tier, breaking ties by lowest cost.
func (r *Registry) MostCapable() (models.ModelProfile, bool) {
	enabled := r.Enabled()
	if len(enabled) == 0 {
		return models.ModelProfile{}, false
	}
	sort.Slice(enabled, func(i, j int) bool {
		if enabled[i].CapabilityTier.Rank() != enabled[j].CapabilityTier.Rank() {
			return enabled[i].CapabilityTier.Rank() > enabled[j].CapabilityTier.Rank()
		}
		return blendedCost(enabled[i]) < blendedCost(enabled[j])
	})
	return enabled[0], true
}

// StandardDefault returns the enabled standard-tier profile, falling
// back to the most-capable enabled profile if none is standard.
func (r *Registry) StandardDefault() (models.ModelProfile, bool) {
	for _, p := range r.Enabled() {
		if p.CapabilityTier == models.CapabilityStandard {
			return p, true
		}
	}
	return r.MostCapable()
}

// CheapestCapableOf returns the cheapest enabled profile whose
// capability tier can handle the given level (basic<standard<advanced,
// simple needs basic+, medium needs standard+, complex needs advanced).
func (r *Registry) CheapestCapableOf(level models.ComplexityLevel) (models.ModelProfile, bool) {
	minRank := models.CapabilityBasic.Rank()
	switch level {
	case models.ComplexityMedium:
		minRank = models.CapabilityStandard.Rank()
	case models.ComplexityComplex:
		minRank = models.CapabilityAdvanced.Rank()
	}

	var candidates []models.ModelProfile
	for _, p := range r.Enabled() {
		if p.CapabilityTier.Rank() >= minRank {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return models.ModelProfile{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return blendedCost(candidates[i]) < blendedCost(candidates[j])
	})
	return candidates[0], true
}

func blendedCost(p models.ModelProfile) float64 {
	return p.InputCostPer1k + p.OutputCostPer1k
}
