package modelrouter

import (
	"fmt"
	"time"

	"github.com/agentoven/llmguardian/pkg/models"
)

// Router applies the strategy x complexity-level decision table over
// a Registry's profiles.
type Router struct {
	registry *Registry
}

// NewRouter builds a Router over the given registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Route picks a model for the given complexity score and strategy. If
// the selected profile is absent or disabled, it falls back to the
// registry's fallback profile — Route is total: it always returns an
// enabled profile when the registry has at least one.
func (r *Router) Route(score models.ComplexityScore, strategy models.RoutingStrategy) models.ModelDecision {
	start := time.Now()

	profile, rationale := r.selectProfile(score, strategy)
	if !profile.Enabled {
		profile = r.registry.Fallback()
		rationale = fmt.Sprintf("%s; selected profile unavailable, used fallback %q", rationale, profile.ModelID)
	}

	return models.ModelDecision{
		ModelID:      profile.ModelID,
		StrategyUsed: strategy,
		Rationale:    rationale,
		Complexity:   score,
		RoutingMs:    time.Since(start).Milliseconds(),
	}
}

func (r *Router) selectProfile(score models.ComplexityScore, strategy models.RoutingStrategy) (models.ModelProfile, string) {
	level := score.Level

	switch strategy {
	case models.RoutingCost:
		p, ok := r.registry.Cheapest()
		return p, describe(ok, "cost strategy: cheapest enabled profile")

	case models.RoutingPerformance:
		p, ok := r.registry.MostCapable()
		return p, describe(ok, "performance strategy: most-capable enabled profile")

	case models.RoutingBalanced:
		switch level {
		case models.ComplexitySimple:
			p, ok := r.registry.Cheapest()
			return p, describe(ok, "balanced strategy: simple -> cheapest")
		case models.ComplexityMedium:
			p, ok := r.registry.StandardDefault()
			return p, describe(ok, "balanced strategy: medium -> standard default")
		default: // complex
			if score.Score >= 75 {
				p, ok := r.registry.MostCapable()
				return p, describe(ok, "balanced strategy: complex (score>=75) -> most-capable")
			}
			p, ok := r.registry.StandardDefault()
			return p, describe(ok, "balanced strategy: complex (score<75) -> standard default")
		}

	default: // models.RoutingComplexity, or unrecognized strategy
		switch level {
		case models.ComplexityComplex:
			p, ok := r.registry.MostCapable()
			return p, describe(ok, "complexity strategy: complex -> most-capable")
		default: // simple, medium
			p, ok := r.registry.StandardDefault()
			return p, describe(ok, "complexity strategy: "+string(level)+" -> standard default")
		}
	}
}

func describe(found bool, rationale string) string {
	if !found {
		return rationale + " (none found)"
	}
	return rationale
}
