// Package sv implements the sensitive-value detection and reversible
// tokenization engine: a regex-driven pattern registry with per-kind
// validators, an overlap-resolving detector, a per-request SV context,
// and a redactor/restorer pair.
package sv

import (
	"fmt"
	"regexp"
	"sort"
)

// Kind is a value-typed sensitive-value class: a compiled regex, a
// region label, a default-enabled flag, and a validator. The
// regex+validator pair must be a pure, side-effect-free, total
// function on strings.
type Kind struct {
	Name             string
	Region           string
	EnabledByDefault bool
	Pattern          *regexp.Regexp
	Validate         Validator
}

// builtins is the closed set of kind name -> compiled regex, each with
// a validator and a region label instead of a flat pass/fail.
var builtins = []Kind{
	{
		Name:             "email",
		Region:           "global",
		EnabledByDefault: true,
		Pattern:          regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		Validate:         alwaysValid,
	},
	{
		Name:             "phone",
		Region:           "global",
		EnabledByDefault: true,
		Pattern:          regexp.MustCompile(`\+?[0-9][0-9().\-\s]{6,17}[0-9]`),
		Validate:         e164Valid,
	},
	{
		Name:             "credit-card",
		Region:           "global",
		EnabledByDefault: true,
		Pattern:          regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`),
		Validate:         luhnValid,
	},
	{
		Name:             "government-id-us",
		Region:           "US",
		EnabledByDefault: true,
		Pattern:          regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`),
		Validate:         governmentIDUSValid,
	},
	{
		Name:             "government-id-in",
		Region:           "IN",
		EnabledByDefault: false,
		Pattern:          regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`),
		Validate:         governmentIDINValid,
	},
	{
		Name:             "api-key",
		Region:           "global",
		EnabledByDefault: true,
		Pattern:          regexp.MustCompile(`\b(?:sk|pk|api)[-_][A-Za-z0-9]{16,64}\b`),
		Validate:         alwaysValid,
	},
	{
		Name:             "ip-address",
		Region:           "global",
		EnabledByDefault: true,
		Pattern:          regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
		Validate:         ipv4Valid,
	},
}

// CustomPattern is a user-defined kind loaded from configuration
// (pii.detection.customPatterns[]).
type CustomPattern struct {
	Name    string
	Regex   string
	Region  string
	Enabled bool
}

// Registry holds the enabled set of kinds. Read-only after startup.
type Registry struct {
	kinds map[string]Kind
	order []string
}

// NewRegistry builds a registry from the built-in kinds, applying the
// enabled/disabled overrides in enabledOverride (kind name -> bool).
// A missing override falls back to the kind's EnabledByDefault flag.
func NewRegistry(enabledOverride map[string]bool) *Registry {
	r := &Registry{kinds: make(map[string]Kind, len(builtins))}
	for _, k := range builtins {
		enabled := k.EnabledByDefault
		if v, ok := enabledOverride[k.Name]; ok {
			enabled = v
		}
		if !enabled {
			continue
		}
		r.kinds[k.Name] = k
		r.order = append(r.order, k.Name)
	}
	return r
}

// RegisterCustom compiles and adds a user-defined pattern. A malformed
// regex fails registration immediately rather than at request time.
func (r *Registry) RegisterCustom(cp CustomPattern) error {
	if !cp.Enabled {
		return nil
	}
	re, err := regexp.Compile(cp.Regex)
	if err != nil {
		return fmt.Errorf("sv: invalid custom pattern %q: %w", cp.Name, err)
	}
	k := Kind{
		Name:             cp.Name,
		Region:           cp.Region,
		EnabledByDefault: true,
		Pattern:          re,
		Validate:         alwaysValid,
	}
	r.kinds[k.Name] = k
	r.order = append(r.order, k.Name)
	return nil
}

// Enabled returns the registered kinds in stable registration order.
func (r *Registry) Enabled() []Kind {
	out := make([]Kind, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.kinds[name])
	}
	return out
}

// sortAndResolveOverlaps sorts by (start asc, length desc) then
// greedily accepts a match iff its start is >= the end of the last
// accepted match, so the longer span wins at an equal start.
func sortAndResolveOverlaps(matches []rawMatch) []rawMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return (matches[i].end - matches[i].start) > (matches[j].end - matches[j].start)
	})

	accepted := make([]rawMatch, 0, len(matches))
	lastEnd := -1
	for _, m := range matches {
		if m.start >= lastEnd {
			accepted = append(accepted, m)
			lastEnd = m.end
		}
	}
	return accepted
}
