package sv

import (
	"strings"
	"time"

	"github.com/agentoven/llmguardian/pkg/models"
	"github.com/rs/zerolog/log"
)

// rawMatch is the detector's internal working shape before it is
// converted to the public models.SVMatch.
type rawMatch struct {
	kind  string
	start int
	end   int
}

// DetectResult is the detector's contract output: the resolved,
// non-overlapping match list plus elapsed detection time.
type DetectResult struct {
	Matches []models.SVMatch
	Elapsed time.Duration
}

// Detector runs the enabled patterns in a Registry over a text and
// resolves overlapping matches.
type Detector struct {
	registry *Registry
}

// NewDetector builds a Detector over the given registry.
func NewDetector(registry *Registry) *Detector {
	return &Detector{registry: registry}
}

// Detect returns a non-overlapping, position-sorted list of matches.
// Empty or whitespace-only text returns no matches. A regex or
// validator panic on a single kind is recovered, logged as a warning,
// and that kind's contribution is dropped — the request proceeds.
func (d *Detector) Detect(text string) DetectResult {
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return DetectResult{Elapsed: time.Since(start)}
	}

	var raw []rawMatch
	for _, kind := range d.registry.Enabled() {
		raw = append(raw, d.runKind(kind, text)...)
	}

	accepted := sortAndResolveOverlaps(raw)

	matches := make([]models.SVMatch, 0, len(accepted))
	for _, m := range accepted {
		matches = append(matches, models.SVMatch{
			Kind:  m.kind,
			Value: text[m.start:m.end],
			Start: m.start,
			End:   m.end,
		})
	}

	return DetectResult{Matches: matches, Elapsed: time.Since(start)}
}

// runKind applies a single kind's regex+validator over text, isolating
// a panicking validator so it aborts only that kind's contribution.
func (d *Detector) runKind(kind Kind, text string) (out []rawMatch) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("kind", kind.Name).Interface("panic", r).Msg("sv: kind detection aborted")
			out = nil
		}
	}()

	locs := kind.Pattern.FindAllStringIndex(text, -1)
	for _, loc := range locs {
		candidate := text[loc[0]:loc[1]]
		if !kind.Validate(candidate) {
			continue
		}
		out = append(out, rawMatch{kind: kind.Name, start: loc[0], end: loc[1]})
	}
	return out
}
