// Package optimizer implements the bounded, deterministic prompt
// optimization passes: redundancy-phrase replacement, filler-word
// removal, verbose-phrase simplification, and whitespace compression,
// applied in that order over the redacted prompt. Every pass is a
// pure regex substitution; the optimizer never touches a character
// inside a protected entity span (an SV token), so the token pattern
// here mirrors the one internal/sv's redactor emits — this package
// has no import dependency on internal/sv, since the orchestrator is
// the only caller that needs both.
package optimizer

import (
	"regexp"
	"strings"
)

// tokenPattern identifies a protected run — a redaction token the
// optimizer must pass through unmodified.
var tokenPattern = regexp.MustCompile(`\[[A-Z_]+_TOKEN_[A-Za-z0-9]+\]`)

// Config controls whether and when optimization runs.
type Config struct {
	Enabled   bool
	MinLength int // below this input length, optimization is skipped
}

func (c Config) withDefaults() Config {
	if c.MinLength <= 0 {
		c.MinLength = 40
	}
	return c
}

// Result reports what the optimizer did, mirroring the metadata
// fields surfaced in the HTTP response.
type Result struct {
	Text                string
	Applied             bool
	OriginalLength      int
	OptimizedLength     int
	ReductionPercentage float64
}

// Optimizer applies the ordered pass pipeline. It is stateless.
type Optimizer struct {
	cfg Config
}

// New builds an Optimizer with the given config.
func New(cfg Config) *Optimizer {
	return &Optimizer{cfg: cfg.withDefaults()}
}

// Optimize runs the pass pipeline over text. An optimization is
// "skipped" when disabled, when input is below the minimum length, or
// when a pass panics (in which case the original text is returned
// unmodified and Applied is false).
func (o *Optimizer) Optimize(text string) (result Result) {
	result = Result{Text: text, OriginalLength: len(text), OptimizedLength: len(text)}

	if !o.cfg.Enabled || len(text) < o.cfg.MinLength {
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result = Result{Text: text, OriginalLength: len(text), OptimizedLength: len(text)}
		}
	}()

	protected := tokenSpans(text)
	out := text
	out = applyPairs(out, redundancyPhrases, protected)
	out = applyPairs(out, fillerWords, protected)
	out = applyPairs(out, verbosePhrases, protected)
	out = compressWhitespace(out, protected)

	if out == text {
		return result
	}

	reduction := 0.0
	if len(text) > 0 {
		reduction = (1 - float64(len(out))/float64(len(text))) * 100
	}
	return Result{
		Text:                out,
		Applied:             true,
		OriginalLength:      len(text),
		OptimizedLength:     len(out),
		ReductionPercentage: reduction,
	}
}

type span struct{ start, end int }

// tokenSpans locates every protected run in text.
func tokenSpans(text string) []span {
	idx := tokenPattern.FindAllStringIndex(text, -1)
	spans := make([]span, 0, len(idx))
	for _, m := range idx {
		spans = append(spans, span{m[0], m[1]})
	}
	return spans
}

func overlapsAny(start, end int, protected []span) bool {
	for _, p := range protected {
		if start < p.end && end > p.start {
			return true
		}
	}
	return false
}

// applyPairs replaces every occurrence of each phrase's key with its
// value, skipping any occurrence that overlaps a protected span.
// Phrases are matched case-insensitively as whole words/phrases via a
// compiled regex built from the ordered pair list.
func applyPairs(text string, pairs []phrasePair, protected []span) string {
	for _, pair := range pairs {
		text = replaceOutsideProtected(text, pair.pattern, pair.replacement, protected)
	}
	return text
}

func replaceOutsideProtected(text string, re *regexp.Regexp, replacement string, protected []span) string {
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if overlapsAny(start, end, protected) {
			continue
		}
		sb.WriteString(text[last:start])
		sb.WriteString(replacement)
		last = end
	}
	sb.WriteString(text[last:])
	return sb.String()
}

var whitespaceRun = regexp.MustCompile(`[ \t]{2,}|\n{3,}`)

// compressWhitespace collapses runs of spaces/tabs and excess blank
// lines, skipping any run that overlaps a protected span.
func compressWhitespace(text string, protected []span) string {
	text = replaceOutsideProtected(text, whitespaceRun, " ", protected)
	return strings.TrimSpace(text)
}
