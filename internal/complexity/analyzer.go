// Package complexity implements the pure prompt-complexity scorer:
// three independent factor buckets summed and clamped into a 0-100
// score, then classified into a three-valued level.
package complexity

import (
	"strconv"
	"strings"
	"time"

	"github.com/agentoven/llmguardian/pkg/models"
)

// Closed keyword classes, evaluated case-insensitively. Fixed at build
// time — no runtime configuration changes these sets.
var (
	reasoningKeywords = []string{
		"why", "explain", "analyze", "reasoning", "because", "justify",
		"prove", "derive", "evaluate", "compare", "trade-off", "tradeoff",
	}
	multiStepMarkers = []string{
		"first", "then", "next", "finally", "step", "after that", "followed by",
	}
	creativeVerbs = []string{
		"write", "compose", "design", "invent", "imagine", "create", "draft",
	}
	technicalTerms = []string{
		"algorithm", "function", "database", "api", "architecture", "complexity",
		"protocol", "schema", "concurrency", "optimization", "encryption",
	}
	codeMarkers = []string{
		"```", "def ", "func ", "class ", "import ", "return ", "var ", "const ",
	}
)

// Analyzer scores prompts. It is stateless and pure: repeated calls
// with the same input return identical scores within a build.
type Analyzer struct{}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Score computes the complexity score for a single prompt.
func (a *Analyzer) Score(prompt string) models.ComplexityScore {
	start := time.Now()
	lower := strings.ToLower(prompt)

	lengthScore := lengthFactor(prompt)
	reasoningScore := reasoningFactor(lower)
	technicalScore := technicalFactor(lower)

	total := clamp(lengthScore+reasoningScore+technicalScore, 0, 100)

	return models.ComplexityScore{
		Score: total,
		Level: levelFor(total),
		FactorScores: map[string]int{
			"length":    lengthScore,
			"reasoning": reasoningScore,
			"technical": technicalScore,
		},
		Reasoning:      reasoningString(lengthScore, reasoningScore, technicalScore),
		AnalysisMillis: time.Since(start).Milliseconds(),
	}
}

// lengthFactor buckets by estimated token count (len/4).
func lengthFactor(prompt string) int {
	estTokens := len(prompt) / 4
	switch {
	case estTokens < 50:
		return 5
	case estTokens < 100:
		return 10
	case estTokens < 200:
		return 15
	case estTokens < 400:
		return 20
	default:
		return 30
	}
}

func reasoningFactor(lower string) int {
	points := 0
	points += min(countAny(lower, reasoningKeywords)*3, 10)
	points += min(countAny(lower, multiStepMarkers)*4, 10)
	points += min(countAny(lower, creativeVerbs)*5, 10)

	questionMarks := strings.Count(lower, "?")
	if questionMarks > 1 {
		points += min(questionMarks*3, 10)
	}

	return clamp(points, 0, 40)
}

func technicalFactor(lower string) int {
	points := 0
	points += min(countAny(lower, technicalTerms)*4, 15)
	points += min(countAny(lower, codeMarkers)*5, 15)
	return clamp(points, 0, 30)
}

// levelFor classifies a score into a three-valued level: a pure
// function of score with boundaries at 30 and 60 inclusive on the
// lower tier.
func levelFor(score int) models.ComplexityLevel {
	switch {
	case score <= 30:
		return models.ComplexitySimple
	case score <= 60:
		return models.ComplexityMedium
	default:
		return models.ComplexityComplex
	}
}

func countAny(text string, terms []string) int {
	count := 0
	for _, t := range terms {
		count += strings.Count(text, t)
	}
	return count
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func reasoningString(length, reasoning, technical int) string {
	return strings.Join([]string{
		"length=" + strconv.Itoa(length),
		"reasoning=" + strconv.Itoa(reasoning),
		"technical=" + strconv.Itoa(technical),
	}, ", ")
}
