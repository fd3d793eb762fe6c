// Package models holds the data shapes shared across the guardian
// pipeline: sensitive-value detection, model routing, caching, the
// provider contract, and the processing result returned to callers.
package models

import "time"

// ── Sensitive Value (SV) ─────────────────────────────────────

// SVMatch is an immutable detection result: a substring of the input
// text classified as belonging to a kind.
type SVMatch struct {
	Kind  string
	Value string
	Start int
	End   int
}

// SVDetectionRecord is the append-only, value-free record of a single
// redaction: it carries shape information (kind, token, length,
// position) but never the original value.
type SVDetectionRecord struct {
	Kind           string
	Token          string
	OriginalLength int
	DetectedAt     time.Time
	Start          int
	End            int
	HasPosition    bool
}

// ── Model Profile ────────────────────────────────────────────

type CapabilityTier string

const (
	CapabilityBasic    CapabilityTier = "basic"
	CapabilityStandard CapabilityTier = "standard"
	CapabilityAdvanced CapabilityTier = "advanced"
)

// capabilityRank orders tiers for "most-capable" comparisons.
var capabilityRank = map[CapabilityTier]int{
	CapabilityBasic:    0,
	CapabilityStandard: 1,
	CapabilityAdvanced: 2,
}

// Rank returns the ordinal of a capability tier; higher is more capable.
func (c CapabilityTier) Rank() int {
	return capabilityRank[c]
}

// ModelProfile is immutable once registered.
type ModelProfile struct {
	ModelID          string
	DisplayName      string
	Provider         string
	InputCostPer1k   float64
	OutputCostPer1k  float64
	MaxContextTokens int
	CapabilityTier   CapabilityTier
	Enabled          bool
}

// ── Complexity ────────────────────────────────────────────────

type ComplexityLevel string

const (
	ComplexitySimple  ComplexityLevel = "simple"
	ComplexityMedium  ComplexityLevel = "medium"
	ComplexityComplex ComplexityLevel = "complex"
)

type ComplexityScore struct {
	Score          int
	Level          ComplexityLevel
	FactorScores   map[string]int
	Reasoning      string
	AnalysisMillis int64
}

// ── Routing ───────────────────────────────────────────────────

type RoutingStrategy string

const (
	RoutingComplexity  RoutingStrategy = "complexity"
	RoutingCost        RoutingStrategy = "cost"
	RoutingPerformance RoutingStrategy = "performance"
	RoutingBalanced    RoutingStrategy = "balanced"
)

type ModelDecision struct {
	ModelID      string
	StrategyUsed RoutingStrategy
	Rationale    string
	Complexity   ComplexityScore
	RoutingMs    int64
}

// ── Provider ──────────────────────────────────────────────────

type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength         FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishOther          FinishReason = "other"
)

// CompletionRequest is the provider-agnostic request the Provider
// Client accepts; prompt must already be redacted by the time it
// reaches this layer.
type CompletionRequest struct {
	ModelID         string
	Prompt          string
	MaxOutputTokens int
	Temperature     *float64
	TopP            *float64
	N               *int
	StopSequences   []string
}

type ProviderResponse struct {
	Text          string
	ModelID       string
	InputTokens   int64
	OutputTokens  int64
	LatencyMillis int64
	FinishReason  FinishReason
	EstimatedCost float64
	Timestamp     time.Time
}

// ── Cache ─────────────────────────────────────────────────────

type CacheStats struct {
	TotalKeys int64
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
}

// ── Processing result ────────────────────────────────────────

// ProcessingMetadata carries the per-stage observability fields
// surfaced in the HTTP response's metadata object.
type ProcessingMetadata struct {
	ModelUsed           string
	ComplexityLevel     ComplexityLevel
	InputTokens         int64
	OutputTokens        int64
	TotalTokens         int64
	LatencyMs           int64
	FromCache           bool
	OptimizationApplied bool
	TokensSaved         int
	ReductionPercentage float64
	PIIDetected         bool
	PIICount            int
	EstimatedCost       float64
}

// ProcessingResult is the union of success/failure shapes the
// orchestrator produces for a single request.
type ProcessingResult struct {
	RequestID string
	Success   bool
	Text      string
	Error     string
	ErrorType string
	Timestamp time.Time
	Metadata  ProcessingMetadata
}

// ── Audit ─────────────────────────────────────────────────────

// AuditEvent is the physical/persisted counterpart of an
// SVDetectionRecord.
type AuditEvent struct {
	ID             string
	RequestID      string
	Kind           string
	Token          string
	OriginalLength int
	Action         string // always "REDACTED"
	PositionStart  *int
	PositionEnd    *int
	CreatedAt      time.Time
}

// AuditFilter scopes a query over audit events.
type AuditFilter struct {
	RequestID  string
	Kind       string
	Before     *time.Time
	Limit      int
}
