// Package handlers implements the HTTP handlers for the guardian's
// API surface: the completion endpoint, health, and the operational
// analytics reads. Handlers is a struct holding collaborators,
// constructed with New; its methods write JSON through a shared
// respondJSON/respondValidationError pair.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/llmguardian/internal/audit"
	"github.com/agentoven/llmguardian/internal/cache"
	"github.com/agentoven/llmguardian/internal/modelrouter"
	"github.com/agentoven/llmguardian/internal/orchestrator"
	"github.com/agentoven/llmguardian/internal/sv"
	"github.com/agentoven/llmguardian/pkg/apperror"
	"github.com/agentoven/llmguardian/pkg/models"
)

const (
	defaultMaxTokens = 1000
	maxMaxTokens     = 4096
)

// Handlers holds the collaborators the API surface reads from or
// drives requests through.
type Handlers struct {
	Orchestrator  *orchestrator.Orchestrator
	CacheManager  *cache.Manager
	AuditStore    audit.Store
	ModelRegistry *modelrouter.Registry
	SVRegistry    *sv.Registry
	Version       string
}

// New builds a Handlers instance from its collaborators.
func New(o *orchestrator.Orchestrator, cacheMgr *cache.Manager, auditStore audit.Store, modelRegistry *modelrouter.Registry, svRegistry *sv.Registry, version string) *Handlers {
	return &Handlers{
		Orchestrator:  o,
		CacheManager:  cacheMgr,
		AuditStore:    auditStore,
		ModelRegistry: modelRegistry,
		SVRegistry:    svRegistry,
		Version:       version,
	}
}

// completionRequestBody is the wire shape for POST /api/v1/completions.
type completionRequestBody struct {
	Query              string                 `json:"query"`
	MaxTokens          int                    `json:"maxTokens"`
	Temperature        *float64               `json:"temperature"`
	TopP               *float64               `json:"topP"`
	Model              string                 `json:"model"`
	RoutingStrategy    models.RoutingStrategy `json:"routingStrategy"`
	EnableOptimization *bool                  `json:"enableOptimization"`
	EnableCache        *bool                  `json:"enableCache"`
}

// Completions handles POST /api/v1/completions.
func (h *Handlers) Completions(w http.ResponseWriter, r *http.Request) {
	var body completionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "request body must be valid JSON")
		return
	}

	if body.Query == "" {
		respondValidationError(w, "query must not be empty")
		return
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = defaultMaxTokens
	}
	if body.MaxTokens < 1 || body.MaxTokens > maxMaxTokens {
		respondValidationError(w, "maxTokens must be between 1 and 4096")
		return
	}
	if body.Temperature != nil && (*body.Temperature < 0 || *body.Temperature > 2) {
		respondValidationError(w, "temperature must be between 0 and 2")
		return
	}
	if body.TopP != nil && (*body.TopP < 0 || *body.TopP > 1) {
		respondValidationError(w, "topP must be between 0 and 1")
		return
	}

	req := orchestrator.Request{
		Prompt:             body.Query,
		ModelID:            body.Model,
		Strategy:           body.RoutingStrategy,
		MaxOutputTokens:    body.MaxTokens,
		Temperature:        body.Temperature,
		TopP:               body.TopP,
		EnableOptimization: boolOrDefault(body.EnableOptimization, true),
		EnableCache:        boolOrDefault(body.EnableCache, true),
	}

	result := h.Orchestrator.Process(r.Context(), req)

	status := http.StatusOK
	if !result.Success {
		status = apperror.HTTPStatus(apperror.CodeInternal)
		if result.ErrorType == "VALIDATION_ERROR" {
			status = http.StatusBadRequest
		}
	}
	respondJSON(w, status, completionResponse(result))
}

// completionResponse maps the orchestrator's internal result to the
// public wire shape described by the external interfaces.
func completionResponse(result models.ProcessingResult) map[string]any {
	body := map[string]any{
		"requestId": result.RequestID,
		"success":   result.Success,
		"timestamp": result.Timestamp,
	}
	if result.Success {
		body["text"] = result.Text
		body["metadata"] = map[string]any{
			"modelUsed":           result.Metadata.ModelUsed,
			"complexityLevel":     result.Metadata.ComplexityLevel,
			"inputTokens":         result.Metadata.InputTokens,
			"outputTokens":        result.Metadata.OutputTokens,
			"totalTokens":         result.Metadata.TotalTokens,
			"latencyMs":           result.Metadata.LatencyMs,
			"fromCache":           result.Metadata.FromCache,
			"optimizationApplied": result.Metadata.OptimizationApplied,
			"tokensSaved":         result.Metadata.TokensSaved,
			"reductionPercentage": result.Metadata.ReductionPercentage,
			"piiDetected":         result.Metadata.PIIDetected,
			"piiCount":            result.Metadata.PIICount,
			"estimatedCost":       result.Metadata.EstimatedCost,
		}
	} else {
		body["error"] = result.Error
		body["errorType"] = result.ErrorType
	}
	return body
}

// Health handles GET /api/v1/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "llmguardian",
		"version": h.Version,
	})
}

// AnalyticsCache handles GET /api/v1/analytics/cache.
func (h *Handlers) AnalyticsCache(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.CacheManager.Stats())
}

// AnalyticsCacheClear handles POST /api/v1/analytics/cache/clear.
func (h *Handlers) AnalyticsCacheClear(w http.ResponseWriter, r *http.Request) {
	h.CacheManager.Clear(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// AnalyticsPII handles GET /api/v1/analytics/pii: a count of
// redactions per kind, drawn from the audit store.
func (h *Handlers) AnalyticsPII(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int64, len(h.SVRegistry.Enabled()))
	for _, kind := range h.SVRegistry.Enabled() {
		count, err := h.AuditStore.CountAuditEvents(r.Context(), models.AuditFilter{Kind: kind.Name})
		if err != nil {
			log.Warn().Err(err).Str("kind", kind.Name).Msg("audit count query failed")
			continue
		}
		counts[kind.Name] = count
	}
	respondJSON(w, http.StatusOK, map[string]any{"detectionsByKind": counts})
}

// AnalyticsModels handles GET /api/v1/analytics/models: the enabled
// model profiles available for routing.
func (h *Handlers) AnalyticsModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ModelRegistry.Enabled())
}

// AnalyticsSummary handles GET /api/v1/analytics/summary: a combined
// snapshot of cache and PII activity for a dashboard-style view.
func (h *Handlers) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	total, err := h.AuditStore.CountAuditEvents(r.Context(), models.AuditFilter{})
	if err != nil {
		log.Warn().Err(err).Msg("audit count query failed")
		total = 0
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"cache":           h.CacheManager.Stats(),
		"totalRedactions": total,
		"modelsEnabled":   len(h.ModelRegistry.Enabled()),
	})
}

// AnalyticsHealth handles GET /api/v1/analytics/health: liveness of
// the cache tiers, distinct from the plain /health endpoint.
func (h *Handlers) AnalyticsHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.CacheManager.HealthCheck(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("failed to encode response body")
	}
}

func respondValidationError(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, map[string]string{
		"error":     message,
		"errorType": "VALIDATION_ERROR",
	})
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
