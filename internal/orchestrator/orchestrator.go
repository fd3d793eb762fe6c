// Package orchestrator sequences the request pipeline: SV detect,
// redact, optimize, complexity-score, route, cache lookup, provider
// call (on miss), cache store, SV restore, async audit submit, result
// assembly. Collaborators are concrete types passed in through a single
// constructor (they are not abstracted behind interfaces), and Process is the single entrypoint that threads
// state through each staged step and accumulates per-stage timing.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/llmguardian/internal/audit"
	"github.com/agentoven/llmguardian/internal/cache"
	"github.com/agentoven/llmguardian/internal/complexity"
	"github.com/agentoven/llmguardian/internal/modelrouter"
	"github.com/agentoven/llmguardian/internal/optimizer"
	"github.com/agentoven/llmguardian/internal/sv"
	"github.com/agentoven/llmguardian/pkg/apperror"
	"github.com/agentoven/llmguardian/pkg/metrics"
	"github.com/agentoven/llmguardian/pkg/models"
)

// Request is the orchestrator-level input DTO, already validated by
// the API layer.
type Request struct {
	Prompt             string
	ModelID            string // empty means "let the router decide"
	Strategy           models.RoutingStrategy
	MaxOutputTokens    int
	Temperature        *float64
	TopP               *float64
	N                  *int
	StopSequences      []string
	EnableOptimization bool // defaulted true by the API layer
	EnableCache        bool // defaulted true by the API layer
}

// Orchestrator wires together every stage's collaborator as a concrete
// pointer type, constructed once and passed in — no global singletons.
type Orchestrator struct {
	registry      *sv.Registry
	detector      *sv.Detector
	redactor      *sv.Redactor
	analyzer      *complexity.Analyzer
	router        *modelrouter.Router
	modelRegistry *modelrouter.Registry
	client        *modelrouter.Client
	cacheMgr      *cache.Manager
	sink          *audit.Sink
	opt           *optimizer.Optimizer
	auditDetailed bool
	cachePrefix   string
	mx            *metrics.Metrics
}

// Config bundles the collaborators and per-request policy knobs an
// Orchestrator needs.
type Config struct {
	Registry      *sv.Registry
	Analyzer      *complexity.Analyzer
	ModelRegistry *modelrouter.Registry
	Router        *modelrouter.Router
	Client        *modelrouter.Client
	CacheManager  *cache.Manager
	Sink          *audit.Sink
	Optimizer     *optimizer.Optimizer
	TokenMode     sv.TokenMode
	AuditDetailed bool
	CachePrefix   string
	Metrics       *metrics.Metrics
}

// New builds an Orchestrator from its collaborators.
func New(cfg Config) *Orchestrator {
	prefix := cfg.CachePrefix
	if prefix == "" {
		prefix = "completion"
	}
	return &Orchestrator{
		registry:      cfg.Registry,
		detector:      sv.NewDetector(cfg.Registry),
		redactor:      sv.NewRedactor(cfg.TokenMode, 0),
		analyzer:      cfg.Analyzer,
		router:        cfg.Router,
		modelRegistry: cfg.ModelRegistry,
		client:        cfg.Client,
		cacheMgr:      cfg.CacheManager,
		sink:          cfg.Sink,
		opt:           cfg.Optimizer,
		auditDetailed: cfg.AuditDetailed,
		cachePrefix:   prefix,
		mx:            cfg.Metrics,
	}
}

// Process runs the full pipeline for one request. It always returns a
// models.ProcessingResult and has no error return: every failure,
// including context cancellation (checked between stages), is reported
// in the result.
func (o *Orchestrator) Process(ctx context.Context, req Request) models.ProcessingResult {
	requestID := uuid.NewString()
	start := time.Now()

	result := models.ProcessingResult{RequestID: requestID, Timestamp: start}

	if err := ctx.Err(); err != nil {
		return failure(result, apperror.New(apperror.CodeInternal, "request canceled before processing started"))
	}

	svCtx := sv.NewContext(requestID)

	// Stage 1-2: detect then redact. The prompt passed to the provider
	// client downstream must be the redacted prompt — never the
	// original.
	detection := o.detector.Detect(req.Prompt)
	redacted := o.redactor.Redact(req.Prompt, detection.Matches, svCtx)
	o.recordDetections(detection.Matches)

	if err := ctx.Err(); err != nil {
		return failure(result, apperror.New(apperror.CodeInternal, "request canceled during SV processing"))
	}

	// Stage 3: optimize (bounded, deterministic, entity-span-aware),
	// unless the caller opted out.
	optimizedPrompt := redacted
	var optResult optimizer.Result
	if req.EnableOptimization {
		optResult = o.opt.Optimize(redacted)
		optimizedPrompt = optResult.Text
	}

	// Stage 4: complexity score (pure, CPU-only).
	score := o.analyzer.Score(optimizedPrompt)

	// Stage 4.5: route.
	decision := o.resolveModel(req, score)

	if err := ctx.Err(); err != nil {
		return failure(result, apperror.New(apperror.CodeInternal, "request canceled before routing completed"))
	}

	// Stage 5: cache lookup, unless the caller opted out.
	key := cache.BuildKey(o.cachePrefix, optimizedPrompt, decision.ModelID, "")
	var providerResp *models.ProviderResponse
	fromCache := false
	cached, hit := "", false
	if req.EnableCache {
		cached, hit = o.cacheMgr.Get(ctx, key)
	}

	if hit {
		providerResp = &models.ProviderResponse{Text: cached, ModelID: decision.ModelID, Timestamp: time.Now()}
		fromCache = true
	} else {
		// Stage 6: provider call (suspension point, including backoff
		// sleeps). Stage 7: cache store, observable only after success.
		providerStart := time.Now()
		resp, err := o.client.Complete(ctx, &models.CompletionRequest{
			ModelID:         decision.ModelID,
			Prompt:          optimizedPrompt,
			MaxOutputTokens: req.MaxOutputTokens,
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			N:               req.N,
			StopSequences:   req.StopSequences,
		})
		o.recordProviderCall(decision.ModelID, time.Since(providerStart), err)
		if err != nil {
			o.submitAudit(svCtx)
			return failure(result, err)
		}
		providerResp = resp
		if req.EnableCache {
			o.cacheMgr.Set(ctx, key, resp.Text)
		}
	}

	// Stage 8: SV restore (CPU-only).
	restoredText := o.redactor.Restore(providerResp.Text, svCtx)

	// Stage 9: async audit submit — fire-and-forget, driven from the SV
	// context after the response text is produced. The only persistent
	// side effect the core performs outside cache writes.
	o.submitAudit(svCtx)

	// Stage 10: assemble result.
	totalLatency := time.Since(start).Milliseconds()
	result.Success = true
	result.Text = restoredText
	result.Metadata = models.ProcessingMetadata{
		ModelUsed:           decision.ModelID,
		ComplexityLevel:     score.Level,
		InputTokens:         providerResp.InputTokens,
		OutputTokens:        providerResp.OutputTokens,
		TotalTokens:         providerResp.InputTokens + providerResp.OutputTokens,
		LatencyMs:           totalLatency,
		FromCache:           fromCache,
		OptimizationApplied: optResult.Applied,
		TokensSaved:         optResult.OriginalLength - optResult.OptimizedLength,
		ReductionPercentage: optResult.ReductionPercentage,
		PIIDetected:         len(detection.Matches) > 0,
		PIICount:            len(detection.Matches),
		EstimatedCost:       providerResp.EstimatedCost,
	}
	return result
}

// resolveModel applies the caller's explicit model id when given and
// it is a known, enabled profile; otherwise defers to the router.
func (o *Orchestrator) resolveModel(req Request, score models.ComplexityScore) models.ModelDecision {
	if req.ModelID != "" {
		if profile, ok := o.modelRegistry.Get(req.ModelID); ok && profile.Enabled {
			return models.ModelDecision{
				ModelID:      profile.ModelID,
				StrategyUsed: req.Strategy,
				Rationale:    "explicit model id requested",
				Complexity:   score,
			}
		}
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = models.RoutingBalanced
	}
	return o.router.Route(score, strategy)
}

func (o *Orchestrator) recordDetections(matches []models.SVMatch) {
	if o.mx == nil {
		return
	}
	for _, m := range matches {
		o.mx.PIIDetectionsTotal.WithLabelValues(m.Kind).Inc()
	}
}

func (o *Orchestrator) recordProviderCall(modelID string, elapsed time.Duration, err error) {
	if o.mx == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	o.mx.ProviderRequestsTotal.WithLabelValues(modelID, status).Inc()
	o.mx.ProviderRequestDuration.WithLabelValues(modelID).Observe(elapsed.Seconds())
}

func (o *Orchestrator) submitAudit(svCtx *sv.Context) {
	detections := svCtx.Detections()
	if len(detections) == 0 {
		return
	}
	o.sink.Submit(audit.Submission{
		RequestID: svCtx.RequestID,
		Detailed:  o.auditDetailed,
		Records:   detections,
	})
}

func failure(result models.ProcessingResult, err error) models.ProcessingResult {
	code := apperror.CodeOf(err)
	result.Success = false
	result.Error = err.Error()
	result.ErrorType = apperror.ErrorType(code)
	log.Warn().Err(err).Str("request_id", result.RequestID).Msg("request processing failed")
	return result
}
