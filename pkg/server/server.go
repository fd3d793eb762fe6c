// Package server provides the public entry point for initializing the
// LLM guardian gateway.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(fmt.Sprintf(":%d", srv.Port), srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/llmguardian/internal/api"
	"github.com/agentoven/llmguardian/internal/api/handlers"
	"github.com/agentoven/llmguardian/internal/audit"
	"github.com/agentoven/llmguardian/internal/cache"
	"github.com/agentoven/llmguardian/internal/complexity"
	"github.com/agentoven/llmguardian/internal/config"
	"github.com/agentoven/llmguardian/internal/modelrouter"
	"github.com/agentoven/llmguardian/internal/optimizer"
	"github.com/agentoven/llmguardian/internal/orchestrator"
	"github.com/agentoven/llmguardian/internal/sv"
	"github.com/agentoven/llmguardian/pkg/logger"
	"github.com/agentoven/llmguardian/pkg/metrics"
	"github.com/agentoven/llmguardian/pkg/models"
)

// Server holds the initialized guardian gateway.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Port is the port the server should listen on.
	Port int

	// Config is the fully resolved configuration the server was built
	// from, exposed for diagnostics.
	Config *config.Config

	// Orchestrator is the request pipeline entrypoint, exposed so
	// non-HTTP callers (e.g. batch tooling) can drive it directly.
	Orchestrator *orchestrator.Orchestrator

	// AuditStore is the persistence backend for sensitive-value audit
	// events.
	AuditStore audit.Store

	// CacheManager is the two-tier completion cache.
	CacheManager *cache.Manager

	// sink is the async audit writer; closed on Shutdown so queued
	// batches get a chance to drain.
	sink *audit.Sink

	// janitor runs the periodic audit-retention sweep.
	janitor *audit.Janitor

	// janitorCancel stops the janitor goroutine.
	janitorCancel context.CancelFunc
}

// New loads configuration from the environment and builds a ready
// Server.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig builds a Server from an explicit, already-validated
// configuration — the entrypoint tests and alternate mains use to
// avoid re-reading the environment.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.Rotation.FilePath,
		MaxSizeMB:  cfg.Log.Rotation.MaxSizeMB,
		MaxBackups: cfg.Log.Rotation.MaxBackups,
		MaxAgeDays: cfg.Log.Rotation.MaxAgeDays,
		Compress:   cfg.Log.Rotation.Compress,
	})

	var mx *metrics.Metrics
	if cfg.Metrics.Enabled {
		mx = metrics.New("llmguardian", "gateway")
		mx.ServiceInfo.WithLabelValues(cfg.App.Version, cfg.App.Environment).Set(1)
	}

	svRegistry := buildSVRegistry(cfg.PII.Detection)
	analyzer := complexity.NewAnalyzer()

	modelRegistry, err := buildModelRegistry(cfg.Provider.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("build model registry: %w", err)
	}
	router := modelrouter.NewRouter(modelRegistry)

	driver := modelrouter.NewOpenAIDriver(modelrouter.OpenAIConfig{
		Endpoint:     cfg.Provider.OpenAI.Endpoint,
		APIKey:       resolveAPIKey(cfg.Provider.OpenAI.APIKeyEnvVar),
		SupportedIDs: supportedModelIDs(cfg.Provider.OpenAI.Models),
	}, &http.Client{Timeout: time.Duration(cfg.Provider.OpenAI.TimeoutSeconds) * time.Second})

	client := modelrouter.NewClient(driver, modelRegistry, modelrouter.ClientConfig{
		MaxRetries:     cfg.Provider.OpenAI.MaxRetries,
		BaseInterval:   time.Duration(cfg.Provider.OpenAI.RetryDelayMs) * time.Millisecond,
		AttemptTimeout: time.Duration(cfg.Provider.OpenAI.TimeoutSeconds) * time.Second,
	})
	client.SetMetrics(mx)

	cacheMgr, err := buildCacheManager(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("build cache manager: %w", err)
	}
	cacheMgr.SetMetrics(mx)

	auditStore, err := buildAuditStore(ctx, cfg.PII.Audit)
	if err != nil {
		return nil, fmt.Errorf("build audit store: %w", err)
	}

	sink := audit.NewSink(auditStore, cfg.PII.Audit.Workers, cfg.PII.Audit.QueueDepth)
	sink.SetMetrics(mx)

	tokenMode := sv.TokenModeRandom
	if cfg.PII.Redaction.TokenGeneration == "sequential" {
		tokenMode = sv.TokenModeSequential
	}

	orch := orchestrator.New(orchestrator.Config{
		Registry:      svRegistry,
		Analyzer:      analyzer,
		ModelRegistry: modelRegistry,
		Router:        router,
		Client:        client,
		CacheManager:  cacheMgr,
		Sink:          sink,
		Optimizer:     optimizer.New(optimizer.Config{Enabled: cfg.Optimize.Enabled, MinLength: cfg.Optimize.MinPromptLength}),
		TokenMode:     tokenMode,
		AuditDetailed: cfg.PII.Audit.Level == "detailed",
		CachePrefix:   cfg.Cache.L2.KeyPrefix,
		Metrics:       mx,
	})

	h := handlers.New(orch, cacheMgr, auditStore, modelRegistry, svRegistry, cfg.App.Version)
	router2 := api.NewRouter(h, mx)

	interval := time.Duration(cfg.PII.Audit.SweepInterval) * time.Hour
	janitor := audit.NewJanitor(auditStore, interval, cfg.PII.Audit.RetentionDays)
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	go janitor.Start(janitorCtx)

	return &Server{
		Handler:       router2,
		Port:          cfg.HTTP.Port,
		Config:        cfg,
		Orchestrator:  orch,
		AuditStore:    auditStore,
		CacheManager:  cacheMgr,
		sink:          sink,
		janitor:       janitor,
		janitorCancel: janitorCancel,
	}, nil
}

// buildSVRegistry translates the detection config's enabled/disabled
// overrides and custom patterns into a *sv.Registry.
func buildSVRegistry(cfg config.DetectionConfig) *sv.Registry {
	overrides := cfg.Patterns
	if !cfg.Enabled {
		overrides = map[string]bool{}
		for kind := range cfg.Patterns {
			overrides[kind] = false
		}
	}
	registry := sv.NewRegistry(overrides)
	for _, p := range cfg.CustomPatterns {
		cp := sv.CustomPattern{Name: p.Name, Regex: p.Regex, Region: p.Region, Enabled: p.Enabled}
		if err := registry.RegisterCustom(cp); err != nil {
			log.Warn().Err(err).Str("name", p.Name).Msg("custom sensitive-value pattern rejected")
		}
	}
	return registry
}

func buildModelRegistry(cfg config.OpenAIConfig) (*modelrouter.Registry, error) {
	profiles := make([]models.ModelProfile, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		tier, err := parseCapabilityTier(m.CapabilityTier)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.ModelID, err)
		}
		profiles = append(profiles, models.ModelProfile{
			ModelID:          m.ModelID,
			DisplayName:      m.DisplayName,
			Provider:         "openai",
			InputCostPer1k:   m.InputCostPer1k,
			OutputCostPer1k:  m.OutputCostPer1k,
			MaxContextTokens: m.MaxContextTokens,
			CapabilityTier:   tier,
			Enabled:          m.Enabled,
		})
	}
	return modelrouter.NewRegistry(profiles, cfg.DefaultModel), nil
}

func parseCapabilityTier(s string) (models.CapabilityTier, error) {
	switch s {
	case string(models.CapabilityBasic), string(models.CapabilityStandard), string(models.CapabilityAdvanced):
		return models.CapabilityTier(s), nil
	default:
		return "", fmt.Errorf("unknown capability tier %q", s)
	}
}

func supportedModelIDs(cfgModels []config.ModelProfileConfig) map[string]bool {
	ids := make(map[string]bool, len(cfgModels))
	for _, m := range cfgModels {
		if m.Enabled {
			ids[m.ModelID] = true
		}
	}
	return ids
}

func resolveAPIKey(envVar string) string {
	return envOrEmpty(envVar)
}

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func buildCacheManager(cfg config.CacheConfig) (*cache.Manager, error) {
	tier1 := cache.NewMemoryTier(
		time.Duration(cfg.L1.TTLMinutes)*time.Minute,
		cfg.L1.MaxSize,
		time.Minute,
	)
	tier2 := cache.NewRedisTier(cache.RedisConfig{
		Enabled:  cfg.L2.Enabled,
		Addr:     cfg.L2.Addr,
		Password: cfg.L2.Password,
		DB:       cfg.L2.DB,
	})
	return cache.NewManager(cfg.L2.KeyPrefix, tier1, tier2, time.Duration(cfg.L2.TTLMinutes)*time.Minute), nil
}

func buildAuditStore(ctx context.Context, cfg config.AuditConfig) (audit.Store, error) {
	if cfg.Backend == "postgres" {
		return audit.NewPostgresStore(ctx, envOrEmpty("LLMGUARDIAN_DATABASE_URL"))
	}
	return audit.NewMemoryStore(), nil
}

// Shutdown stops background goroutines and drains the audit sink.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.janitorCancel != nil {
		s.janitorCancel()
	}
	if s.sink != nil {
		s.sink.Close()
	}
	if s.AuditStore != nil {
		return s.AuditStore.Close()
	}
	return nil
}
