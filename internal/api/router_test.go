package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/llmguardian/internal/api"
	"github.com/agentoven/llmguardian/internal/api/handlers"
	"github.com/agentoven/llmguardian/internal/audit"
	"github.com/agentoven/llmguardian/internal/cache"
	"github.com/agentoven/llmguardian/internal/complexity"
	"github.com/agentoven/llmguardian/internal/modelrouter"
	"github.com/agentoven/llmguardian/internal/optimizer"
	"github.com/agentoven/llmguardian/internal/orchestrator"
	"github.com/agentoven/llmguardian/internal/sv"
	"github.com/agentoven/llmguardian/pkg/models"
)

type noopDriver struct{}

func (noopDriver) Kind() string { return "noop" }

func (noopDriver) Supports(modelID string) bool { return true }

func (noopDriver) Call(ctx context.Context, req *models.CompletionRequest) (*models.ProviderResponse, error) {
	return &models.ProviderResponse{Text: "ok", ModelID: req.ModelID, Timestamp: time.Now()}, nil
}

func (noopDriver) HealthCheck(ctx context.Context) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	modelRegistry := modelrouter.NewRegistry([]models.ModelProfile{
		{ModelID: "standard-a", CapabilityTier: models.CapabilityStandard, Enabled: true, MaxContextTokens: 8192},
	}, "standard-a")

	cacheMgr := cache.NewManager("test",
		cache.NewMemoryTier(time.Minute, 10, time.Minute),
		cache.NewRedisTier(cache.RedisConfig{Enabled: false}),
		time.Hour)
	svRegistry := sv.NewRegistry(nil)
	auditStore := audit.NewMemoryStore()

	o := orchestrator.New(orchestrator.Config{
		Registry:      svRegistry,
		Analyzer:      complexity.NewAnalyzer(),
		ModelRegistry: modelRegistry,
		Router:        modelrouter.NewRouter(modelRegistry),
		Client:        modelrouter.NewClient(noopDriver{}, modelRegistry, modelrouter.ClientConfig{}),
		CacheManager:  cacheMgr,
		Sink:          audit.NewSink(auditStore, 1, 8),
		Optimizer:     optimizer.New(optimizer.Config{Enabled: false}),
		TokenMode:     sv.TokenModeRandom,
	})

	h := handlers.New(o, cacheMgr, auditStore, modelRegistry, svRegistry, "test")
	return api.NewRouter(h, nil)
}

func TestRouter_HealthEndpointsRespond(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equalf(t, http.StatusOK, w.Code, "%s", path)
	}
}

func TestRouter_MetricsRouteAbsentWhenMetricsNil(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code, "expected /metrics to be absent when metrics are disabled")
}

func TestRouter_UnknownRouteReturnsJSONNotFound(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestRouter_CORSWildcardDisablesCredentials(t *testing.T) {
	os.Unsetenv("LLMGUARDIAN_CORS_ORIGINS")
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/completions", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEqual(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
