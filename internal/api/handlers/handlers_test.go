package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/llmguardian/internal/api/handlers"
	"github.com/agentoven/llmguardian/internal/audit"
	"github.com/agentoven/llmguardian/internal/cache"
	"github.com/agentoven/llmguardian/internal/complexity"
	"github.com/agentoven/llmguardian/internal/modelrouter"
	"github.com/agentoven/llmguardian/internal/optimizer"
	"github.com/agentoven/llmguardian/internal/orchestrator"
	"github.com/agentoven/llmguardian/internal/sv"
	"github.com/agentoven/llmguardian/pkg/apperror"
	"github.com/agentoven/llmguardian/pkg/models"
)

type fakeDriver struct {
	failCode apperror.Code
}

func (d *fakeDriver) Kind() string { return "fake" }

func (d *fakeDriver) Supports(modelID string) bool { return true }

func (d *fakeDriver) Call(ctx context.Context, req *models.CompletionRequest) (*models.ProviderResponse, error) {
	if d.failCode != "" {
		return nil, apperror.New(d.failCode, "simulated provider failure")
	}
	return &models.ProviderResponse{
		Text:         "Echo: " + req.Prompt,
		ModelID:      req.ModelID,
		InputTokens:  10,
		OutputTokens: 5,
		FinishReason: models.FinishStop,
		Timestamp:    time.Now(),
	}, nil
}

func (d *fakeDriver) HealthCheck(ctx context.Context) error { return nil }

func newTestHandlers(t *testing.T, driver *fakeDriver) *handlers.Handlers {
	t.Helper()

	svRegistry := sv.NewRegistry(nil)
	modelRegistry := modelrouter.NewRegistry([]models.ModelProfile{
		{ModelID: "standard-a", CapabilityTier: models.CapabilityStandard, Enabled: true, MaxContextTokens: 8192},
	}, "standard-a")
	router := modelrouter.NewRouter(modelRegistry)
	client := modelrouter.NewClient(driver, modelRegistry, modelrouter.ClientConfig{MaxRetries: 0})

	tier1 := cache.NewMemoryTier(5*time.Minute, 100, time.Minute)
	tier2 := cache.NewRedisTier(cache.RedisConfig{Enabled: false})
	cacheMgr := cache.NewManager("test", tier1, tier2, time.Hour)

	store := audit.NewMemoryStore()
	sink := audit.NewSink(store, 1, 16)

	o := orchestrator.New(orchestrator.Config{
		Registry:      svRegistry,
		Analyzer:      complexity.NewAnalyzer(),
		ModelRegistry: modelRegistry,
		Router:        router,
		Client:        client,
		CacheManager:  cacheMgr,
		Sink:          sink,
		Optimizer:     optimizer.New(optimizer.Config{Enabled: true, MinLength: 1}),
		TokenMode:     sv.TokenModeRandom,
		CachePrefix:   "test",
	})

	return handlers.New(o, cacheMgr, store, modelRegistry, svRegistry, "test-version")
}

func doRequest(t *testing.T, h http.HandlerFunc, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCompletions_ValidRequestSucceeds(t *testing.T) {
	h := newTestHandlers(t, &fakeDriver{})

	w := doRequest(t, h.Completions, http.MethodPost, "/api/v1/completions", map[string]any{
		"query": "Please summarize this quarterly report for the team.",
		"model": "standard-a",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["text"])
}

func TestCompletions_EmptyQueryIsValidationError(t *testing.T) {
	h := newTestHandlers(t, &fakeDriver{})

	w := doRequest(t, h.Completions, http.MethodPost, "/api/v1/completions", map[string]any{
		"query": "",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp["errorType"])
}

func TestCompletions_OutOfRangeMaxTokensIsValidationError(t *testing.T) {
	h := newTestHandlers(t, &fakeDriver{})

	w := doRequest(t, h.Completions, http.MethodPost, "/api/v1/completions", map[string]any{
		"query":     "A prompt long enough to pass every other check easily.",
		"maxTokens": 100000,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompletions_MalformedJSONIsValidationError(t *testing.T) {
	h := newTestHandlers(t, &fakeDriver{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/completions", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	h.Completions(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompletions_ProviderFailureReturnsErrorEnvelope(t *testing.T) {
	h := newTestHandlers(t, &fakeDriver{failCode: apperror.CodeProviderUnavailable})

	w := doRequest(t, h.Completions, http.MethodPost, "/api/v1/completions", map[string]any{
		"query": "A prompt long enough to reach the provider call easily.",
		"model": "standard-a",
	})

	require.GreaterOrEqual(t, w.Code, 500)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.NotEmpty(t, resp["error"])
}

func TestCompletions_DisabledOptimizationIsReflectedInMetadata(t *testing.T) {
	h := newTestHandlers(t, &fakeDriver{})

	enable := false
	w := doRequest(t, h.Completions, http.MethodPost, "/api/v1/completions", map[string]any{
		"query":              "A prompt long enough to pass the optimizer threshold comfortably in length.",
		"model":              "standard-a",
		"enableOptimization": &enable,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	meta, ok := resp["metadata"].(map[string]any)
	require.True(t, ok, "expected a metadata object in the response")
	assert.Equal(t, false, meta["optimizationApplied"])
}

func TestHealth_ReturnsHealthyStatus(t *testing.T) {
	h := newTestHandlers(t, &fakeDriver{})

	w := doRequest(t, h.Health, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestAnalyticsCache_ReturnsStats(t *testing.T) {
	h := newTestHandlers(t, &fakeDriver{})

	w := doRequest(t, h.AnalyticsCache, http.MethodGet, "/api/v1/analytics/cache", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyticsCacheClear_ClearsAndReportsStatus(t *testing.T) {
	h := newTestHandlers(t, &fakeDriver{})

	w := doRequest(t, h.AnalyticsCacheClear, http.MethodPost, "/api/v1/analytics/cache/clear", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cleared", resp["status"])
}

func TestAnalyticsModels_ReturnsEnabledProfiles(t *testing.T) {
	h := newTestHandlers(t, &fakeDriver{})

	w := doRequest(t, h.AnalyticsModels, http.MethodGet, "/api/v1/analytics/models", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var profiles []models.ModelProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profiles))
	require.Len(t, profiles, 1)
	assert.Equal(t, "standard-a", profiles[0].ModelID)
}
