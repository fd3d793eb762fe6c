package modelrouter_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentoven/llmguardian/internal/modelrouter"
	"github.com/agentoven/llmguardian/pkg/apperror"
	"github.com/agentoven/llmguardian/pkg/models"
)

func testProfiles() []models.ModelProfile {
	return []models.ModelProfile{
		{ModelID: "fast-basic", Provider: "openai", InputCostPer1k: 0.0001, OutputCostPer1k: 0.0002, CapabilityTier: models.CapabilityBasic, Enabled: true},
		{ModelID: "standard-a", Provider: "openai", InputCostPer1k: 0.001, OutputCostPer1k: 0.002, CapabilityTier: models.CapabilityStandard, Enabled: true},
		{ModelID: "flagship", Provider: "openai", InputCostPer1k: 0.01, OutputCostPer1k: 0.03, CapabilityTier: models.CapabilityAdvanced, Enabled: true},
		{ModelID: "disabled-adv", Provider: "openai", InputCostPer1k: 0.005, OutputCostPer1k: 0.01, CapabilityTier: models.CapabilityAdvanced, Enabled: false},
	}
}

func TestRouter_TotalityAcrossStrategyAndLevel(t *testing.T) {
	registry := modelrouter.NewRegistry(testProfiles(), "standard-a")
	router := modelrouter.NewRouter(registry)

	strategies := []models.RoutingStrategy{
		models.RoutingComplexity, models.RoutingCost, models.RoutingPerformance, models.RoutingBalanced,
	}
	levels := []models.ComplexityLevel{models.ComplexitySimple, models.ComplexityMedium, models.ComplexityComplex}

	for _, strat := range strategies {
		for _, level := range levels {
			score := models.ComplexityScore{Score: 50, Level: level}
			decision := router.Route(score, strat)
			profile, ok := registry.Get(decision.ModelID)
			if !ok || !profile.Enabled {
				t.Fatalf("strategy=%s level=%s: Route returned non-enabled model %q", strat, level, decision.ModelID)
			}
		}
	}
}

func TestRouter_UnrecognizedStrategyFallsBackToComplexity(t *testing.T) {
	registry := modelrouter.NewRegistry(testProfiles(), "standard-a")
	router := modelrouter.NewRouter(registry)

	decision := router.Route(models.ComplexityScore{Score: 90, Level: models.ComplexityComplex}, models.RoutingStrategy("unknown"))
	if decision.ModelID != "flagship" {
		t.Errorf("expected unrecognized strategy to behave like complexity strategy for complex level, got %q", decision.ModelID)
	}
}

// fakeDriver fails a configured number of times with a given error
// kind before succeeding, counting attempts.
type fakeDriver struct {
	failures  int32
	failCode  apperror.Code
	attempts  int32
}

func (d *fakeDriver) Kind() string { return "fake" }

func (d *fakeDriver) Supports(modelID string) bool { return true }

func (d *fakeDriver) Call(ctx context.Context, req *models.CompletionRequest) (*models.ProviderResponse, error) {
	n := atomic.AddInt32(&d.attempts, 1)
	if n <= d.failures {
		return nil, apperror.New(d.failCode, "simulated failure")
	}
	return &models.ProviderResponse{Text: "ok", ModelID: req.ModelID, InputTokens: 10, OutputTokens: 5}, nil
}

func (d *fakeDriver) HealthCheck(ctx context.Context) error { return nil }

func TestClient_RetryBudget_RetryableError(t *testing.T) {
	registry := modelrouter.NewRegistry(testProfiles(), "standard-a")
	driver := &fakeDriver{failures: 2, failCode: apperror.CodeProviderServer}
	client := modelrouter.NewClient(driver, registry, modelrouter.ClientConfig{
		MaxRetries:     2,
		BaseInterval:   time.Millisecond,
		MaxInterval:    5 * time.Millisecond,
		AttemptTimeout: time.Second,
	})

	_, err := client.Complete(context.Background(), &models.CompletionRequest{
		ModelID: "standard-a", Prompt: "hello", MaxOutputTokens: 16,
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&driver.attempts); got != 3 {
		t.Errorf("expected exactly 3 attempts (maxRetries=2 -> 1+2), got %d", got)
	}
}

func TestClient_RetryBudget_NonRetryableError_SingleAttempt(t *testing.T) {
	registry := modelrouter.NewRegistry(testProfiles(), "standard-a")
	driver := &fakeDriver{failures: 5, failCode: apperror.CodeProviderAuth}
	client := modelrouter.NewClient(driver, registry, modelrouter.ClientConfig{
		MaxRetries:     3,
		BaseInterval:   time.Millisecond,
		MaxInterval:    5 * time.Millisecond,
		AttemptTimeout: time.Second,
	})

	_, err := client.Complete(context.Background(), &models.CompletionRequest{
		ModelID: "standard-a", Prompt: "hello", MaxOutputTokens: 16,
	})
	if err == nil {
		t.Fatal("expected error for non-retryable failure")
	}
	if !apperror.Is(err, apperror.CodeProviderAuth) {
		t.Errorf("expected CodeProviderAuth to propagate, got %v", err)
	}
	if got := atomic.LoadInt32(&driver.attempts); got != 1 {
		t.Errorf("expected exactly 1 attempt for non-retryable error, got %d", got)
	}
}

func TestClient_RetryBudget_ExhaustsAndReturnsLastError(t *testing.T) {
	registry := modelrouter.NewRegistry(testProfiles(), "standard-a")
	driver := &fakeDriver{failures: 100, failCode: apperror.CodeProviderUnavailable}
	client := modelrouter.NewClient(driver, registry, modelrouter.ClientConfig{
		MaxRetries:     2,
		BaseInterval:   time.Millisecond,
		MaxInterval:    5 * time.Millisecond,
		AttemptTimeout: time.Second,
	})

	_, err := client.Complete(context.Background(), &models.CompletionRequest{
		ModelID: "standard-a", Prompt: "hello", MaxOutputTokens: 16,
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&driver.attempts); got != 3 {
		t.Errorf("expected exactly 3 attempts (maxRetries=2 -> 1+2), got %d", got)
	}
}

func TestClient_ValidatesUnknownModel(t *testing.T) {
	registry := modelrouter.NewRegistry(testProfiles(), "standard-a")
	driver := &fakeDriver{}
	client := modelrouter.NewClient(driver, registry, modelrouter.ClientConfig{})

	_, err := client.Complete(context.Background(), &models.CompletionRequest{
		ModelID: "nonexistent", Prompt: "hi", MaxOutputTokens: 16,
	})
	if !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error for unknown model, got %v", err)
	}
	if atomic.LoadInt32(&driver.attempts) != 0 {
		t.Errorf("expected no driver calls for a request that fails local validation")
	}
}
