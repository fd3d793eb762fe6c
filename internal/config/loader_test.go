package config

import "testing"

func TestLoader_DefaultsLoadWithoutAnyFileOrEnv(t *testing.T) {
	cfg, err := NewLoader(WithConfigPaths("/nonexistent/config.yaml")).Load()
	if err != nil {
		t.Fatalf("unexpected error loading defaults: %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default HTTP port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.PII.Redaction.TokenGeneration != "random" {
		t.Errorf("expected default token generation mode random, got %q", cfg.PII.Redaction.TokenGeneration)
	}
	if !cfg.Optimize.Enabled {
		t.Error("expected optimization enabled by default")
	}
	if len(cfg.Provider.OpenAI.Models) == 0 {
		t.Error("expected at least one default model profile")
	}
}

func TestLoader_EnvOverridesDefaultsWithDoubleUnderscoreNesting(t *testing.T) {
	t.Setenv("LLMGUARDIAN_HTTP__PORT", "9090")
	t.Setenv("LLMGUARDIAN_PII__REDACTION__TOKEN_LENGTH", "10")

	cfg, err := NewLoader(WithConfigPaths("/nonexistent/config.yaml")).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected env override to set HTTP port to 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.PII.Redaction.TokenLength != 10 {
		t.Errorf("expected env override to set token length to 10, got %d", cfg.PII.Redaction.TokenLength)
	}
}

func TestLoader_SnakeCaseLeafKeySurvivesEnvOverride(t *testing.T) {
	t.Setenv("LLMGUARDIAN_HTTP__READ_TIMEOUT_SECONDS", "45")

	cfg, err := NewLoader(WithConfigPaths("/nonexistent/config.yaml")).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.ReadTimeoutSec != 45 {
		t.Errorf("expected the snake_case leaf key to survive the double-underscore nesting split, got %d", cfg.HTTP.ReadTimeoutSec)
	}
}
