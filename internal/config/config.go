package config

import (
	"fmt"
	"strings"
)

// Config holds all configuration for the guardian service, under the
// llmguardian.* namespace described in the external interfaces.
type Config struct {
	App      AppConfig      `koanf:"app"`
	HTTP     HTTPConfig     `koanf:"http"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	PII      PIIConfig      `koanf:"pii"`
	Cache    CacheConfig    `koanf:"cache"`
	Optimize OptimizeConfig `koanf:"optimization"`
	Provider ProviderConfig `koanf:"provider"`
	Database DatabaseConfig `koanf:"database"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type HTTPConfig struct {
	Port            int        `koanf:"port"`
	ReadTimeoutSec  int        `koanf:"read_timeout_seconds"`
	WriteTimeoutSec int        `koanf:"write_timeout_seconds"`
	ShutdownTimeout int        `koanf:"shutdown_timeout_seconds"`
	CORS            CORSConfig `koanf:"cors"`
}

type CORSConfig struct {
	Enabled          bool     `koanf:"enabled"`
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
}

type LogConfig struct {
	Level    string            `koanf:"level"`
	Format   string            `koanf:"format"` // json, console
	Output   string            `koanf:"output"` // stdout, file
	Rotation LogRotationConfig `koanf:"rotation"`
}

type LogRotationConfig struct {
	FilePath   string `koanf:"file_path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// PIIConfig maps to the pii.* key tree: detection, redaction, and
// audit are all sub-namespaces of pii per the external interfaces.
type PIIConfig struct {
	Detection DetectionConfig `koanf:"detection"`
	Redaction RedactionConfig `koanf:"redaction"`
	Audit     AuditConfig     `koanf:"audit"`
}

type DetectionConfig struct {
	Enabled        bool            `koanf:"enabled"`
	Patterns       map[string]bool `koanf:"patterns"`
	CustomPatterns []CustomPattern `koanf:"custom_patterns"`
}

type CustomPattern struct {
	Name    string `koanf:"name"`
	Regex   string `koanf:"regex"`
	Region  string `koanf:"region"`
	Enabled bool   `koanf:"enabled"`
}

// RedactionConfig's koanf tags are snake_case rather than camelCase:
// the env provider lowercases every variable name it reads, and a
// camelCase koanf key would silently fail to receive env overrides
// once lowercased (see Loader.loadEnv). snake_case keys fold to
// themselves under that lowercasing, so overrides always land on the
// same key the defaults used.
type RedactionConfig struct {
	TokenGeneration string `koanf:"token_generation"` // random, sequential
	TokenLength     int    `koanf:"token_length"`
}

type AuditConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Level         string `koanf:"level"` // summary, detailed
	RetentionDays int    `koanf:"retention_days"`
	Backend       string `koanf:"backend"` // memory, postgres
	Workers       int    `koanf:"workers"`
	QueueDepth    int    `koanf:"queue_depth"`
	SweepInterval int    `koanf:"sweep_interval_hours"`
}

type CacheConfig struct {
	L1 CacheL1Config `koanf:"l1"`
	L2 CacheL2Config `koanf:"l2"`
}

type CacheL1Config struct {
	MaxSize    int `koanf:"max_size"`
	TTLMinutes int `koanf:"ttl_minutes"`
}

type CacheL2Config struct {
	Enabled    bool   `koanf:"enabled"`
	TTLMinutes int    `koanf:"ttl_minutes"`
	KeyPrefix  string `koanf:"key_prefix"`
	Addr       string `koanf:"addr"`
	Password   string `koanf:"password"`
	DB         int    `koanf:"db"`
}

type OptimizeConfig struct {
	Enabled         bool     `koanf:"enabled"`
	MinPromptLength int      `koanf:"min_prompt_length"`
	TargetReduction float64  `koanf:"target_reduction"`
	Strategies      []string `koanf:"strategies"`
	Stopwords       []string `koanf:"stopwords"`
}

type ProviderConfig struct {
	OpenAI OpenAIConfig `koanf:"openai"`
}

type OpenAIConfig struct {
	APIKeyEnvVar   string               `koanf:"api_key_env_var"`
	Endpoint       string               `koanf:"endpoint"`
	TimeoutSeconds int                  `koanf:"timeout_seconds"`
	MaxRetries     int                  `koanf:"max_retries"`
	RetryDelayMs   int                  `koanf:"retry_delay_ms"`
	DefaultModel   string               `koanf:"default_model"`
	Models         []ModelProfileConfig `koanf:"models"`
}

// ModelProfileConfig is the on-disk shape of a model profile. There is
// no database-backed model catalog: the registry is built directly
// from this slice at startup.
type ModelProfileConfig struct {
	ModelID          string  `koanf:"model_id"`
	DisplayName      string  `koanf:"display_name"`
	InputCostPer1k   float64 `koanf:"input_cost_per_1k"`
	OutputCostPer1k  float64 `koanf:"output_cost_per_1k"`
	MaxContextTokens int     `koanf:"max_context_tokens"`
	CapabilityTier   string  `koanf:"capability_tier"` // basic, standard, advanced
	Enabled          bool    `koanf:"enabled"`
}

type DatabaseConfig struct {
	URL          string `koanf:"url"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// Validate checks the loaded configuration for obviously broken
// values before the rest of the service starts wiring collaborators.
func (c *Config) Validate() error {
	var errs []string

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of debug/info/warn/error, got %q", c.Log.Level))
	}

	if c.PII.Redaction.TokenGeneration != "random" && c.PII.Redaction.TokenGeneration != "sequential" {
		errs = append(errs, fmt.Sprintf("pii.redaction.tokenGeneration must be random or sequential, got %q", c.PII.Redaction.TokenGeneration))
	}
	if c.PII.Redaction.TokenLength <= 0 {
		errs = append(errs, "pii.redaction.tokenLength must be positive")
	}

	if c.PII.Audit.Level != "summary" && c.PII.Audit.Level != "detailed" {
		errs = append(errs, fmt.Sprintf("pii.audit.level must be summary or detailed, got %q", c.PII.Audit.Level))
	}

	if c.Optimize.MinPromptLength < 0 {
		errs = append(errs, "optimization.minPromptLength must be non-negative")
	}

	if c.Provider.OpenAI.APIKeyEnvVar == "" {
		errs = append(errs, "provider.openai.apiKeyEnvVar must name the environment variable holding the API key")
	}
	if len(c.Provider.OpenAI.Models) == 0 {
		errs = append(errs, "provider.openai.models must list at least one model profile")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment reports whether the app is configured for local/dev use.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}
