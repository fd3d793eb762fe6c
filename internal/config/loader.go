package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "LLMGUARDIAN_"
	configEnvVar = "LLMGUARDIAN_CONFIG_PATH"
)

// Loader assembles a Config from layered sources: defaults, an
// optional YAML file, then environment variables — each layer
// overriding the one before it.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// NewLoader builds a Loader with the default search paths and env
// prefix; both can be overridden with LoaderOption.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/llmguardian/config.yaml",
		},
		envPrefix: envPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type LoaderOption func(*Loader)

func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.configPaths = paths }
}

func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) { l.envPrefix = prefix }
}

// Load resolves the layered configuration: defaults, then an optional
// YAML file, then environment variables (highest priority).
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := l.loadConfigFile(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"app.name":        "llmguardian",
		"app.version":     "0.1.0",
		"app.environment": "development",

		"http.port":                     8080,
		"http.read_timeout_seconds":     30,
		"http.write_timeout_seconds":    30,
		"http.shutdown_timeout_seconds": 10,
		"http.cors.enabled":             true,
		"http.cors.allowed_origins":     []string{"*"},
		"http.cors.allowed_methods":     []string{"GET", "POST", "OPTIONS"},
		"http.cors.allowed_headers":     []string{"*"},
		"http.cors.allow_credentials":   false,

		"log.level":                    "info",
		"log.format":                   "json",
		"log.output":                   "stdout",
		"log.rotation.max_size_mb":     100,
		"log.rotation.max_backups":    3,
		"log.rotation.max_age_days":   7,
		"log.rotation.compress":        true,

		"metrics.enabled": true,
		"metrics.path":    "/metrics",

		"pii.detection.enabled":                    true,
		"pii.detection.patterns.email":             true,
		"pii.detection.patterns.phone":              true,
		"pii.detection.patterns.credit-card":        true,
		"pii.detection.patterns.government-id-us":   true,
		"pii.detection.patterns.government-id-in":   false,
		"pii.detection.patterns.api-key":             true,
		"pii.detection.patterns.ip-address":          true,
		"pii.redaction.token_generation": "random",
		"pii.redaction.token_length":     6,
		"pii.audit.enabled":              true,
		"pii.audit.level":                "summary",
		"pii.audit.retention_days":       90,
		"pii.audit.backend":              "memory",
		"pii.audit.workers":              2,
		"pii.audit.queue_depth":          256,
		"pii.audit.sweep_interval_hours": 24,

		"cache.l1.max_size":    1000,
		"cache.l1.ttl_minutes": 5,
		"cache.l2.enabled":     false,
		"cache.l2.ttl_minutes": 60,
		"cache.l2.key_prefix":  "completion",
		"cache.l2.addr":        "localhost:6379",
		"cache.l2.db":          0,

		"optimization.enabled":           true,
		"optimization.min_prompt_length": 40,
		"optimization.target_reduction":  15.0,
		"optimization.strategies":        []string{"redundancy", "filler", "verbose", "whitespace"},

		"provider.openai.api_key_env_var": "LLMGUARDIAN_OPENAI_API_KEY",
		"provider.openai.endpoint":        "https://api.openai.com/v1",
		"provider.openai.timeout_seconds": 30,
		"provider.openai.max_retries":     3,
		"provider.openai.retry_delay_ms":  200,
		"provider.openai.default_model":   "gpt-4o-mini",
		"provider.openai.models": []map[string]any{
			{
				"model_id":           "gpt-4o-mini",
				"display_name":       "GPT-4o mini",
				"input_cost_per_1k":  0.00015,
				"output_cost_per_1k": 0.0006,
				"max_context_tokens": 128000,
				"capability_tier":    "basic",
				"enabled":            true,
			},
			{
				"model_id":           "gpt-4o",
				"display_name":       "GPT-4o",
				"input_cost_per_1k":  0.0025,
				"output_cost_per_1k": 0.01,
				"max_context_tokens": 128000,
				"capability_tier":    "standard",
				"enabled":            true,
			},
			{
				"model_id":           "o1",
				"display_name":       "o1",
				"input_cost_per_1k":  0.015,
				"output_cost_per_1k": 0.06,
				"max_context_tokens": 200000,
				"capability_tier":    "advanced",
				"enabled":            true,
			},
		},

		"database.url":            "",
		"database.max_open_conns": 10,
		"database.auto_migrate":   true,
	}
	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

func (l *Loader) loadConfigFile() error {
	if path := os.Getenv(configEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return l.k.Load(file.Provider(path), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			return l.k.Load(file.Provider(abs), yaml.Parser())
		}
	}
	return fmt.Errorf("no config file found in %v, using defaults and environment only", l.configPaths)
}

func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		// LLMGUARDIAN_CACHE__L1__MAXSIZE -> cache.l1.maxsize
		trimmed := strings.TrimPrefix(s, l.envPrefix)
		return strings.ReplaceAll(strings.ToLower(trimmed), "__", ".")
	}), nil)
}

// MustLoad loads the configuration or panics; used only at process
// start in cmd/server, never inside request-handling code.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load loads the configuration using the default search paths and
// environment prefix.
func Load() (*Config, error) {
	return NewLoader().Load()
}

// ReadTimeout returns the HTTP read timeout as a time.Duration.
func (c HTTPConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSec) * time.Second
}

// WriteTimeout returns the HTTP write timeout as a time.Duration.
func (c HTTPConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}

// ShutdownGrace returns the graceful-shutdown timeout as a time.Duration.
func (c HTTPConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}
