package config

import "testing"

func validBaseConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Log:  LogConfig{Level: "info"},
		PII: PIIConfig{
			Redaction: RedactionConfig{TokenGeneration: "random", TokenLength: 6},
			Audit:     AuditConfig{Level: "summary"},
		},
		Provider: ProviderConfig{OpenAI: OpenAIConfig{
			APIKeyEnvVar: "LLMGUARDIAN_OPENAI_API_KEY",
			Models:       []ModelProfileConfig{{ModelID: "gpt-4o-mini", CapabilityTier: "basic", Enabled: true}},
		}},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "port zero", mutate: func(c *Config) { c.HTTP.Port = 0 }, wantErr: true},
		{name: "port too high", mutate: func(c *Config) { c.HTTP.Port = 70000 }, wantErr: true},
		{name: "invalid log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: true},
		{name: "valid debug level", mutate: func(c *Config) { c.Log.Level = "debug" }, wantErr: false},
		{name: "invalid token generation mode", mutate: func(c *Config) { c.PII.Redaction.TokenGeneration = "incremental" }, wantErr: true},
		{name: "zero token length", mutate: func(c *Config) { c.PII.Redaction.TokenLength = 0 }, wantErr: true},
		{name: "invalid audit level", mutate: func(c *Config) { c.PII.Audit.Level = "verbose" }, wantErr: true},
		{name: "negative min prompt length", mutate: func(c *Config) { c.Optimize.MinPromptLength = -1 }, wantErr: true},
		{name: "missing openai api key env var", mutate: func(c *Config) { c.Provider.OpenAI.APIKeyEnvVar = "" }, wantErr: true},
		{name: "no model profiles configured", mutate: func(c *Config) { c.Provider.OpenAI.Models = nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"dev", true},
		{"production", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() for %q = %v, want %v", tt.env, got, tt.want)
		}
	}
}
