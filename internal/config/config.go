// Package config loads the runtime configuration recognized by the agent
// core: default model/history settings, per-provider API keys, and
// per-tool settings, following the teacher's DefaultXConfig +
// sanitizeXConfig pattern (see internal/agent/loop.go's LoopConfig) and
// its loader.go's env-expand-then-YAML-decode shape.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AgentDefaults holds the agents.defaults.* keys from spec.md §6.
type AgentDefaults struct {
	Model           string `yaml:"model"`
	MaxChatHistory  int    `yaml:"maxChatHistory"`
	LoadChatHistory bool   `yaml:"loadChatHistory"`
	DisableRag      bool   `yaml:"disableRag"`
	EmbeddingModel  string `yaml:"embeddingModel"`
}

// ProviderConfig holds providers.<name>.* keys.
type ProviderConfig struct {
	APIKey string `yaml:"apiKey"`
}

// ObservabilityConfig holds observability.* keys controlling which
// Observer implementations the run wires in alongside the always-on log
// and Prometheus observers.
type ObservabilityConfig struct {
	// Verbose adds an arrow-prefixed terminal observer on top of the
	// structured log observer.
	Verbose bool `yaml:"verbose"`

	// OTelEndpoint, when set, adds an OTelObserver exporting batched
	// spans to this OTLP/HTTP collector URL. Empty disables it.
	OTelEndpoint string `yaml:"otelEndpoint"`
}

// Config is the top-level configuration document.
type Config struct {
	Agents        AgentDefaults         `yaml:"agents"`
	Providers     map[string]ProviderConfig `yaml:"providers"`
	Tools         map[string]map[string]any `yaml:"tools"`
	Observability ObservabilityConfig   `yaml:"observability"`
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		Agents: AgentDefaults{
			MaxChatHistory:  10,
			LoadChatHistory: true,
			DisableRag:      false,
		},
	}
}

// sanitize fills in zero-valued fields with the documented defaults,
// mirroring the teacher's sanitizeLoopConfig.
func sanitize(c Config) Config {
	def := DefaultConfig()
	if c.Agents.MaxChatHistory <= 0 {
		c.Agents.MaxChatHistory = def.Agents.MaxChatHistory
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	if c.Tools == nil {
		c.Tools = map[string]map[string]any{}
	}
	return c
}

// Load reads a YAML configuration document from path, expanding ${VAR}
// environment references before parsing (teacher's loader.go pattern),
// validates that agents.defaults.model is set, and sanitizes defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg = sanitize(cfg)
	if strings.TrimSpace(cfg.Agents.Model) == "" {
		return Config{}, fmt.Errorf("agents.defaults.model is required")
	}
	return cfg, nil
}

// ProviderAPIKey resolves an API key for the named provider: the
// providers.<name>.apiKey config value if set, else the implementation-
// defined environment variable AGENTCORE_<NAME>_API_KEY.
func (c Config) ProviderAPIKey(name string) string {
	if p, ok := c.Providers[name]; ok && strings.TrimSpace(p.APIKey) != "" {
		return p.APIKey
	}
	envKey := "AGENTCORE_" + strings.ToUpper(name) + "_API_KEY"
	return os.Getenv(envKey)
}

// ToolSetting resolves a single tools.<name>.<key> value, or ok=false when
// absent.
func (c Config) ToolSetting(tool, key string) (any, bool) {
	settings, ok := c.Tools[tool]
	if !ok {
		return nil, false
	}
	v, ok := settings[key]
	return v, ok
}
