// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/llm"
	"github.com/alienxp03/arena/internal/prefetch"
	"github.com/alienxp03/arena/internal/storage"
	"github.com/alienxp03/arena/provider"
	"github.com/alienxp03/arena/provider/claude"
	"github.com/alienxp03/arena/provider/gemini"
	"github.com/alienxp03/arena/provider/generic"
	"github.com/alienxp03/arena/provider/openai"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	LLM     LLMConfig     `yaml:"llm"`
	Engine  EngineConfig  `yaml:"engine"`
}

// ServerConfig holds server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// LLMConfig selects and configures the generative backend.
type LLMConfig struct {
	// Provider is one of mock, claude, gemini, openai, or any other CLI name
	// (run through the generic provider). "provider/model" is accepted.
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model,omitempty"`
	APIKey      string        `yaml:"api_key,omitempty"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	Command     string        `yaml:"command,omitempty"`
	Args        []string      `yaml:"args,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MaxRetries  int           `yaml:"max_retries"`
	Temperature *float32      `yaml:"temperature,omitempty"`
}

// EngineConfig tunes session advancement.
type EngineConfig struct {
	PrefetchEnabled    bool          `yaml:"prefetch_enabled"`
	PrefetchTTL        time.Duration `yaml:"prefetch_ttl"`
	PrefetchMaxEntries int           `yaml:"prefetch_max_entries"`
	ClosingClassifier  bool          `yaml:"closing_classifier"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8182,
		},
		Storage: StorageConfig{
			DBPath: storage.DefaultDBPath(),
		},
		LLM: LLMConfig{
			Provider:   "mock",
			Timeout:    5 * time.Minute,
			MaxRetries: llm.DefaultMaxRetries,
		},
		Engine: EngineConfig{
			PrefetchEnabled:    true,
			PrefetchTTL:        prefetch.DefaultTTL,
			PrefetchMaxEntries: prefetch.DefaultMaxEntries,
			ClosingClassifier:  true,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from a specific path, then applies
// .env and environment overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file, proceed with defaults
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	LoadDotEnv(".env")
	ApplyEnvOverrides(cfg, Environ())

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo saves the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Backend returns the parsed provider/model selection. An explicit Model
// field wins over a model embedded in Provider.
func (c LLMConfig) Backend() (core.BackendSpec, error) {
	spec, err := core.ParseBackendSpec(c.Provider)
	if err != nil {
		return core.BackendSpec{}, err
	}
	if c.Model != "" {
		spec.Model = c.Model
	}
	return spec, nil
}

// ToProviderConfig converts the LLM settings to provider.Config.
func (c LLMConfig) ToProviderConfig(name string) provider.Config {
	return provider.Config{
		Name:         name,
		Command:      c.Command,
		Args:         c.Args,
		DefaultModel: c.Model,
		APIKey:       c.APIKey,
		BaseURL:      c.BaseURL,
		Timeout:      c.Timeout,
		MaxRetries:   c.MaxRetries,
	}
}

// createProviderFromName creates a provider instance based on the provider name.
func createProviderFromName(name string, cfg provider.Config) provider.Provider {
	switch name {
	case "claude":
		return claude.New(cfg)
	case "gemini":
		return gemini.New(cfg)
	case "openai":
		return openai.New(cfg)
	default:
		// Unknown providers fall back to generic
		if cfg.Command == "" {
			cfg.Command = name
		}
		return generic.New(cfg)
	}
}

// CreateRegistry creates a provider registry holding the configured backend.
func (c *Config) CreateRegistry() (*provider.Registry, error) {
	spec, err := c.LLM.Backend()
	if err != nil {
		return nil, err
	}
	registry := provider.NewRegistry()
	if spec.Provider == "mock" {
		return registry, nil
	}

	provCfg := c.LLM.ToProviderConfig(spec.Provider)
	provCfg.DefaultModel = spec.Model
	registry.Register(createProviderFromName(spec.Provider, provCfg))
	return registry, nil
}

// BuildAdapter creates the generative adapter selected by the configuration.
func (c *Config) BuildAdapter() (llm.Adapter, error) {
	spec, err := c.LLM.Backend()
	if err != nil {
		return nil, fmt.Errorf("failed to parse llm provider: %w", err)
	}
	if spec.Provider == "mock" {
		return llm.NewMock(), nil
	}

	registry, err := c.CreateRegistry()
	if err != nil {
		return nil, err
	}
	p, err := registry.Get(spec.Provider)
	if err != nil {
		return nil, err
	}
	if !p.Available() {
		return nil, fmt.Errorf("provider %s is not available (missing binary or API key)", spec.Provider)
	}

	opts := []llm.Option{llm.WithMaxRetries(c.LLM.MaxRetries)}
	if spec.Model != "" {
		opts = append(opts, llm.WithModel(spec.Model))
	}
	if c.LLM.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*c.LLM.Temperature))
	}
	return llm.NewProviderAdapter(p, opts...), nil
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "arena.yaml"
	}
	return filepath.Join(home, ".arena", "config.yaml")
}

// GenerateExample generates an example configuration file.
func GenerateExample() string {
	example := `# arena configuration file
# Place this file at ~/.arena/config.yaml

server:
  port: 8182

storage:
  db_path: ~/.arena/arena.db

llm:
  provider: gemini          # mock, claude, gemini, openai, or any CLI name
  model: gemini-2.5-flash   # empty = provider default
  api_key: ""               # or GEMINI_API_KEY / LLM_API_KEY
  base_url: ""              # OpenAI-compatible endpoint override
  timeout: 5m
  max_retries: 2            # retries on malformed output (3 attempts total)

engine:
  prefetch_enabled: true    # produce the next stage in the background
  prefetch_ttl: 10m         # older prefetches are redone synchronously
  prefetch_max_entries: 50
  closing_classifier: true  # ask the model to check closings, heuristic fallback
`
	return example
}
