package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

// ProviderConfig holds the connection settings for one model endpoint.
// Kind is implied by the section the entry lives in.
type ProviderConfig struct {
	Enabled        bool    `json:"enabled" env:"ENABLED"`
	APIKey         string  `json:"api_key" env:"API_KEY"`
	APIBase        string  `json:"api_base" env:"API_BASE"`
	Model          string  `json:"model" env:"MODEL"`
	Proxy          string  `json:"proxy" env:"PROXY"`
	TimeoutSeconds int     `json:"timeout_seconds" env:"TIMEOUT_SECONDS"`
	MaxRPS         float64 `json:"max_rps" env:"MAX_RPS"`
}

type ProvidersConfig struct {
	OpenAI    ProviderConfig `json:"openai" envPrefix:"MIMICLAW_PROVIDERS_OPENAI_"`
	Anthropic ProviderConfig `json:"anthropic" envPrefix:"MIMICLAW_PROVIDERS_ANTHROPIC_"`
	Local     ProviderConfig `json:"local" envPrefix:"MIMICLAW_PROVIDERS_LOCAL_"`
}

type EngineConfig struct {
	DefaultPersona string `json:"default_persona" env:"MIMICLAW_ENGINE_DEFAULT_PERSONA"`
	// Seed fixes template randomization; 0 derives a seed from the clock.
	Seed           int64 `json:"seed" env:"MIMICLAW_ENGINE_SEED"`
	RequestTimeout int   `json:"request_timeout_seconds" env:"MIMICLAW_ENGINE_REQUEST_TIMEOUT_SECONDS"`
}

type EvolutionConfig struct {
	WindowSize          int     `json:"window_size" env:"MIMICLAW_EVOLUTION_WINDOW_SIZE"`
	RefinementThreshold float64 `json:"refinement_threshold" env:"MIMICLAW_EVOLUTION_REFINEMENT_THRESHOLD"`
	ConvergedThreshold  float64 `json:"converged_threshold" env:"MIMICLAW_EVOLUTION_CONVERGED_THRESHOLD"`
	DriftTolerance      float64 `json:"drift_tolerance" env:"MIMICLAW_EVOLUTION_DRIFT_TOLERANCE"`
	DriftPatience       int     `json:"drift_patience" env:"MIMICLAW_EVOLUTION_DRIFT_PATIENCE"`
	BufferCapacity      int     `json:"buffer_capacity" env:"MIMICLAW_EVOLUTION_BUFFER_CAPACITY"`
}

type ScheduleConfig struct {
	Enabled bool `json:"enabled" env:"MIMICLAW_SCHEDULE_ENABLED"`
}

type LoggingConfig struct {
	Level  string `json:"level" env:"MIMICLAW_LOG_LEVEL"`
	File   string `json:"file" env:"MIMICLAW_LOG_FILE"`
	Redact bool   `json:"redact" env:"MIMICLAW_LOG_REDACT"`
}

type Config struct {
	Providers ProvidersConfig `json:"providers"`
	Engine    EngineConfig    `json:"engine"`
	Evolution EvolutionConfig `json:"evolution"`
	Schedule  ScheduleConfig  `json:"schedule"`
	Logging   LoggingConfig   `json:"logging"`
	mu        sync.RWMutex
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return saveConfigLocked(path, cfg)
}

func saveConfigLocked(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) Lock()    { c.mu.Lock() }
func (c *Config) Unlock()  { c.mu.Unlock() }
func (c *Config) RLock()   { c.mu.RLock() }
func (c *Config) RUnlock() { c.mu.RUnlock() }

// Provider returns the config section for a provider name. Names are
// the closed set "openai", "anthropic", "local".
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch name {
	case "openai":
		return c.Providers.OpenAI, true
	case "anthropic":
		return c.Providers.Anthropic, true
	case "local":
		return c.Providers.Local, true
	}
	return ProviderConfig{}, false
}

// SetProvider replaces the config section for a provider name.
func (c *Config) SetProvider(name string, pc ProviderConfig) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case "openai":
		c.Providers.OpenAI = pc
	case "anthropic":
		c.Providers.Anthropic = pc
	case "local":
		c.Providers.Local = pc
	default:
		return false
	}
	return true
}

// EnabledProviders lists the names of the provider sections marked enabled,
// in the fixed order openai, anthropic, local.
func (c *Config) EnabledProviders() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var names []string
	if c.Providers.OpenAI.Enabled {
		names = append(names, "openai")
	}
	if c.Providers.Anthropic.Enabled {
		names = append(names, "anthropic")
	}
	if c.Providers.Local.Enabled {
		names = append(names, "local")
	}
	return names
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
