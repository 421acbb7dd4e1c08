// Package config loads dax's YAML configuration and layers `DAX_*`
// environment variable overrides on top, grounded on the teacher's
// internal/config (config.go's applyEnvOverrides pattern and loader.go's
// load-then-override shape).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GenerationPolicy bounds one provider request's sampling parameters,
// per spec.md §6's safe/balanced/aggressive presets.
type GenerationPolicy struct {
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// builtinPolicies holds the built-in presets. Named policies the YAML
// config defines under policies: are kept in Config.Policies and add
// to or override these by name.
var builtinPolicies = map[string]GenerationPolicy{
	"safe":       {Temperature: 0.1, TopP: 0.8, MaxTokens: 2048},
	"balanced":   {Temperature: 0.2, TopP: 0.95, MaxTokens: 4096},
	"aggressive": {Temperature: 0.45, TopP: 1.0, MaxTokens: 8192},
}

// ProviderConfig configures one LLM provider credential/endpoint.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// TUIConfig controls terminal UI backend selection, per spec.md §6's
// DAX_TUI/DAX_TUI_ALLOW_PIPE environment variables.
type TUIConfig struct {
	Force     bool `yaml:"force"`
	AllowPipe bool `yaml:"allow_pipe"`
}

// PMConfig configures the project-memory SQL store location.
type PMConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the observability.Logger built at startup.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is dax's top-level configuration, loaded from YAML and then
// overridden by DAX_* environment variables.
type Config struct {
	APIURL    string                      `yaml:"api_url"`
	Policy    string                      `yaml:"policy"`
	Policies  map[string]GenerationPolicy `yaml:"policies"`
	Providers []ProviderConfig            `yaml:"providers"`
	TUI       TUIConfig                   `yaml:"tui"`
	PM        PMConfig                    `yaml:"pm"`
	Logging   LoggingConfig               `yaml:"logging"`
}

// Load reads YAML from path, applies defaults, then layers DAX_*
// environment variable overrides. An empty path skips the file read
// and starts from a zero Config before defaults/overrides apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Policy == "" {
		cfg.Policy = "balanced"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.PM.DatabasePath == "" {
		cfg.PM.DatabasePath = "dax.db"
	}
}

// applyEnvOverrides lays DAX_* variables over a loaded Config,
// mirroring the teacher's applyEnvOverrides (internal/config/config.go).
func applyEnvOverrides(cfg *Config) {
	if value := strings.TrimSpace(os.Getenv("DAX_API_URL")); value != "" {
		cfg.APIURL = value
	}
	if value := strings.TrimSpace(os.Getenv("DAX_POLICY")); value != "" {
		cfg.Policy = value
	}
	if value := strings.TrimSpace(os.Getenv("DAX_TUI")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			cfg.TUI.Force = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("DAX_TUI_ALLOW_PIPE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			cfg.TUI.AllowPipe = parsed
		}
	}
}

// ResolvePolicy looks up the named policy: first among cfg.Policies
// (user-defined, YAML-loaded overrides), then the builtin presets.
func (cfg *Config) ResolvePolicy(name string) (GenerationPolicy, error) {
	if name == "" {
		name = cfg.Policy
	}
	if p, ok := cfg.Policies[name]; ok {
		return p, nil
	}
	if p, ok := builtinPolicies[name]; ok {
		return p, nil
	}
	return GenerationPolicy{}, fmt.Errorf("config: unknown policy %q", name)
}
