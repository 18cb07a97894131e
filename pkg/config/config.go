// Package config loads the server configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // zone names must validate on hosts without a system zoneinfo

	"gopkg.in/yaml.v2"

	"github.com/santoshkal/mcp-server-http-time/pkg/guard"
	"github.com/santoshkal/mcp-server-http-time/pkg/ratelimit"
	"github.com/santoshkal/mcp-server-http-time/pkg/schema"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "MCP_CONFIG_PATH"

// Config represents the overall YAML configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Security  SecurityConfig  `yaml:"security"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Time      TimeConfig      `yaml:"time"`
	LLM       LLMConfig       `yaml:"llm"`
	Log       LogConfig       `yaml:"log"`
	Plugins   []PluginConfig  `yaml:"plugins"`
}

// ServerConfig holds listener and identity settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Name            string        `yaml:"name"`
	Version         string        `yaml:"version"`
	Instructions    string        `yaml:"instructions"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
}

// SecurityConfig holds the origin allow-list.
type SecurityConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// RateLimitConfig configures the per-client fixed-window limiter.
type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Requests        int           `yaml:"requests"`
	Window          time.Duration `yaml:"window"`
	ClientIPHeaders []string      `yaml:"clientIPHeaders"`
	// SweepInterval > 0 periodically evicts expired client windows.
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

// TimeConfig configures the date/time tools.
type TimeConfig struct {
	DefaultTimezone string `yaml:"defaultTimezone"`
}

// LLMConfig configures the optional natural-language time tool.
type LLMConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Model        string        `yaml:"model"`
	APIKeyEnv    string        `yaml:"apiKeyEnv"`
	BaseURL      string        `yaml:"baseURL"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PluginConfig defines a tool whose handler is Go source run by the interpreter.
type PluginConfig struct {
	Name        string        `yaml:"name"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Enabled     bool          `yaml:"enabled"` // if false, skip this tool
	Fields      []FieldConfig `yaml:"fields"`
	Source      string        `yaml:"source"` // inline Go code defining Handler
	Path        string        `yaml:"path"`   // or a file holding it
}

// FieldConfig declares one plugin argument.
type FieldConfig struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"`
	Required    bool        `yaml:"required"`
	Default     interface{} `yaml:"default"`
	Description string      `yaml:"description"`
}

// Schema converts the plugin's field list into a validation schema.
func (p PluginConfig) Schema() schema.Schema {
	fields := make([]schema.Field, 0, len(p.Fields))
	for _, f := range p.Fields {
		fields = append(fields, schema.Field{
			Name:        f.Name,
			Type:        schema.Type(f.Type),
			Required:    f.Required,
			Default:     f.Default,
			Description: f.Description,
		})
	}
	return schema.New(fields...)
}

// New creates a configuration with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Name:            "mcp-server-http-time",
			Version:         "1.0.0",
			Instructions:    "This MCP server provides time-related tools including current time, timezone conversion, relative time calculation, and more.",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Security: SecurityConfig{
			AllowedOrigins: append([]string(nil), guard.DefaultAllowedHosts...),
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			Requests:        ratelimit.DefaultLimit,
			Window:          ratelimit.DefaultWindow,
			ClientIPHeaders: append([]string(nil), ratelimit.DefaultClientHeaders...),
		},
		LLM: LLMConfig{
			Model:     "gpt-4o",
			APIKeyEnv: "OPENAI_API_KEY",
			Timeout:   30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. An empty path falls back to MCP_CONFIG_PATH,
// and when neither is set the defaults are returned as is.
func Load(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must be set")
	}
	if c.Server.Name == "" {
		return fmt.Errorf("server.name must be set")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid server.maxBodyBytes: %d (must be positive)", c.Server.MaxBodyBytes)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid server.shutdownTimeout: %v (must be positive)", c.Server.ShutdownTimeout)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			return fmt.Errorf("invalid rateLimit.requests: %d (must be positive)", c.RateLimit.Requests)
		}
		if c.RateLimit.Window < time.Second {
			return fmt.Errorf("invalid rateLimit.window: %v (must be at least 1s)", c.RateLimit.Window)
		}
		if c.RateLimit.SweepInterval < 0 {
			return fmt.Errorf("invalid rateLimit.sweepInterval: %v", c.RateLimit.SweepInterval)
		}
	}
	if c.Time.DefaultTimezone != "" {
		if _, err := time.LoadLocation(c.Time.DefaultTimezone); err != nil {
			return fmt.Errorf("invalid time.defaultTimezone: %w", err)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log.format: %q (must be text or json)", c.Log.Format)
	}
	if c.LLM.Enabled && c.LLM.Model == "" {
		return fmt.Errorf("llm.model must be set when llm is enabled")
	}

	names := make(map[string]bool, len(c.Plugins))
	for _, p := range c.Plugins {
		if p.Name == "" {
			return fmt.Errorf("plugin with empty name")
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate plugin %q", p.Name)
		}
		names[p.Name] = true
		if !p.Enabled {
			continue
		}
		if (p.Source == "") == (p.Path == "") {
			return fmt.Errorf("plugin %q: exactly one of source or path must be set", p.Name)
		}
		if err := p.Schema().Check(); err != nil {
			return fmt.Errorf("plugin %q: %w", p.Name, err)
		}
	}
	return nil
}

// APIKey returns the LLM API key from the configured environment variable.
func (c *Config) APIKey() string {
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.LLM.APIKeyEnv)
}
