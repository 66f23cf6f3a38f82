// Package config provides configuration loading and hot reload.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mixwave/quotagate/domain/plan"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Plans    PlansConfig    `yaml:"plans"`
	Admin    AdminConfig    `yaml:"admin"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the backing store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// PlansConfig configures the plan catalog.
type PlansConfig struct {
	// FreeDefault is the quota applied to unknown plans.
	FreeDefault int64 `yaml:"free_default"`
	// Defaults lists per-plan default quotas.
	Defaults map[string]int64 `yaml:"defaults"`
	// Unlimited lists plan names that are unlimited by default.
	Unlimited []string `yaml:"unlimited"`
}

// Catalog builds the plan catalog from configuration, falling back to
// built-in defaults for anything unset.
func (p PlansConfig) Catalog() plan.Catalog {
	c := plan.DefaultCatalog()
	if p.FreeDefault > 0 {
		c.FreeDefault = p.FreeDefault
	}
	if len(p.Defaults) > 0 {
		c.Defaults = make(map[string]int64, len(p.Defaults))
		for name, quota := range p.Defaults {
			c.Defaults[name] = quota
		}
	}
	if len(p.Unlimited) > 0 {
		c.Unlimited = make(map[string]bool, len(p.Unlimited))
		for _, name := range p.Unlimited {
			c.Unlimited[name] = true
		}
	}
	return c
}

// AdminConfig configures the admin surface.
type AdminConfig struct {
	// TokenHash is the bcrypt hash of the admin bearer token. Empty
	// disables the mutating admin endpoints.
	TokenHash string `yaml:"token_hash"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8780,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "quotagate.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from a YAML file, merged over defaults.
// QUOTAGATE_ADMIN_TOKEN_HASH overrides the admin token hash so the
// secret can stay out of the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv("QUOTAGATE_ADMIN_TOKEN_HASH"); v != "" {
		cfg.Admin.TokenHash = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load when the file exists, and otherwise
// returns the defaults with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := Default()
	if v := os.Getenv("QUOTAGATE_ADMIN_TOKEN_HASH"); v != "" {
		cfg.Admin.TokenHash = v
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path required for sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	for name, quota := range c.Plans.Defaults {
		if quota <= 0 {
			return fmt.Errorf("plan %q default quota must be positive, got %d", name, quota)
		}
	}
	return nil
}
