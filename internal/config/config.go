// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/racepull/racepull/internal/store"
)

// Duration wraps time.Duration so YAML values like "40s" parse naturally.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// BrowserConfig configures the rendering collaborator.
type BrowserConfig struct {
	Headless    *bool    `yaml:"headless,omitempty"`
	Timeout     Duration `yaml:"timeout,omitempty"`
	SettleDelay Duration `yaml:"settle_delay,omitempty"`
	UserAgent   string   `yaml:"user_agent,omitempty"`
}

// JobsConfig configures batch processing.
type JobsConfig struct {
	// Concurrency bounds in-flight renders per job; one browser
	// tab-equivalent is alive per worker.
	Concurrency   int      `yaml:"concurrency"`
	MaxBatchSize  int      `yaml:"max_batch_size"`
	RetryAttempts int      `yaml:"retry_attempts"`
	RetryDelay    Duration `yaml:"retry_delay"`
	CacheTTL      Duration `yaml:"cache_ttl"`
}

// RateLimitConfig throttles renders per vendor host.
type RateLimitConfig struct {
	// PerHostRPS is requests per second per host; zero disables limiting.
	PerHostRPS float64 `yaml:"per_host_rps"`
	Burst      int     `yaml:"burst"`
}

// Config is the top-level service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  store.Config    `yaml:"database"`
	Browser   BrowserConfig   `yaml:"browser"`
	Jobs      JobsConfig      `yaml:"jobs"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	LogLevel  string          `yaml:"log_level"`
}

// Default returns the standard configuration.
func Default() *Config {
	headless := true
	return &Config{
		Server:   ServerConfig{Listen: ":8080"},
		Database: store.DefaultConfig(),
		Browser: BrowserConfig{
			Headless:    &headless,
			Timeout:     Duration(40 * time.Second),
			SettleDelay: Duration(2 * time.Second),
		},
		Jobs: JobsConfig{
			Concurrency:   3,
			MaxBatchSize:  100,
			RetryAttempts: 3,
			RetryDelay:    Duration(time.Second),
			CacheTTL:      Duration(24 * time.Hour),
		},
		RateLimit: RateLimitConfig{PerHostRPS: 1, Burst: 3},
		LogLevel:  "info",
	}
}

// LoadFromFile reads a YAML config, layering it over the defaults and then
// applying environment overrides.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// FromEnv returns the defaults with environment overrides, for running
// without a config file.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// applyEnv overlays deployment-specific values. DSNs carry credentials and
// belong in the environment, not the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("RACEPULL_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("RACEPULL_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("RACEPULL_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("RACEPULL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres", "mysql":
	default:
		return fmt.Errorf("database.driver must be sqlite3, postgres or mysql, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Jobs.Concurrency <= 0 {
		return fmt.Errorf("jobs.concurrency must be positive")
	}
	if c.Jobs.MaxBatchSize <= 0 {
		return fmt.Errorf("jobs.max_batch_size must be positive")
	}
	if c.Jobs.RetryAttempts <= 0 {
		return fmt.Errorf("jobs.retry_attempts must be positive")
	}
	if c.Jobs.CacheTTL.Std() <= 0 {
		return fmt.Errorf("jobs.cache_ttl must be positive")
	}
	if t := c.Browser.Timeout.Std(); t < 0 {
		return fmt.Errorf("browser.timeout must not be negative")
	}
	if c.RateLimit.PerHostRPS < 0 {
		return fmt.Errorf("rate_limit.per_host_rps must not be negative")
	}
	return nil
}

// Headless resolves the browser headless flag (default true).
func (b BrowserConfig) HeadlessEnabled() bool {
	if b.Headless == nil {
		return true
	}
	return *b.Headless
}
