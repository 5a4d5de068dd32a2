package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"environment"`
	BaseURL     string `toml:"base_url"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// api
	RequestTimeout  time.Duration `toml:"request_timeout"`
	RateLimitPerMin int           `toml:"rate_limit_per_min"`
	// picker
	PickerDebounce    time.Duration `toml:"picker_debounce"`
	PickerCacheTTL    time.Duration `toml:"picker_cache_ttl"`
	PickerCacheSizeMB int           `toml:"picker_cache_size_mb"`
	// session
	SessionStore string `toml:"session_store"`
	SessionFile  string `toml:"session_file"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// telemetry
	TracingEnabled  bool   `toml:"tracing_enabled"`
	MetricsTextfile string `toml:"metrics_textfile"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env with
// defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config [%s]: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults(env)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config [%s]: %w", env, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults(env string) {
	if c.Environment == "" {
		c.Environment = strings.ToLower(env)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.PickerDebounce <= 0 {
		c.PickerDebounce = 200 * time.Millisecond
	}
	if c.PickerCacheTTL <= 0 {
		c.PickerCacheTTL = time.Minute
	}
	if c.SessionStore == "" {
		c.SessionStore = "file"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url not set")
	}
	switch c.SessionStore {
	case "file":
		if c.SessionFile == "" {
			return errors.New("session_file not set for file session store")
		}
	case "redis":
		if c.RedisHost == "" {
			return errors.New("redis_host not set for redis session store")
		}
	default:
		return fmt.Errorf("unknown session_store: %s", c.SessionStore)
	}
	if c.PickerCacheSizeMB < 0 {
		return fmt.Errorf("invalid picker_cache_size_mb: %d", c.PickerCacheSizeMB)
	}
	return nil
}
