// Package config loads runtime settings from an optional .env file, an
// optional YAML file and the environment, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stock_forecast/internal/shared/ratelimiter"
)

// DefaultFile is read when CONFIG_FILE is unset. A missing file is not an error.
const DefaultFile = "config.yaml"

// DefaultSettleDelay applies only when neither the file nor the environment
// sets provider.settle_delay. An explicit 0 disables the pause.
const DefaultSettleDelay = ratelimiter.DefaultSettleDelay

// Config holds all application configuration.
type Config struct {
	Server struct {
		Host         string   `yaml:"host"`
		Port         int      `yaml:"port"`
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"server"`
	Cache struct {
		Backend    string        `yaml:"backend"` // memory | redis
		TTL        time.Duration `yaml:"ttl"`
		MaxEntries int           `yaml:"max_entries"`
	} `yaml:"cache"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	Provider struct {
		BaseURL     string        `yaml:"base_url"`
		SettleDelay time.Duration `yaml:"settle_delay"`
		Timeout     time.Duration `yaml:"timeout"`
		UserAgent   string        `yaml:"user_agent"`
	} `yaml:"provider"`
	Forecast struct {
		Workers      int           `yaml:"workers"`
		MaxDays      int           `yaml:"max_days"`
		JobTimeout   time.Duration `yaml:"job_timeout"`
		JobRetention time.Duration `yaml:"job_retention"`
	} `yaml:"forecast"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text | json
	} `yaml:"log"`
}

// Load reads .env (if present), then the YAML file at path (if present), then
// applies environment overrides and defaults. An empty path means
// CONFIG_FILE or DefaultFile.
func Load(path string) (*Config, error) {
	// .envが無いのは正常（本番では環境変数を直接使う）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = DefaultFile
	}

	cfg := &Config{}
	// 0は「待たない」の意味なので、未設定との区別のため先に入れておく
	cfg.Provider.SettleDelay = DefaultSettleDelay
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("HOST", &c.Server.Host)
	num("PORT", &c.Server.Port)
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		c.Server.AllowOrigins = splitList(v)
	}
	str("CACHE_BACKEND", &c.Cache.Backend)
	dur("CACHE_TTL", &c.Cache.TTL)
	num("CACHE_MAX_ENTRIES", &c.Cache.MaxEntries)
	str("REDIS_HOST", &c.Redis.Host)
	str("REDIS_PORT", &c.Redis.Port)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("YAHOO_BASE_URL", &c.Provider.BaseURL)
	dur("PROVIDER_SETTLE_DELAY", &c.Provider.SettleDelay)
	dur("PROVIDER_TIMEOUT", &c.Provider.Timeout)
	str("PROVIDER_USER_AGENT", &c.Provider.UserAgent)
	num("FORECAST_WORKERS", &c.Forecast.Workers)
	num("FORECAST_MAX_DAYS", &c.Forecast.MaxDays)
	dur("FORECAST_JOB_TIMEOUT", &c.Forecast.JobTimeout)
	dur("JOB_RETENTION", &c.Forecast.JobRetention)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if len(c.Server.AllowOrigins) == 0 {
		c.Server.AllowOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 60 * time.Second
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 1024
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == "" {
		c.Redis.Port = "6379"
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 10 * time.Second
	}
	if c.Forecast.MaxDays == 0 {
		c.Forecast.MaxDays = 90
	}
	if c.Forecast.JobTimeout == 0 {
		c.Forecast.JobTimeout = 2 * time.Minute
	}
	if c.Forecast.JobRetention == 0 {
		c.Forecast.JobRetention = time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 1 || c.Server.Port > 65535:
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	case c.Cache.Backend != "memory" && c.Cache.Backend != "redis":
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	case c.Cache.TTL < 0:
		return fmt.Errorf("cache.ttl must not be negative")
	case c.Cache.MaxEntries < 0:
		return fmt.Errorf("cache.max_entries must not be negative")
	case c.Provider.SettleDelay < 0:
		return fmt.Errorf("provider.settle_delay must not be negative")
	case c.Provider.Timeout < 0:
		return fmt.Errorf("provider.timeout must not be negative")
	case c.Forecast.Workers < 0:
		return fmt.Errorf("forecast.workers must not be negative")
	case c.Forecast.MaxDays < 1:
		return fmt.Errorf("forecast.max_days must be positive")
	case c.Log.Format != "text" && c.Log.Format != "json":
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	for _, o := range c.Server.AllowOrigins {
		if o == "*" {
			return fmt.Errorf("server.allow_origins must list explicit origins, not *")
		}
		if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("server.allow_origins: %q must start with http:// or https://", o)
		}
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// RedisAddr returns host:port for the redis client.
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
