// Package config loads the gateway configuration from environment variables
// and an optional config file (YAML or .env) using viper.
//
// Environment variables take precedence over the file; keys in a file are the
// lower-cased variable names, e.g. swapi_base_url.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sternrassler/swapi-gateway/pkg/client"
	"github.com/Sternrassler/swapi-gateway/pkg/logging"
	"github.com/Sternrassler/swapi-gateway/pkg/pagination"
	"github.com/Sternrassler/swapi-gateway/pkg/ratelimit"
)

// Keys, one per environment variable.
const (
	KeyBaseURL          = "swapi_base_url"
	KeyUserAgent        = "swapi_user_agent"
	KeyTimeout          = "swapi_timeout"
	KeyMaxRetries       = "swapi_max_retries"
	KeyRetryBaseDelay   = "swapi_retry_base_delay"
	KeyCacheTTLSeconds  = "cache_ttl_seconds"
	KeyRateCapacity     = "rate_limit_capacity"
	KeyRefillPerSecond  = "rate_limit_refill_per_second"
	KeyMaxConcurrency   = "max_concurrency"
	KeyRedisURL         = "redis_url"
	KeyAPIKey           = "api_key"
	KeyPort             = "port"
	KeyShutdownTimeout  = "shutdown_timeout"
	KeyLogLevel         = "log_level"
	KeyLogPretty        = "log_pretty"
	defaultDevAPIKey    = "dev-key-change-me"
	defaultPort         = 8080
	defaultShutdownWait = 10 * time.Second
)

// Config is the complete gateway configuration.
type Config struct {
	SWAPI     SWAPIConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Server    ServerConfig
	Logging   LoggingConfig

	// MaxConcurrency bounds parallel page fetches and reference resolution.
	MaxConcurrency int
}

// SWAPIConfig describes the upstream API.
type SWAPIConfig struct {
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// CacheConfig controls response caching. An empty RedisURL keeps the cache
// in process memory only.
type CacheConfig struct {
	TTL      time.Duration
	RedisURL string
}

// RateLimitConfig sizes the outbound token bucket.
type RateLimitConfig struct {
	Capacity        int
	RefillPerSecond float64
}

// ServerConfig contains HTTP surface configuration.
type ServerConfig struct {
	Port            int
	APIKey          string
	ShutdownTimeout time.Duration
}

// LoggingConfig mirrors logging.Config without the writer.
type LoggingConfig struct {
	Level  logging.LogLevel
	Pretty bool
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()

	def := client.DefaultConfig()
	v.SetDefault(KeyBaseURL, def.BaseURL)
	v.SetDefault(KeyUserAgent, def.UserAgent)
	v.SetDefault(KeyTimeout, def.Timeout.String())
	v.SetDefault(KeyMaxRetries, def.Retry.MaxAttempts)
	v.SetDefault(KeyRetryBaseDelay, def.Retry.BaseDelay.String())
	v.SetDefault(KeyCacheTTLSeconds, int(def.CacheTTL/time.Second))
	v.SetDefault(KeyRateCapacity, ratelimit.DefaultCapacity)
	v.SetDefault(KeyRefillPerSecond, ratelimit.DefaultRefillRate)
	v.SetDefault(KeyMaxConcurrency, pagination.DefaultConfig().MaxConcurrency)
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyAPIKey, defaultDevAPIKey)
	v.SetDefault(KeyPort, defaultPort)
	v.SetDefault(KeyShutdownTimeout, defaultShutdownWait.String())
	v.SetDefault(KeyLogLevel, string(logging.LevelInfo))
	v.SetDefault(KeyLogPretty, false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads configuration from the environment and, when configFile is not
// empty, from that file.
func Load(configFile string) (*Config, error) {
	v := New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}
	return FromViper(v)
}

// FromViper builds and validates a Config from a prepared viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	timeout, err := durationValue(v, KeyTimeout)
	if err != nil {
		return nil, err
	}
	baseDelay, err := durationValue(v, KeyRetryBaseDelay)
	if err != nil {
		return nil, err
	}
	shutdown, err := durationValue(v, KeyShutdownTimeout)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", strings.ToUpper(KeyLogLevel), err)
	}

	cfg := &Config{
		SWAPI: SWAPIConfig{
			BaseURL:        strings.TrimSpace(v.GetString(KeyBaseURL)),
			UserAgent:      v.GetString(KeyUserAgent),
			Timeout:        timeout,
			MaxRetries:     v.GetInt(KeyMaxRetries),
			RetryBaseDelay: baseDelay,
		},
		Cache: CacheConfig{
			TTL:      time.Duration(v.GetInt(KeyCacheTTLSeconds)) * time.Second,
			RedisURL: strings.TrimSpace(v.GetString(KeyRedisURL)),
		},
		RateLimit: RateLimitConfig{
			Capacity:        v.GetInt(KeyRateCapacity),
			RefillPerSecond: v.GetFloat64(KeyRefillPerSecond),
		},
		Server: ServerConfig{
			Port:            v.GetInt(KeyPort),
			APIKey:          v.GetString(KeyAPIKey),
			ShutdownTimeout: shutdown,
		},
		Logging: LoggingConfig{
			Level:  level,
			Pretty: v.GetBool(KeyLogPretty),
		},
		MaxConcurrency: v.GetInt(KeyMaxConcurrency),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if c.SWAPI.BaseURL == "" {
		return fmt.Errorf("SWAPI_BASE_URL is required")
	}
	if c.SWAPI.Timeout <= 0 {
		return fmt.Errorf("SWAPI_TIMEOUT must be positive (got %s)", c.SWAPI.Timeout)
	}
	if c.SWAPI.MaxRetries < 1 {
		return fmt.Errorf("SWAPI_MAX_RETRIES must be >= 1 (got %d)", c.SWAPI.MaxRetries)
	}
	if c.SWAPI.RetryBaseDelay <= 0 {
		return fmt.Errorf("SWAPI_RETRY_BASE_DELAY must be positive (got %s)", c.SWAPI.RetryBaseDelay)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive (got %s)", c.Cache.TTL)
	}
	if c.RateLimit.Capacity < 1 {
		return fmt.Errorf("RATE_LIMIT_CAPACITY must be >= 1 (got %d)", c.RateLimit.Capacity)
	}
	if c.RateLimit.RefillPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_REFILL_PER_SECOND must be positive (got %g)", c.RateLimit.RefillPerSecond)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be >= 1 (got %d)", c.MaxConcurrency)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535 (got %d)", c.Server.Port)
	}
	if c.Server.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	return nil
}

// ClientConfig maps the configuration onto the gateway client.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig()
	cfg.BaseURL = c.SWAPI.BaseURL
	cfg.UserAgent = c.SWAPI.UserAgent
	cfg.Timeout = c.SWAPI.Timeout
	cfg.CacheTTL = c.Cache.TTL
	cfg.Retry.MaxAttempts = c.SWAPI.MaxRetries
	cfg.Retry.BaseDelay = c.SWAPI.RetryBaseDelay
	if cfg.Retry.MaxDelay < cfg.Retry.BaseDelay {
		cfg.Retry.MaxDelay = cfg.Retry.BaseDelay
	}
	cfg.MaxConcurrency = c.MaxConcurrency
	return cfg
}

// LoggingSetup returns the logging configuration for logging.Setup.
func (c *Config) LoggingSetup() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Pretty = c.Logging.Pretty
	return cfg
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// durationValue accepts plain numbers as seconds ("10", "0.5") and Go
// duration strings ("10s", "500ms").
func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToUpper(key), raw, err)
	}
	return d, nil
}
