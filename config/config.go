package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/artifactcache/auth"
	"github.com/jonwraymond/artifactcache/cache"
	"github.com/jonwraymond/artifactcache/docstore"
	"github.com/jonwraymond/artifactcache/observe"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

var (
	ErrInvalidStoreDriver = errors.New("config: invalid store driver")
	ErrMissingRedisAddr   = errors.New("config: redis addr is required")
	ErrInvalidTTL         = errors.New("config: ttl must not be negative")
	ErrMissingListenAddr  = errors.New("config: server listen addr is required")
)

// Config is the complete service configuration.
type Config struct {
	Store    StoreConfig     `yaml:"store"`
	Database docstore.Config `yaml:"database"`
	Cache    CacheConfig     `yaml:"cache"`
	Observe  observe.Config  `yaml:"observe"`
	Server   ServerConfig    `yaml:"server"`
}

// StoreConfig selects and tunes the cache store.
type StoreConfig struct {
	// Driver is "memory" or "redis".
	// Default: "memory"
	Driver string `yaml:"driver"`

	Redis cache.RedisConfig `yaml:"redis"`

	// OpTimeout bounds each store call. Zero leaves calls unbounded.
	// Default: 250ms
	OpTimeout time.Duration `yaml:"op_timeout"`

	Breaker BreakerConfig `yaml:"breaker"`

	// MemoryLimit is the heap budget in bytes reported against by the
	// memory health check when Driver is "memory".
	// Default: 0 (the memory obtained from the OS)
	MemoryLimit uint64 `yaml:"memory_limit"`
}

// BreakerConfig tunes the store circuit breaker.
type BreakerConfig struct {
	// Default: 5
	MaxFailures int `yaml:"max_failures"`

	// Default: 30s
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// CacheConfig tunes cache entry lifetimes and the classifier epoch.
type CacheConfig struct {
	// MetadataTTL is the default lifetime of metadata entries.
	// Default: 50m
	MetadataTTL time.Duration `yaml:"metadata_ttl"`

	// SuggestionsTTL is the default lifetime of suggestion entries.
	// Default: 50m
	SuggestionsTTL time.Duration `yaml:"suggestions_ttl"`

	// ClassifierFormatVersion is the classifier format this build reads.
	// Default: 1
	ClassifierFormatVersion int `yaml:"classifier_format_version"`

	// CompressAbove is the payload size above which entries are compressed.
	// Negative disables compression.
	// Default: 4096
	CompressAbove int `yaml:"compress_above"`
}

// ServerConfig configures the HTTP listener of the serve command.
type ServerConfig struct {
	// Default: ":8080"
	ListenAddr string `yaml:"listen_addr"`

	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Auth protects the /v1 API with bearer tokens.
	// Default: disabled
	Auth auth.Config `yaml:"auth"`
}

// Default returns a configuration usable without a file: in-memory store
// and a local SQLite database.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver:    StoreMemory,
			OpTimeout: 250 * time.Millisecond,
			Breaker: BreakerConfig{
				MaxFailures:  5,
				ResetTimeout: 30 * time.Second,
			},
		},
		Database: docstore.Config{
			Driver:       docstore.DriverSQLite,
			DSN:          "documents.db",
			MaxIdleConns: 2,
		},
		Cache: CacheConfig{
			MetadataTTL:             cache.TTLFiftyMinutes,
			SuggestionsTTL:          cache.TTLFiftyMinutes,
			ClassifierFormatVersion: 1,
			CompressAbove:           4096,
		},
		Observe: observe.Config{
			ServiceName: "artifactcache",
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStoreDriver, c.Store.Driver)
	}
	if c.Store.OpTimeout < 0 || c.Store.Breaker.ResetTimeout < 0 {
		return fmt.Errorf("%w: store timeouts", ErrInvalidTTL)
	}
	if c.Cache.MetadataTTL < 0 {
		return fmt.Errorf("%w: metadata_ttl", ErrInvalidTTL)
	}
	if c.Cache.SuggestionsTTL < 0 {
		return fmt.Errorf("%w: suggestions_ttl", ErrInvalidTTL)
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Observe.Validate(); err != nil {
		return err
	}
	if c.Server.ListenAddr == "" {
		return ErrMissingListenAddr
	}
	return c.Server.Auth.Validate()
}

// MetadataPolicy returns the TTL policy for metadata entries.
func (c *Config) MetadataPolicy() cache.Policy {
	return cache.Policy{DefaultTTL: ttlOrDefault(c.Cache.MetadataTTL)}
}

// SuggestionPolicy returns the TTL policy for suggestion entries.
func (c *Config) SuggestionPolicy() cache.Policy {
	return cache.Policy{DefaultTTL: ttlOrDefault(c.Cache.SuggestionsTTL)}
}

// GuardConfig returns the circuit breaker settings for the store.
func (c *Config) GuardConfig() cache.GuardConfig {
	return cache.GuardConfig{
		MaxFailures:  c.Store.Breaker.MaxFailures,
		ResetTimeout: c.Store.Breaker.ResetTimeout,
		OpTimeout:    c.Store.OpTimeout,
	}
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return cache.TTLFiftyMinutes
	}
	return ttl
}
