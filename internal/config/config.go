// Package config loads service configuration from defaults, an optional
// file and SERIALGEN_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"serialgen/internal/core/numerator"
	"serialgen/internal/core/retry"
	"serialgen/internal/domain/prefixrule"
)

// EnvPrefix is prepended to every environment key: store.backend -> SERIALGEN_STORE_BACKEND.
const EnvPrefix = "SERIALGEN"

// Supported store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

// Registry retry backoffs.
const (
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Bolt      BoltConfig      `mapstructure:"bolt"`
	Issuer    IssuerConfig    `mapstructure:"issuer"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Keyspace  KeyspaceConfig  `mapstructure:"keyspace"`
	Assembler AssemblerConfig `mapstructure:"assembler"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// StoreConfig selects the shared counter store.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	// Timeout bounds every store call.
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig configures the redis backend. Several addrs select cluster mode,
// a master name selects sentinel.
type RedisConfig struct {
	Addrs      []string `mapstructure:"addrs"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	MasterName string   `mapstructure:"master_name"`
	PoolSize   int      `mapstructure:"pool_size"`
}

// PostgresConfig configures the postgres backend.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// BoltConfig configures the embedded bolt backend.
type BoltConfig struct {
	Path string `mapstructure:"path"`
}

// IssuerConfig selects the sequence issuance strategy.
type IssuerConfig struct {
	Strategy  string        `mapstructure:"strategy"`
	LeaseSize int64         `mapstructure:"lease_size"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
	// TryAgainAfter is the Retry-After hint on lease contention.
	TryAgainAfter time.Duration `mapstructure:"try_again_after"`
}

// RegistryConfig configures prefix rule registration and caching.
type RegistryConfig struct {
	Policy        string        `mapstructure:"policy"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	// RetryBackoff is "constant" or "exponential" (delay doubles per retry).
	RetryBackoff string `mapstructure:"retry_backoff"`
}

// KeyspaceConfig namespaces all stored keys.
type KeyspaceConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// AssemblerConfig configures number assembly.
type AssemblerConfig struct {
	BlockedMarker string `mapstructure:"blocked_marker"`
}

var defaults = map[string]any{
	"server.port":             "8080",
	"server.read_timeout":     "15s",
	"server.write_timeout":    "30s",
	"server.idle_timeout":     "60s",
	"server.shutdown_timeout": "30s",

	"log.level":       "info",
	"log.development": false,

	"store.backend": BackendMemory,
	"store.timeout": "2s",

	"redis.addrs":       []string{"localhost:6379"},
	"redis.username":    "",
	"redis.password":    "",
	"redis.db":          0,
	"redis.master_name": "",
	"redis.pool_size":   20,

	"postgres.dsn":       "",
	"postgres.max_conns": 25,

	"bolt.path": "data/serialgen.db",

	"issuer.strategy":        "direct",
	"issuer.lease_size":      50,
	"issuer.lock_ttl":        "5s",
	"issuer.try_again_after": "100ms",

	"registry.policy":         "reject",
	"registry.cache_ttl":      "0s",
	"registry.retry_attempts": 2,
	"registry.retry_delay":    "50ms",
	"registry.retry_backoff":  BackoffConstant,

	"keyspace.namespace": "",

	"assembler.blocked_marker": numerator.DefaultBlockedMarker,
}

// Load reads configuration. path may be empty to skip the file layer.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory, BackendRedis, BackendBolt:
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of memory, redis, postgres, bolt", c.Store.Backend))
	}

	if c.Store.Backend == BackendRedis && len(c.Redis.Addrs) == 0 {
		errs = append(errs, errors.New("redis.addrs is required for the redis backend"))
	}
	if c.Store.Backend == BackendBolt && c.Bolt.Path == "" {
		errs = append(errs, errors.New("bolt.path is required for the bolt backend"))
	}

	if _, err := numerator.ParseStrategy(c.Issuer.Strategy); err != nil {
		errs = append(errs, err)
	}
	if c.Issuer.LeaseSize < 1 {
		errs = append(errs, errors.New("issuer.lease_size must be positive"))
	}
	if c.Issuer.LockTTL <= 0 {
		errs = append(errs, errors.New("issuer.lock_ttl must be positive"))
	}
	if _, err := prefixrule.ParsePolicy(c.Registry.Policy); err != nil {
		errs = append(errs, err)
	}
	if c.Registry.RetryAttempts < 1 {
		errs = append(errs, errors.New("registry.retry_attempts must be at least 1"))
	}
	switch c.Registry.RetryBackoff {
	case BackoffConstant, BackoffExponential:
	default:
		errs = append(errs, fmt.Errorf("registry.retry_backoff %q is not one of constant, exponential", c.Registry.RetryBackoff))
	}

	return errors.Join(errs...)
}

// IssuerOptions converts issuer settings.
func (c *Config) IssuerOptions() numerator.Options {
	strategy, _ := numerator.ParseStrategy(c.Issuer.Strategy)
	return numerator.Options{
		Strategy:  strategy,
		LeaseSize: c.Issuer.LeaseSize,
		LockTTL:   c.Issuer.LockTTL,
	}
}

// RegistryRetry builds the retry policy for registry store calls.
// Only transient store failures are retried.
func (c *Config) RegistryRetry() retry.Policy {
	delay := retry.Constant(c.Registry.RetryDelay)
	if c.Registry.RetryBackoff == BackoffExponential {
		delay = retry.Exponential(c.Registry.RetryDelay)
	}
	return retry.Policy{
		MaxAttempts: c.Registry.RetryAttempts,
		Delay:       delay,
		Retryable:   numerator.IsTransient,
	}
}
