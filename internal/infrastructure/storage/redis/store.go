// Package redis provides the Redis-backed shared counter store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"serialgen/internal/core/numerator"
)

// deleteIfEquals removes KEYS[1] only when it still holds ARGV[1].
var deleteIfEquals = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config holds connection settings.
type Config struct {
	// Addrs is one address for a single node, several for cluster or sentinel.
	Addrs        []string
	Username     string
	Password     string
	DB           int
	MasterName   string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// DefaultConfig returns settings for a local single node.
func DefaultConfig() Config {
	return Config{
		Addrs:        []string{"localhost:6379"},
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     20,
	}
}

// Store implements numerator.Backend on a go-redis UniversalClient.
type Store struct {
	rdb goredis.UniversalClient
}

var _ numerator.Backend = (*Store)(nil)

// New connects using cfg and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MasterName:   cfg.MasterName,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	s := NewFromClient(rdb)
	if err := s.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return s, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(rdb goredis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

// Name implements numerator.Backend.
func (s *Store) Name() string { return "redis" }

// Ping implements numerator.Backend.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close implements numerator.Backend.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Incr implements numerator.Store.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	v, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, classify("incr", key, err)
	}
	return v, nil
}

// IncrBy implements numerator.Store.
func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	v, err := s.rdb.IncrBy(ctx, key, n).Result()
	if err != nil {
		return 0, classify("incrby", key, err)
	}
	return v, nil
}

// Get implements numerator.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("get", key, err)
	}
	return v, true, nil
}

// Set implements numerator.Store.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return classify("set", key, err)
	}
	return nil
}

// SetIfAbsent implements numerator.Store with SET NX PX.
func (s *Store) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, classify("setnx", key, err)
	}
	return ok, nil
}

// DeleteIfEquals implements numerator.Store with a compare-and-delete script.
func (s *Store) DeleteIfEquals(ctx context.Context, key, expected string) (bool, error) {
	n, err := deleteIfEquals.Run(ctx, s.rdb, []string{key}, expected).Int64()
	if err != nil {
		return false, classify("delete_if_equals", key, err)
	}
	return n > 0, nil
}

// classify maps server replies on non-integer values to ErrCorrupt and
// everything else to ErrBackendUnavailable.
func classify(op, key string, err error) error {
	var rerr goredis.Error
	if errors.As(err, &rerr) && strings.Contains(rerr.Error(), "not an integer") {
		return fmt.Errorf("%w: %s %s: %w", numerator.ErrCorrupt, op, key, err)
	}
	return unavailable(op+" "+key, err)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: redis %s: %w", numerator.ErrBackendUnavailable, op, err)
}
