// Package prefixrule owns prefix rules: validation, persistence and a
// process-local read cache.
//
// The cache is read-through and write-invalidate within one process only.
// A rule changed by another process stays stale here until the entry expires
// (Config.CacheTTL) or the process restarts. Rules change rarely after
// provisioning, so no cross-process invalidation is attempted.
package prefixrule

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"serialgen/internal/core/numerator"
	"serialgen/internal/core/retry"
	"serialgen/pkg/logger"
)

// RegistrationPolicy decides what happens when a rule is registered twice.
type RegistrationPolicy int

const (
	// PolicyReject fails the second registration with ErrAlreadyExists.
	PolicyReject RegistrationPolicy = iota
	// PolicyUpsert overwrites the stored rule.
	PolicyUpsert
)

// String implements fmt.Stringer.
func (p RegistrationPolicy) String() string {
	if p == PolicyUpsert {
		return "upsert"
	}
	return "reject"
}

// ParsePolicy parses "reject" or "upsert".
func ParsePolicy(s string) (RegistrationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return PolicyReject, nil
	case "upsert":
		return PolicyUpsert, nil
	default:
		return PolicyReject, fmt.Errorf("unknown registration policy %q", s)
	}
}

// Config holds registry configuration.
type Config struct {
	Policy RegistrationPolicy
	// CacheTTL evicts cached rules after this long. Zero keeps them until restart.
	CacheTTL time.Duration
	// Retry wraps every store call made by the registry.
	Retry retry.Policy
}

// DefaultConfig returns reject-on-duplicate with one short retry on transient errors.
func DefaultConfig() Config {
	return Config{
		Policy: PolicyReject,
		Retry:  retry.Once(50*time.Millisecond, numerator.IsTransient),
	}
}

type cacheEntry struct {
	rule     numerator.PrefixRule
	loadedAt time.Time
}

// Registry maps prefix keys to rules.
type Registry struct {
	store numerator.Store
	keys  numerator.Keyspace
	cfg   Config
	now   func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry with an empty cache.
func NewRegistry(store numerator.Store, keys numerator.Keyspace, cfg Config, opts ...Option) *Registry {
	r := &Registry{
		store: store,
		keys:  keys,
		cfg:   cfg,
		now:   time.Now,
		cache: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the configured registration policy.
func (r *Registry) Policy() RegistrationPolicy {
	return r.cfg.Policy
}

// Register validates and persists rule, then refreshes the local cache entry.
func (r *Registry) Register(ctx context.Context, rule numerator.PrefixRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("encode prefix rule %s: %w", rule.PrefixKey, err)
	}
	key := r.keys.RuleKey(rule.PrefixKey)
	value := string(data)

	r.Invalidate(rule.PrefixKey)

	switch r.cfg.Policy {
	case PolicyUpsert:
		err = retry.Do(ctx, r.cfg.Retry, func(ctx context.Context, _ int) error {
			return r.store.Set(ctx, key, value)
		})
	default:
		err = retry.Do(ctx, r.cfg.Retry, func(ctx context.Context, attempt int) error {
			stored, err := r.store.SetIfAbsent(ctx, key, value, 0)
			if err != nil {
				return err
			}
			if stored {
				return nil
			}
			// An earlier attempt may have landed before its response was lost.
			if attempt > 1 {
				cur, found, gerr := r.store.Get(ctx, key)
				if gerr != nil {
					return gerr
				}
				if found && cur == value {
					return nil
				}
			}
			return fmt.Errorf("%w: %s", numerator.ErrAlreadyExists, rule.PrefixKey)
		})
	}
	if err != nil {
		return fmt.Errorf("register prefix rule %s: %w", rule.PrefixKey, err)
	}

	r.put(rule)

	logger.Info(ctx, "prefix rule registered",
		"prefix", rule.PrefixKey,
		"format", rule.Format,
		"policy", r.cfg.Policy.String(),
	)
	return nil
}

// Get returns the rule for prefix, or nil if none is registered.
// A key that could never be registered is reported as absent.
func (r *Registry) Get(ctx context.Context, prefix string) (*numerator.PrefixRule, error) {
	if numerator.ValidatePrefixKey(prefix) != nil {
		return nil, nil
	}

	if rule, ok := r.cached(prefix); ok {
		return &rule, nil
	}

	key := r.keys.RuleKey(prefix)
	var (
		raw   string
		found bool
	)
	err := retry.Do(ctx, r.cfg.Retry, func(ctx context.Context, _ int) error {
		var err error
		raw, found, err = r.store.Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load prefix rule %s: %w", prefix, err)
	}
	if !found {
		return nil, nil
	}

	rule, err := decodeRule(prefix, raw)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "prefix rule loaded from store", "prefix", prefix)
	r.put(rule)
	return &rule, nil
}

// Invalidate drops the cached entry for prefix.
func (r *Registry) Invalidate(prefix string) {
	r.mu.Lock()
	delete(r.cache, prefix)
	r.mu.Unlock()
}

// CacheLen returns the number of cached rules, expired ones included.
func (r *Registry) CacheLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Registry) cached(prefix string) (numerator.PrefixRule, bool) {
	r.mu.RLock()
	entry, ok := r.cache[prefix]
	r.mu.RUnlock()
	if !ok {
		return numerator.PrefixRule{}, false
	}

	if r.cfg.CacheTTL > 0 && r.now().Sub(entry.loadedAt) >= r.cfg.CacheTTL {
		r.Invalidate(prefix)
		return numerator.PrefixRule{}, false
	}
	return entry.rule, true
}

func (r *Registry) put(rule numerator.PrefixRule) {
	r.mu.Lock()
	r.cache[rule.PrefixKey] = cacheEntry{rule: rule, loadedAt: r.now()}
	r.mu.Unlock()
}

// decodeRule parses a stored rule. Malformed records are never defaulted.
func decodeRule(prefix, raw string) (numerator.PrefixRule, error) {
	var rule numerator.PrefixRule
	if err := json.Unmarshal([]byte(raw), &rule); err != nil {
		return rule, fmt.Errorf("%w: prefix rule %s: %w", numerator.ErrCorrupt, prefix, err)
	}
	if rule.PrefixKey == "" {
		rule.PrefixKey = prefix
	}
	if rule.PrefixKey != prefix {
		return rule, fmt.Errorf("%w: prefix rule %s stored under key of %s", numerator.ErrCorrupt, rule.PrefixKey, prefix)
	}
	if err := rule.Validate(); err != nil {
		return rule, fmt.Errorf("%w: prefix rule %s: %w", numerator.ErrCorrupt, prefix, err)
	}
	return rule, nil
}
