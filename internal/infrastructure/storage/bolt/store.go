// Package bolt provides a bbolt-backed shared counter store for single-host
// deployments. The database file is locked by one process at a time.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"serialgen/internal/core/numerator"
)

var bucketName = []byte("kv")

// Config holds file settings.
type Config struct {
	Path string
	// OpenTimeout bounds waiting for the file lock held by another process.
	OpenTimeout time.Duration
}

// Store implements numerator.Backend on one bbolt bucket.
// Values are stored as an 8-byte expiry (unix nanos, 0 = none) followed by the payload.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ numerator.Backend = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens or creates the database file.
func Open(cfg Config, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	db, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", numerator.ErrBackendUnavailable, cfg.Path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name implements numerator.Backend.
func (s *Store) Name() string { return "bolt" }

// Ping implements numerator.Backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketName) == nil {
			return fmt.Errorf("%w: bucket missing", numerator.ErrBackendUnavailable)
		}
		return nil
	})
}

// Close implements numerator.Backend.
func (s *Store) Close() error {
	return s.db.Close()
}

// Incr implements numerator.Store.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.IncrBy(ctx, key, 1)
}

// IncrBy implements numerator.Store.
func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	var out int64
	err := s.update(ctx, func(b *bbolt.Bucket) error {
		value, expiresAt, ok := s.load(b, key)

		var cur int64
		if ok {
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: key %s holds %q", numerator.ErrCorrupt, key, value)
			}
			cur = v
		}

		out = cur + n
		return b.Put([]byte(key), encode(strconv.FormatInt(out, 10), expiresAt))
	})
	return out, err
}

// Get implements numerator.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, fmt.Errorf("%w: %w", numerator.ErrBackendUnavailable, err)
	}

	var (
		value string
		ok    bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		value, _, ok = s.load(tx.Bucket(bucketName), key)
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("%w: bolt get %s: %w", numerator.ErrBackendUnavailable, key, err)
	}
	return value, ok, nil
}

// Set implements numerator.Store.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.update(ctx, func(b *bbolt.Bucket) error {
		return b.Put([]byte(key), encode(value, time.Time{}))
	})
}

// SetIfAbsent implements numerator.Store.
func (s *Store) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	var stored bool
	err := s.update(ctx, func(b *bbolt.Bucket) error {
		if _, _, ok := s.load(b, key); ok {
			return nil
		}

		var expiresAt time.Time
		if ttl > 0 {
			expiresAt = s.now().Add(ttl)
		}
		stored = true
		return b.Put([]byte(key), encode(value, expiresAt))
	})
	return stored, err
}

// DeleteIfEquals implements numerator.Store.
func (s *Store) DeleteIfEquals(ctx context.Context, key, expected string) (bool, error) {
	var deleted bool
	err := s.update(ctx, func(b *bbolt.Bucket) error {
		value, _, ok := s.load(b, key)
		if !ok || value != expected {
			return nil
		}
		deleted = true
		return b.Delete([]byte(key))
	})
	return deleted, err
}

// update runs fn in a write transaction. bbolt serializes writers.
func (s *Store) update(ctx context.Context, fn func(b *bbolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", numerator.ErrBackendUnavailable, err)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket(bucketName))
	})
	if err == nil || errors.Is(err, numerator.ErrCorrupt) {
		return err
	}
	return fmt.Errorf("%w: bolt update: %w", numerator.ErrBackendUnavailable, err)
}

// load returns a live value. Expired entries read as absent.
func (s *Store) load(b *bbolt.Bucket, key string) (string, time.Time, bool) {
	raw := b.Get([]byte(key))
	if raw == nil {
		return "", time.Time{}, false
	}

	value, expiresAt, ok := decode(raw)
	if !ok {
		// Undecodable records are served as-is so IncrBy reports them corrupt.
		return string(raw), time.Time{}, true
	}
	if !expiresAt.IsZero() && !s.now().Before(expiresAt) {
		return "", time.Time{}, false
	}
	return value, expiresAt, true
}

func encode(value string, expiresAt time.Time) []byte {
	buf := make([]byte, 8+len(value))
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(buf[:8], uint64(expiresAt.UnixNano()))
	}
	copy(buf[8:], value)
	return buf
}

func decode(raw []byte) (string, time.Time, bool) {
	if len(raw) < 8 {
		return "", time.Time{}, false
	}
	var expiresAt time.Time
	if nanos := binary.BigEndian.Uint64(raw[:8]); nanos != 0 {
		expiresAt = time.Unix(0, int64(nanos))
	}
	// bbolt memory is only valid inside the transaction.
	return string(raw[8:]), expiresAt, true
}
