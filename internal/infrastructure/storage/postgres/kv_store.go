package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"serialgen/internal/core/numerator"
)

const kvTable = "sys_kv"

// Schema creates the key-value table used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS sys_kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    expires_at TIMESTAMPTZ
)`

// liveOnly filters out expired rows.
const liveOnly = "(expires_at IS NULL OR expires_at > now())"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// DB is the subset of pgxpool.Pool used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// Store implements numerator.Backend on one sys_kv table.
// Every primitive is a single statement, so no explicit transactions are needed.
type Store struct {
	db   DB
	pool *Pool // nil when constructed from a bare DB
}

var _ numerator.Backend = (*Store)(nil)

// New wraps db. The schema must already exist.
func New(db DB) *Store {
	return &Store{db: db}
}

// Open creates a pool, ensures the schema and returns the store owning the pool.
func Open(ctx context.Context, cfg PoolConfig) (*Store, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{db: pool, pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logPoolStats(ctx, s)
	return s, nil
}

// EnsureSchema creates sys_kv if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return classify("ensure schema", kvTable, err)
	}
	return nil
}

// Name implements numerator.Backend.
func (s *Store) Name() string { return "postgres" }

// Ping implements numerator.Backend.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return classify("ping", "", err)
	}
	return nil
}

// Close implements numerator.Backend.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Incr implements numerator.Store.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.IncrBy(ctx, key, 1)
}

// IncrBy implements numerator.Store.
func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	query, args, err := incrByQuery(key, n).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build incr query: %w", err)
	}

	var v int64
	if err := pgxscan.Get(ctx, s.db, &v, query, args...); err != nil {
		return 0, classify("incr", key, err)
	}
	return v, nil
}

// Get implements numerator.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := getQuery(key).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build get query: %w", err)
	}

	var v string
	if err := pgxscan.Get(ctx, s.db, &v, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return "", false, nil
		}
		return "", false, classify("get", key, err)
	}
	return v, true, nil
}

// Set implements numerator.Store.
func (s *Store) Set(ctx context.Context, key, value string) error {
	query, args, err := setQuery(key, value).ToSql()
	if err != nil {
		return fmt.Errorf("build set query: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return classify("set", key, err)
	}
	return nil
}

// SetIfAbsent implements numerator.Store. Expired rows are taken over.
func (s *Store) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	query, args, err := setIfAbsentQuery(key, value, ttl).ToSql()
	if err != nil {
		return false, fmt.Errorf("build set_if_absent query: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return false, classify("set_if_absent", key, err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteIfEquals implements numerator.Store.
func (s *Store) DeleteIfEquals(ctx context.Context, key, expected string) (bool, error) {
	query, args, err := deleteIfEqualsQuery(key, expected).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete query: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return false, classify("delete_if_equals", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

// --- Query builders ---

func incrByQuery(key string, n int64) squirrel.InsertBuilder {
	return psql.Insert(kvTable).
		Columns("key", "value").
		Values(key, strconv.FormatInt(n, 10)).
		Suffix(`ON CONFLICT (key) DO UPDATE SET
    value = ((CASE WHEN sys_kv.expires_at <= now() THEN 0 ELSE sys_kv.value::bigint END) + ?)::text,
    expires_at = CASE WHEN sys_kv.expires_at <= now() THEN NULL ELSE sys_kv.expires_at END
RETURNING value::bigint`, n)
}

func getQuery(key string) squirrel.SelectBuilder {
	return psql.Select("value").
		From(kvTable).
		Where(squirrel.Eq{"key": key}).
		Where(liveOnly)
}

func setQuery(key, value string) squirrel.InsertBuilder {
	return psql.Insert(kvTable).
		Columns("key", "value", "expires_at").
		Values(key, value, nil).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = NULL")
}

func setIfAbsentQuery(key, value string, ttl time.Duration) squirrel.InsertBuilder {
	var expiresAt any
	if ttl > 0 {
		expiresAt = squirrel.Expr("now() + make_interval(secs => ?::double precision)", ttl.Seconds())
	}

	return psql.Insert(kvTable).
		Columns("key", "value", "expires_at").
		Values(key, value, expiresAt).
		Suffix(`ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
WHERE sys_kv.expires_at IS NOT NULL AND sys_kv.expires_at <= now()`)
}

func deleteIfEqualsQuery(key, expected string) squirrel.DeleteBuilder {
	return psql.Delete(kvTable).
		Where(squirrel.Eq{"key": key, "value": expected}).
		Where(liveOnly)
}

// --- Errors ---

// SQLSTATE codes raised when a stored value is not an integer.
const (
	codeInvalidTextRepresentation = "22P02"
	codeNumericValueOutOfRange    = "22003"
)

func classify(op, key string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidTextRepresentation, codeNumericValueOutOfRange:
			return fmt.Errorf("%w: postgres %s %s: %w", numerator.ErrCorrupt, op, key, err)
		}
	}
	return fmt.Errorf("%w: postgres %s %s: %w", numerator.ErrBackendUnavailable, op, key, err)
}
