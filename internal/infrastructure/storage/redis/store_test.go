package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serialgen/internal/core/numerator"
	"serialgen/internal/infrastructure/storage/storagetest"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Addrs = []string{mr.Addr()}
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, mr
}

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Harness {
		s, mr := newTestStore(t)
		return storagetest.Harness{
			Store:   s,
			Advance: mr.FastForward,
		}
	})
}

func TestStore_LockTTLIsSetOnServer(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	ok, err := s.SetIfAbsent(ctx, "lock:seq:A", "token", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, mr.TTL("lock:seq:A"))

	ok, err = s.SetIfAbsent(ctx, "seq:A", "41", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), mr.TTL("seq:A"), "zero ttl never expires")

	v, err := s.Incr(ctx, "seq:A")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestStore_ServerDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.Incr(context.Background(), "seq:A")
	assert.ErrorIs(t, err, numerator.ErrBackendUnavailable)

	assert.ErrorIs(t, s.Ping(context.Background()), numerator.ErrBackendUnavailable)
}

func TestNew_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addrs = []string{"127.0.0.1:1"}
	cfg.DialTimeout = 100 * time.Millisecond

	_, err := New(context.Background(), cfg)
	assert.ErrorIs(t, err, numerator.ErrBackendUnavailable)
}

func TestNewFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	s := NewFromClient(rdb)
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "k", "v"))
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Equal(t, "redis", s.Name())
}
