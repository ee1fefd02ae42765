package numerator

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "serialgen/internal/core/numerator"
	"serialgen/internal/infrastructure/storage/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// failingDeleteStore fails every DeleteIfEquals.
type failingDeleteStore struct {
	corenumerator.Store
}

func (s failingDeleteStore) DeleteIfEquals(ctx context.Context, key, expected string) (bool, error) {
	return false, corenumerator.ErrBackendUnavailable
}

// failingIncrStore fails every IncrBy.
type failingIncrStore struct {
	corenumerator.Store
}

func (s failingIncrStore) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	return 0, corenumerator.ErrBackendUnavailable
}

// nextWithRetry retries ErrTryAgain the way callers are expected to.
func nextWithRetry(iss corenumerator.Issuer, prefix string) (uint64, error) {
	var err error
	for i := 0; i < 10000; i++ {
		var v uint64
		v, err = iss.Next(context.Background(), prefix)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, corenumerator.ErrTryAgain) {
			return 0, err
		}
		runtime.Gosched()
	}
	return 0, err
}

func TestNew_SelectsStrategy(t *testing.T) {
	store := memory.New()

	assert.IsType(t, &Direct{}, New(store, corenumerator.Keyspace{}, corenumerator.Options{}))
	assert.IsType(t, &Leased{}, New(store, corenumerator.Keyspace{}, corenumerator.Options{Strategy: corenumerator.StrategyLeased}))
}

func TestDirect_Monotonic(t *testing.T) {
	iss := NewDirect(memory.New(), corenumerator.Keyspace{})
	ctx := context.Background()

	var prev uint64
	for i := 0; i < 100; i++ {
		v, err := iss.Next(ctx, "ORDER")
		require.NoError(t, err)
		assert.Greater(t, v, prev)
		prev = v
	}
	assert.Equal(t, uint64(100), prev)

	// Prefixes are independent.
	v, err := iss.Next(ctx, "INV")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}

func TestDirect_CorruptCounter(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "seq:BAD", "-5"))
	require.NoError(t, store.Set(ctx, "seq:TXT", "abc"))

	iss := NewDirect(store, corenumerator.Keyspace{})

	_, err := iss.Next(ctx, "BAD")
	assert.ErrorIs(t, err, corenumerator.ErrCorrupt)

	_, err = iss.Next(ctx, "TXT")
	assert.ErrorIs(t, err, corenumerator.ErrCorrupt)
}

func TestDirect_Seed(t *testing.T) {
	store := memory.New()
	iss := NewDirect(store, corenumerator.Keyspace{})
	ctx := context.Background()

	require.NoError(t, iss.Seed(ctx, "ORDER", 1000))
	v, err := iss.Next(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), v)

	// An existing counter always wins.
	require.NoError(t, iss.Seed(ctx, "ORDER", 5))
	v, err = iss.Next(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, uint64(1001), v)
}

func TestDirect_SeedRaisesLowerCounter(t *testing.T) {
	store := memory.New()
	iss := NewDirect(store, corenumerator.Keyspace{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := iss.Next(ctx, "ORDER")
		require.NoError(t, err)
	}

	require.NoError(t, iss.Seed(ctx, "ORDER", 1000))
	v, err := iss.Next(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), v)

	raw, _, err := store.Get(ctx, "seq:ORDER")
	require.NoError(t, err)
	assert.Equal(t, "1000", raw)
}

func TestDirect_SeedCorruptCounter(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "seq:ORDER", "abc"))

	err := NewDirect(store, corenumerator.Keyspace{}).Seed(ctx, "ORDER", 10)
	assert.ErrorIs(t, err, corenumerator.ErrCorrupt)
}

func TestIssuers_UniqueUnderConcurrency(t *testing.T) {
	const processes, workers, perWorker = 3, 8, 60

	tests := []struct {
		name string
		opts corenumerator.Options
	}{
		{"direct", corenumerator.Options{Strategy: corenumerator.StrategyDirect}},
		{"leased", corenumerator.Options{Strategy: corenumerator.StrategyLeased, LeaseSize: 7, LockTTL: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()

			var (
				mu   sync.Mutex
				seen = make(map[uint64]int)
				wg   sync.WaitGroup
			)

			for p := 0; p < processes; p++ {
				// Each issuer stands for one process sharing the store.
				iss := New(store, corenumerator.Keyspace{}, tt.opts)
				for w := 0; w < workers; w++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						for i := 0; i < perWorker; i++ {
							v, err := nextWithRetry(iss, "ORDER")
							if !assert.NoError(t, err) {
								return
							}
							mu.Lock()
							seen[v]++
							mu.Unlock()
						}
					}()
				}
			}
			wg.Wait()

			assert.Len(t, seen, processes*workers*perWorker)
			for v, n := range seen {
				assert.Equal(t, 1, n, "value %d issued %d times", v, n)
				assert.Greater(t, v, uint64(0))
			}
		})
	}
}

func TestLeased_ServesRangeLocally(t *testing.T) {
	store := memory.New()
	iss := NewLeased(store, corenumerator.Keyspace{}, corenumerator.Options{LeaseSize: 10})
	ctx := context.Background()

	for want := uint64(1); want <= 10; want++ {
		v, err := iss.Next(ctx, "ORDER")
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
	assert.Equal(t, uint64(0), iss.Remaining("ORDER"))

	raw, _, err := store.Get(ctx, "seq:ORDER")
	require.NoError(t, err)
	assert.Equal(t, "10", raw)

	v, err := iss.Next(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, uint64(11), v)
	assert.Equal(t, uint64(9), iss.Remaining("ORDER"))

	// The lock is released after each refill.
	_, held, err := store.Get(ctx, "lock:seq:ORDER")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestLeased_RestartLeavesGapNeverDuplicate(t *testing.T) {
	store := memory.New()
	opts := corenumerator.Options{LeaseSize: 10}
	ctx := context.Background()

	first := NewLeased(store, corenumerator.Keyspace{}, opts)
	issued := make(map[uint64]bool)
	for i := 0; i < 3; i++ {
		v, err := first.Next(ctx, "ORDER")
		require.NoError(t, err)
		issued[v] = true
	}

	// A new instance has no knowledge of the old lease.
	restarted := NewLeased(store, corenumerator.Keyspace{}, opts)
	v, err := restarted.Next(ctx, "ORDER")
	require.NoError(t, err)

	assert.Equal(t, uint64(11), v, "values 4..10 are a permanent gap")
	assert.False(t, issued[v])
}

func TestLeased_DiscardDropsLease(t *testing.T) {
	iss := NewLeased(memory.New(), corenumerator.Keyspace{}, corenumerator.Options{LeaseSize: 5})
	ctx := context.Background()

	_, err := iss.Next(ctx, "A")
	require.NoError(t, err)
	iss.Discard("A")

	v, err := iss.Next(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, uint64(6), v)
}

func TestLeased_LockHeldReturnsTryAgain(t *testing.T) {
	clock := newFakeClock()
	store := memory.New(memory.WithClock(clock.Now))
	ctx := context.Background()

	// A crashed holder left its lock behind.
	ok, err := store.SetIfAbsent(ctx, "lock:seq:ORDER", "dead-holder", 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	iss := NewLeased(store, corenumerator.Keyspace{}, corenumerator.Options{LeaseSize: 10, LockTTL: 2 * time.Second})

	_, err = iss.Next(ctx, "ORDER")
	assert.ErrorIs(t, err, corenumerator.ErrTryAgain)

	raw, found, err := store.Get(ctx, "seq:ORDER")
	require.NoError(t, err)
	assert.False(t, found, "no range may be reserved without the lock: %s", raw)

	clock.Advance(3 * time.Second)

	v, err := iss.Next(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}

func TestLeased_ReleaseFailureIsNotFatal(t *testing.T) {
	clock := newFakeClock()
	mem := memory.New(memory.WithClock(clock.Now))
	store := failingDeleteStore{Store: mem}
	ctx := context.Background()

	iss := NewLeased(store, corenumerator.Keyspace{}, corenumerator.Options{LeaseSize: 2, LockTTL: time.Second})

	v, err := iss.Next(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	v, err = iss.Next(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)

	// Lock is still held by our stale token until it expires.
	_, err = iss.Next(ctx, "ORDER")
	assert.ErrorIs(t, err, corenumerator.ErrTryAgain)

	clock.Advance(time.Second)
	v, err = iss.Next(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v)
}

func TestLeased_SeedHonoredByRange(t *testing.T) {
	store := memory.New()
	iss := NewLeased(store, corenumerator.Keyspace{}, corenumerator.Options{LeaseSize: 10})
	ctx := context.Background()

	require.NoError(t, iss.Seed(ctx, "ORDER", 500))
	v, err := iss.Next(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), v)
}

func TestLeased_SeedRaisesLiveLease(t *testing.T) {
	store := memory.New()
	iss := NewLeased(store, corenumerator.Keyspace{}, corenumerator.Options{LeaseSize: 50})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := iss.Next(ctx, "ORDER")
		require.NoError(t, err)
	}

	require.NoError(t, iss.Seed(ctx, "ORDER", 1000))
	v, err := iss.Next(ctx, "ORDER")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), v)
}

func TestLeased_BackendErrorPropagates(t *testing.T) {
	mem := memory.New()
	iss := NewLeased(failingIncrStore{Store: mem}, corenumerator.Keyspace{}, corenumerator.Options{LeaseSize: 10})
	ctx := context.Background()

	_, err := iss.Next(ctx, "ORDER")
	assert.ErrorIs(t, err, corenumerator.ErrBackendUnavailable)
	assert.Equal(t, uint64(0), iss.Remaining("ORDER"))

	// The lock was released despite the failure.
	_, held, err := mem.Get(ctx, "lock:seq:ORDER")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestLeased_CancelledContext(t *testing.T) {
	iss := NewLeased(memory.New(), corenumerator.Keyspace{}, corenumerator.Options{LeaseSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := iss.Next(ctx, "ORDER")
	assert.ErrorIs(t, err, context.Canceled)
}
