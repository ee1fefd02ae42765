// Package storagetest holds a conformance suite every store backend must pass.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serialgen/internal/core/numerator"
)

// Harness is one fresh backend under test.
type Harness struct {
	Store numerator.Store
	// Advance moves the backend clock forward. Nil falls back to time.Sleep.
	Advance func(d time.Duration)
}

func (h Harness) advance(d time.Duration) {
	if h.Advance != nil {
		h.Advance(d)
		return
	}
	time.Sleep(d)
}

// Run exercises the store primitives. newHarness must return an empty store.
func Run(t *testing.T, newHarness func(t *testing.T) Harness) {
	t.Helper()
	ctx := context.Background()

	t.Run("IncrStartsAtOne", func(t *testing.T) {
		s := newHarness(t).Store

		v, err := s.Incr(ctx, "seq:A")
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		v, err = s.Incr(ctx, "seq:A")
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)
	})

	t.Run("IncrByReturnsRangeEnd", func(t *testing.T) {
		s := newHarness(t).Store

		v, err := s.IncrBy(ctx, "seq:B", 50)
		require.NoError(t, err)
		assert.Equal(t, int64(50), v)

		v, err = s.IncrBy(ctx, "seq:B", 50)
		require.NoError(t, err)
		assert.Equal(t, int64(100), v)
	})

	t.Run("IncrOnNonIntegerIsCorrupt", func(t *testing.T) {
		s := newHarness(t).Store

		require.NoError(t, s.Set(ctx, "seq:C", "not-a-number"))
		_, err := s.Incr(ctx, "seq:C")
		assert.ErrorIs(t, err, numerator.ErrCorrupt)
	})

	t.Run("GetSet", func(t *testing.T) {
		s := newHarness(t).Store

		_, ok, err := s.Get(ctx, "prefix_rule:X")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Set(ctx, "prefix_rule:X", `{"a":1}`))
		v, ok, err := s.Get(ctx, "prefix_rule:X")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"a":1}`, v)

		require.NoError(t, s.Set(ctx, "prefix_rule:X", `{"a":2}`))
		v, _, err = s.Get(ctx, "prefix_rule:X")
		require.NoError(t, err)
		assert.Equal(t, `{"a":2}`, v)
	})

	t.Run("SetIfAbsent", func(t *testing.T) {
		s := newHarness(t).Store

		ok, err := s.SetIfAbsent(ctx, "k", "first", 0)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.SetIfAbsent(ctx, "k", "second", 0)
		require.NoError(t, err)
		assert.False(t, ok)

		v, _, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "first", v)
	})

	t.Run("LockExpiresAfterTTL", func(t *testing.T) {
		h := newHarness(t)
		s := h.Store

		ok, err := s.SetIfAbsent(ctx, "lock:seq:A", "holder-1", time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.SetIfAbsent(ctx, "lock:seq:A", "holder-2", time.Second)
		require.NoError(t, err)
		assert.False(t, ok, "lock must be held before expiry")

		h.advance(1500 * time.Millisecond)

		ok, err = s.SetIfAbsent(ctx, "lock:seq:A", "holder-2", time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "expired lock must be acquirable")

		// The stale holder must not release the new holder's lock.
		deleted, err := s.DeleteIfEquals(ctx, "lock:seq:A", "holder-1")
		require.NoError(t, err)
		assert.False(t, deleted)

		v, ok, err := s.Get(ctx, "lock:seq:A")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "holder-2", v)
	})

	t.Run("DeleteIfEquals", func(t *testing.T) {
		s := newHarness(t).Store

		deleted, err := s.DeleteIfEquals(ctx, "missing", "x")
		require.NoError(t, err)
		assert.False(t, deleted)

		require.NoError(t, s.Set(ctx, "k", "token"))

		deleted, err = s.DeleteIfEquals(ctx, "k", "other")
		require.NoError(t, err)
		assert.False(t, deleted)

		deleted, err = s.DeleteIfEquals(ctx, "k", "token")
		require.NoError(t, err)
		assert.True(t, deleted)

		_, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ConcurrentIncrIsUnique", func(t *testing.T) {
		s := newHarness(t).Store

		const workers, perWorker = 16, 40
		var (
			mu   sync.Mutex
			seen = make(map[int64]bool, workers*perWorker)
			wg   sync.WaitGroup
		)

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					v, err := s.Incr(ctx, "seq:CONC")
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					if seen[v] {
						t.Errorf("duplicate value %d", v)
					}
					seen[v] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, workers*perWorker)
		for i := int64(1); i <= workers*perWorker; i++ {
			assert.True(t, seen[i], fmt.Sprintf("missing %d", i))
		}
	})
}
