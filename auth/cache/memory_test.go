package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bastionhq/bastion/api/auth/cache"
)

func newTestStore(t *testing.T) *cache.MemoryStore {
	t.Helper()
	store := cache.NewMemoryStore(cache.Config{
		MaxEntries:      3200,
		BaseTTL:         5 * time.Minute,
		ExtendedTTL:     30 * time.Minute,
		CleanupInterval: 10 * time.Millisecond,
	})
	t.Cleanup(store.Close)
	return store
}

func TestMemoryStore_SetAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Set(ctx, "alice:notes:alice:1:read", true, time.Minute)

	assert.True(t, store.Get(ctx, "alice:notes:alice:1:read"))
	assert.False(t, store.Get(ctx, "alice:notes:alice:1:write"))
	assert.Equal(t, 1, store.Size(ctx))
}

func TestMemoryStore_NeverStoresDenials(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Set(ctx, "bob:notes:alice:1:read", false, time.Minute)

	assert.False(t, store.Get(ctx, "bob:notes:alice:1:read"))
	assert.Equal(t, 0, store.Size(ctx))
}

func TestMemoryStore_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Set(ctx, "alice:public:doc:read", true, 20*time.Millisecond)
	assert.True(t, store.Get(ctx, "alice:public:doc:read"))

	time.Sleep(30 * time.Millisecond)
	assert.False(t, store.Get(ctx, "alice:public:doc:read"))
	assert.Equal(t, 0, store.Size(ctx))
}

func TestMemoryStore_JanitorSweepsExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 10; i++ {
		store.Set(ctx, fmt.Sprintf("alice:notes:alice:%d:read", i), true, 10*time.Millisecond)
	}
	assert.Equal(t, 10, store.Size(ctx))

	// The sweep runs every 10ms; no Get ever touches these keys, so any
	// removal must come from the janitor.
	assert.Eventually(t, func() bool {
		return store.Size(ctx) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_Invalidate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Set(ctx, "alice:notes:alice:1:read", true, time.Minute)
	store.Invalidate(ctx, "alice:notes:alice:1:read")

	assert.False(t, store.Get(ctx, "alice:notes:alice:1:read"))
}

func TestMemoryStore_InvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Set(ctx, "alice:notes:alice:1:read", true, time.Minute)
	store.Set(ctx, "alice:notes:alice:2:read", true, time.Minute)
	store.Set(ctx, "bob:notes:bob:1:read", true, time.Minute)

	store.InvalidatePrefix(ctx, "alice:")

	assert.False(t, store.Get(ctx, "alice:notes:alice:1:read"))
	assert.False(t, store.Get(ctx, "alice:notes:alice:2:read"))
	assert.True(t, store.Get(ctx, "bob:notes:bob:1:read"))
}

func TestMemoryStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Set(ctx, "alice:public:doc:read", true, time.Minute)
	store.Get(ctx, "alice:public:doc:read")
	store.Get(ctx, "alice:public:doc:read")
	store.Get(ctx, "missing:key:read")

	stats := store.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestMemoryStore_EvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(cache.Config{
		MaxEntries:      32, // one entry per shard
		BaseTTL:         time.Minute,
		ExtendedTTL:     time.Minute,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(store.Close)

	for i := 0; i < 200; i++ {
		store.Set(ctx, fmt.Sprintf("subject%d:res:read", i), true, time.Minute)
	}

	assert.LessOrEqual(t, store.Size(ctx), 32)
	assert.Greater(t, store.Stats().Evicted, uint64(0))
}

func TestMemoryStore_TinyCapStillBounded(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(cache.Config{
		MaxEntries:      8, // below the shard count
		BaseTTL:         time.Minute,
		ExtendedTTL:     time.Minute,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(store.Close)

	for i := 0; i < 200; i++ {
		store.Set(ctx, fmt.Sprintf("subject%d:res:read", i), true, time.Minute)
	}

	// Integer division cannot zero out the per-shard cap; worst case is
	// one entry per shard.
	assert.LessOrEqual(t, store.Size(ctx), 32)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("subject%d:res%d:read", n, j)
				store.Set(ctx, key, true, time.Minute)
				store.Get(ctx, key)
				if j%10 == 0 {
					store.Invalidate(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()

	// Every surviving entry is positive by construction; just make sure
	// the store is still coherent.
	assert.LessOrEqual(t, store.Size(ctx), 16*100)
}
