// api/auth/cache/memory.go

package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/bastionhq/bastion/api/model"
)

const shardCount = 32

type entry struct {
	expiresAt time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// MemoryStore is an in-process sharded TTL cache. Keys are spread over
// fixed shards by hash so reads for unrelated keys do not contend on a
// single lock. Expiry is lazy on read, with a janitor goroutine sweeping
// at the configured interval to bound memory.
type MemoryStore struct {
	config Config
	shards [shardCount]*shard

	hits    atomic.Uint64
	misses  atomic.Uint64
	expired atomic.Uint64
	evicted atomic.Uint64

	stop chan struct{}
	once sync.Once
}

// NewMemoryStore creates the store and starts its cleanup goroutine.
func NewMemoryStore(config Config) *MemoryStore {
	s := &MemoryStore{
		config: config,
		stop:   make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]entry)}
	}

	go s.janitor()

	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	return s.shards[xxhash.Sum64String(key)%shardCount]
}

func (s *MemoryStore) Get(ctx context.Context, key string) bool {
	sh := s.shardFor(key)

	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return false
	}

	if time.Now().After(e.expiresAt) {
		// Expired entry, drop it lazily. Re-check under the write lock
		// since another reader may have raced us here.
		sh.mu.Lock()
		if cur, ok := sh.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(sh.entries, key)
			s.expired.Add(1)
		}
		sh.mu.Unlock()
		s.misses.Add(1)
		return false
	}

	s.hits.Add(1)
	return true
}

func (s *MemoryStore) Set(ctx context.Context, key string, allowed bool, ttl time.Duration) {
	// Denials are never stored. A cached denial would outlive a grant
	// made elsewhere and silently lock the subject out.
	if !allowed {
		return
	}

	sh := s.shardFor(key)
	maxPerShard := s.config.MaxEntries / shardCount
	if s.config.MaxEntries > 0 && maxPerShard == 0 {
		// A cap below the shard count must still bound each shard.
		maxPerShard = 1
	}

	sh.mu.Lock()
	if _, exists := sh.entries[key]; !exists && maxPerShard > 0 && len(sh.entries) >= maxPerShard {
		// Shard is full. Evict an arbitrary entry; the janitor keeps
		// pressure low enough that anything fancier is not worth a
		// second index.
		for k := range sh.entries {
			delete(sh.entries, k)
			s.evicted.Add(1)
			break
		}
	}
	sh.entries[key] = entry{expiresAt: time.Now().Add(ttl)}
	sh.mu.Unlock()
}

func (s *MemoryStore) Invalidate(ctx context.Context, key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
}

func (s *MemoryStore) InvalidatePrefix(ctx context.Context, prefix string) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k := range sh.entries {
			if strings.HasPrefix(k, prefix) {
				delete(sh.entries, k)
			}
		}
		sh.mu.Unlock()
	}
}

func (s *MemoryStore) Size(ctx context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}

func (s *MemoryStore) Stats() model.CacheStats {
	return model.CacheStats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Size:    s.Size(context.Background()),
		Expired: s.expired.Load(),
		Evicted: s.evicted.Load(),
	}
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) janitor() {
	if s.config.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if now.After(e.expiresAt) {
				delete(sh.entries, k)
				s.expired.Add(1)
			}
		}
		sh.mu.Unlock()
	}
}
