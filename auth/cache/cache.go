// api/auth/cache/cache.go

package cache

import (
	"context"
	"time"

	"github.com/bastionhq/bastion/api/model"
)

// Store is the decision cache consulted before every remote check.
//
// The store is positive-only: Set silently drops denials, so a key is
// either absent or maps to a still-valid grant. Caching a denial could
// lock out a user whose access was granted moments later elsewhere,
// which is why the rule is enforced here rather than left to callers.
type Store interface {
	// Get reports whether an unexpired positive decision is cached for key.
	Get(ctx context.Context, key string) bool

	// Set caches a positive decision for ttl. No-op when allowed is false.
	Set(ctx context.Context, key string, allowed bool, ttl time.Duration)

	// Invalidate removes one exact key.
	Invalidate(ctx context.Context, key string)

	// InvalidatePrefix removes every key starting with prefix, e.g. all
	// decisions of one subject.
	InvalidatePrefix(ctx context.Context, prefix string)

	// Size returns the number of entries currently stored.
	Size(ctx context.Context) int

	// Stats returns hit/miss counters accumulated since startup.
	Stats() model.CacheStats

	// Close releases background resources held by the store.
	Close()
}

// Config holds the cache tuning knobs.
type Config struct {
	MaxEntries      int
	BaseTTL         time.Duration
	ExtendedTTL     time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntries:      10000,
		BaseTTL:         5 * time.Minute,
		ExtendedTTL:     30 * time.Minute,
		CleanupInterval: time.Minute,
	}
}
