// api/auth/cache/redis.go

package cache

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/bastionhq/bastion/api/logging"
	"github.com/bastionhq/bastion/api/model"
)

const redisKeyPrefix = "decision:"

// RedisStore keeps the decision cache in Redis so multiple instances
// share grants and invalidations. The positive-only rule is identical to
// MemoryStore; Redis errors are treated as misses so a cache outage
// degrades to the remote path instead of failing checks.
type RedisStore struct {
	client *redis.Client

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) bool {
	_, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		s.misses.Add(1)
		return false
	} else if err != nil {
		logger.Debug("Decision cache read failed, treating as miss",
			zap.Error(err),
			zap.String("key", key))
		s.misses.Add(1)
		return false
	}

	s.hits.Add(1)
	return true
}

func (s *RedisStore) Set(ctx context.Context, key string, allowed bool, ttl time.Duration) {
	if !allowed {
		return
	}

	if err := s.client.Set(ctx, redisKeyPrefix+key, "1", ttl).Err(); err != nil {
		logger.Debug("Failed to cache decision",
			zap.Error(err),
			zap.String("key", key))
	}
}

func (s *RedisStore) Invalidate(ctx context.Context, key string) {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		logger.Debug("Failed to invalidate cached decision",
			zap.Error(err),
			zap.String("key", key))
	}
}

// escapeGlob backslash-escapes the glob metacharacters Redis gives
// special meaning in MATCH patterns. Subject ids are caller-supplied and
// may contain "[", "]", "*" or "?"; without escaping, a subject like
// "user:a[1]" would never match its own keys and a subject containing
// "*" could sweep away other subjects' grants.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *RedisStore) InvalidatePrefix(ctx context.Context, prefix string) {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+escapeGlob(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Debug("Failed to invalidate cached decision",
				zap.Error(err),
				zap.String("key", iter.Val()))
		}
	}
	if err := iter.Err(); err != nil {
		logger.Debug("Decision cache scan failed",
			zap.Error(err),
			zap.String("prefix", prefix))
	}
}

func (s *RedisStore) Size(ctx context.Context) int {
	count := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count
}

func (s *RedisStore) Stats() model.CacheStats {
	return model.CacheStats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   s.Size(context.Background()),
	}
}

func (s *RedisStore) Close() {}
