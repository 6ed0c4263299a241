// api/auth/authorizer.go
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bastionhq/bastion/api/audit"
	"github.com/bastionhq/bastion/api/auth/breaker"
	"github.com/bastionhq/bastion/api/auth/cache"
	"github.com/bastionhq/bastion/api/auth/fallback"
	"github.com/bastionhq/bastion/api/auth/remote"
	logger "github.com/bastionhq/bastion/api/logging"
	"github.com/bastionhq/bastion/api/model"
)

type contextKey string

const traceIDKey contextKey = "traceID"

// WithTraceID attaches a request trace id that every audit record of the
// request will carry.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext returns the attached trace id, minting one when the
// caller never set it so audit records are always correlatable.
func TraceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Authorizer answers permission checks by walking a fixed pipeline:
// decision cache, then the remote oracle behind a circuit breaker, then
// the static fallback rules. It fails closed: no error ever escapes
// Check, a question that cannot be answered confidently is denied.
type Authorizer struct {
	cache    cache.Store
	breaker  *breaker.Breaker
	remote   remote.Client
	fallback *fallback.Authorizer
	audit    audit.Service

	baseTTL     time.Duration
	extendedTTL time.Duration
}

// Config carries the collaborators and TTL policy of the pipeline.
type Config struct {
	Cache    cache.Store
	Breaker  *breaker.Breaker
	Remote   remote.Client
	Fallback *fallback.Authorizer
	Audit    audit.Service

	BaseTTL     time.Duration
	ExtendedTTL time.Duration
}

func NewAuthorizer(config Config) *Authorizer {
	if config.BaseTTL <= 0 {
		config.BaseTTL = cache.DefaultConfig().BaseTTL
	}
	if config.ExtendedTTL <= 0 {
		config.ExtendedTTL = cache.DefaultConfig().ExtendedTTL
	}
	return &Authorizer{
		cache:       config.Cache,
		breaker:     config.Breaker,
		remote:      config.Remote,
		fallback:    config.Fallback,
		audit:       config.Audit,
		baseTTL:     config.BaseTTL,
		extendedTTL: config.ExtendedTTL,
	}
}

// Check decides whether subject may perform action on resource.
//
// A cached grant answers immediately. Otherwise the remote oracle is
// consulted through the breaker; a definitive remote answer is
// authoritative, and only grants are cached. When the oracle cannot
// answer, the static fallback rules decide, and a fallback grant issued
// while the breaker is open is cached with the extended TTL so a brief
// remote recovery does not churn it out.
func (a *Authorizer) Check(ctx context.Context, subject, resource, action string) model.Decision {
	start := time.Now()
	key := model.PermissionKey{SubjectID: subject, ResourceID: resource, Action: action}

	if a.cache.Get(ctx, key.String()) {
		return a.finish(ctx, key, start, model.Decision{Allowed: true, Source: model.SourceCache})
	}

	var allowed bool
	err := a.breaker.Call(ctx, func(ctx context.Context) error {
		var checkErr error
		allowed, checkErr = a.remote.Check(ctx, subject, resource, action)
		return checkErr
	})
	if err == nil {
		if allowed {
			a.cache.Set(ctx, key.String(), true, a.baseTTL)
		}
		return a.finish(ctx, key, start, model.Decision{Allowed: allowed, Source: model.SourceRemote})
	}

	logger.Debug("Remote check unavailable, falling back",
		zap.Error(err),
		zap.String("subject", subject),
		zap.String("resource", resource),
		zap.String("action", action))

	decision := model.Decision{Source: model.SourceFallback}
	if a.fallback.Evaluate(subject, resource, action) {
		decision.Allowed = true
		ttl := a.baseTTL
		if a.breaker.IsOpen() {
			ttl = a.extendedTTL
		}
		a.cache.Set(ctx, key.String(), true, ttl)
	}
	return a.finish(ctx, key, start, decision)
}

// Invalidate removes one cached decision.
func (a *Authorizer) Invalidate(ctx context.Context, subject, resource, action string) {
	key := model.PermissionKey{SubjectID: subject, ResourceID: resource, Action: action}
	a.cache.Invalidate(ctx, key.String())
}

// InvalidateSubject removes every cached decision of one subject.
func (a *Authorizer) InvalidateSubject(ctx context.Context, subject string) {
	a.cache.InvalidatePrefix(ctx, model.SubjectPrefix(subject))
}

// Stats combines the cache and breaker counters for the stats endpoint.
func (a *Authorizer) Stats(ctx context.Context) model.Statistics {
	cacheStats := a.cache.Stats()
	cacheStats.Size = a.cache.Size(ctx)
	breakerStats := a.breaker.Stats()
	return model.Statistics{
		CacheHits:       cacheStats.Hits,
		CacheMisses:     cacheStats.Misses,
		CacheSize:       cacheStats.Size,
		BreakerState:    breakerStats.State,
		BreakerFailures: breakerStats.Failures,
	}
}

// Breaker exposes the breaker for state-change hooks.
func (a *Authorizer) Breaker() *breaker.Breaker {
	return a.breaker
}

func (a *Authorizer) finish(ctx context.Context, key model.PermissionKey, start time.Time, decision model.Decision) model.Decision {
	a.audit.Record(audit.Entry{
		Timestamp:  time.Now().UTC(),
		TraceID:    TraceIDFromContext(ctx),
		UserID:     key.SubjectID,
		Resource:   key.ResourceID,
		Action:     key.Action,
		Allowed:    decision.Allowed,
		Source:     string(decision.Source),
		DurationMS: time.Since(start).Milliseconds(),
	})
	return decision
}
