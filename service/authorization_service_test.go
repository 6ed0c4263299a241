// api/service/authorization_service_test.go
package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/bastionhq/bastion/api/audit"
	"github.com/bastionhq/bastion/api/auth"
	"github.com/bastionhq/bastion/api/auth/breaker"
	"github.com/bastionhq/bastion/api/auth/cache"
	"github.com/bastionhq/bastion/api/auth/fallback"
	"github.com/bastionhq/bastion/api/auth/remote"
	"github.com/bastionhq/bastion/api/db"
	bastion_errors "github.com/bastionhq/bastion/api/errors"
	"github.com/bastionhq/bastion/api/logging"
	"github.com/bastionhq/bastion/api/model"
	"github.com/bastionhq/bastion/api/util"
)

func TestMain(m *testing.M) {
	logging.Log = zap.NewNop()
	os.Exit(m.Run())
}

type nullAudit struct{}

func (nullAudit) Record(entry audit.Entry) {}
func (nullAudit) Query(ctx context.Context, from, to time.Time, userID, resource string) ([]audit.Entry, error) {
	return nil, nil
}

func newService(t *testing.T, client remote.Client) *AuthorizationService {
	t.Helper()
	store := cache.NewMemoryStore(cache.Config{
		MaxEntries:      1024,
		BaseTTL:         5 * time.Minute,
		ExtendedTTL:     30 * time.Minute,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(store.Close)

	authorizer := auth.NewAuthorizer(auth.Config{
		Cache:    store,
		Breaker:  breaker.New(breaker.DefaultConfig()),
		Remote:   client,
		Fallback: fallback.New(),
		Audit:    nullAudit{},
	})
	return NewAuthorizationService(
		authorizer,
		nullAudit{},
		util.NewValidationUtil(),
		util.NewNotificationService(),
		util.NewEventBus(),
	)
}

func TestCheckValidation(t *testing.T) {
	svc := newService(t, remote.NewStaticClient())

	_, err := svc.Check(context.Background(), model.CheckRequest{Subject: "", Resource: "doc:a", Action: "read"})
	assert.ErrorIs(t, err, bastion_errors.ErrInvalidCheckData)

	_, err = svc.Check(context.Background(), model.CheckRequest{Subject: "alice", Resource: "doc:a", Action: ""})
	assert.ErrorIs(t, err, bastion_errors.ErrInvalidCheckData)
}

func TestCheckPassesThroughPipeline(t *testing.T) {
	svc := newService(t, remote.NewStaticClient().Allow("alice", "doc:a", "read"))

	response, err := svc.Check(context.Background(), model.CheckRequest{Subject: "alice", Resource: "doc:a", Action: "read"})
	assert.NoError(t, err)
	assert.True(t, response.Allowed)
	assert.Equal(t, "remote", response.Source)
	assert.Equal(t, "alice", response.Subject)
}

func TestBatchCheckPreservesOrder(t *testing.T) {
	client := remote.NewStaticClient().
		Allow("alice", "doc:a", "read").
		Allow("alice", "doc:c", "read")
	svc := newService(t, client)

	responses, err := svc.BatchCheck(context.Background(), model.BatchCheckRequest{
		Subject: "alice",
		Checks: []model.CheckRequest{
			{Resource: "doc:a", Action: "read"},
			{Resource: "doc:b", Action: "read"},
			{Resource: "doc:c", Action: "read"},
		},
	})
	assert.NoError(t, err)
	assert.Len(t, responses, 3)
	assert.True(t, responses[0].Allowed)
	assert.False(t, responses[1].Allowed)
	assert.True(t, responses[2].Allowed)
	assert.Equal(t, "doc:b", responses[1].Resource)
}

func TestBatchCheckValidation(t *testing.T) {
	svc := newService(t, remote.NewStaticClient())

	_, err := svc.BatchCheck(context.Background(), model.BatchCheckRequest{Subject: "alice"})
	assert.ErrorIs(t, err, bastion_errors.ErrInvalidCheckData)
}

func TestInvalidateSingleAndSubject(t *testing.T) {
	client := remote.NewStaticClient().
		Allow("alice", "doc:a", "read").
		Allow("alice", "doc:b", "read")
	svc := newService(t, client)
	ctx := context.Background()

	svc.Check(ctx, model.CheckRequest{Subject: "alice", Resource: "doc:a", Action: "read"})
	svc.Check(ctx, model.CheckRequest{Subject: "alice", Resource: "doc:b", Action: "read"})
	assert.Equal(t, 2, svc.Stats(ctx).CacheSize)

	err := svc.Invalidate(ctx, model.InvalidateRequest{Subject: "alice", Resource: "doc:a", Action: "read"}, "ops-admin")
	assert.NoError(t, err)
	assert.Equal(t, 1, svc.Stats(ctx).CacheSize)

	err = svc.Invalidate(ctx, model.InvalidateRequest{Subject: "alice"}, "ops-admin")
	assert.NoError(t, err)
	assert.Equal(t, 0, svc.Stats(ctx).CacheSize)
}

func TestInvalidateValidation(t *testing.T) {
	svc := newService(t, remote.NewStaticClient())

	err := svc.Invalidate(context.Background(), model.InvalidateRequest{Subject: "alice", Resource: "doc:a"}, "ops-admin")
	assert.ErrorIs(t, err, bastion_errors.ErrInvalidCheckData)

	err = svc.Invalidate(context.Background(), model.InvalidateRequest{}, "ops-admin")
	assert.ErrorIs(t, err, bastion_errors.ErrInvalidCheckData)
}

func TestInvalidateSubjectReleasesDistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	db.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		db.RedisClient.Close()
		db.RedisClient = nil
	})

	svc := newService(t, remote.NewStaticClient().Allow("alice", "doc:a", "read"))
	ctx := context.Background()

	svc.Check(ctx, model.CheckRequest{Subject: "alice", Resource: "doc:a", Action: "read"})
	assert.Equal(t, 1, svc.Stats(ctx).CacheSize)

	err := svc.Invalidate(ctx, model.InvalidateRequest{Subject: "alice"}, "ops-admin")
	assert.NoError(t, err)
	assert.Equal(t, 0, svc.Stats(ctx).CacheSize)
	assert.False(t, mr.Exists("lock:invalidate:alice"))
}

func TestInvalidateSubjectProceedsWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	db.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		db.RedisClient.Close()
		db.RedisClient = nil
	})

	// Another replica holds the lock; the purge is idempotent so it
	// proceeds anyway and the foreign lock stays untouched.
	mr.Set("lock:invalidate:alice", "locked")

	svc := newService(t, remote.NewStaticClient().Allow("alice", "doc:a", "read"))
	ctx := context.Background()

	svc.Check(ctx, model.CheckRequest{Subject: "alice", Resource: "doc:a", Action: "read"})

	err := svc.Invalidate(ctx, model.InvalidateRequest{Subject: "alice"}, "ops-admin")
	assert.NoError(t, err)
	assert.Equal(t, 0, svc.Stats(ctx).CacheSize)
	assert.True(t, mr.Exists("lock:invalidate:alice"))
}

func TestBreakerTransitionsReachEventBus(t *testing.T) {
	store := cache.NewMemoryStore(cache.DefaultConfig())
	t.Cleanup(store.Close)

	config := breaker.DefaultConfig()
	config.FailureThreshold = 1
	brk := breaker.New(config)

	authorizer := auth.NewAuthorizer(auth.Config{
		Cache:    store,
		Breaker:  brk,
		Remote:   &erroringClient{},
		Fallback: fallback.New(),
		Audit:    nullAudit{},
	})

	bus := util.NewEventBus()
	var mu sync.Mutex
	var transitions []breakerTransition
	bus.Subscribe(util.EventBreakerStateChanged, func(ctx context.Context, event util.Event) error {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, event.Payload.(breakerTransition))
		return nil
	})

	svc := NewAuthorizationService(authorizer, nullAudit{}, util.NewValidationUtil(), util.NewNotificationService(), bus)

	svc.Check(context.Background(), model.CheckRequest{Subject: "alice", Resource: "doc:a", Action: "read"})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transitions) == 1 && transitions[0].To == "open"
	}, 2*time.Second, 10*time.Millisecond)
}

type erroringClient struct{}

func (erroringClient) Check(ctx context.Context, subject, resource, action string) (bool, error) {
	return false, bastion_errors.ErrRemoteUnavailable
}

func (erroringClient) HealthCheck(ctx context.Context) bool { return false }
