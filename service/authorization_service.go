// api/service/authorization_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bastionhq/bastion/api/audit"
	"github.com/bastionhq/bastion/api/auth"
	"github.com/bastionhq/bastion/api/auth/breaker"
	"github.com/bastionhq/bastion/api/db"
	bastion_errors "github.com/bastionhq/bastion/api/errors"
	logger "github.com/bastionhq/bastion/api/logging"
	"github.com/bastionhq/bastion/api/model"
	"github.com/bastionhq/bastion/api/util"
)

// IAuthorizationService is the business-logic surface consumed by the
// HTTP controllers.
type IAuthorizationService interface {
	Check(ctx context.Context, req model.CheckRequest) (model.CheckResponse, error)
	BatchCheck(ctx context.Context, req model.BatchCheckRequest) ([]model.CheckResponse, error)
	Invalidate(ctx context.Context, req model.InvalidateRequest, requestedBy string) error
	Stats(ctx context.Context) model.Statistics
	QueryAudit(ctx context.Context, from, to time.Time, userID, resource string) ([]audit.Entry, error)
	Healthy(ctx context.Context) bool
}

// AuthorizationService wraps the decision pipeline with validation and
// event publication.
type AuthorizationService struct {
	authorizer     *auth.Authorizer
	audit          audit.Service
	validationUtil *util.ValidationUtil
	eventBus       *util.EventBus
}

// breakerTransition is the payload of breaker state change events.
type breakerTransition struct {
	From string
	To   string
}

func NewAuthorizationService(
	authorizer *auth.Authorizer,
	auditSvc audit.Service,
	validationUtil *util.ValidationUtil,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) *AuthorizationService {
	service := &AuthorizationService{
		authorizer:     authorizer,
		audit:          auditSvc,
		validationUtil: validationUtil,
		eventBus:       eventBus,
	}

	authorizer.Breaker().SetStateChangeHook(func(from, to breaker.State) {
		eventBus.Publish(context.Background(), util.EventBreakerStateChanged, breakerTransition{From: from.String(), To: to.String()})
	})

	eventBus.Subscribe(util.EventBreakerStateChanged, func(ctx context.Context, event util.Event) error {
		transition := event.Payload.(breakerTransition)
		return notificationSvc.NotifyBreakerStateChange(ctx, transition.From, transition.To)
	})
	eventBus.Subscribe(util.EventAccessDenied, func(ctx context.Context, event util.Event) error {
		payload := event.Payload.(model.CheckResponse)
		key := model.PermissionKey{SubjectID: payload.Subject, ResourceID: payload.Resource, Action: payload.Action}
		return notificationSvc.NotifyAccessDenied(ctx, key, model.DecisionSource(payload.Source))
	})
	eventBus.Subscribe(util.EventPermissionsInvalidated, func(ctx context.Context, event util.Event) error {
		return notificationSvc.NotifyPermissionsInvalidated(ctx, event.Payload.(string), 0)
	})

	return service
}

// Check answers one authorization question. The only error it can return
// is a validation error: the pipeline itself always produces a decision.
func (s *AuthorizationService) Check(ctx context.Context, req model.CheckRequest) (model.CheckResponse, error) {
	if err := s.validationUtil.ValidateCheckRequest(req); err != nil {
		logger.Warn("Invalid check request", zap.Error(err))
		return model.CheckResponse{}, bastion_errors.ErrInvalidCheckData
	}

	decision := s.authorizer.Check(ctx, req.Subject, req.Resource, req.Action)
	response := model.CheckResponse{
		Allowed:  decision.Allowed,
		Source:   string(decision.Source),
		Subject:  req.Subject,
		Resource: req.Resource,
		Action:   req.Action,
	}

	if !decision.Allowed {
		s.eventBus.Publish(ctx, util.EventAccessDenied, response)
	}
	return response, nil
}

// BatchCheck evaluates every check of one subject concurrently. Order of
// the responses matches the order of the request.
func (s *AuthorizationService) BatchCheck(ctx context.Context, req model.BatchCheckRequest) ([]model.CheckResponse, error) {
	if err := s.validationUtil.ValidateBatchCheckRequest(req); err != nil {
		logger.Warn("Invalid batch check request", zap.Error(err))
		return nil, bastion_errors.ErrInvalidCheckData
	}

	responses := make([]model.CheckResponse, len(req.Checks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, check := range req.Checks {
		i, check := i, check
		g.Go(func() error {
			decision := s.authorizer.Check(gctx, req.Subject, check.Resource, check.Action)
			responses[i] = model.CheckResponse{
				Allowed:  decision.Allowed,
				Source:   string(decision.Source),
				Subject:  req.Subject,
				Resource: check.Resource,
				Action:   check.Action,
			}
			return nil
		})
	}
	// Workers never return errors; Wait only orders the writes.
	_ = g.Wait()

	for _, response := range responses {
		if !response.Allowed {
			s.eventBus.Publish(ctx, util.EventAccessDenied, response)
		}
	}
	return responses, nil
}

// Invalidate drops cached decisions. With resource and action set it
// removes one key, otherwise everything the subject has cached.
func (s *AuthorizationService) Invalidate(ctx context.Context, req model.InvalidateRequest, requestedBy string) error {
	if err := s.validationUtil.ValidateInvalidateRequest(req); err != nil {
		logger.Warn("Invalid invalidate request", zap.Error(err))
		return bastion_errors.ErrInvalidCheckData
	}

	if req.Resource != "" {
		s.authorizer.Invalidate(ctx, req.Subject, req.Resource, req.Action)
	} else {
		// Subject-wide purges are serialized across replicas with a
		// best-effort lock. Purging without the lock is still correct
		// (deletes are idempotent), so lock failures never block the
		// operation.
		if db.RedisClient != nil {
			lockName := "invalidate:" + req.Subject
			if locked, err := db.LockResource(ctx, lockName, 10*time.Second); err == nil && locked {
				defer func() {
					if err := db.UnlockResource(ctx, lockName); err != nil {
						logger.Warn("Failed to release invalidation lock",
							zap.Error(err),
							zap.String("subject", req.Subject))
					}
				}()
			}
		}
		s.authorizer.InvalidateSubject(ctx, req.Subject)
	}

	s.eventBus.Publish(ctx, util.EventPermissionsInvalidated, req.Subject)
	logger.Info("Cached permissions invalidated",
		zap.String("subject", req.Subject),
		zap.String("resource", req.Resource),
		zap.String("action", req.Action),
		zap.String("requested_by", requestedBy))
	return nil
}

func (s *AuthorizationService) Stats(ctx context.Context) model.Statistics {
	return s.authorizer.Stats(ctx)
}

func (s *AuthorizationService) QueryAudit(ctx context.Context, from, to time.Time, userID, resource string) ([]audit.Entry, error) {
	return s.audit.Query(ctx, from, to, userID, resource)
}

// Healthy reports process liveness. The service stays healthy while the
// remote oracle is down: fallback rules keep answering.
func (s *AuthorizationService) Healthy(ctx context.Context) bool {
	return true
}
