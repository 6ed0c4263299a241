// api/util/notification_service.go

package util

import (
	"context"

	"go.uber.org/zap"

	logger "github.com/bastionhq/bastion/api/logging"
	"github.com/bastionhq/bastion/api/model"
)

// NotificationService forwards security-relevant events to operators. It
// currently logs; a message queue client would slot in here.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyAccessDenied flags a denied check, the raw material for abuse
// detection downstream.
func (n *NotificationService) NotifyAccessDenied(ctx context.Context, key model.PermissionKey, source model.DecisionSource) error {
	logger.Info("NOTIFICATION: Access denied",
		zap.String("subject", key.SubjectID),
		zap.String("resource", key.ResourceID),
		zap.String("action", key.Action),
		zap.String("source", string(source)))
	return nil
}

// NotifyBreakerStateChange alerts operators when the permission service
// circuit changes state. An opening circuit means checks are being
// answered from fallback rules.
func (n *NotificationService) NotifyBreakerStateChange(ctx context.Context, from, to string) error {
	if to == "open" {
		logger.Warn("NOTIFICATION: Permission service circuit opened",
			zap.String("from", from),
			zap.String("to", to))
		// An open circuit means live traffic is running on fallback
		// rules; that warrants paging, not just a log line.
		return n.NotifyAdmins(ctx, "permission service circuit opened, decisions running on fallback rules")
	}
	logger.Info("NOTIFICATION: Permission service circuit state changed",
		zap.String("from", from),
		zap.String("to", to))
	return nil
}

// NotifyPermissionsInvalidated records operator-driven cache purges.
func (n *NotificationService) NotifyPermissionsInvalidated(ctx context.Context, subject string, count int) error {
	logger.Info("NOTIFICATION: Cached permissions invalidated",
		zap.String("subject", subject),
		zap.Int("remaining", count))
	return nil
}

func (n *NotificationService) NotifyAdmins(ctx context.Context, message string) error {
	logger.Info("Notifying admins", zap.String("message", message))
	return nil
}
