// api/audit/service.go
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	logger "github.com/bastionhq/bastion/api/logging"
)

type Service interface {
	// Record writes one decision to the audit sink. It never fails and
	// never blocks the decision path: the write happens on a detached
	// goroutine and sink failures are swallowed at debug level.
	Record(entry Entry)

	// Query reads back decision records for operators.
	Query(ctx context.Context, from, to time.Time, userID, resource string) ([]Entry, error)
}

type service struct {
	repo         Repository
	writeTimeout time.Duration
}

func NewService(repo Repository) Service {
	return &service{
		repo:         repo,
		writeTimeout: 5 * time.Second,
	}
}

func (s *service) Record(entry Entry) {
	// Detached from the caller's context on purpose: the audit write
	// must outlive a cancelled request, and its failure must never
	// surface into the decision path.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		defer cancel()

		if err := s.repo.LogDecision(ctx, entry); err != nil {
			logger.Debug("Audit write failed",
				zap.Error(err),
				zap.String("trace_id", entry.TraceID),
				zap.String("user_id", entry.UserID))
		}
	}()
}

func (s *service) Query(ctx context.Context, from, to time.Time, userID, resource string) ([]Entry, error) {
	return s.repo.QueryDecisions(ctx, from, to, userID, resource)
}
