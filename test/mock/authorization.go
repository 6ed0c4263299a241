// test/mock/authorization.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bastionhq/bastion/api/audit"
	"github.com/bastionhq/bastion/api/model"
)

// MockAuthorizationService is a mock implementation of service.IAuthorizationService
type MockAuthorizationService struct {
	mock.Mock
}

func (m *MockAuthorizationService) Check(ctx context.Context, req model.CheckRequest) (model.CheckResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.CheckResponse), args.Error(1)
}

func (m *MockAuthorizationService) BatchCheck(ctx context.Context, req model.BatchCheckRequest) ([]model.CheckResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CheckResponse), args.Error(1)
}

func (m *MockAuthorizationService) Invalidate(ctx context.Context, req model.InvalidateRequest, requestedBy string) error {
	args := m.Called(ctx, req, requestedBy)
	return args.Error(0)
}

func (m *MockAuthorizationService) Stats(ctx context.Context) model.Statistics {
	args := m.Called(ctx)
	return args.Get(0).(model.Statistics)
}

func (m *MockAuthorizationService) QueryAudit(ctx context.Context, from, to time.Time, userID, resource string) ([]audit.Entry, error) {
	args := m.Called(ctx, from, to, userID, resource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *MockAuthorizationService) Healthy(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
