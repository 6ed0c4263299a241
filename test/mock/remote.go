// test/mock/remote.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRemoteClient is a mock implementation of remote.Client
type MockRemoteClient struct {
	mock.Mock
}

func (m *MockRemoteClient) Check(ctx context.Context, subject, resource, action string) (bool, error) {
	args := m.Called(ctx, subject, resource, action)
	return args.Bool(0), args.Error(1)
}

func (m *MockRemoteClient) HealthCheck(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
