// api/auth/remote/static.go

package remote

import (
	"context"
	"fmt"
)

// StaticClient answers checks from a fixed table. It stands in for the
// real permission service in tests and local development.
type StaticClient struct {
	grants  map[string]bool
	healthy bool
}

// NewStaticClient creates a healthy client with no grants.
func NewStaticClient() *StaticClient {
	return &StaticClient{
		grants:  make(map[string]bool),
		healthy: true,
	}
}

// Allow grants subject the action on resource.
func (c *StaticClient) Allow(subject, resource, action string) *StaticClient {
	c.grants[grantKey(subject, resource, action)] = true
	return c
}

func (c *StaticClient) Check(ctx context.Context, subject, resource, action string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.grants[grantKey(subject, resource, action)], nil
}

func (c *StaticClient) HealthCheck(ctx context.Context) bool {
	return c.healthy
}

func grantKey(subject, resource, action string) string {
	return fmt.Sprintf("%s|%s|%s", subject, resource, action)
}
