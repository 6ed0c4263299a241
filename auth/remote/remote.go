// api/auth/remote/remote.go

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	bastion_errors "github.com/bastionhq/bastion/api/errors"
	logger "github.com/bastionhq/bastion/api/logging"
)

// Client is the external relationship-based permission service, treated
// as an opaque allow/deny/error oracle.
type Client interface {
	// Check asks the service one question. It performs exactly one RPC:
	// retry and backoff belong to the circuit breaker layer, and an
	// internal retry here would corrupt its failure accounting.
	Check(ctx context.Context, subject, resource, action string) (bool, error)

	// HealthCheck probes service liveness independently of any
	// particular permission.
	HealthCheck(ctx context.Context) bool
}

// Config holds the permission service connection settings.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	APIKey   string
}

type checkRequest struct {
	Subject    string `json:"subject"`
	Resource   string `json:"resource"`
	Permission string `json:"permission"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

// HTTPClient talks to the permission service over JSON/HTTP.
type HTTPClient struct {
	config     Config
	httpClient *http.Client
}

// NewHTTPClient creates a client with its own pooled transport.
func NewHTTPClient(config Config) *HTTPClient {
	return &HTTPClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

func (c *HTTPClient) Check(ctx context.Context, subject, resource, action string) (bool, error) {
	body, err := json.Marshal(checkRequest{
		Subject:    subject,
		Resource:   resource,
		Permission: action,
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode check request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+"/v1/permissions/check", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, c.normalize(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Debug("Permission service returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.String("subject", subject),
			zap.String("resource", resource))
		return false, fmt.Errorf("%w: status %d", bastion_errors.ErrRemoteUnavailable, resp.StatusCode)
	}

	var result checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("%w: %v", bastion_errors.ErrRemoteUnavailable, err)
	}

	return result.Allowed, nil
}

func (c *HTTPClient) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"/healthz", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// normalize collapses transport failures into the two error classes the
// breaker accounts for.
func (c *HTTPClient) normalize(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", bastion_errors.ErrRemoteTimeout, err)
	}
	return fmt.Errorf("%w: %v", bastion_errors.ErrRemoteUnavailable, err)
}
