package fallback_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/bastionhq/bastion/api/auth/fallback"
	"github.com/bastionhq/bastion/api/logging"
)

func TestMain(m *testing.M) {
	logging.Log = zap.NewNop()
	os.Exit(m.Run())
}

func TestEvaluate_SelfAccess(t *testing.T) {
	f := fallback.New()

	assert.True(t, f.Evaluate("alice", "user:alice", "read"))
	assert.True(t, f.Evaluate("alice", "notes:alice:123", "read"))
	assert.True(t, f.Evaluate("user:alice", "notes:alice:123", "read"))

	// Cross-user access is denied.
	assert.False(t, f.Evaluate("alice", "notes:bob:456", "read"))
	assert.False(t, f.Evaluate("alice", "user:bob", "read"))
}

func TestEvaluate_PublicResources(t *testing.T) {
	f := fallback.New()

	assert.True(t, f.Evaluate("alice", "public:announcements", "read"))
	assert.True(t, f.Evaluate("bob", "public:docs:getting-started", "list"))

	// Non-user subjects get nothing, even public reads.
	assert.False(t, f.Evaluate("service:indexer", "public:announcements", "read"))
}

func TestEvaluate_SystemHealthAlwaysAllowed(t *testing.T) {
	f := fallback.New()

	assert.True(t, f.Evaluate("alice", "system:health", "read"))
	assert.True(t, f.Evaluate("service:monitor", "system:health:live", "check"))
	assert.True(t, f.Evaluate("alice", "system:health", "write"))
}

func TestEvaluate_WritesAndAdminDenied(t *testing.T) {
	f := fallback.New()

	// Even self-owned resources cannot be written during an outage.
	assert.False(t, f.Evaluate("alice", "notes:alice:123", "write"))
	assert.False(t, f.Evaluate("alice", "notes:alice:123", "delete"))
	assert.False(t, f.Evaluate("alice", "notes:alice:123", "update"))
	assert.False(t, f.Evaluate("alice", "user:alice", "admin"))
	assert.False(t, f.Evaluate("alice", "public:announcements", "create"))
}

func TestEvaluate_DefaultDeny(t *testing.T) {
	f := fallback.New()

	assert.False(t, f.Evaluate("alice", "billing:acme:invoice-9", "read"))
	assert.False(t, f.Evaluate("alice", "notes:alice:123", "replicate"))
	assert.False(t, f.Evaluate("alice", "notes", "read"))
	assert.False(t, f.Evaluate("", "notes:alice:123", "read"))
	assert.False(t, f.Evaluate("alice", ":", "read"))
}

func TestEvaluate_Pure(t *testing.T) {
	f := fallback.New()

	inputs := []struct {
		subject, resource, action string
	}{
		{"alice", "user:alice", "read"},
		{"alice", "notes:bob:1", "read"},
		{"bob", "public:docs", "read"},
		{"carol", "system:health", "status"},
		{"dave", "notes:dave:9", "write"},
	}

	first := make([]bool, len(inputs))
	for i, in := range inputs {
		first[i] = f.Evaluate(in.subject, in.resource, in.action)
	}

	// Re-run the same inputs many times, interleaved; results must never
	// change because evaluation has no hidden state.
	for round := 0; round < 50; round++ {
		for i, in := range inputs {
			got := f.Evaluate(in.subject, in.resource, in.action)
			assert.Equal(t, first[i], got,
				fmt.Sprintf("round %d: %s %s %s", round, in.subject, in.resource, in.action))
		}
	}
}
