// api/auth/fallback/fallback.go

package fallback

import (
	"strings"

	"go.uber.org/zap"

	logger "github.com/bastionhq/bastion/api/logging"
)

// Authorizer evaluates the static rule table used while the permission
// service is unreachable. Evaluation is pure: no I/O, no hidden state,
// identical inputs always produce identical outputs.
//
// The rules cover only safe-by-construction cases:
//
//  1. System health resources are always allowed.
//  2. Write, admin and unknown actions are always denied.
//  3. A user may read a resource they own, either "type:subject" or
//     "type:subject:id".
//  4. Any user may read "public:*" resources.
//
// Everything else is denied. Each rule matches a disjoint slice of the
// input space (they are ordered by resource class, then action
// category), so no two rules can disagree on the same input.
type Authorizer struct {
	debugLogging bool
}

// New creates an authorizer with the compiled-in rule table.
func New() *Authorizer {
	return &Authorizer{}
}

// NewWithDebugLogging logs every decision, for development and
// troubleshooting.
func NewWithDebugLogging() *Authorizer {
	return &Authorizer{debugLogging: true}
}

type actionCategory int

const (
	actionRead actionCategory = iota
	actionWrite
	actionAdmin
	actionHealth
	actionUnknown
)

// Evaluate decides (subject, resource, action) against the rule table.
// The subject is a bare id ("alice") or a typed id ("user:alice");
// resources follow the "type[:owner][:id]" convention.
func (a *Authorizer) Evaluate(subject, resource, action string) bool {
	allowed, reason := a.evaluate(subject, resource, action)

	if a.debugLogging {
		logger.Debug("Fallback authorization decision",
			zap.String("subject", subject),
			zap.String("resource", resource),
			zap.String("action", action),
			zap.Bool("allowed", allowed),
			zap.String("reason", reason))
	}

	return allowed
}

func (a *Authorizer) evaluate(subject, resource, action string) (bool, string) {
	subjectType, subjectID, ok := parseSubject(subject)
	if !ok {
		return false, "invalid subject format"
	}

	parts := strings.Split(resource, ":")
	resourceType := parts[0]
	if resourceType == "" {
		return false, "empty resource type"
	}

	// Health probes must keep working during an outage, whatever the
	// caller or action looks like.
	if resourceType == "system" && len(parts) > 1 && parts[1] == "health" {
		return true, "system health resources always allowed"
	}

	switch categorize(action) {
	case actionWrite:
		return false, "write operations denied in fallback mode"
	case actionAdmin:
		return false, "admin operations denied in fallback mode"
	case actionUnknown:
		return false, "unknown action denied"
	case actionHealth:
		return false, "health action on non-health resource denied"
	}

	// Read rules from here on.
	if subjectType != "user" {
		return false, "non-user subjects denied in fallback mode"
	}

	if resourceType == "public" {
		return true, "public resources readable by all users"
	}

	// Self-access: "type:subject" or "type:subject:id".
	if len(parts) >= 2 && parts[1] == subjectID && parts[1] != "" {
		return true, "subject reads their own resource"
	}

	return false, "no fallback rule matched"
}

func parseSubject(subject string) (subjectType, subjectID string, ok bool) {
	if subject == "" {
		return "", "", false
	}

	parts := strings.SplitN(subject, ":", 2)
	if len(parts) == 1 {
		// Bare ids are user subjects; callers upstream resolved identity.
		return "user", parts[0], true
	}
	if parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func categorize(action string) actionCategory {
	switch strings.ToLower(action) {
	case "read", "get", "list", "view", "show":
		return actionRead
	case "write", "create", "update", "delete", "modify", "edit", "post", "put", "patch":
		return actionWrite
	case "admin", "manage", "configure", "administrate":
		return actionAdmin
	case "health", "check", "ping", "status":
		return actionHealth
	default:
		return actionUnknown
	}
}
