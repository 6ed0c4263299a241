// api/model/permission.go
package model

import "fmt"

// PermissionKey identifies a single authorization question. Two keys are
// equal only when subject, resource and action all match exactly.
type PermissionKey struct {
	SubjectID  string `json:"subject_id"`
	ResourceID string `json:"resource_id"`
	Action     string `json:"action"`
}

// String renders the cache key format "subject:resource:action".
func (k PermissionKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.SubjectID, k.ResourceID, k.Action)
}

// SubjectPrefix is the key prefix shared by every permission of a subject.
func SubjectPrefix(subjectID string) string {
	return subjectID + ":"
}

// DecisionSource indicates which layer produced an authorization decision.
type DecisionSource string

const (
	SourceCache    DecisionSource = "cache"
	SourceRemote   DecisionSource = "remote"
	SourceFallback DecisionSource = "fallback"
)

// Decision is the outcome of an authorization check. Failures never
// surface here: a check that cannot be answered confidently comes back
// as a fallback denial.
type Decision struct {
	Allowed bool           `json:"allowed"`
	Source  DecisionSource `json:"source"`
}
