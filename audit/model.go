// api/audit/model.go
package audit

import "time"

// Entry is one immutable authorization decision record. The engine only
// ever writes entries; reading them back is an operator concern.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	TraceID    string    `json:"trace_id"`
	UserID     string    `json:"user_id"`
	Resource   string    `json:"resource"`
	Action     string    `json:"action"`
	Allowed    bool      `json:"allowed"`
	Source     string    `json:"source"` // "cache", "remote", "fallback"
	DurationMS int64     `json:"duration_ms"`
}
