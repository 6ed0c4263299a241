// api/model/check.go
package model

// CheckRequest is the body of a single authorization check call.
type CheckRequest struct {
	Subject  string `json:"subject"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// CheckResponse is returned for every check, allowed or denied.
type CheckResponse struct {
	Allowed  bool   `json:"allowed"`
	Source   string `json:"source"`
	Subject  string `json:"subject"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// BatchCheckRequest carries multiple checks for one subject.
type BatchCheckRequest struct {
	Subject string         `json:"subject"`
	Checks  []CheckRequest `json:"checks"`
}

// InvalidateRequest removes cached decisions, either one exact key or
// everything belonging to a subject.
type InvalidateRequest struct {
	Subject  string `json:"subject"`
	Resource string `json:"resource,omitempty"`
	Action   string `json:"action,omitempty"`
}
