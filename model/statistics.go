// api/model/statistics.go
package model

// CacheStats are monotonic counters maintained by the decision cache,
// reset only at process restart.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Size    int    `json:"size"`
	Expired uint64 `json:"expired"`
	Evicted uint64 `json:"evicted"`
}

// BreakerStats expose the circuit breaker state for metrics scraping.
type BreakerStats struct {
	State        string `json:"state"`
	FailureCount int    `json:"failure_count"`
	SuccessCount int    `json:"success_count"`
	TotalCalls   uint64 `json:"total_calls"`
	Failures     uint64 `json:"failures"`
	Rejected     uint64 `json:"rejected"`
}

// Statistics is the combined export consumed by the stats endpoint.
type Statistics struct {
	CacheHits       uint64 `json:"cache_hits"`
	CacheMisses     uint64 `json:"cache_misses"`
	CacheSize       int    `json:"cache_size"`
	BreakerState    string `json:"breaker_state"`
	BreakerFailures uint64 `json:"breaker_failures"`
}
