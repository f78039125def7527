package orchestrator

import (
	"sync"
	"time"
)

// Metrics is a point-in-time snapshot of routing counters. The average is
// a running mean over every routed request, successes and failures alike.
type Metrics struct {
	TotalRequests      int64   `json:"totalRequests"`
	SuccessfulRequests int64   `json:"successfulRequests"`
	FailedRequests     int64   `json:"failedRequests"`
	AverageLatencyMs   float64 `json:"averageLatencyMs"`
}

// SuccessRate returns successes over total, zero when nothing was recorded.
func (m Metrics) SuccessRate() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.SuccessfulRequests) / float64(m.TotalRequests)
}

type metricsRecorder struct {
	mu      sync.Mutex
	current Metrics
}

func (r *metricsRecorder) record(latency time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.TotalRequests++
	if failed {
		r.current.FailedRequests++
	} else {
		r.current.SuccessfulRequests++
	}
	ms := durationMs(latency)
	r.current.AverageLatencyMs += (ms - r.current.AverageLatencyMs) / float64(r.current.TotalRequests)
}

func (r *metricsRecorder) snapshot() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
