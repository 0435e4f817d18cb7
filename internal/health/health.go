package health

import (
	"context"
	"time"
)

// CheckFunc probes one dependency. It must respect ctx cancellation.
type CheckFunc func(ctx context.Context) error

// CheckResult is one dependency's readiness verdict, serialized into the
// readiness endpoint body.
type CheckResult struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type check struct {
	name string
	fn   CheckFunc
}

// ProbeRunner runs named dependency checks for the readiness endpoint.
// Liveness deliberately bypasses it: a process that can answer HTTP is live
// even when its dependencies are down.
type ProbeRunner struct {
	checks  []check
	timeout time.Duration
}

func NewProbeRunner(timeout time.Duration) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout}
}

func (p *ProbeRunner) Register(name string, fn CheckFunc) {
	p.checks = append(p.checks, check{name: name, fn: fn})
}

// Ready runs every registered check and reports overall readiness plus the
// per-check results. A single failing dependency makes the process unready.
func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	results := make([]CheckResult, 0, len(p.checks))
	allHealthy := true
	for _, c := range p.checks {
		cctx, cancel := context.WithTimeout(ctx, p.timeout)
		start := time.Now()
		err := c.fn(cctx)
		cancel()
		result := CheckResult{
			Name:      c.name,
			Healthy:   err == nil,
			LatencyMS: time.Since(start).Milliseconds(),
		}
		if err != nil {
			result.Error = err.Error()
			allHealthy = false
		}
		results = append(results, result)
	}
	return allHealthy, results
}
