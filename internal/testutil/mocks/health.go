package mocks

import (
	"context"
	"sync"
	"time"
)

// HealthChecker is a test double for the agent health client.
type HealthChecker struct {
	mu       sync.Mutex
	healthy  bool
	pollErr  error
	checks   int
	polls    int
	attempts int
	paths    []string
}

// NewHealthChecker creates an unhealthy checker whose polls succeed.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// SetHealthy sets the result of CheckHealth.
func (h *HealthChecker) SetHealthy(healthy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healthy = healthy
}

// FailPoll makes PollUntilReady return err.
func (h *HealthChecker) FailPoll(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pollErr = err
}

// CheckHealth reports the configured health.
func (h *HealthChecker) CheckHealth(_ context.Context, path string, _ time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks++
	h.paths = append(h.paths, path)
	return h.healthy
}

// PollUntilReady returns the configured error, or marks the checker healthy.
func (h *HealthChecker) PollUntilReady(ctx context.Context, path string, maxAttempts int, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.polls++
	h.attempts = maxAttempts
	h.paths = append(h.paths, path)
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.pollErr != nil {
		return h.pollErr
	}
	h.healthy = true
	return nil
}

// Checks returns how many times CheckHealth was called.
func (h *HealthChecker) Checks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.checks
}

// Polls returns how many times PollUntilReady was called.
func (h *HealthChecker) Polls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.polls
}

// LastAttempts returns maxAttempts from the last poll.
func (h *HealthChecker) LastAttempts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}

// Paths returns every probed path in call order.
func (h *HealthChecker) Paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}
