package request

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// HostBackoff delays requests to hosts that recently failed. Every failure
// doubles the delay up to maxDelay; every success takes one step back.
type HostBackoff struct {
	mu        sync.RWMutex
	hosts     map[string]*backoffState
	baseDelay time.Duration
	maxDelay  time.Duration
}

type backoffState struct {
	failures    int
	nextAllowed time.Time
}

// NewHostBackoff creates a new backoff manager.
func NewHostBackoff(baseDelay, maxDelay time.Duration) *HostBackoff {
	return &HostBackoff{
		hosts:     make(map[string]*backoffState),
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// Wait blocks until host may be contacted again or ctx is done.
func (b *HostBackoff) Wait(ctx context.Context, host string) error {
	_, next := b.State(host)
	d := time.Until(next)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Failure records a failed request and returns the delay now in force.
func (b *HostBackoff) Failure(host string) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.hosts[host]
	if !ok {
		state = &backoffState{}
		b.hosts[host] = state
	}
	state.failures++
	delay := b.delay(state.failures)
	state.nextAllowed = time.Now().Add(delay)
	return delay
}

// Success records a completed request.
func (b *HostBackoff) Success(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.hosts[host]
	if !ok {
		return
	}
	if state.failures > 0 {
		state.failures--
	}
	if state.failures == 0 {
		delete(b.hosts, host)
	}
}

// delay is baseDelay * 2^(failures-1), capped, plus up to 10% jitter.
func (b *HostBackoff) delay(failures int) time.Duration {
	d := time.Duration(float64(b.baseDelay) * math.Pow(2, float64(failures-1)))
	if d > b.maxDelay || d <= 0 {
		d = b.maxDelay
	}
	return d + time.Duration(rand.Float64()*0.1*float64(d))
}

// State returns the failure count and the earliest next request time for host.
func (b *HostBackoff) State(host string) (failures int, nextAllowed time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if state, ok := b.hosts[host]; ok {
		return state.failures, state.nextAllowed
	}
	return 0, time.Time{}
}
