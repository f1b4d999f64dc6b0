package tracker

import (
	"maps"
	"sync"
	"sync/atomic"
)

// Tracker counts API calls per key. The transport tracks by host, the
// gateway by action name (wbeditentity, wbsetclaim, ...).
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*Stats
}

// Stats holds counters for one key. Counter fields are accessed atomically.
type Stats struct {
	Success      int64
	Failures     int64
	RemoteErrors int64

	mu         sync.Mutex
	errorCodes map[string]int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Success      int64
	Failures     int64
	RemoteErrors int64
	ErrorCodes   map[string]int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*Stats),
	}
}

// getStats returns the stats object for key, creating it if needed.
func (t *Tracker) getStats(key string) *Stats {
	t.mu.RLock()
	s, ok := t.stats[key]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok = t.stats[key]; ok {
		return s
	}
	s = &Stats{errorCodes: make(map[string]int64)}
	t.stats[key] = s
	return s
}

// TrackSuccess counts a completed call.
func (t *Tracker) TrackSuccess(key string) {
	atomic.AddInt64(&t.getStats(key).Success, 1)
}

// TrackFailure counts a call that failed in transport.
func (t *Tracker) TrackFailure(key string) {
	atomic.AddInt64(&t.getStats(key).Failures, 1)
}

// TrackRemoteError counts a call answered with an error payload.
func (t *Tracker) TrackRemoteError(key, code string) {
	s := t.getStats(key)
	atomic.AddInt64(&s.RemoteErrors, 1)
	s.mu.Lock()
	s.errorCodes[code]++
	s.mu.Unlock()
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]StatsSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]StatsSnapshot, len(t.stats))
	for k, v := range t.stats {
		v.mu.Lock()
		codes := maps.Clone(v.errorCodes)
		v.mu.Unlock()
		result[k] = StatsSnapshot{
			Success:      atomic.LoadInt64(&v.Success),
			Failures:     atomic.LoadInt64(&v.Failures),
			RemoteErrors: atomic.LoadInt64(&v.RemoteErrors),
			ErrorCodes:   codes,
		}
	}
	return result
}
