package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	rateFetches     atomic.Uint64
	fetchFailures   atomic.Uint64
	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
	invalidations   atomic.Uint64
	conversions     atomic.Uint64
	unavailable     atomic.Uint64
	settingsUpdates atomic.Uint64

	// Fetch latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	wsClients atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordFetch records a successful upstream fetch with latency.
func (m *Metrics) RecordFetch(latency time.Duration) {
	m.rateFetches.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordFetchFailure records a failed upstream fetch.
func (m *Metrics) RecordFetchFailure() {
	m.fetchFailures.Add(1)
}

// RecordCacheHit records a rate served from cache.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a lookup that had to go upstream.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordInvalidation records an explicit cache clear.
func (m *Metrics) RecordInvalidation() {
	m.invalidations.Add(1)
}

// RecordConversion records a price rendered; ok=false counts it as N/A.
func (m *Metrics) RecordConversion(ok bool) {
	m.conversions.Add(1)
	if !ok {
		m.unavailable.Add(1)
	}
}

// RecordSettingsUpdate records an accepted settings change.
func (m *Metrics) RecordSettingsUpdate() {
	m.settingsUpdates.Add(1)
}

// IncrementClients increments connected websocket clients by 1.
func (m *Metrics) IncrementClients() {
	m.wsClients.Add(1)
}

// DecrementClients decrements connected websocket clients by 1.
func (m *Metrics) DecrementClients() {
	m.wsClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	RateFetches     uint64    `json:"rate_fetches"`
	FetchFailures   uint64    `json:"fetch_failures"`
	CacheHits       uint64    `json:"cache_hits"`
	CacheMisses     uint64    `json:"cache_misses"`
	Invalidations   uint64    `json:"invalidations"`
	Conversions     uint64    `json:"conversions"`
	Unavailable     uint64    `json:"unavailable"`
	SettingsUpdates uint64    `json:"settings_updates"`
	AvgFetchNs      int64     `json:"avg_fetch_ns"`
	WSClients       int32     `json:"ws_clients"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		RateFetches:     m.rateFetches.Load(),
		FetchFailures:   m.fetchFailures.Load(),
		CacheHits:       m.cacheHits.Load(),
		CacheMisses:     m.cacheMisses.Load(),
		Invalidations:   m.invalidations.Load(),
		Conversions:     m.conversions.Load(),
		Unavailable:     m.unavailable.Load(),
		SettingsUpdates: m.settingsUpdates.Load(),
		AvgFetchNs:      avgLatency,
		WSClients:       m.wsClients.Load(),
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.rateFetches.Store(0)
	m.fetchFailures.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.invalidations.Store(0)
	m.conversions.Store(0)
	m.unavailable.Store(0)
	m.settingsUpdates.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.wsClients.Store(0)
}
