package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or latency histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that reached Authenticated.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected by the gateway or unreachable gateways.
	MetricLoginFailure
	// MetricLoginInvalidInput counts logins rejected by client-side validation.
	MetricLoginInvalidInput
	// MetricLoginInProgress counts login submissions rejected because one was in flight.
	MetricLoginInProgress
	// MetricLoginStale counts gateway results dropped because a newer attempt or a logout won.
	MetricLoginStale
	// MetricLogout counts logouts that changed state.
	MetricLogout
	// MetricLogoutRevokeFailure counts gateway logout calls that failed.
	MetricLogoutRevokeFailure
	// MetricProfileUpdate counts accepted profile updates.
	MetricProfileUpdate
	// MetricPersistWriteFailure counts session slice saves that failed.
	MetricPersistWriteFailure
	// MetricPersistDeleteFailure counts session slice removals that failed.
	MetricPersistDeleteFailure
	// MetricPersistPurgeFailure counts failed removals of a corrupt slice during startup.
	MetricPersistPurgeFailure
	// MetricRehydrateRestored counts starts that restored an authenticated session.
	MetricRehydrateRestored
	// MetricRehydrateEmpty counts starts with no persisted session.
	MetricRehydrateEmpty
	// MetricRehydrateCorrupt counts starts that found an undecodable slice.
	MetricRehydrateCorrupt
	// MetricRehydrateDefaulted counts starts that fell back to an empty session.
	MetricRehydrateDefaulted
	// MetricRehydrateTimeout counts starts whose restore exceeded the timeout.
	MetricRehydrateTimeout
	// MetricInvalidTransition counts actions rejected by the session reducer as defects.
	MetricInvalidTransition
	// MetricLoginThrottled counts logins refused because the attempt budget was spent.
	MetricLoginThrottled
	// MetricLoginLatency is the gateway round-trip histogram.
	MetricLoginLatency
	// MetricRehydrateLatency is the startup restore histogram.
	MetricRehydrateLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the first seven histogram buckets; the
// eighth bucket is +Inf.
var latencyBounds = [...]time.Duration{
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
}

const histBucketCount = len(latencyBounds) + 1

// latencyIDs lists the histogram metrics; every other ID is a counter.
var latencyIDs = [...]MetricID{MetricLoginLatency, MetricRehydrateLatency}

type paddedCounter struct {
	atomic.Uint64
	_ [56]byte // keep hot counters on separate cache lines
}

type latencyHistogram [histBucketCount]atomic.Uint64

// Metrics holds lock-free counters and latency histograms. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       [len(latencyIDs)]latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns metrics configured by cfg. Disabled metrics ignore every update.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id. Histogram IDs and unknown IDs are ignored.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || latencySlot(id) >= 0 {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d in histogram id. Only latency metrics accept observations.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	slot := latencySlot(id)
	if !m.LatencyEnabled() || slot < 0 {
		return
	}
	m.latency[slot][bucketIndex(d)].Add(1)
}

// Value returns counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter and, when enabled, every latency histogram. Each value is
// read atomically; the snapshot as a whole is not.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if latencySlot(id) < 0 {
			s.Counters[id] = m.counters[id].Load()
		}
	}
	if m.enableLatency {
		for slot, id := range latencyIDs {
			buckets := make([]uint64, histBucketCount)
			for i := range buckets {
				buckets[i] = m.latency[slot][i].Load()
			}
			s.Histograms[id] = buckets
		}
	}
	return s
}

func latencySlot(id MetricID) int {
	for i, l := range latencyIDs {
		if l == id {
			return i
		}
	}
	return -1
}

// bucketIndex returns the first bucket whose bound is >= d, or the +Inf bucket.
func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
