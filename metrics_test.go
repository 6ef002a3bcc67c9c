package goSession

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledRecordsNothing(t *testing.T) {
	for _, m := range []*Metrics{nil, NewMetrics(MetricsConfig{EnableLatencyHistograms: true})} {
		m.Inc(MetricLoginSuccess)
		m.Observe(MetricLoginLatency, time.Millisecond)

		if got := m.Value(MetricLoginSuccess); got != 0 {
			t.Fatalf("expected 0, got %d", got)
		}
		if snap := m.Snapshot(); len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
			t.Fatalf("expected empty snapshot, got %+v", snap)
		}
	}
}

func TestMetricsKindsDoNotMix(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricLoginLatency)
	m.Inc(metricIDCount + 3)
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Counters[MetricLoginLatency]; ok {
		t.Fatal("histogram IDs must not appear as counters")
	}
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("counter IDs must not grow histograms")
	}
	if got := m.Value(MetricLoginLatency); got != 0 {
		t.Fatalf("Inc on a histogram ID counted %d", got)
	}
	if len(snap.Counters) != int(metricIDCount)-len(latencyIDs) {
		t.Fatalf("snapshot has %d counters", len(snap.Counters))
	}
}

func TestMetricsHistogramsNeedOptIn(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricRehydrateLatency, time.Millisecond)
	m.Inc(MetricRehydrateEmpty)

	snap := m.Snapshot()
	if len(snap.Histograms) != 0 {
		t.Fatalf("histograms recorded without opt-in: %v", snap.Histograms)
	}
	if snap.Counters[MetricRehydrateEmpty] != 1 {
		t.Fatalf("counter = %d, want 1", snap.Counters[MetricRehydrateEmpty])
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{10 * time.Millisecond, 0},
		{10*time.Millisecond + 1, 1},
		{100 * time.Millisecond, 2},
		{time.Second, 5},
		{2500 * time.Millisecond, 6},
		{2500*time.Millisecond + 1, 7},
		{time.Hour, 7},
	}
	for _, tt := range tests {
		if got := bucketIndex(tt.d); got != tt.want {
			t.Errorf("bucketIndex(%s) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestMetricsHistogramSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for _, d := range []time.Duration{5 * time.Millisecond, 700 * time.Millisecond, 700 * time.Millisecond, 9 * time.Second} {
		m.Observe(MetricLoginLatency, d)
	}

	snap := m.Snapshot()
	want := []uint64{1, 0, 0, 0, 0, 2, 0, 1}
	got := snap.Histograms[MetricLoginLatency]
	if len(got) != len(want) {
		t.Fatalf("got %d buckets, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("login buckets = %v, want %v", got, want)
		}
	}
	for _, v := range snap.Histograms[MetricRehydrateLatency] {
		if v != 0 {
			t.Fatal("rehydrate histogram must be untouched")
		}
	}

	// snapshots are copies
	got[0] = 99
	if m.Snapshot().Histograms[MetricLoginLatency][0] != 1 {
		t.Fatal("snapshot aliases live buckets")
	}
}

func TestMetricsConcurrentUpdates(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	const workers, perWorker = 16, 2000
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				m.Inc(MetricLogout)
				m.Observe(MetricRehydrateLatency, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLogout); got != workers*perWorker {
		t.Fatalf("logout = %d, want %d", got, workers*perWorker)
	}
	if got := m.Snapshot().Histograms[MetricRehydrateLatency][0]; got != workers*perWorker {
		t.Fatalf("rehydrate bucket = %d, want %d", got, workers*perWorker)
	}
}
