package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// TimingHistogram buckets operation durations for Prometheus-style
// histogram export, and keeps a bounded window of recent samples for
// percentile estimates.
type TimingHistogram struct {
	bucket0_1ms      uint64
	bucket1_10ms     uint64
	bucket10_100ms   uint64
	bucket100_1000ms uint64
	bucket1000ms     uint64

	mu            sync.Mutex
	recent        []time.Duration
	maxRecent     int
}

// NewTimingHistogram builds an empty histogram keeping up to maxRecent
// samples for percentile estimation.
func NewTimingHistogram(maxRecent int) *TimingHistogram {
	return &TimingHistogram{recent: make([]time.Duration, 0, maxRecent), maxRecent: maxRecent}
}

// Record files d into its latency bucket and the recent-sample window.
func (h *TimingHistogram) Record(d time.Duration) {
	switch ms := d.Milliseconds(); {
	case ms < 1:
		atomic.AddUint64(&h.bucket0_1ms, 1)
	case ms < 10:
		atomic.AddUint64(&h.bucket1_10ms, 1)
	case ms < 100:
		atomic.AddUint64(&h.bucket10_100ms, 1)
	case ms < 1000:
		atomic.AddUint64(&h.bucket100_1000ms, 1)
	default:
		atomic.AddUint64(&h.bucket1000ms, 1)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.recent) >= h.maxRecent {
		h.recent = h.recent[1:]
	}
	h.recent = append(h.recent, d)
}

// Buckets returns the cumulative-free bucket counts, keyed by the
// range label of each bucket ("0-1ms" through ">1000ms").
func (h *TimingHistogram) Buckets() map[string]uint64 {
	return map[string]uint64{
		"0-1ms":      atomic.LoadUint64(&h.bucket0_1ms),
		"1-10ms":     atomic.LoadUint64(&h.bucket1_10ms),
		"10-100ms":   atomic.LoadUint64(&h.bucket10_100ms),
		"100-1000ms": atomic.LoadUint64(&h.bucket100_1000ms),
		">1000ms":    atomic.LoadUint64(&h.bucket1000ms),
	}
}

// Percentiles returns p50/p95/p99 over the recent-sample window.
func (h *TimingHistogram) Percentiles() map[string]time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.recent) == 0 {
		return map[string]time.Duration{"p50": 0, "p95": 0, "p99": 0}
	}
	sorted := make([]time.Duration, len(h.recent))
	copy(sorted, h.recent)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := func(pct int) time.Duration {
		i := len(sorted) * pct / 100
		if i >= len(sorted) {
			i = len(sorted) - 1
		}
		return sorted[i]
	}
	return map[string]time.Duration{"p50": idx(50), "p95": idx(95), "p99": idx(99)}
}
