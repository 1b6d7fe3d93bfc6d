package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestCollectorSnapshotCountsAndAverages(t *testing.T) {
	c := NewCollector()
	c.RecordSeqScan()
	c.RecordSeqScan()
	c.RecordIndexScan()
	c.RecordInsert(10*time.Millisecond, true)
	c.RecordInsert(30*time.Millisecond, false)
	c.RecordTxnStart()
	c.RecordTxnCommit()
	c.RecordGC(5, 1)

	snap := c.Snapshot()
	if snap.SeqScans != 2 || snap.IndexScans != 1 {
		t.Fatalf("unexpected scan counts: %+v", snap)
	}
	if snap.InsertsExecuted != 2 || snap.InsertsFailed != 1 {
		t.Fatalf("unexpected insert counts: %+v", snap)
	}
	if snap.AvgInsertMs <= 0 {
		t.Errorf("expected positive avg insert ms, got %f", snap.AvgInsertMs)
	}
	if snap.TxnsStarted != 1 || snap.TxnsCommitted != 1 {
		t.Errorf("unexpected txn counts: %+v", snap)
	}
	if snap.GCRuns != 1 || snap.GCLogsCollected != 5 || snap.GCTxnsDropped != 1 {
		t.Errorf("unexpected gc counts: %+v", snap)
	}
}

func TestTimingHistogramBucketsAndPercentiles(t *testing.T) {
	h := NewTimingHistogram(10)
	h.Record(500 * time.Microsecond)
	h.Record(5 * time.Millisecond)
	h.Record(50 * time.Millisecond)
	h.Record(500 * time.Millisecond)
	h.Record(2 * time.Second)

	buckets := h.Buckets()
	for _, key := range []string{"0-1ms", "1-10ms", "10-100ms", "100-1000ms", ">1000ms"} {
		if buckets[key] != 1 {
			t.Errorf("expected bucket %q to have 1 sample, got %d", key, buckets[key])
		}
	}

	pct := h.Percentiles()
	if pct["p99"] < pct["p50"] {
		t.Errorf("expected p99 >= p50, got p50=%v p99=%v", pct["p50"], pct["p99"])
	}
}

func TestPrometheusExporterWritesNamespacedMetrics(t *testing.T) {
	c := NewCollector()
	c.RecordSeqScan()
	c.RecordInsert(time.Millisecond, true)
	c.RecordTxnStart()

	var buf strings.Builder
	exp := NewPrometheusExporter(c, "relcore")
	if err := exp.WriteMetrics(&buf); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"relcore_uptime_seconds",
		"relcore_seq_scans_total 1",
		"relcore_inserts_total 1",
		"relcore_txns_started_total 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
