// Package metrics collects in-process counters and timing histograms
// for the storage engine's operations, and exports them as Prometheus
// text exposition format. There is no external metrics client: the
// collector and exporter are hand-rolled, following the teacher's own
// pkg/metrics package, which never reached for one either.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector accumulates counters for scans, DML operations,
// transaction outcomes, and garbage collection, plus latency
// histograms per DML kind. All counter fields are updated with
// atomics so callers never need to hold a lock on the hot path.
type Collector struct {
	seqScans   uint64
	indexScans uint64

	insertsExecuted uint64
	insertsFailed   uint64
	totalInsertTime uint64

	updatesExecuted uint64
	updatesFailed   uint64
	totalUpdateTime uint64

	deletesExecuted uint64
	deletesFailed   uint64
	totalDeleteTime uint64

	txnsStarted   uint64
	txnsCommitted uint64
	txnsAborted   uint64

	gcRuns          uint64
	gcLogsCollected uint64
	gcTxnsDropped   uint64

	insertTimings *TimingHistogram
	updateTimings *TimingHistogram
	deleteTimings *TimingHistogram
	startTime     time.Time
}

// NewCollector builds an empty collector with its start time set to
// now, for uptime reporting.
func NewCollector() *Collector {
	return &Collector{
		insertTimings: NewTimingHistogram(1000),
		updateTimings: NewTimingHistogram(1000),
		deleteTimings: NewTimingHistogram(1000),
		startTime:     time.Now(),
	}
}

func (c *Collector) RecordSeqScan()   { atomic.AddUint64(&c.seqScans, 1) }
func (c *Collector) RecordIndexScan() { atomic.AddUint64(&c.indexScans, 1) }

func (c *Collector) RecordInsert(d time.Duration, success bool) {
	atomic.AddUint64(&c.insertsExecuted, 1)
	if !success {
		atomic.AddUint64(&c.insertsFailed, 1)
	}
	atomic.AddUint64(&c.totalInsertTime, uint64(d.Nanoseconds()))
	c.insertTimings.Record(d)
}

func (c *Collector) RecordUpdate(d time.Duration, success bool) {
	atomic.AddUint64(&c.updatesExecuted, 1)
	if !success {
		atomic.AddUint64(&c.updatesFailed, 1)
	}
	atomic.AddUint64(&c.totalUpdateTime, uint64(d.Nanoseconds()))
	c.updateTimings.Record(d)
}

func (c *Collector) RecordDelete(d time.Duration, success bool) {
	atomic.AddUint64(&c.deletesExecuted, 1)
	if !success {
		atomic.AddUint64(&c.deletesFailed, 1)
	}
	atomic.AddUint64(&c.totalDeleteTime, uint64(d.Nanoseconds()))
	c.deleteTimings.Record(d)
}

func (c *Collector) RecordTxnStart()    { atomic.AddUint64(&c.txnsStarted, 1) }
func (c *Collector) RecordTxnCommit()   { atomic.AddUint64(&c.txnsCommitted, 1) }
func (c *Collector) RecordTxnAbort()    { atomic.AddUint64(&c.txnsAborted, 1) }

// RecordGC records the outcome of one GarbageCollection pass: how many
// undo logs were counted collectable and how many terminated
// transactions were dropped from the manager's table as a result.
func (c *Collector) RecordGC(logsCollected, txnsDropped int) {
	atomic.AddUint64(&c.gcRuns, 1)
	atomic.AddUint64(&c.gcLogsCollected, uint64(logsCollected))
	atomic.AddUint64(&c.gcTxnsDropped, uint64(txnsDropped))
}

// Snapshot is a point-in-time copy of every counter and derived rate,
// suitable for JSON serialization by the admin HTTP surface.
type Snapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`

	SeqScans   uint64 `json:"seq_scans"`
	IndexScans uint64 `json:"index_scans"`

	InsertsExecuted uint64  `json:"inserts_executed"`
	InsertsFailed   uint64  `json:"inserts_failed"`
	AvgInsertMs     float64 `json:"avg_insert_ms"`

	UpdatesExecuted uint64  `json:"updates_executed"`
	UpdatesFailed   uint64  `json:"updates_failed"`
	AvgUpdateMs     float64 `json:"avg_update_ms"`

	DeletesExecuted uint64  `json:"deletes_executed"`
	DeletesFailed   uint64  `json:"deletes_failed"`
	AvgDeleteMs     float64 `json:"avg_delete_ms"`

	TxnsStarted   uint64 `json:"txns_started"`
	TxnsCommitted uint64 `json:"txns_committed"`
	TxnsAborted   uint64 `json:"txns_aborted"`

	GCRuns          uint64 `json:"gc_runs"`
	GCLogsCollected uint64 `json:"gc_logs_collected"`
	GCTxnsDropped   uint64 `json:"gc_txns_dropped"`
}

// Snapshot returns a consistent-enough read of every counter. Readers
// racing a concurrent writer may see a torn combination of the atomic
// fields; that's acceptable for a metrics endpoint.
func (c *Collector) Snapshot() Snapshot {
	insertsExecuted := atomic.LoadUint64(&c.insertsExecuted)
	updatesExecuted := atomic.LoadUint64(&c.updatesExecuted)
	deletesExecuted := atomic.LoadUint64(&c.deletesExecuted)
	totalInsertTime := atomic.LoadUint64(&c.totalInsertTime)
	totalUpdateTime := atomic.LoadUint64(&c.totalUpdateTime)
	totalDeleteTime := atomic.LoadUint64(&c.totalDeleteTime)

	return Snapshot{
		UptimeSeconds:   time.Since(c.startTime).Seconds(),
		SeqScans:        atomic.LoadUint64(&c.seqScans),
		IndexScans:      atomic.LoadUint64(&c.indexScans),
		InsertsExecuted: insertsExecuted,
		InsertsFailed:   atomic.LoadUint64(&c.insertsFailed),
		AvgInsertMs:     avgMs(totalInsertTime, insertsExecuted),
		UpdatesExecuted: updatesExecuted,
		UpdatesFailed:   atomic.LoadUint64(&c.updatesFailed),
		AvgUpdateMs:     avgMs(totalUpdateTime, updatesExecuted),
		DeletesExecuted: deletesExecuted,
		DeletesFailed:   atomic.LoadUint64(&c.deletesFailed),
		AvgDeleteMs:     avgMs(totalDeleteTime, deletesExecuted),
		TxnsStarted:     atomic.LoadUint64(&c.txnsStarted),
		TxnsCommitted:   atomic.LoadUint64(&c.txnsCommitted),
		TxnsAborted:     atomic.LoadUint64(&c.txnsAborted),
		GCRuns:          atomic.LoadUint64(&c.gcRuns),
		GCLogsCollected: atomic.LoadUint64(&c.gcLogsCollected),
		GCTxnsDropped:   atomic.LoadUint64(&c.gcTxnsDropped),
	}
}

func avgMs(totalNanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / 1e6
}
