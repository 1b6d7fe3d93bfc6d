package metrics

import (
	"fmt"
	"io"
)

// PrometheusExporter renders a Collector's state in Prometheus text
// exposition format (https://prometheus.io/docs/instrumenting/exposition_formats/).
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter builds an exporter over collector, prefixing
// every metric name with namespace.
func NewPrometheusExporter(collector *Collector, namespace string) *PrometheusExporter {
	return &PrometheusExporter{collector: collector, namespace: namespace}
}

// WriteMetrics writes every counter, gauge, and histogram to w.
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	snap := pe.collector.Snapshot()

	if err := pe.writeGauge(w, "uptime_seconds", "Engine uptime in seconds", snap.UptimeSeconds); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "seq_scans_total", "Total number of sequential scans", snap.SeqScans); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "index_scans_total", "Total number of index scans", snap.IndexScans); err != nil {
		return err
	}

	if err := pe.writeDMLMetrics(w, "inserts", snap.InsertsExecuted, snap.InsertsFailed, pe.collector.insertTimings); err != nil {
		return err
	}
	if err := pe.writeDMLMetrics(w, "updates", snap.UpdatesExecuted, snap.UpdatesFailed, pe.collector.updateTimings); err != nil {
		return err
	}
	if err := pe.writeDMLMetrics(w, "deletes", snap.DeletesExecuted, snap.DeletesFailed, pe.collector.deleteTimings); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "txns_started_total", "Total number of transactions started", snap.TxnsStarted); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "txns_committed_total", "Total number of transactions committed", snap.TxnsCommitted); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "txns_aborted_total", "Total number of transactions aborted", snap.TxnsAborted); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "gc_runs_total", "Total number of garbage collection passes", snap.GCRuns); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "gc_logs_collected_total", "Total undo logs counted collectable", snap.GCLogsCollected); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "gc_txns_dropped_total", "Total terminated transactions dropped from the transaction map", snap.GCTxnsDropped); err != nil {
		return err
	}

	return nil
}

func (pe *PrometheusExporter) writeDMLMetrics(w io.Writer, name string, executed, failed uint64, th *TimingHistogram) error {
	if err := pe.writeCounter(w, name+"_total", "Total number of "+name+" executed", executed); err != nil {
		return err
	}
	if err := pe.writeCounter(w, name+"_failed_total", "Total number of failed "+name, failed); err != nil {
		return err
	}
	return pe.writeHistogram(w, name+"_duration_seconds", name+" duration histogram", th)
}

func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", metricName, help, metricName, metricName, value)
	return err
}

func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", metricName, help, metricName, metricName, value)
	return err
}

func (pe *PrometheusExporter) writeHistogram(w io.Writer, name, help string, th *TimingHistogram) error {
	metricName := pe.namespace + "_" + name
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", metricName, help, metricName); err != nil {
		return err
	}

	buckets := th.Buckets()
	var cumulative uint64
	for _, b := range []struct {
		key string
		le  string
	}{
		{"0-1ms", "0.001"},
		{"1-10ms", "0.01"},
		{"10-100ms", "0.1"},
		{"100-1000ms", "1.0"},
		{">1000ms", "+Inf"},
	} {
		cumulative += buckets[b.key]
		if _, err := fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", metricName, b.le, cumulative); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s_count %d\n", metricName, cumulative); err != nil {
		return err
	}

	pct := th.Percentiles()
	for _, p := range []string{"p50", "p95", "p99"} {
		if err := pe.writeGauge(w, name+"_"+p, fmt.Sprintf("%s percentile of %s", p, name), pct[p].Seconds()); err != nil {
			return err
		}
	}
	return nil
}
