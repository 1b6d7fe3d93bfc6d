package mvcc

import "sync"

// Watermark tracks the oldest read_ts among all currently-running
// transactions, bounding how far back undo-log chains must reach to
// remain useful. No running reader needs anything older than the
// watermark, so garbage collection may reclaim log entries beyond it.
type Watermark struct {
	mu          sync.Mutex
	reads       map[uint64]int
	watermarkTs uint64
	commitTs    uint64
}

// NewWatermark starts the watermark at commitTs, the baseline before
// any transaction has run.
func NewWatermark(commitTs uint64) *Watermark {
	return &Watermark{
		reads:       make(map[uint64]int),
		watermarkTs: commitTs,
		commitTs:    commitTs,
	}
}

// AddTxn records a new reader at readTs, which must be at least the
// watermark's current committed baseline.
func (w *Watermark) AddTxn(readTs uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reads[readTs]++
	w.recompute()
}

// RemoveTxn retires a reader at readTs (on commit or abort).
func (w *Watermark) RemoveTxn(readTs uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reads[readTs]--
	if w.reads[readTs] <= 0 {
		delete(w.reads, readTs)
	}
	w.recompute()
}

// UpdateCommitTs advances the committed baseline; called once per
// successful commit, before the committing transaction's own read_ts
// is removed from the active set.
func (w *Watermark) UpdateCommitTs(ts uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commitTs = ts
	w.recompute()
}

// Watermark returns the current watermark timestamp: the oldest
// read_ts any live transaction might still need to see.
func (w *Watermark) Watermark() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watermarkTs
}

// recompute sets the watermark to the smallest active read_ts at or
// above the current watermark, falling back to the committed baseline
// once no readers remain.
func (w *Watermark) recompute() {
	if len(w.reads) == 0 {
		w.watermarkTs = w.commitTs
		return
	}
	found := false
	var best uint64
	for r := range w.reads {
		if r < w.watermarkTs {
			continue
		}
		if !found || r < best {
			best = r
			found = true
		}
	}
	if found {
		w.watermarkTs = best
	}
}
