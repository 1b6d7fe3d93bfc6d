package mvcc

import (
	"sync"

	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/heap"
)

// TransactionManager owns the live transaction table, the per-RID
// version-chain heads, and the watermark used to bound garbage
// collection. One instance serves an entire database.
type TransactionManager struct {
	mu        sync.RWMutex
	commitMu  sync.Mutex
	nextTxnID uint64
	commitTs  uint64
	txnMap    map[uint64]*Transaction

	watermark *Watermark

	versionMu sync.Mutex
	versions  map[heap.RID]UndoLink
}

// NewTransactionManager starts a fresh manager with no committed
// history (commit_ts 0).
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{
		nextTxnID: TxnStartID,
		txnMap:    make(map[uint64]*Transaction),
		watermark: NewWatermark(0),
		versions:  make(map[heap.RID]UndoLink),
	}
}

// Begin starts a new transaction at the manager's current committed
// timestamp, registers it as a live reader with the watermark, and
// returns it running.
func (tm *TransactionManager) Begin(isolation IsolationLevel) *Transaction {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	id := tm.nextTxnID
	tm.nextTxnID++
	txn := &Transaction{
		id:        id,
		isolation: isolation,
		readTs:    tm.commitTs,
		state:     StateRunning,
	}
	tm.txnMap[id] = txn
	tm.watermark.AddTxn(txn.readTs)
	return txn
}

// GetUndoLink returns the current version-chain head for rid, if any.
func (tm *TransactionManager) GetUndoLink(rid heap.RID) (UndoLink, bool) {
	tm.versionMu.Lock()
	defer tm.versionMu.Unlock()
	l, ok := tm.versions[rid]
	return l, ok
}

// UpdateUndoLink sets (or clears, if link is invalid) rid's
// version-chain head.
func (tm *TransactionManager) UpdateUndoLink(rid heap.RID, link UndoLink) {
	tm.versionMu.Lock()
	defer tm.versionMu.Unlock()
	if link.Valid() {
		tm.versions[rid] = link
	} else {
		delete(tm.versions, rid)
	}
}

// RegisterInsert records a freshly inserted RID (one never touched by
// ApplyWrite, so it has no undo log) in txn's write set, so Commit
// stamps its meta with the new commit timestamp.
func (tm *TransactionManager) RegisterInsert(h *heap.TableHeap, schema *catalog.Schema, rid heap.RID, txn *Transaction) {
	txn.addWrite(h, schema, rid)
}

// GetUndoLog dereferences a link to its log entry, failing if the
// owning transaction has been collected.
func (tm *TransactionManager) GetUndoLog(link UndoLink) (UndoLog, bool) {
	tm.mu.RLock()
	txn, ok := tm.txnMap[link.Txn]
	tm.mu.RUnlock()
	if !ok {
		return UndoLog{}, false
	}
	return txn.GetUndoLog(link.Idx)
}

// GetWatermark returns the oldest read_ts any live transaction needs.
func (tm *TransactionManager) GetWatermark() uint64 { return tm.watermark.Watermark() }

// VerifyTxn is the commit-time validation hook. Every write already
// passed the write rule's conflict check against the live committed
// state, so there is nothing further to verify at any isolation level
// this manager supports; kept as a named seam for a future
// serializable certifier.
func (tm *TransactionManager) VerifyTxn(txn *Transaction) bool { return true }

// Commit validates and finalizes txn: it verifies, assigns a new
// commit timestamp, stamps every written tuple's meta with that
// timestamp, and retires the transaction's snapshot from the
// watermark. Returns false (and aborts txn) if verification fails.
func (tm *TransactionManager) Commit(txn *Transaction) bool {
	if txn.State() == StateTainted {
		tm.Abort(txn)
		return false
	}

	tm.commitMu.Lock()
	defer tm.commitMu.Unlock()

	if !tm.VerifyTxn(txn) {
		tm.Abort(txn)
		return false
	}

	tm.mu.Lock()
	tm.commitTs++
	commitTs := tm.commitTs
	tm.mu.Unlock()

	for _, w := range txn.writeSet() {
		meta, err := w.h.GetTupleMeta(w.rid)
		if err != nil {
			continue
		}
		meta.Ts = commitTs
		_ = w.h.UpdateTupleMeta(meta, w.rid)
	}

	txn.mu.Lock()
	txn.commitTs = commitTs
	txn.state = StateCommitted
	readTs := txn.readTs
	txn.mu.Unlock()

	tm.watermark.UpdateCommitTs(commitTs)
	tm.watermark.RemoveTxn(readTs)
	return true
}

// Abort marks txn aborted, retires its snapshot, and restores every
// written RID's base tuple from the head of its own undo-log chain
// (there is one only if the RID was updated/deleted rather than freshly
// inserted — a fresh insert has no prior state to restore and is simply
// left behind as permanently invisible garbage for GC).
func (tm *TransactionManager) Abort(txn *Transaction) {
	txn.mu.Lock()
	txn.state = StateAborted
	readTs := txn.readTs
	txn.mu.Unlock()

	for _, w := range txn.writeSet() {
		tm.restoreWrite(txn, w)
	}

	tm.watermark.RemoveTxn(readTs)
}

func (tm *TransactionManager) restoreWrite(txn *Transaction, w writeRecord) {
	link, ok := tm.GetUndoLink(w.rid)
	if !ok || link.Txn != txn.ID() {
		return
	}
	log, ok := txn.GetUndoLog(link.Idx)
	if !ok {
		return
	}

	_, payload, err := w.h.GetTuple(w.rid)
	if err != nil {
		return
	}
	cur, err := catalog.DecodeTuple(w.schema, payload)
	if err != nil {
		return
	}
	idx := modifiedIndices(log.ModifiedFields)
	partialSchema := w.schema.CopySchema(idx)
	partial, err := catalog.DecodeTuple(partialSchema, log.PartialTuple)
	if err != nil {
		return
	}
	for i, ci := range idx {
		cur.Values[ci] = partial.GetValue(i)
	}

	restoredMeta := heap.TupleMeta{Ts: log.Ts, IsDeleted: log.IsDeleted}
	_ = w.h.UpdateTupleInPlace(restoredMeta, cur.Encode(w.schema), w.rid)
	tm.UpdateUndoLink(w.rid, log.Prev)
}

// GarbageCollection reclaims undo logs no live transaction can reach.
// For every RID whose base tuple is already visible at the watermark
// (meta.Ts <= watermark), a reader at the watermark never needs to
// walk the chain at all, so the entire chain is collectable. Otherwise
// it walks the chain newest-to-oldest, keeps the first log at or below
// the watermark (the oldest version a live reader might still need),
// and counts every log past that point as collectable. A terminated
// (committed or aborted) transaction is dropped from the map once
// every one of its logs is collectable; dropping it makes any link
// still pointing at it dereference to nothing, which naturally
// truncates chains at that point.
func (tm *TransactionManager) GarbageCollection(heaps []*heap.TableHeap) {
	watermark := tm.GetWatermark()
	collectable := make(map[uint64]int)

	for _, h := range heaps {
		it := h.MakeIterator()
		for it.Next() {
			rid := it.RID()
			link, ok := tm.GetUndoLink(rid)
			if !ok {
				continue
			}
			meta, _, err := it.Tuple()
			if err != nil {
				continue
			}
			reachedBoundary := meta.Ts <= watermark
			for link.Valid() {
				log, found := tm.GetUndoLog(link)
				if !found {
					break
				}
				if !reachedBoundary {
					if log.Ts <= watermark {
						reachedBoundary = true
					}
					link = log.Prev
					continue
				}
				collectable[link.Txn]++
				link = log.Prev
			}
		}
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	for id, txn := range tm.txnMap {
		state := txn.State()
		if state != StateCommitted && state != StateAborted {
			continue
		}
		if collectable[id] == txn.UndoLogCount() {
			delete(tm.txnMap, id)
		}
	}
}
