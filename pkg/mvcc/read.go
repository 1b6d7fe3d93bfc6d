package mvcc

import (
	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/heap"
)

// ReconstructTuple applies a chain of undo logs, newest first, over a
// tuple's current base state to rebuild an older visible version. Each
// log either marks the version at that point as deleted (reset to
// empty) or overwrites the columns it flagged with their recorded old
// values. Returns ok=false if the reconstructed version is deleted.
func ReconstructTuple(schema *catalog.Schema, meta heap.TupleMeta, payload []byte, logs []UndoLog) (catalog.Tuple, bool, error) {
	var cur catalog.Tuple
	exists := !meta.IsDeleted
	if exists {
		t, err := catalog.DecodeTuple(schema, payload)
		if err != nil {
			return catalog.Tuple{}, false, err
		}
		cur = t
	} else {
		cur = catalog.NewTuple(make([]catalog.Value, len(schema.Columns)))
	}

	for _, log := range logs {
		if log.IsDeleted {
			exists = false
			cur = catalog.NewTuple(make([]catalog.Value, len(schema.Columns)))
			continue
		}
		exists = true
		idx := modifiedIndices(log.ModifiedFields)
		partialSchema := schema.CopySchema(idx)
		partial, err := catalog.DecodeTuple(partialSchema, log.PartialTuple)
		if err != nil {
			return catalog.Tuple{}, false, err
		}
		for i, colIdx := range idx {
			cur.Values[colIdx] = partial.GetValue(i)
		}
	}
	return cur, exists, nil
}

// ReadTuple implements the read rule: a transaction sees the base
// tuple directly if it was committed at or before the reader's
// snapshot, or if the reader owns the uncommitted write itself;
// otherwise it walks the version chain, accumulating logs until one
// with Ts <= readTs is found, and reconstructs that version. Returns
// ok=false if no visible version exists (not yet inserted, or deleted
// as of the reader's snapshot).
func (tm *TransactionManager) ReadTuple(h *heap.TableHeap, schema *catalog.Schema, rid heap.RID, txn *Transaction) (catalog.Tuple, bool, error) {
	meta, payload, err := h.GetTuple(rid)
	if err != nil {
		return catalog.Tuple{}, false, err
	}

	if meta.Ts < TxnStartID && meta.Ts <= txn.ReadTs() || meta.Ts == txn.TempTs() {
		if meta.IsDeleted {
			return catalog.Tuple{}, false, nil
		}
		t, err := catalog.DecodeTuple(schema, payload)
		if err != nil {
			return catalog.Tuple{}, false, err
		}
		return t, true, nil
	}

	link, ok := tm.GetUndoLink(rid)
	var logs []UndoLog
	reached := false
	for ok && link.Valid() {
		log, found := tm.GetUndoLog(link)
		if !found {
			break
		}
		logs = append(logs, log)
		if log.Ts <= txn.ReadTs() {
			reached = true
			break
		}
		link = log.Prev
		ok = link.Valid()
	}
	if !reached {
		return catalog.Tuple{}, false, nil
	}

	t, exists, err := ReconstructTuple(schema, meta, payload, logs)
	if err != nil || !exists {
		return catalog.Tuple{}, false, err
	}
	return t, true, nil
}
