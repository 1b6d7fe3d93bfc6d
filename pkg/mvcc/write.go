package mvcc

import (
	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/heap"
)

// ApplyWrite implements the write rule for both update and delete
// (isDeleted selects which). newPayload is the tuple's full new
// encoding; for a delete it is ignored and the prior payload is kept
// untouched (only meta.IsDeleted flips). Taints txn and returns
// ErrWriteConflict if the current base was committed after txn's
// snapshot.
func (tm *TransactionManager) ApplyWrite(h *heap.TableHeap, schema *catalog.Schema, rid heap.RID, txn *Transaction, newPayload []byte, isDeleted bool) error {
	meta, payload, err := h.GetTuple(rid)
	if err != nil {
		return err
	}
	if isDeleted {
		newPayload = payload
	}

	if meta.Ts == txn.TempTs() {
		link, ok := tm.GetUndoLink(rid)
		newMeta := heap.TupleMeta{Ts: txn.TempTs(), IsDeleted: isDeleted}
		if !ok || !link.Valid() {
			return h.UpdateTupleInPlace(newMeta, newPayload, rid)
		}
		if link.Txn != txn.ID() {
			// Chain head belongs to someone else even though the base
			// is temp-stamped to us: shouldn't happen under correct
			// single-writer-per-RID use, but fail safe as a conflict.
			txn.Taint()
			return ErrWriteConflict
		}
		headLog, found := tm.GetUndoLog(link)
		if !found {
			return h.UpdateTupleInPlace(newMeta, newPayload, rid)
		}
		merged, err := mergeUndoLog(schema, headLog, payload, newPayload, isDeleted)
		if err != nil {
			return err
		}
		txn.ModifyUndoLog(link.Idx, merged)
		if err := h.UpdateTupleInPlace(newMeta, newPayload, rid); err != nil {
			return err
		}
		txn.addWrite(h, schema, rid)
		return nil
	}

	if meta.Ts > txn.ReadTs() {
		txn.Taint()
		return ErrWriteConflict
	}

	link, _ := tm.GetUndoLink(rid)
	flags, partial, err := diffColumns(schema, payload, newPayload, isDeleted, meta)
	if err != nil {
		return err
	}
	newLog := UndoLog{Ts: meta.Ts, IsDeleted: meta.IsDeleted, ModifiedFields: flags, PartialTuple: partial, Prev: link}
	newLink := txn.AppendUndoLog(newLog)
	tm.UpdateUndoLink(rid, newLink)

	newMeta := heap.TupleMeta{Ts: txn.TempTs(), IsDeleted: isDeleted}
	if err := h.UpdateTupleInPlace(newMeta, newPayload, rid); err != nil {
		return err
	}
	txn.addWrite(h, schema, rid)
	return nil
}

// diffColumns builds the undo-log payload for a fresh (non-merged)
// write: every column for a delete or a reclaimed tombstone, otherwise
// just the columns whose value actually changes.
func diffColumns(schema *catalog.Schema, oldPayload, newPayload []byte, isDeleteOp bool, oldMeta heap.TupleMeta) ([]bool, []byte, error) {
	if isDeleteOp || oldMeta.IsDeleted {
		flags := make([]bool, len(schema.Columns))
		for i := range flags {
			flags[i] = true
		}
		return flags, oldPayload, nil
	}

	oldT, err := catalog.DecodeTuple(schema, oldPayload)
	if err != nil {
		return nil, nil, err
	}
	newT, err := catalog.DecodeTuple(schema, newPayload)
	if err != nil {
		return nil, nil, err
	}
	flags := make([]bool, len(schema.Columns))
	var idx []int
	for i := range schema.Columns {
		if oldT.Values[i].CompareTo(newT.Values[i]) != 0 {
			flags[i] = true
			idx = append(idx, i)
		}
	}
	vals := make([]catalog.Value, len(idx))
	for i, ci := range idx {
		vals[i] = oldT.Values[ci]
	}
	partialSchema := schema.CopySchema(idx)
	return flags, catalog.NewTuple(vals).Encode(partialSchema), nil
}

// mergeUndoLog folds a second write by the same transaction into its
// existing head log: any column the new write changes that isn't
// already flagged gets added, recording currentPayload's value (the
// value from just before this write, still the true pre-transaction
// original since nothing else has touched it) as the old value.
// Columns already flagged keep their original recorded value.
func mergeUndoLog(schema *catalog.Schema, head UndoLog, currentPayload, newPayload []byte, isDeleted bool) (UndoLog, error) {
	existingIdx := modifiedIndices(head.ModifiedFields)
	existingSchema := schema.CopySchema(existingIdx)
	existingPartial, err := catalog.DecodeTuple(existingSchema, head.PartialTuple)
	if err != nil {
		return UndoLog{}, err
	}
	oldValues := make([]catalog.Value, len(schema.Columns))
	for i, ci := range existingIdx {
		oldValues[ci] = existingPartial.GetValue(i)
	}

	current, err := catalog.DecodeTuple(schema, currentPayload)
	if err != nil {
		return UndoLog{}, err
	}
	newFlags := append([]bool(nil), head.ModifiedFields...)

	if isDeleted {
		for i := range schema.Columns {
			if !newFlags[i] {
				newFlags[i] = true
				oldValues[i] = current.Values[i]
			}
		}
	} else {
		newT, err := catalog.DecodeTuple(schema, newPayload)
		if err != nil {
			return UndoLog{}, err
		}
		for i := range schema.Columns {
			if newFlags[i] {
				continue
			}
			if current.Values[i].CompareTo(newT.Values[i]) != 0 {
				newFlags[i] = true
				oldValues[i] = current.Values[i]
			}
		}
	}

	idx := modifiedIndices(newFlags)
	vals := make([]catalog.Value, len(idx))
	for i, ci := range idx {
		vals[i] = oldValues[ci]
	}
	partialSchema := schema.CopySchema(idx)
	return UndoLog{
		Ts:             head.Ts,
		IsDeleted:      head.IsDeleted,
		ModifiedFields: newFlags,
		PartialTuple:   catalog.NewTuple(vals).Encode(partialSchema),
		Prev:           head.Prev,
	}, nil
}
