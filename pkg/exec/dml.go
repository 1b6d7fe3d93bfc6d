package exec

import (
	"fmt"

	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/expr"
	"github.com/relcore-db/relcore/pkg/heap"
)

func countTuple(n int64) catalog.Tuple {
	return catalog.NewTuple([]catalog.Value{catalog.NewInteger(n)})
}

func indexKeyBytes(idx *catalog.IndexInfo, tup catalog.Tuple) []byte {
	return tup.Project(idx.KeyAttrs).Encode(idx.KeySchema)
}

// Insert pulls every tuple from Child, checking each unique (primary
// key) index for a collision: a live duplicate taints the transaction,
// a tombstoned one is reclaimed in place. All other rows are
// heap-inserted fresh and added to every index. Emits a single
// one-column (count) tuple on the first Next call, then EOF.
type Insert struct {
	Ctx     *Context
	Table   *catalog.TableInfo
	Indexes []*catalog.IndexInfo
	Child   Executor

	ran bool
}

func (ins *Insert) Init() error { return ins.Child.Init() }

func (ins *Insert) Next() (catalog.Tuple, heap.RID, bool, error) {
	if ins.ran {
		return catalog.Tuple{}, heap.RID{}, false, nil
	}
	ins.ran = true

	var count int64
	for {
		tup, _, ok, err := ins.Child.Next()
		if err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			break
		}

		reclaimRID, reclaiming, err := ins.checkUnique(tup)
		if err != nil {
			ins.Ctx.Txn.Taint()
			return catalog.Tuple{}, heap.RID{}, false, err
		}

		var rid heap.RID
		if reclaiming {
			payload := tup.Encode(ins.Table.Schema)
			if err := ins.Ctx.TxnMgr.ApplyWrite(ins.Table.Heap, ins.Table.Schema, reclaimRID, ins.Ctx.Txn, payload, false); err != nil {
				return catalog.Tuple{}, heap.RID{}, false, err
			}
			rid = reclaimRID
		} else {
			payload := tup.Encode(ins.Table.Schema)
			r, inserted := ins.Table.Heap.InsertTuple(heap.TupleMeta{Ts: ins.Ctx.Txn.TempTs()}, payload)
			if !inserted {
				return catalog.Tuple{}, heap.RID{}, false, fmt.Errorf("exec: insert into %q failed", ins.Table.Name)
			}
			rid = r
			ins.Ctx.TxnMgr.RegisterInsert(ins.Table.Heap, ins.Table.Schema, rid, ins.Ctx.Txn)
			for _, idx := range ins.Indexes {
				if !idx.Index.Insert(indexKeyBytes(idx, tup), rid) {
					ins.Ctx.Txn.Taint()
					return catalog.Tuple{}, heap.RID{}, false, fmt.Errorf("exec: duplicate key on index %q", idx.Name)
				}
			}
		}
		count++
	}
	return countTuple(count), heap.RID{}, true, nil
}

// checkUnique looks for an existing row under tup's primary key. It
// returns (rid, true, nil) if that row is currently tombstoned and
// should be reclaimed, (zero, false, nil) if no primary key index is
// configured or no collision exists, and a non-nil error if a live row
// already holds the key.
func (ins *Insert) checkUnique(tup catalog.Tuple) (heap.RID, bool, error) {
	for _, idx := range ins.Indexes {
		if !idx.IsPrimaryKey {
			continue
		}
		rid, found := idx.Index.GetValue(indexKeyBytes(idx, tup))
		if !found {
			continue
		}
		meta, err := ins.Table.Heap.GetTupleMeta(rid)
		if err != nil {
			return heap.RID{}, false, err
		}
		if !meta.IsDeleted {
			return heap.RID{}, false, fmt.Errorf("exec: duplicate primary key on table %q", ins.Table.Name)
		}
		return rid, true, nil
	}
	return heap.RID{}, false, nil
}

// Delete pulls every tuple/rid pair from Child and applies the write
// rule with is_deleted=true. Emits a single one-column (count) tuple
// on the first Next call, then EOF.
type Delete struct {
	Ctx   *Context
	Table *catalog.TableInfo
	Child Executor

	ran bool
}

func (d *Delete) Init() error { return d.Child.Init() }

func (d *Delete) Next() (catalog.Tuple, heap.RID, bool, error) {
	if d.ran {
		return catalog.Tuple{}, heap.RID{}, false, nil
	}
	d.ran = true

	var count int64
	for {
		_, rid, ok, err := d.Child.Next()
		if err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			break
		}
		if err := d.Ctx.TxnMgr.ApplyWrite(d.Table.Heap, d.Table.Schema, rid, d.Ctx.Txn, nil, true); err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
		count++
	}
	return countTuple(count), heap.RID{}, true, nil
}

// UpdateTarget computes one output column's new value from the old
// tuple, used to build Update's new row.
type UpdateTarget struct {
	Expr expr.Expression
}

// Update materialises every child row first (the scan that produced
// them may be invalidated by in-place writes), then applies the write
// rule per row with the new payload computed from Targets. If any of
// the table's primary-key columns appear in a changed position, the
// row goes through a two-phase delete-then-insert path so the unique
// index is kept consistent with the new key.
type Update struct {
	Ctx     *Context
	Table   *catalog.TableInfo
	Indexes []*catalog.IndexInfo
	Targets []UpdateTarget
	Child   Executor

	ran bool
}

func (u *Update) Init() error { return u.Child.Init() }

func (u *Update) Next() (catalog.Tuple, heap.RID, bool, error) {
	if u.ran {
		return catalog.Tuple{}, heap.RID{}, false, nil
	}
	u.ran = true

	type row struct {
		old catalog.Tuple
		rid heap.RID
	}
	var rows []row
	for {
		tup, rid, ok, err := u.Child.Next()
		if err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			break
		}
		rows = append(rows, row{old: tup, rid: rid})
	}

	var count int64
	for _, r := range rows {
		newValues := make([]catalog.Value, len(u.Table.Schema.Columns))
		for i, target := range u.Targets {
			v, err := target.Expr.Evaluate(r.old, u.Table.Schema)
			if err != nil {
				return catalog.Tuple{}, heap.RID{}, false, err
			}
			newValues[i] = v
		}
		newTup := catalog.NewTuple(newValues)

		if u.primaryKeyChanged(r.old, newTup) {
			if err := u.twoPhaseRewrite(r.rid, r.old, newTup); err != nil {
				return catalog.Tuple{}, heap.RID{}, false, err
			}
		} else {
			payload := newTup.Encode(u.Table.Schema)
			if err := u.Ctx.TxnMgr.ApplyWrite(u.Table.Heap, u.Table.Schema, r.rid, u.Ctx.Txn, payload, false); err != nil {
				return catalog.Tuple{}, heap.RID{}, false, err
			}
		}
		count++
	}
	return countTuple(count), heap.RID{}, true, nil
}

func (u *Update) primaryKeyChanged(old, updated catalog.Tuple) bool {
	for _, idx := range u.Indexes {
		if !idx.IsPrimaryKey {
			continue
		}
		for _, attr := range idx.KeyAttrs {
			if old.Values[attr].CompareTo(updated.Values[attr]) != 0 {
				return true
			}
		}
	}
	return false
}

// twoPhaseRewrite handles a primary-key-changing update as a delete of
// the old row followed by a fresh insert of the new one, keeping every
// unique index's key->rid mapping correct.
func (u *Update) twoPhaseRewrite(rid heap.RID, old, updated catalog.Tuple) error {
	if err := u.Ctx.TxnMgr.ApplyWrite(u.Table.Heap, u.Table.Schema, rid, u.Ctx.Txn, nil, true); err != nil {
		return err
	}
	for _, idx := range u.Indexes {
		idx.Index.Remove(indexKeyBytes(idx, old))
	}

	payload := updated.Encode(u.Table.Schema)
	newRID, ok := u.Table.Heap.InsertTuple(heap.TupleMeta{Ts: u.Ctx.Txn.TempTs()}, payload)
	if !ok {
		return fmt.Errorf("exec: reinsert after primary-key update failed on table %q", u.Table.Name)
	}
	u.Ctx.TxnMgr.RegisterInsert(u.Table.Heap, u.Table.Schema, newRID, u.Ctx.Txn)
	for _, idx := range u.Indexes {
		if !idx.Index.Insert(indexKeyBytes(idx, updated), newRID) {
			u.Ctx.Txn.Taint()
			return fmt.Errorf("exec: duplicate key on index %q after primary-key update", idx.Name)
		}
	}
	return nil
}
