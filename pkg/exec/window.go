package exec

import (
	"sort"

	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/expr"
	"github.com/relcore-db/relcore/pkg/heap"
)

// Window sorts Child by OrderBy (when present), then folds Agg per
// Partition key over the ordered rows, appending the running
// aggregate value and a RANK to every row. Rank increments whenever
// the ORDER BY columns change within a partition, and resets to 1 at
// the start of each new partition.
type Window struct {
	Child       Executor
	Schema      *catalog.Schema
	Partition   []expr.Expression
	OrderBy     []SortKey
	Agg         AggregateTarget

	rows []catalog.Tuple
	out  []catalog.Tuple
	pos  int
	ran  bool
}

func (w *Window) Init() error { return w.Child.Init() }

func (w *Window) run() error {
	for {
		tup, _, ok, err := w.Child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		w.rows = append(w.rows, tup)
	}

	if len(w.OrderBy) > 0 {
		var sortErr error
		sort.SliceStable(w.rows, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			c, err := compareByKeys(w.rows[i], w.rows[j], w.Schema, w.OrderBy)
			if err != nil {
				sortErr = err
				return false
			}
			return c < 0
		})
		if sortErr != nil {
			return sortErr
		}
	}

	type partState struct {
		agg      *aggState
		rank     int
		lastKeys []catalog.Value
		haveLast bool
	}
	partitions := make(map[string]*partState)
	var order []string

	w.out = make([]catalog.Tuple, 0, len(w.rows))
	for _, tup := range w.rows {
		pkeys := make([]catalog.Value, len(w.Partition))
		for i, p := range w.Partition {
			v, err := p.Evaluate(tup, w.Schema)
			if err != nil {
				return err
			}
			pkeys[i] = v
		}
		pk := groupKey(pkeys)
		ps, exists := partitions[pk]
		if !exists {
			ps = &partState{agg: &aggState{}}
			partitions[pk] = ps
			order = append(order, pk)
		}

		var v catalog.Value
		if w.Agg.Func != AggCountStar {
			var err error
			v, err = w.Agg.Expr.Evaluate(tup, w.Schema)
			if err != nil {
				return err
			}
		}
		ps.agg.apply(w.Agg.Func, v)

		orderKeys := make([]catalog.Value, len(w.OrderBy))
		for i, k := range w.OrderBy {
			ov, err := k.Expr.Evaluate(tup, w.Schema)
			if err != nil {
				return err
			}
			orderKeys[i] = ov
		}
		if !ps.haveLast {
			ps.rank = 1
			ps.haveLast = true
		} else if !sameValues(ps.lastKeys, orderKeys) {
			ps.rank++
		}
		ps.lastKeys = orderKeys

		vals := append([]catalog.Value(nil), tup.Values...)
		vals = append(vals, ps.agg.result(w.Agg.Func, catalog.TypeInteger), catalog.NewInteger(int64(ps.rank)))
		w.out = append(w.out, catalog.NewTuple(vals))
	}
	return nil
}

func sameValues(a, b []catalog.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].CompareTo(b[i]) != 0 {
			return false
		}
	}
	return true
}

func (w *Window) Next() (catalog.Tuple, heap.RID, bool, error) {
	if !w.ran {
		w.ran = true
		if err := w.run(); err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
	}
	if w.pos >= len(w.out) {
		return catalog.Tuple{}, heap.RID{}, false, nil
	}
	v := w.out[w.pos]
	w.pos++
	return v, heap.RID{}, true, nil
}
