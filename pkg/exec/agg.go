package exec

import (
	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/expr"
	"github.com/relcore-db/relcore/pkg/heap"
)

// AggFunc names a supported aggregate.
type AggFunc int

const (
	AggCountStar AggFunc = iota
	AggCount
	AggSum
	AggMin
	AggMax
)

// AggregateTarget is one aggregate column in the output: Func applied
// to Expr (Expr is ignored for CountStar).
type AggregateTarget struct {
	Func AggFunc
	Expr expr.Expression
}

type aggState struct {
	count   int64
	hasAny  bool
	current catalog.Value
}

func (s *aggState) apply(fn AggFunc, v catalog.Value) {
	switch fn {
	case AggCountStar:
		s.count++
	case AggCount:
		if !v.IsNull {
			s.count++
			s.hasAny = true
		}
	case AggSum:
		if v.IsNull {
			return
		}
		if !s.hasAny {
			s.current = v
			s.hasAny = true
			return
		}
		s.current = addValues(s.current, v)
	case AggMin:
		if v.IsNull {
			return
		}
		if !s.hasAny || v.CompareTo(s.current) < 0 {
			s.current = v
			s.hasAny = true
		}
	case AggMax:
		if v.IsNull {
			return
		}
		if !s.hasAny || v.CompareTo(s.current) > 0 {
			s.current = v
			s.hasAny = true
		}
	}
}

func (s *aggState) result(fn AggFunc, t catalog.TypeID) catalog.Value {
	switch fn {
	case AggCountStar:
		return catalog.NewInteger(s.count)
	case AggCount:
		if !s.hasAny {
			return catalog.NewNull(t)
		}
		return catalog.NewInteger(s.count)
	default:
		if !s.hasAny {
			return catalog.NewNull(t)
		}
		return s.current
	}
}

func addValues(a, b catalog.Value) catalog.Value {
	switch a.Type {
	case catalog.TypeFloat:
		return catalog.NewFloat(a.Float + b.Float)
	default:
		return catalog.NewInteger(a.Integer + b.Integer)
	}
}

// Aggregation groups Child's rows by GroupBy expressions and folds
// Targets over each group. With no group-bys and no input rows, it
// still emits a single row (CountStar 0, everything else null),
// matching SQL's empty-aggregate convention.
type Aggregation struct {
	Child       Executor
	ChildSchema *catalog.Schema
	GroupBy     []expr.Expression
	Targets     []AggregateTarget

	groups   map[string]*groupEntry
	order    []string
	resultAt int
	ran      bool
}

type groupEntry struct {
	keys  []catalog.Value
	aggs  []*aggState
}

func (a *Aggregation) Init() error { return a.Child.Init() }

func (a *Aggregation) run() error {
	a.groups = make(map[string]*groupEntry)
	saw := false
	for {
		tup, _, ok, err := a.Child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		saw = true

		keys := make([]catalog.Value, len(a.GroupBy))
		for i, g := range a.GroupBy {
			v, err := g.Evaluate(tup, a.ChildSchema)
			if err != nil {
				return err
			}
			keys[i] = v
		}
		k := groupKey(keys)
		entry, exists := a.groups[k]
		if !exists {
			entry = &groupEntry{keys: keys, aggs: make([]*aggState, len(a.Targets))}
			for i := range entry.aggs {
				entry.aggs[i] = &aggState{}
			}
			a.groups[k] = entry
			a.order = append(a.order, k)
		}
		for i, target := range a.Targets {
			var v catalog.Value
			if target.Func != AggCountStar {
				v, err = target.Expr.Evaluate(tup, a.ChildSchema)
				if err != nil {
					return err
				}
			}
			entry.aggs[i].apply(target.Func, v)
		}
	}

	if !saw && len(a.GroupBy) == 0 {
		entry := &groupEntry{aggs: make([]*aggState, len(a.Targets))}
		for i := range entry.aggs {
			entry.aggs[i] = &aggState{}
		}
		a.groups[""] = entry
		a.order = append(a.order, "")
	}
	return nil
}

func groupKey(keys []catalog.Value) string {
	var buf []byte
	for _, k := range keys {
		buf = k.Encode(buf)
	}
	return string(buf)
}

func (a *Aggregation) Next() (catalog.Tuple, heap.RID, bool, error) {
	if !a.ran {
		a.ran = true
		if err := a.run(); err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
	}
	if a.resultAt >= len(a.order) {
		return catalog.Tuple{}, heap.RID{}, false, nil
	}
	entry := a.groups[a.order[a.resultAt]]
	a.resultAt++

	vals := make([]catalog.Value, 0, len(entry.keys)+len(a.Targets))
	vals = append(vals, entry.keys...)
	for i, target := range a.Targets {
		vals = append(vals, entry.aggs[i].result(target.Func, catalog.TypeInteger))
	}
	return catalog.NewTuple(vals), heap.RID{}, true, nil
}
