package exec

import (
	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/expr"
	"github.com/relcore-db/relcore/pkg/heap"
)

// nullPad builds a null value per column of schema, typed to match so
// later comparisons (join predicates, sort keys) against a padded
// column never hit catalog.Value.CompareTo's cross-type panic.
func nullPad(schema *catalog.Schema) []catalog.Value {
	vals := make([]catalog.Value, len(schema.Columns))
	for i, col := range schema.Columns {
		vals[i] = catalog.NewNull(col.Type)
	}
	return vals
}

func concatTuples(left, right catalog.Tuple) catalog.Tuple {
	vals := make([]catalog.Value, 0, len(left.Values)+len(right.Values))
	vals = append(vals, left.Values...)
	vals = append(vals, right.Values...)
	return catalog.NewTuple(vals)
}

// HashJoin builds a hash table over the right child's join keys during
// Init, then probes it once per left tuple. A LEFT join emits a
// null-padded row for a left tuple with no right match; an INNER join
// simply skips it.
type HashJoin struct {
	Left, Right   Executor
	LeftKeyExpr   expr.Expression
	RightKeyExpr  expr.Expression
	RightSchema   *catalog.Schema
	LeftSchema    *catalog.Schema
	IsLeftOuter   bool

	buildTable map[string][]catalog.Tuple
	curLeft    catalog.Tuple
	curMatches []catalog.Tuple
	matchPos   int
	emittedAny bool
}

func (h *HashJoin) Init() error {
	if err := h.Left.Init(); err != nil {
		return err
	}
	if err := h.Right.Init(); err != nil {
		return err
	}
	h.buildTable = make(map[string][]catalog.Tuple)
	for {
		tup, _, ok, err := h.Right.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		key, err := h.RightKeyExpr.Evaluate(tup, h.RightSchema)
		if err != nil {
			return err
		}
		if key.IsNull {
			continue
		}
		k := string(key.Encode(nil))
		h.buildTable[k] = append(h.buildTable[k], tup)
	}
	return nil
}

func (h *HashJoin) Next() (catalog.Tuple, heap.RID, bool, error) {
	for {
		if h.matchPos < len(h.curMatches) {
			m := h.curMatches[h.matchPos]
			h.matchPos++
			h.emittedAny = true
			return concatTuples(h.curLeft, m), heap.RID{}, true, nil
		}

		if h.IsLeftOuter && !h.emittedAny && h.curMatches != nil {
			h.curMatches = nil
			return concatTuples(h.curLeft, catalog.NewTuple(nullPad(h.RightSchema))), heap.RID{}, true, nil
		}

		tup, _, ok, err := h.Left.Next()
		if err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			return catalog.Tuple{}, heap.RID{}, false, nil
		}

		key, err := h.LeftKeyExpr.Evaluate(tup, h.LeftSchema)
		if err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
		h.curLeft = tup
		h.matchPos = 0
		h.emittedAny = false
		if key.IsNull {
			h.curMatches = nil
		} else {
			h.curMatches = h.buildTable[string(key.Encode(nil))]
		}
		if len(h.curMatches) == 0 && h.IsLeftOuter {
			// Force the outer-pad branch above on the next loop turn.
			h.curMatches = []catalog.Tuple{}
		}
	}
}

// NestedLoopJoin re-initializes Right per left tuple and emits every
// pair satisfying Predicate. A LEFT join pads a left tuple that
// matched nothing.
type NestedLoopJoin struct {
	Left, Right Executor
	LeftSchema  *catalog.Schema
	RightSchema *catalog.Schema
	Predicate   expr.JoinExpression
	IsLeftOuter bool

	curLeft     catalog.Tuple
	haveLeft    bool
	matchedLeft bool
}

func (n *NestedLoopJoin) Init() error {
	if err := n.Left.Init(); err != nil {
		return err
	}
	return nil
}

func (n *NestedLoopJoin) advanceLeft() (bool, error) {
	tup, _, ok, err := n.Left.Next()
	if err != nil || !ok {
		return false, err
	}
	n.curLeft = tup
	n.matchedLeft = false
	if err := n.Right.Init(); err != nil {
		return false, err
	}
	return true, nil
}

func (n *NestedLoopJoin) Next() (catalog.Tuple, heap.RID, bool, error) {
	if !n.haveLeft {
		ok, err := n.advanceLeft()
		if err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			return catalog.Tuple{}, heap.RID{}, false, nil
		}
		n.haveLeft = true
	}

	for {
		rtup, _, ok, err := n.Right.Next()
		if err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			prevLeft := n.curLeft
			unmatched := n.IsLeftOuter && !n.matchedLeft
			adv, err := n.advanceLeft()
			if err != nil {
				return catalog.Tuple{}, heap.RID{}, false, err
			}
			if unmatched {
				if !adv {
					n.haveLeft = false
				}
				return concatTuples(prevLeft, catalog.NewTuple(nullPad(n.RightSchema))), heap.RID{}, true, nil
			}
			if !adv {
				n.haveLeft = false
				return catalog.Tuple{}, heap.RID{}, false, nil
			}
			continue
		}

		v, err := n.Predicate.EvaluateJoin(n.curLeft, n.LeftSchema, rtup, n.RightSchema)
		if err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
		if expr.IsTrue(v) {
			n.matchedLeft = true
			return concatTuples(n.curLeft, rtup), heap.RID{}, true, nil
		}
	}
}
