package exec

import (
	containerheap "container/heap"
	"sort"

	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/expr"
	"github.com/relcore-db/relcore/pkg/heap"
)

// SortKey is one (expression, direction) pair in a lexicographic sort
// order.
type SortKey struct {
	Expr       expr.Expression
	Descending bool
}

func compareByKeys(a, b catalog.Tuple, schema *catalog.Schema, keys []SortKey) (int, error) {
	for _, k := range keys {
		av, err := k.Expr.Evaluate(a, schema)
		if err != nil {
			return 0, err
		}
		bv, err := k.Expr.Evaluate(b, schema)
		if err != nil {
			return 0, err
		}
		c := av.CompareTo(bv)
		if k.Descending {
			c = -c
		}
		if c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

// Sort buffers every tuple from Child, then orders it by Keys.
type Sort struct {
	Child  Executor
	Schema *catalog.Schema
	Keys   []SortKey

	rows []catalog.Tuple
	pos  int
	ran  bool
}

func (s *Sort) Init() error { return s.Child.Init() }

func (s *Sort) run() error {
	for {
		tup, _, ok, err := s.Child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		s.rows = append(s.rows, tup)
	}
	var sortErr error
	sort.SliceStable(s.rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		c, err := compareByKeys(s.rows[i], s.rows[j], s.Schema, s.Keys)
		if err != nil {
			sortErr = err
			return false
		}
		return c < 0
	})
	return sortErr
}

func (s *Sort) Next() (catalog.Tuple, heap.RID, bool, error) {
	if !s.ran {
		s.ran = true
		if err := s.run(); err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
	}
	if s.pos >= len(s.rows) {
		return catalog.Tuple{}, heap.RID{}, false, nil
	}
	t := s.rows[s.pos]
	s.pos++
	return t, heap.RID{}, true, nil
}

// topNHeap is a max-heap (by the *inverse* of the output order) over a
// bounded window of N rows, so popping the root always evicts the
// worst-ranked row currently held.
type topNHeap struct {
	rows   []catalog.Tuple
	schema *catalog.Schema
	keys   []SortKey
	err    error
}

func (h *topNHeap) Len() int { return len(h.rows) }
func (h *topNHeap) Less(i, j int) bool {
	c, err := compareByKeys(h.rows[i], h.rows[j], h.schema, h.keys)
	if err != nil {
		h.err = err
		return false
	}
	return c > 0 // max-heap on output order: root is the worst row to keep
}
func (h *topNHeap) Swap(i, j int) { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }
func (h *topNHeap) Push(x interface{}) { h.rows = append(h.rows, x.(catalog.Tuple)) }
func (h *topNHeap) Pop() interface{} {
	n := len(h.rows)
	v := h.rows[n-1]
	h.rows = h.rows[:n-1]
	return v
}

// TopN keeps only the best N rows by Keys, using a bounded heap so
// memory stays O(N) regardless of input size.
type TopN struct {
	Child  Executor
	Schema *catalog.Schema
	Keys   []SortKey
	N      int

	out []catalog.Tuple
	pos int
	ran bool
}

func (t *TopN) Init() error { return t.Child.Init() }

func (t *TopN) run() error {
	h := &topNHeap{schema: t.Schema, keys: t.Keys}
	for {
		tup, _, ok, err := t.Child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if h.Len() < t.N {
			containerheap.Push(h, tup)
		} else if h.Len() > 0 {
			c, err := compareByKeys(tup, h.rows[0], t.Schema, t.Keys)
			if err != nil {
				return err
			}
			if c < 0 {
				containerheap.Pop(h)
				containerheap.Push(h, tup)
			}
		}
		if h.err != nil {
			return h.err
		}
	}
	t.out = make([]catalog.Tuple, 0, h.Len())
	for h.Len() > 0 {
		t.out = append(t.out, containerheap.Pop(h).(catalog.Tuple))
	}
	if h.err != nil {
		return h.err
	}
	// containerheap.Pop drains worst-first off this max-heap; reverse
	// to present the best row first.
	for i, j := 0, len(t.out)-1; i < j; i, j = i+1, j-1 {
		t.out[i], t.out[j] = t.out[j], t.out[i]
	}
	return nil
}

func (t *TopN) Next() (catalog.Tuple, heap.RID, bool, error) {
	if !t.ran {
		t.ran = true
		if err := t.run(); err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
	}
	if t.pos >= len(t.out) {
		return catalog.Tuple{}, heap.RID{}, false, nil
	}
	v := t.out[t.pos]
	t.pos++
	return v, heap.RID{}, true, nil
}
