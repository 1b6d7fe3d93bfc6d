package exec

import (
	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/expr"
	"github.com/relcore-db/relcore/pkg/heap"
)

// SeqScan walks a table heap's every slot, applying the MVCC read
// rule and an optional filter predicate per tuple.
type SeqScan struct {
	Ctx       *Context
	Table     *catalog.TableInfo
	Predicate expr.Expression

	it *heap.Iterator
}

func (s *SeqScan) Init() error {
	s.it = s.Table.Heap.MakeIterator()
	return nil
}

func (s *SeqScan) Next() (catalog.Tuple, heap.RID, bool, error) {
	for s.it.Next() {
		rid := s.it.RID()
		tup, ok, err := s.Ctx.TxnMgr.ReadTuple(s.Table.Heap, s.Table.Schema, rid, s.Ctx.Txn)
		if err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			continue
		}
		if s.Predicate != nil {
			v, err := s.Predicate.Evaluate(tup, s.Table.Schema)
			if err != nil {
				return catalog.Tuple{}, heap.RID{}, false, err
			}
			if !expr.IsTrue(v) {
				continue
			}
		}
		return tup, rid, true, nil
	}
	return catalog.Tuple{}, heap.RID{}, false, nil
}

// IndexScan probes an index with a set of candidate probe keys
// (already encoded against the index's key schema), deduplicating the
// resulting RIDs in first-seen order, then applies the read rule and
// filter exactly as SeqScan does.
type IndexScan struct {
	Ctx       *Context
	Table     *catalog.TableInfo
	Index     *catalog.IndexInfo
	ProbeKeys [][]byte
	Predicate expr.Expression

	rids []heap.RID
	pos  int
}

func (s *IndexScan) Init() error {
	seen := make(map[heap.RID]struct{})
	s.rids = s.rids[:0]
	for _, key := range s.ProbeKeys {
		for _, rid := range s.Index.Index.ScanKey(key) {
			if _, dup := seen[rid]; dup {
				continue
			}
			seen[rid] = struct{}{}
			s.rids = append(s.rids, rid)
		}
	}
	s.pos = 0
	return nil
}

func (s *IndexScan) Next() (catalog.Tuple, heap.RID, bool, error) {
	for s.pos < len(s.rids) {
		rid := s.rids[s.pos]
		s.pos++
		tup, ok, err := s.Ctx.TxnMgr.ReadTuple(s.Table.Heap, s.Table.Schema, rid, s.Ctx.Txn)
		if err != nil {
			return catalog.Tuple{}, heap.RID{}, false, err
		}
		if !ok {
			continue
		}
		if s.Predicate != nil {
			v, err := s.Predicate.Evaluate(tup, s.Table.Schema)
			if err != nil {
				return catalog.Tuple{}, heap.RID{}, false, err
			}
			if !expr.IsTrue(v) {
				continue
			}
		}
		return tup, rid, true, nil
	}
	return catalog.Tuple{}, heap.RID{}, false, nil
}
