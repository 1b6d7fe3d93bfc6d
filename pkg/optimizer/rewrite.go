package optimizer

import (
	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/expr"
)

// Rewrite is one syntactic plan transformation. It returns a
// (possibly new) node representing the rewritten subtree; children
// have already been rewritten by the time a parent is visited.
type Rewrite func(*Node) *Node

// Apply walks tree bottom-up, rewriting children before the node
// itself so a rewrite can assume its Children are already in final
// form (e.g. RewriteSortLimitAsTopN matching a Limit over a Sort).
func Apply(tree *Node, rewrites ...Rewrite) *Node {
	if tree == nil {
		return nil
	}
	for i, c := range tree.Children {
		tree.Children[i] = Apply(c, rewrites...)
	}
	for _, r := range rewrites {
		tree = r(tree)
	}
	return tree
}

// RewriteNLJAsHashJoin turns a NestedLoopJoin whose predicate is a
// single equality between one left-side and one right-side column
// into a HashJoin, matching spec's "Optimiser rewrites: NLJ→HashJoin"
// entry. Predicates that aren't a plain equi-join (no predicate,
// inequality, compound AND/OR) are left as nested-loop joins, since
// only an equi-join has a usable hash key.
func RewriteNLJAsHashJoin(n *Node) *Node {
	if n.Kind != KindNestedLoopJoin {
		return n
	}
	leftKey, rightKey, ok := equiJoinKeys(n.JoinPredicate)
	if !ok {
		return n
	}
	return &Node{
		Kind:         KindHashJoin,
		Children:     n.Children,
		LeftKeyExpr:  leftKey,
		RightKeyExpr: rightKey,
		LeftSchema:   n.LeftSchema,
		RightSchema:  n.RightSchema,
		IsLeftOuter:  n.IsLeftOuter,
	}
}

func equiJoinKeys(pred expr.JoinExpression) (expr.Expression, expr.Expression, bool) {
	cmp, ok := pred.(*expr.JoinComparison)
	if !ok || cmp.Op != expr.CompareEQ {
		return nil, nil, false
	}
	leftRef, leftOK := cmp.Left.(*expr.JoinColumnRef)
	rightRef, rightOK := cmp.Right.(*expr.JoinColumnRef)
	if !leftOK || !rightOK {
		return nil, nil, false
	}
	if leftRef.FromLeft && !rightRef.FromLeft {
		return &expr.ColumnRef{Index: leftRef.Index}, &expr.ColumnRef{Index: rightRef.Index}, true
	}
	if !leftRef.FromLeft && rightRef.FromLeft {
		return &expr.ColumnRef{Index: rightRef.Index}, &expr.ColumnRef{Index: leftRef.Index}, true
	}
	return nil, nil, false
}

// RewriteSeqScanAsIndexScan turns a SeqScan filtered by an equality on
// a column covered by one of the table's indexes into an IndexScan
// probing that index with the literal's encoded key, matching the
// spec's "SeqScan→IndexScan" rewrite. Only a single-column equality
// against a constant is recognised; anything else (range predicates,
// multi-column keys, no matching index) is left as a sequential scan.
func RewriteSeqScanAsIndexScan(n *Node) *Node {
	if n.Kind != KindSeqScan || n.Predicate == nil {
		return n
	}
	col, lit, ok := columnEqualsLiteral(n.Predicate)
	if !ok {
		return n
	}
	for _, idx := range n.Indexes {
		if len(idx.KeyAttrs) != 1 || idx.KeyAttrs[0] != col {
			continue
		}
		key := catalog.NewTuple([]catalog.Value{lit}).Encode(idx.KeySchema)
		return &Node{
			Kind:      KindIndexScan,
			Table:     n.Table,
			Indexes:   []*catalog.IndexInfo{idx},
			ProbeKeys: [][]byte{key},
		}
	}
	return n
}

func columnEqualsLiteral(e expr.Expression) (int, catalog.Value, bool) {
	cmp, ok := e.(*expr.Comparison)
	if !ok || cmp.Op != expr.CompareEQ {
		return 0, catalog.Value{}, false
	}
	if ref, ok := cmp.Left.(*expr.ColumnRef); ok {
		if lit, ok := cmp.Right.(*expr.Literal); ok {
			return ref.Index, lit.Value, true
		}
	}
	if ref, ok := cmp.Right.(*expr.ColumnRef); ok {
		if lit, ok := cmp.Left.(*expr.Literal); ok {
			return ref.Index, lit.Value, true
		}
	}
	return 0, catalog.Value{}, false
}

// RewriteSortLimitAsTopN collapses a Limit directly over a Sort into a
// single TopN node, matching the spec's "Sort+Limit→TopN" rewrite so
// the bounded heap replaces buffering the full sorted set.
func RewriteSortLimitAsTopN(n *Node) *Node {
	if n.Kind != KindLimit || len(n.Children) != 1 {
		return n
	}
	child := n.Children[0]
	if child.Kind != KindSort {
		return n
	}
	return &Node{
		Kind:     KindTopN,
		Children: child.Children,
		Schema:   child.Schema,
		Keys:     child.Keys,
		Limit:    n.Limit,
	}
}
