package optimizer

import (
	"testing"

	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/exec"
	"github.com/relcore-db/relcore/pkg/expr"
)

func TestRewriteNLJAsHashJoinOnEquiPredicate(t *testing.T) {
	n := &Node{
		Kind:     KindNestedLoopJoin,
		Children: []*Node{{Kind: KindSeqScan}, {Kind: KindSeqScan}},
		JoinPredicate: &expr.JoinComparison{
			Left:  &expr.JoinColumnRef{FromLeft: true, Index: 0},
			Right: &expr.JoinColumnRef{FromLeft: false, Index: 1},
			Op:    expr.CompareEQ,
		},
	}
	out := Apply(n, RewriteNLJAsHashJoin)
	if out.Kind != KindHashJoin {
		t.Fatalf("expected HashJoin, got kind %d", out.Kind)
	}
	left, ok := out.LeftKeyExpr.(*expr.ColumnRef)
	if !ok || left.Index != 0 {
		t.Errorf("unexpected left key expr: %+v", out.LeftKeyExpr)
	}
	right, ok := out.RightKeyExpr.(*expr.ColumnRef)
	if !ok || right.Index != 1 {
		t.Errorf("unexpected right key expr: %+v", out.RightKeyExpr)
	}
}

func TestRewriteNLJAsHashJoinLeavesNonEquiPredicateAlone(t *testing.T) {
	n := &Node{
		Kind:     KindNestedLoopJoin,
		Children: []*Node{{Kind: KindSeqScan}, {Kind: KindSeqScan}},
		JoinPredicate: &expr.JoinComparison{
			Left:  &expr.JoinColumnRef{FromLeft: true, Index: 0},
			Right: &expr.JoinColumnRef{FromLeft: false, Index: 1},
			Op:    expr.CompareGT,
		},
	}
	out := Apply(n, RewriteNLJAsHashJoin)
	if out.Kind != KindNestedLoopJoin {
		t.Fatalf("expected unchanged NestedLoopJoin, got kind %d", out.Kind)
	}
}

func TestRewriteSeqScanAsIndexScanOnIndexedEquality(t *testing.T) {
	schema := catalog.NewSchema([]catalog.Column{{Name: "id", Type: catalog.TypeInteger}})
	idx := &catalog.IndexInfo{Name: "pk", KeyAttrs: []int{0}, KeySchema: schema, IsPrimaryKey: true}
	n := &Node{
		Kind:    KindSeqScan,
		Indexes: []*catalog.IndexInfo{idx},
		Predicate: &expr.Comparison{
			Left:  &expr.ColumnRef{Index: 0},
			Right: &expr.Literal{Value: catalog.NewInteger(7)},
			Op:    expr.CompareEQ,
		},
	}
	out := Apply(n, RewriteSeqScanAsIndexScan)
	if out.Kind != KindIndexScan {
		t.Fatalf("expected IndexScan, got kind %d", out.Kind)
	}
	if len(out.ProbeKeys) != 1 {
		t.Fatalf("expected one probe key, got %d", len(out.ProbeKeys))
	}
	want := catalog.NewTuple([]catalog.Value{catalog.NewInteger(7)}).Encode(schema)
	if string(out.ProbeKeys[0]) != string(want) {
		t.Errorf("probe key mismatch: got %v want %v", out.ProbeKeys[0], want)
	}
}

func TestRewriteSeqScanAsIndexScanLeavesUnindexedColumnAlone(t *testing.T) {
	schema := catalog.NewSchema([]catalog.Column{{Name: "id", Type: catalog.TypeInteger}})
	idx := &catalog.IndexInfo{Name: "pk", KeyAttrs: []int{0}, KeySchema: schema, IsPrimaryKey: true}
	n := &Node{
		Kind:    KindSeqScan,
		Indexes: []*catalog.IndexInfo{idx},
		Predicate: &expr.Comparison{
			Left:  &expr.ColumnRef{Index: 1},
			Right: &expr.Literal{Value: catalog.NewInteger(7)},
			Op:    expr.CompareEQ,
		},
	}
	out := Apply(n, RewriteSeqScanAsIndexScan)
	if out.Kind != KindSeqScan {
		t.Fatalf("expected unchanged SeqScan, got kind %d", out.Kind)
	}
}

func TestRewriteSortLimitAsTopN(t *testing.T) {
	schema := catalog.NewSchema([]catalog.Column{{Name: "id", Type: catalog.TypeInteger}})
	keys := []exec.SortKey{{Expr: &expr.ColumnRef{Index: 0}}}
	n := &Node{
		Kind:  KindLimit,
		Limit: 5,
		Children: []*Node{{
			Kind:     KindSort,
			Schema:   schema,
			Keys:     keys,
			Children: []*Node{{Kind: KindSeqScan}},
		}},
	}
	out := Apply(n, RewriteSortLimitAsTopN)
	if out.Kind != KindTopN {
		t.Fatalf("expected TopN, got kind %d", out.Kind)
	}
	if out.Limit != 5 {
		t.Errorf("expected N=5, got %d", out.Limit)
	}
	if len(out.Children) != 1 || out.Children[0].Kind != KindSeqScan {
		t.Errorf("expected TopN to adopt Sort's child, got %+v", out.Children)
	}
}

func TestRewriteSortLimitAsTopNLeavesBareLimitAlone(t *testing.T) {
	n := &Node{
		Kind:     KindLimit,
		Limit:    5,
		Children: []*Node{{Kind: KindSeqScan}},
	}
	out := Apply(n, RewriteSortLimitAsTopN)
	if out.Kind != KindLimit {
		t.Fatalf("expected unchanged Limit, got kind %d", out.Kind)
	}
}
