package expr

import (
	"testing"

	"github.com/relcore-db/relcore/pkg/catalog"
)

func rowSchema() *catalog.Schema {
	return catalog.NewSchema([]catalog.Column{
		{Name: "id", Type: catalog.TypeInteger},
		{Name: "name", Type: catalog.TypeVarchar},
	})
}

func TestComparisonEQ(t *testing.T) {
	schema := rowSchema()
	tup := catalog.NewTuple([]catalog.Value{catalog.NewInteger(5), catalog.NewVarchar("x")})

	cmp := &Comparison{Left: &ColumnRef{Index: 0}, Right: &Literal{Value: catalog.NewInteger(5)}, Op: CompareEQ}
	v, err := cmp.Evaluate(tup, schema)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !IsTrue(v) {
		t.Errorf("expected true, got %+v", v)
	}

	cmp2 := &Comparison{Left: &ColumnRef{Index: 0}, Right: &Literal{Value: catalog.NewInteger(6)}, Op: CompareEQ}
	v2, _ := cmp2.Evaluate(tup, schema)
	if IsTrue(v2) {
		t.Error("expected false for mismatched comparison")
	}
}

func TestLogicalAndOr(t *testing.T) {
	schema := rowSchema()
	tup := catalog.NewTuple([]catalog.Value{catalog.NewInteger(5), catalog.NewVarchar("x")})

	trueExpr := &Literal{Value: catalog.NewBoolean(true)}
	falseExpr := &Literal{Value: catalog.NewBoolean(false)}

	and := &Logical{Left: trueExpr, Right: falseExpr, Op: LogicalAnd}
	v, _ := and.Evaluate(tup, schema)
	if IsTrue(v) {
		t.Error("AND of true,false should be false")
	}

	or := &Logical{Left: trueExpr, Right: falseExpr, Op: LogicalOr}
	v2, _ := or.Evaluate(tup, schema)
	if !IsTrue(v2) {
		t.Error("OR of true,false should be true")
	}
}

func TestNullComparisonIsNotTrue(t *testing.T) {
	schema := rowSchema()
	tup := catalog.NewTuple([]catalog.Value{catalog.NewNull(catalog.TypeInteger), catalog.NewVarchar("x")})

	cmp := &Comparison{Left: &ColumnRef{Index: 0}, Right: &Literal{Value: catalog.NewInteger(5)}, Op: CompareEQ}
	v, _ := cmp.Evaluate(tup, schema)
	if IsTrue(v) {
		t.Error("comparison against null should not be true")
	}
	if !v.IsNull {
		t.Error("expected null result")
	}
}
