// Package expr provides the minimal typed-expression contract the
// executors need to filter and project tuples: column references,
// literals, comparisons, and logical combinators. It is not a parser
// or planner — expressions are built directly by callers (or by the
// optimizer) as trees, then evaluated per tuple.
package expr

import (
	"fmt"

	"github.com/relcore-db/relcore/pkg/catalog"
)

// Expression evaluates to a single typed value against one input
// tuple (or two, for join predicates, via JoinExpression).
type Expression interface {
	Evaluate(tuple catalog.Tuple, schema *catalog.Schema) (catalog.Value, error)
}

// JoinExpression evaluates against a pair of tuples from a join's left
// and right children.
type JoinExpression interface {
	EvaluateJoin(left catalog.Tuple, leftSchema *catalog.Schema, right catalog.Tuple, rightSchema *catalog.Schema) (catalog.Value, error)
}

// ColumnRef reads one column by index from the input tuple.
type ColumnRef struct {
	Index int
}

func (c *ColumnRef) Evaluate(tuple catalog.Tuple, schema *catalog.Schema) (catalog.Value, error) {
	if c.Index < 0 || c.Index >= len(tuple.Values) {
		return catalog.Value{}, fmt.Errorf("expr: column index %d out of range", c.Index)
	}
	return tuple.GetValue(c.Index), nil
}

// Literal evaluates to a fixed value regardless of input.
type Literal struct {
	Value catalog.Value
}

func (l *Literal) Evaluate(catalog.Tuple, *catalog.Schema) (catalog.Value, error) {
	return l.Value, nil
}

// CompareOp names a comparison operator.
type CompareOp int

const (
	CompareEQ CompareOp = iota
	CompareNE
	CompareLT
	CompareLE
	CompareGT
	CompareGE
)

// Comparison evaluates Left and Right, then compares them with Op,
// producing a boolean value (null if either side is null).
type Comparison struct {
	Left, Right Expression
	Op          CompareOp
}

func (c *Comparison) Evaluate(tuple catalog.Tuple, schema *catalog.Schema) (catalog.Value, error) {
	l, err := c.Left.Evaluate(tuple, schema)
	if err != nil {
		return catalog.Value{}, err
	}
	r, err := c.Right.Evaluate(tuple, schema)
	if err != nil {
		return catalog.Value{}, err
	}
	return compareValues(l, r, c.Op)
}

func compareValues(l, r catalog.Value, op CompareOp) (catalog.Value, error) {
	if l.IsNull || r.IsNull {
		return catalog.NewNull(catalog.TypeBoolean), nil
	}
	cmp := l.CompareTo(r)
	var result bool
	switch op {
	case CompareEQ:
		result = cmp == 0
	case CompareNE:
		result = cmp != 0
	case CompareLT:
		result = cmp < 0
	case CompareLE:
		result = cmp <= 0
	case CompareGT:
		result = cmp > 0
	case CompareGE:
		result = cmp >= 0
	default:
		return catalog.Value{}, fmt.Errorf("expr: unknown compare op %d", op)
	}
	return catalog.NewBoolean(result), nil
}

// LogicalOp names a boolean combinator.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

// Logical combines two boolean-valued expressions with three-valued
// (SQL-style) null handling.
type Logical struct {
	Left, Right Expression
	Op          LogicalOp
}

func (lg *Logical) Evaluate(tuple catalog.Tuple, schema *catalog.Schema) (catalog.Value, error) {
	l, err := lg.Left.Evaluate(tuple, schema)
	if err != nil {
		return catalog.Value{}, err
	}
	r, err := lg.Right.Evaluate(tuple, schema)
	if err != nil {
		return catalog.Value{}, err
	}
	switch lg.Op {
	case LogicalAnd:
		if (!l.IsNull && !l.Boolean) || (!r.IsNull && !r.Boolean) {
			return catalog.NewBoolean(false), nil
		}
		if l.IsNull || r.IsNull {
			return catalog.NewNull(catalog.TypeBoolean), nil
		}
		return catalog.NewBoolean(true), nil
	case LogicalOr:
		if (!l.IsNull && l.Boolean) || (!r.IsNull && r.Boolean) {
			return catalog.NewBoolean(true), nil
		}
		if l.IsNull || r.IsNull {
			return catalog.NewNull(catalog.TypeBoolean), nil
		}
		return catalog.NewBoolean(false), nil
	default:
		return catalog.Value{}, fmt.Errorf("expr: unknown logical op %d", lg.Op)
	}
}

// Not negates a boolean-valued expression, preserving null.
type Not struct {
	Inner Expression
}

func (n *Not) Evaluate(tuple catalog.Tuple, schema *catalog.Schema) (catalog.Value, error) {
	v, err := n.Inner.Evaluate(tuple, schema)
	if err != nil {
		return catalog.Value{}, err
	}
	if v.IsNull {
		return v, nil
	}
	return catalog.NewBoolean(!v.Boolean), nil
}

// IsTrue reports whether v is a non-null true boolean — the standard
// predicate-acceptance rule used by filtering executors (null and
// false both reject the row).
func IsTrue(v catalog.Value) bool {
	return !v.IsNull && v.Type == catalog.TypeBoolean && v.Boolean
}

// JoinColumnRef reads a column from either the left or right side of a
// join predicate.
type JoinColumnRef struct {
	FromLeft bool
	Index    int
}

func (c *JoinColumnRef) EvaluateJoin(left catalog.Tuple, leftSchema *catalog.Schema, right catalog.Tuple, rightSchema *catalog.Schema) (catalog.Value, error) {
	if c.FromLeft {
		if c.Index < 0 || c.Index >= len(left.Values) {
			return catalog.Value{}, fmt.Errorf("expr: left column index %d out of range", c.Index)
		}
		return left.GetValue(c.Index), nil
	}
	if c.Index < 0 || c.Index >= len(right.Values) {
		return catalog.Value{}, fmt.Errorf("expr: right column index %d out of range", c.Index)
	}
	return right.GetValue(c.Index), nil
}

// JoinComparison compares a left-side and right-side expression, used
// as an equi-join or general join predicate.
type JoinComparison struct {
	Left, Right JoinExpression
	Op          CompareOp
}

func (jc *JoinComparison) EvaluateJoin(left catalog.Tuple, leftSchema *catalog.Schema, right catalog.Tuple, rightSchema *catalog.Schema) (catalog.Value, error) {
	l, err := jc.Left.EvaluateJoin(left, leftSchema, right, rightSchema)
	if err != nil {
		return catalog.Value{}, err
	}
	r, err := jc.Right.EvaluateJoin(left, leftSchema, right, rightSchema)
	if err != nil {
		return catalog.Value{}, err
	}
	return compareValues(l, r, jc.Op)
}
