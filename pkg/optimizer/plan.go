// Package optimizer rewrites a syntactic plan tree before it is built
// into executors: nested-loop equi-joins become hash joins, predicated
// sequential scans become index scans when a matching index exists,
// and a sort immediately followed by a limit becomes a bounded top-N.
// Each rewrite is an independent, composable pass over the same Node
// tree, mirroring the teacher's QueryPlanner scoring indexed scans
// against a collection scan (pkg/query/planner.go) but applied to a
// tree instead of a single leaf decision.
package optimizer

import (
	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/exec"
	"github.com/relcore-db/relcore/pkg/expr"
)

// Kind names a plan node's operator.
type Kind int

const (
	KindSeqScan Kind = iota
	KindIndexScan
	KindNestedLoopJoin
	KindHashJoin
	KindSort
	KindLimit
	KindTopN
	KindAggregation
	KindWindow
	KindInsert
	KindDelete
	KindUpdate
)

// Node is one operator in a syntactic plan tree. Fields are populated
// according to Kind; unused fields for a given kind are left zero.
type Node struct {
	Kind     Kind
	Children []*Node

	Table   *catalog.TableInfo
	Indexes []*catalog.IndexInfo

	Predicate     expr.Expression
	JoinPredicate expr.JoinExpression
	LeftKeyExpr   expr.Expression
	RightKeyExpr  expr.Expression
	IsLeftOuter   bool
	LeftSchema    *catalog.Schema
	RightSchema   *catalog.Schema

	Keys      []exec.SortKey
	Limit     int
	ProbeKeys [][]byte

	GroupBy []expr.Expression
	Targets []exec.AggregateTarget
	Schema  *catalog.Schema

	Partition []expr.Expression
	OrderBy   []exec.SortKey
	Agg       exec.AggregateTarget

	UpdateTargets []exec.UpdateTarget
}

// Build materializes a (possibly rewritten) plan tree into a runnable
// executor tree, wiring each node's children and evaluation context.
func Build(ctx *exec.Context, n *Node) exec.Executor {
	switch n.Kind {
	case KindSeqScan:
		return &exec.SeqScan{Ctx: ctx, Table: n.Table, Predicate: n.Predicate}
	case KindIndexScan:
		return &exec.IndexScan{
			Ctx:       ctx,
			Table:     n.Table,
			Index:     n.Indexes[0],
			ProbeKeys: n.ProbeKeys,
			Predicate: n.Predicate,
		}
	case KindNestedLoopJoin:
		return &exec.NestedLoopJoin{
			Left:        Build(ctx, n.Children[0]),
			Right:       Build(ctx, n.Children[1]),
			LeftSchema:  n.LeftSchema,
			RightSchema: n.RightSchema,
			Predicate:   n.JoinPredicate,
			IsLeftOuter: n.IsLeftOuter,
		}
	case KindHashJoin:
		return &exec.HashJoin{
			Left:         Build(ctx, n.Children[0]),
			Right:        Build(ctx, n.Children[1]),
			LeftKeyExpr:  n.LeftKeyExpr,
			RightKeyExpr: n.RightKeyExpr,
			LeftSchema:   n.LeftSchema,
			RightSchema:  n.RightSchema,
			IsLeftOuter:  n.IsLeftOuter,
		}
	case KindSort:
		return &exec.Sort{Child: Build(ctx, n.Children[0]), Schema: n.Schema, Keys: n.Keys}
	case KindTopN:
		return &exec.TopN{Child: Build(ctx, n.Children[0]), Schema: n.Schema, Keys: n.Keys, N: n.Limit}
	case KindLimit:
		return &limitExecutor{child: Build(ctx, n.Children[0]), n: n.Limit}
	case KindAggregation:
		return &exec.Aggregation{
			Child:       Build(ctx, n.Children[0]),
			ChildSchema: n.Schema,
			GroupBy:     n.GroupBy,
			Targets:     n.Targets,
		}
	case KindWindow:
		return &exec.Window{
			Child:     Build(ctx, n.Children[0]),
			Schema:    n.Schema,
			Partition: n.Partition,
			OrderBy:   n.OrderBy,
			Agg:       n.Agg,
		}
	case KindInsert:
		return &exec.Insert{Ctx: ctx, Table: n.Table, Indexes: n.Indexes, Child: Build(ctx, n.Children[0])}
	case KindDelete:
		return &exec.Delete{Ctx: ctx, Table: n.Table, Child: Build(ctx, n.Children[0])}
	case KindUpdate:
		return &exec.Update{Ctx: ctx, Table: n.Table, Indexes: n.Indexes, Targets: n.UpdateTargets, Child: Build(ctx, n.Children[0])}
	default:
		panic("optimizer: unknown plan node kind")
	}
}
