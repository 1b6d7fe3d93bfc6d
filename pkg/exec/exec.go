// Package exec implements the volcano-style pull executors: each one
// exposes Init/Next and composes child executors, reading and writing
// through the catalog, table heap, index, and MVCC packages.
package exec

import (
	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/heap"
	"github.com/relcore-db/relcore/pkg/mvcc"
)

// Executor is the pull-based operator contract every node implements.
// Next returns ok=false once the operator is exhausted; rid is the
// base tuple's identity where one exists (scans, DML) and the zero
// value for synthesized rows (joins, aggregates, DML result counts).
type Executor interface {
	Init() error
	Next() (tuple catalog.Tuple, rid heap.RID, ok bool, err error)
}

// Context carries the transaction every executor in a single query
// plan reads and writes through.
type Context struct {
	TxnMgr *mvcc.TransactionManager
	Txn    *mvcc.Transaction
}
