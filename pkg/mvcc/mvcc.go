// Package mvcc implements the per-tuple undo-log MVCC substrate: the
// transaction manager, undo-log chains, the visibility read rule, the
// conflict-checked write rule, and watermark-bounded garbage
// collection, layered over the table heap and catalog packages.
package mvcc

import (
	"errors"

	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/heap"
)

// TxnStartID partitions the timestamp space: values below it are
// commit timestamps, values at or above it are the id of the
// transaction currently owning an uncommitted write.
const TxnStartID uint64 = 1 << 62

// InvalidTxnID marks the absence of an owning transaction, used as the
// sentinel Txn field of an UndoLink terminating a chain.
const InvalidTxnID uint64 = 0

// ErrWriteConflict is raised when a writer's read_ts cannot see the
// tuple's current committed state.
var ErrWriteConflict = errors.New("mvcc: write-write conflict")

// UndoLink names one node in a version chain: the transaction owning
// the undo log, and that log's index within the transaction's log
// slice. A link whose Txn is not present in the transaction map
// terminates the chain (collected or never existed).
type UndoLink struct {
	Txn uint64
	Idx int
}

// Valid reports whether the link names a real undo log.
func (l UndoLink) Valid() bool { return l.Txn != InvalidTxnID }

// UndoLog is a partial pre-image of a write: the timestamp and
// tombstone state the tuple had before this write, plus the old
// values of exactly the columns this write changed.
type UndoLog struct {
	Ts             uint64
	IsDeleted      bool
	ModifiedFields []bool
	PartialTuple   []byte
	Prev           UndoLink
}

func modifiedIndices(flags []bool) []int {
	var idx []int
	for i, f := range flags {
		if f {
			idx = append(idx, i)
		}
	}
	return idx
}

// writeRecord is one entry of a transaction's write set: the RID it
// touched, plus enough context (heap, schema) to restore it on abort
// or stamp it on commit.
type writeRecord struct {
	h      *heap.TableHeap
	schema *catalog.Schema
	rid    heap.RID
}
