package mvcc

import (
	"sync"

	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/heap"
)

// IsolationLevel selects how a transaction's reads behave; the write
// rule's conflict check is identical across levels in this
// implementation (see TransactionManager.VerifyTxn).
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	SnapshotIsolation
	Serializable
)

// State is a transaction's lifecycle stage.
type State int

const (
	StateRunning State = iota
	StateTainted
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTainted:
		return "tainted"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Transaction is one unit of work. Its ID doubles as its temporary
// timestamp (always >= TxnStartID) until commit assigns a real
// CommitTs. UndoLogs is append-only and indexed by UndoLink.Idx;
// entries are never removed, only merged in place by the write rule.
type Transaction struct {
	mu        sync.Mutex
	id        uint64
	isolation IsolationLevel
	readTs    uint64
	commitTs  uint64
	state     State
	undoLogs  []UndoLog
	writes    map[heap.RID]writeRecord
}

// ID returns the transaction's identity, which is also its temporary
// timestamp while running.
func (t *Transaction) ID() uint64 { return t.id }

// TempTs is the timestamp a running (or tainted) transaction's own
// writes are stamped with.
func (t *Transaction) TempTs() uint64 { return t.id }

// ReadTs is the snapshot timestamp the read rule compares against.
func (t *Transaction) ReadTs() uint64 { return t.readTs }

// Isolation returns the transaction's configured isolation level.
func (t *Transaction) Isolation() IsolationLevel { return t.isolation }

// State returns the transaction's current lifecycle stage.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Taint marks the transaction as failed without tearing it down; the
// caller must still Abort it to release resources.
func (t *Transaction) Taint() { t.setState(StateTainted) }

// CommitTs is valid only after Commit succeeds.
func (t *Transaction) CommitTs() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commitTs
}

// AppendUndoLog adds a new log entry, used the first time a write
// rule touches a RID whose chain head belongs to someone else.
func (t *Transaction) AppendUndoLog(log UndoLog) UndoLink {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := len(t.undoLogs)
	t.undoLogs = append(t.undoLogs, log)
	return UndoLink{Txn: t.id, Idx: idx}
}

// ModifyUndoLog overwrites an existing log entry in place, used when a
// transaction writes the same RID more than once.
func (t *Transaction) ModifyUndoLog(idx int, log UndoLog) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undoLogs[idx] = log
}

// GetUndoLog reads a log entry by index.
func (t *Transaction) GetUndoLog(idx int) (UndoLog, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.undoLogs) {
		return UndoLog{}, false
	}
	return t.undoLogs[idx], true
}

// UndoLogCount reports how many log entries this transaction owns,
// used by garbage collection to decide when every one is collectable.
func (t *Transaction) UndoLogCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.undoLogs)
}

// addWrite records that this transaction has touched rid in h under
// schema, for commit-time timestamp stamping and abort-time rollback.
func (t *Transaction) addWrite(h *heap.TableHeap, schema *catalog.Schema, rid heap.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writes == nil {
		t.writes = make(map[heap.RID]writeRecord)
	}
	if _, exists := t.writes[rid]; !exists {
		t.writes[rid] = writeRecord{h: h, schema: schema, rid: rid}
	}
}

func (t *Transaction) writeSet() []writeRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]writeRecord, 0, len(t.writes))
	for _, w := range t.writes {
		out = append(out, w)
	}
	return out
}
