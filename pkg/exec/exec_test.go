package exec

import (
	"path/filepath"
	"testing"

	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/expr"
	"github.com/relcore-db/relcore/pkg/heap"
	"github.com/relcore-db/relcore/pkg/index"
	"github.com/relcore-db/relcore/pkg/mvcc"
	"github.com/relcore-db/relcore/pkg/storage"
)

type fixture struct {
	cat *catalog.Catalog
	tm  *mvcc.TransactionManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dm, err := storage.NewDiskManager(filepath.Join(t.TempDir(), "exec.db"), storage.DefaultDiskManagerConfig())
	if err != nil {
		t.Fatalf("NewDiskManager: %v", err)
	}
	pool := storage.NewBufferPool(32, dm, 2)
	t.Cleanup(pool.Shutdown)
	return &fixture{cat: catalog.New(pool), tm: mvcc.NewTransactionManager()}
}

func usersSchema() *catalog.Schema {
	return catalog.NewSchema([]catalog.Column{
		{Name: "id", Type: catalog.TypeInteger},
		{Name: "name", Type: catalog.TypeVarchar},
	})
}

type seedRow struct {
	id   int64
	name string
}

func seedUsers(t *testing.T, f *fixture, rows []seedRow) (*catalog.TableInfo, *catalog.IndexInfo) {
	t.Helper()
	table, err := f.cat.CreateTable("users", usersSchema())
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	idx, err := f.cat.CreateIndex("pk_users", "users", []int{0}, true, index.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	txn := f.tm.Begin(mvcc.SnapshotIsolation)
	for _, r := range rows {
		tup := catalog.NewTuple([]catalog.Value{catalog.NewInteger(r.id), catalog.NewVarchar(r.name)})
		rid, ok := table.Heap.InsertTuple(heap.TupleMeta{Ts: txn.TempTs()}, tup.Encode(table.Schema))
		if !ok {
			t.Fatalf("seed insert failed")
		}
		f.tm.RegisterInsert(table.Heap, table.Schema, rid, txn)
		if !idx.Index.Insert(tup.Project(idx.KeyAttrs).Encode(idx.KeySchema), rid) {
			t.Fatalf("seed index insert failed")
		}
	}
	if !f.tm.Commit(txn) {
		t.Fatalf("seed commit failed")
	}
	return table, idx
}

func drain(t *testing.T, ex Executor) []catalog.Tuple {
	t.Helper()
	if err := ex.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var out []catalog.Tuple
	for {
		tup, _, ok, err := ex.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, tup)
	}
	return out
}

func TestSeqScanFiltersAndReadsVisibleRows(t *testing.T) {
	f := newFixture(t)
	table, _ := seedUsers(t, f, []seedRow{{1, "ada"}, {2, "grace"}, {3, "hopper"}})

	reader := f.tm.Begin(mvcc.SnapshotIsolation)
	ctx := &Context{TxnMgr: f.tm, Txn: reader}
	scan := &SeqScan{
		Ctx:   ctx,
		Table: table,
		Predicate: &expr.Comparison{
			Left:  &expr.ColumnRef{Index: 0},
			Right: &expr.Literal{Value: catalog.NewInteger(2)},
			Op:    expr.CompareGE,
		},
	}
	rows := drain(t, scan)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestIndexScanFindsByPrimaryKey(t *testing.T) {
	f := newFixture(t)
	table, idx := seedUsers(t, f, []seedRow{{1, "ada"}, {2, "grace"}})

	reader := f.tm.Begin(mvcc.SnapshotIsolation)
	ctx := &Context{TxnMgr: f.tm, Txn: reader}
	key := catalog.NewTuple([]catalog.Value{catalog.NewInteger(2)}).Encode(idx.KeySchema)
	scan := &IndexScan{Ctx: ctx, Table: table, Index: idx, ProbeKeys: [][]byte{key}}
	rows := drain(t, scan)
	if len(rows) != 1 || rows[0].GetValue(1).Varchar != "grace" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestInsertExecutorAppendsAndIndexes(t *testing.T) {
	f := newFixture(t)
	table, idx := seedUsers(t, f, []seedRow{{1, "ada"}})

	txn := f.tm.Begin(mvcc.SnapshotIsolation)
	ctx := &Context{TxnMgr: f.tm, Txn: txn}
	newRow := catalog.NewTuple([]catalog.Value{catalog.NewInteger(2), catalog.NewVarchar("grace")})
	child := &constExecutor{rows: []catalog.Tuple{newRow}}
	ins := &Insert{Ctx: ctx, Table: table, Indexes: []*catalog.IndexInfo{idx}, Child: child}
	rows := drain(t, ins)
	if len(rows) != 1 || rows[0].GetValue(0).Integer != 1 {
		t.Fatalf("expected count tuple of 1, got %+v", rows)
	}
	if !f.tm.Commit(txn) {
		t.Fatal("commit failed")
	}

	key := newRow.Project(idx.KeyAttrs).Encode(idx.KeySchema)
	if _, found := idx.Index.GetValue(key); !found {
		t.Error("expected new row indexed")
	}
}

func TestDeleteThenReadInvisible(t *testing.T) {
	f := newFixture(t)
	table, _ := seedUsers(t, f, []seedRow{{1, "ada"}})

	reader := f.tm.Begin(mvcc.SnapshotIsolation)
	scanCtx := &Context{TxnMgr: f.tm, Txn: reader}
	scanForRID := &SeqScan{Ctx: scanCtx, Table: table}
	rows := drain(t, scanForRID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 seed row, got %d", len(rows))
	}

	deleter := f.tm.Begin(mvcc.SnapshotIsolation)
	delCtx := &Context{TxnMgr: f.tm, Txn: deleter}
	delScan := &SeqScan{Ctx: delCtx, Table: table}
	del := &Delete{Ctx: delCtx, Table: table, Child: delScan}
	result := drain(t, del)
	if len(result) != 1 || result[0].GetValue(0).Integer != 1 {
		t.Fatalf("expected delete count 1, got %+v", result)
	}
	if !f.tm.Commit(deleter) {
		t.Fatal("commit failed")
	}

	after := f.tm.Begin(mvcc.SnapshotIsolation)
	afterCtx := &Context{TxnMgr: f.tm, Txn: after}
	afterScan := &SeqScan{Ctx: afterCtx, Table: table}
	rows = drain(t, afterScan)
	if len(rows) != 0 {
		t.Fatalf("expected no visible rows after delete, got %d", len(rows))
	}
}

func TestAggregationCountAndSum(t *testing.T) {
	f := newFixture(t)
	table, _ := seedUsers(t, f, []seedRow{{1, "a"}, {2, "b"}, {3, "c"}})

	reader := f.tm.Begin(mvcc.SnapshotIsolation)
	ctx := &Context{TxnMgr: f.tm, Txn: reader}
	scan := &SeqScan{Ctx: ctx, Table: table}
	agg := &Aggregation{
		Child:       scan,
		ChildSchema: table.Schema,
		Targets: []AggregateTarget{
			{Func: AggCountStar},
			{Func: AggSum, Expr: &expr.ColumnRef{Index: 0}},
		},
	}
	rows := drain(t, agg)
	if len(rows) != 1 {
		t.Fatalf("expected 1 aggregate row, got %d", len(rows))
	}
	if rows[0].GetValue(0).Integer != 3 {
		t.Errorf("expected count 3, got %d", rows[0].GetValue(0).Integer)
	}
	if rows[0].GetValue(1).Integer != 6 {
		t.Errorf("expected sum 6, got %d", rows[0].GetValue(1).Integer)
	}
}

func TestSortOrdersByColumn(t *testing.T) {
	f := newFixture(t)
	table, _ := seedUsers(t, f, []seedRow{{3, "c"}, {1, "a"}, {2, "b"}})

	reader := f.tm.Begin(mvcc.SnapshotIsolation)
	ctx := &Context{TxnMgr: f.tm, Txn: reader}
	scan := &SeqScan{Ctx: ctx, Table: table}
	srt := &Sort{Child: scan, Schema: table.Schema, Keys: []SortKey{{Expr: &expr.ColumnRef{Index: 0}}}}
	rows := drain(t, srt)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, want := range []int64{1, 2, 3} {
		if rows[i].GetValue(0).Integer != want {
			t.Errorf("row %d: expected id %d, got %d", i, want, rows[i].GetValue(0).Integer)
		}
	}
}

func TestTopNKeepsBestRows(t *testing.T) {
	f := newFixture(t)
	table, _ := seedUsers(t, f, []seedRow{{3, "c"}, {1, "a"}, {4, "d"}, {2, "b"}})

	reader := f.tm.Begin(mvcc.SnapshotIsolation)
	ctx := &Context{TxnMgr: f.tm, Txn: reader}
	scan := &SeqScan{Ctx: ctx, Table: table}
	top := &TopN{Child: scan, Schema: table.Schema, Keys: []SortKey{{Expr: &expr.ColumnRef{Index: 0}}}, N: 2}
	rows := drain(t, top)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].GetValue(0).Integer != 1 || rows[1].GetValue(0).Integer != 2 {
		t.Errorf("expected top-2 [1,2], got %+v", rows)
	}
}

// constExecutor replays a fixed row set; used to feed Insert/Update in
// tests without a real scan beneath them.
type constExecutor struct {
	rows []catalog.Tuple
	pos  int
}

func (c *constExecutor) Init() error { c.pos = 0; return nil }
func (c *constExecutor) Next() (catalog.Tuple, heap.RID, bool, error) {
	if c.pos >= len(c.rows) {
		return catalog.Tuple{}, heap.RID{}, false, nil
	}
	t := c.rows[c.pos]
	c.pos++
	return t, heap.RID{}, true, nil
}
