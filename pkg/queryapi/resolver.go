package queryapi

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/exec"
	"github.com/relcore-db/relcore/pkg/mvcc"
)

// defaultScanLimit bounds an unbounded scan() call so a careless query
// against a large table can't pin the resolver goroutine forever.
const defaultScanLimit = 1000

// Resolver answers GraphQL queries by running executors from pkg/exec
// directly, each under its own short-lived snapshot-isolated read-only
// transaction. Grounded on the teacher's Resolver (pkg/graphql/resolver.go),
// narrowed from document CRUD to a single read path over the relational
// executor package.
type Resolver struct {
	cat    *catalog.Catalog
	txnMgr *mvcc.TransactionManager
}

// NewResolver builds a resolver over the given catalog and transaction
// manager.
func NewResolver(cat *catalog.Catalog, txnMgr *mvcc.TransactionManager) *Resolver {
	return &Resolver{cat: cat, txnMgr: txnMgr}
}

// Scan resolves the scan(table, limit) query: a SeqScan run to
// completion (or to limit) under a fresh read-only transaction,
// committed immediately since the transaction did no writes.
func (r *Resolver) Scan(p graphql.ResolveParams) (interface{}, error) {
	tableName, ok := p.Args["table"].(string)
	if !ok || tableName == "" {
		return nil, fmt.Errorf("table name is required")
	}

	limit := defaultScanLimit
	if l, ok := p.Args["limit"].(int); ok && l > 0 {
		limit = l
	}

	table, ok := r.cat.GetTable(tableName)
	if !ok {
		return nil, fmt.Errorf("table not found: %s", tableName)
	}

	txn := r.txnMgr.Begin(mvcc.SnapshotIsolation)
	ctx := &exec.Context{TxnMgr: r.txnMgr, Txn: txn}
	scan := &exec.SeqScan{Ctx: ctx, Table: table}

	if err := scan.Init(); err != nil {
		r.txnMgr.Abort(txn)
		return nil, fmt.Errorf("init scan: %w", err)
	}

	rows := make([]map[string]interface{}, 0, limit)
	for len(rows) < limit {
		tup, _, ok, err := scan.Next()
		if err != nil {
			r.txnMgr.Abort(txn)
			return nil, fmt.Errorf("scan: %w", err)
		}
		if !ok {
			break
		}
		rows = append(rows, rowToMap(table.Schema, tup))
	}

	r.txnMgr.Commit(txn)
	return rows, nil
}

// ListTables resolves the listTables query.
func (r *Resolver) ListTables(p graphql.ResolveParams) (interface{}, error) {
	return r.cat.ListTables(), nil
}
