package catalog

import (
	"fmt"
	"sync"

	"github.com/relcore-db/relcore/pkg/heap"
	"github.com/relcore-db/relcore/pkg/index"
	"github.com/relcore-db/relcore/pkg/storage"
)

// OID is a dense object id for tables and indexes, assigned in
// registration order.
type OID uint32

// TableInfo names a table: its heap, schema, and identity.
type TableInfo struct {
	OID    OID
	Name   string
	Schema *Schema
	Heap   *heap.TableHeap
}

// IndexInfo names an index over a table: its key schema (the
// projection of the table schema onto the indexed columns), the
// indexed column positions, and whether it enforces uniqueness as a
// primary key.
type IndexInfo struct {
	OID         OID
	Name        string
	TableName   string
	KeySchema   *Schema
	KeyAttrs    []int
	IsPrimaryKey bool
	Index       *index.HashTable
}

// Catalog is the in-memory registry of tables and their indexes. It
// mirrors the teacher's single-page collection directory in spirit —
// name/oid lookup of top-level objects — generalized from document
// collections to relational tables plus their secondary indexes.
type Catalog struct {
	mu           sync.RWMutex
	pool         *storage.BufferPool
	nextOID      OID
	tables       map[string]*TableInfo
	tablesByOID  map[OID]*TableInfo
	indexes      map[string]*IndexInfo // "table.index" -> info
	tableIndexes map[string][]*IndexInfo
}

// New creates an empty catalog backed by pool for any tables/indexes it
// is asked to create.
func New(pool *storage.BufferPool) *Catalog {
	return &Catalog{
		pool:         pool,
		nextOID:      1,
		tables:       make(map[string]*TableInfo),
		tablesByOID:  make(map[OID]*TableInfo),
		indexes:      make(map[string]*IndexInfo),
		tableIndexes: make(map[string][]*IndexInfo),
	}
}

// CreateTable registers a new table with a fresh, empty heap.
func (c *Catalog) CreateTable(name string, schema *Schema) (*TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tables[name]; exists {
		return nil, fmt.Errorf("catalog: table %q already exists", name)
	}
	th, err := heap.NewTableHeap(c.pool)
	if err != nil {
		return nil, fmt.Errorf("catalog: creating heap for table %q: %w", name, err)
	}
	info := &TableInfo{OID: c.nextOID, Name: name, Schema: schema, Heap: th}
	c.nextOID++
	c.tables[name] = info
	c.tablesByOID[info.OID] = info
	return info, nil
}

// GetTable looks up a table by name.
func (c *Catalog) GetTable(name string) (*TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.tables[name]
	return info, ok
}

// GetTableByOID looks up a table by oid.
func (c *Catalog) GetTableByOID(oid OID) (*TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.tablesByOID[oid]
	return info, ok
}

// ListTables returns every registered table name.
func (c *Catalog) ListTables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	return names
}

func indexKey(table, index string) string { return table + "." + index }

// CreateIndex registers a fresh hash index over keyAttrs of table.
func (c *Catalog) CreateIndex(indexName, tableName string, keyAttrs []int, isPrimaryKey bool, cfg index.Config) (*IndexInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	table, ok := c.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("catalog: table %q not found", tableName)
	}
	key := indexKey(tableName, indexName)
	if _, exists := c.indexes[key]; exists {
		return nil, fmt.Errorf("catalog: index %q already exists on table %q", indexName, tableName)
	}
	ht, err := index.New(c.pool, cfg)
	if err != nil {
		return nil, fmt.Errorf("catalog: creating index %q: %w", indexName, err)
	}
	info := &IndexInfo{
		OID:          c.nextOID,
		Name:         indexName,
		TableName:    tableName,
		KeySchema:    table.Schema.CopySchema(keyAttrs),
		KeyAttrs:     keyAttrs,
		IsPrimaryKey: isPrimaryKey,
		Index:        ht,
	}
	c.nextOID++
	c.indexes[key] = info
	c.tableIndexes[tableName] = append(c.tableIndexes[tableName], info)
	return info, nil
}

// GetIndex looks up a single index by table and index name.
func (c *Catalog) GetIndex(tableName, indexName string) (*IndexInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.indexes[indexKey(tableName, indexName)]
	return info, ok
}

// GetTableIndexes returns every index registered on table, in
// creation order.
func (c *Catalog) GetTableIndexes(tableName string) []*IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*IndexInfo(nil), c.tableIndexes[tableName]...)
}
