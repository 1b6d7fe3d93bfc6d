package catalog

import (
	"path/filepath"
	"testing"

	"github.com/relcore-db/relcore/pkg/index"
	"github.com/relcore-db/relcore/pkg/storage"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dm, err := storage.NewDiskManager(filepath.Join(t.TempDir(), "cat.db"), storage.DefaultDiskManagerConfig())
	if err != nil {
		t.Fatalf("NewDiskManager: %v", err)
	}
	pool := storage.NewBufferPool(16, dm, 2)
	t.Cleanup(pool.Shutdown)
	return New(pool)
}

func usersSchema() *Schema {
	return NewSchema([]Column{
		{Name: "id", Type: TypeInteger},
		{Name: "name", Type: TypeVarchar},
		{Name: "active", Type: TypeBoolean},
	})
}

func TestCreateAndGetTable(t *testing.T) {
	cat := newTestCatalog(t)
	info, err := cat.CreateTable("users", usersSchema())
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if info.OID != 1 {
		t.Errorf("expected first oid 1, got %d", info.OID)
	}

	got, ok := cat.GetTable("users")
	if !ok || got.Name != "users" {
		t.Fatalf("GetTable failed: %v %v", got, ok)
	}

	if _, err := cat.CreateTable("users", usersSchema()); err == nil {
		t.Error("expected duplicate table creation to fail")
	}
}

func TestCreateIndex(t *testing.T) {
	cat := newTestCatalog(t)
	if _, err := cat.CreateTable("users", usersSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	idx, err := cat.CreateIndex("pk_users", "users", []int{0}, true, index.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if len(idx.KeySchema.Columns) != 1 || idx.KeySchema.Columns[0].Name != "id" {
		t.Errorf("unexpected key schema: %+v", idx.KeySchema)
	}

	all := cat.GetTableIndexes("users")
	if len(all) != 1 {
		t.Fatalf("expected 1 index, got %d", len(all))
	}
}

func TestTupleEncodeDecodeRoundTrip(t *testing.T) {
	schema := usersSchema()
	tup := NewTuple([]Value{NewInteger(7), NewVarchar("ada"), NewBoolean(true)})
	raw := tup.Encode(schema)

	decoded, err := DecodeTuple(schema, raw)
	if err != nil {
		t.Fatalf("DecodeTuple: %v", err)
	}
	if decoded.GetValue(0).Integer != 7 || decoded.GetValue(1).Varchar != "ada" || !decoded.GetValue(2).Boolean {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}

func TestSchemaCopySchemaProjection(t *testing.T) {
	schema := usersSchema()
	projected := schema.CopySchema([]int{1, 0})
	if len(projected.Columns) != 2 || projected.Columns[0].Name != "name" || projected.Columns[1].Name != "id" {
		t.Errorf("unexpected projection: %+v", projected.Columns)
	}
}
