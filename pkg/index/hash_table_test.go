package index

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/relcore-db/relcore/pkg/heap"
	"github.com/relcore-db/relcore/pkg/storage"
)

func newTestPool(t *testing.T, poolSize int) *storage.BufferPool {
	t.Helper()
	dm, err := storage.NewDiskManager(filepath.Join(t.TempDir(), "index.db"), storage.DefaultDiskManagerConfig())
	if err != nil {
		t.Fatalf("NewDiskManager: %v", err)
	}
	pool := storage.NewBufferPool(poolSize, dm, 2)
	t.Cleanup(pool.Shutdown)
	return pool
}

func intKey(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func TestHashTableInsertGetValue(t *testing.T) {
	pool := newTestPool(t, 16)
	ht, err := New(pool, DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rid := heap.RID{PageID: 7, Slot: 3}
	if !ht.Insert(intKey(42), rid) {
		t.Fatal("Insert failed")
	}

	got, found := ht.GetValue(intKey(42))
	if !found {
		t.Fatal("expected to find key 42")
	}
	if got != rid {
		t.Errorf("got %v, want %v", got, rid)
	}

	if _, found := ht.GetValue(intKey(99)); found {
		t.Error("expected key 99 absent")
	}
}

func TestHashTableDuplicateInsertFails(t *testing.T) {
	pool := newTestPool(t, 16)
	ht, _ := New(pool, DefaultConfig())

	if !ht.Insert(intKey(1), heap.RID{PageID: 1, Slot: 0}) {
		t.Fatal("first insert failed")
	}
	if ht.Insert(intKey(1), heap.RID{PageID: 2, Slot: 0}) {
		t.Error("expected duplicate insert to fail")
	}
}

func TestHashTableRemove(t *testing.T) {
	pool := newTestPool(t, 16)
	ht, _ := New(pool, DefaultConfig())

	ht.Insert(intKey(5), heap.RID{PageID: 1, Slot: 0})
	if !ht.Remove(intKey(5)) {
		t.Fatal("remove failed")
	}
	if _, found := ht.GetValue(intKey(5)); found {
		t.Error("key 5 should be gone after remove")
	}
	if ht.Remove(intKey(5)) {
		t.Error("second remove of same key should report false")
	}
}

// TestHashTableSplit mirrors spec scenario S3: a small bucket forces a
// split once a third key collides under the initial single bucket.
func TestHashTableSplit(t *testing.T) {
	pool := newTestPool(t, 16)
	cfg := Config{HeaderMaxDepth: 4, DirectoryMaxDepth: 4, BucketMaxSize: 2, KeySize: 8}
	ht, err := New(pool, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	keys := []int64{100, 200, 300, 400, 500}
	for i, k := range keys {
		if !ht.Insert(intKey(k), heap.RID{PageID: storage.PageID(i + 1), Slot: 0}) {
			t.Fatalf("insert of key %d failed", k)
		}
	}
	for i, k := range keys {
		rid, found := ht.GetValue(intKey(k))
		if !found {
			t.Fatalf("key %d missing after splits", k)
		}
		if rid.PageID != storage.PageID(i+1) {
			t.Errorf("key %d: got rid %v, want page %d", k, rid, i+1)
		}
	}
}

// TestHashTableRoundTrip checks structural equivalence after an
// insert-then-remove pair, per the spec's round-trip invariant.
func TestHashTableRoundTrip(t *testing.T) {
	pool := newTestPool(t, 16)
	cfg := Config{HeaderMaxDepth: 4, DirectoryMaxDepth: 4, BucketMaxSize: 2, KeySize: 8}
	ht, _ := New(pool, cfg)

	ht.Insert(intKey(1), heap.RID{PageID: 1, Slot: 0})
	ht.Insert(intKey(2), heap.RID{PageID: 2, Slot: 0})
	if !ht.Remove(intKey(2)) {
		t.Fatal("remove of key 2 failed")
	}
	if !ht.Remove(intKey(1)) {
		t.Fatal("remove of key 1 failed")
	}
	if _, found := ht.GetValue(intKey(1)); found {
		t.Error("key 1 should be gone")
	}

	// The index should accept fresh inserts after collapsing back down.
	if !ht.Insert(intKey(9), heap.RID{PageID: 9, Slot: 0}) {
		t.Fatal("insert after round trip failed")
	}
}

func TestHashTableManyKeysSurviveSplits(t *testing.T) {
	pool := newTestPool(t, 64)
	cfg := Config{HeaderMaxDepth: 6, DirectoryMaxDepth: 6, BucketMaxSize: 3, KeySize: 8}
	ht, _ := New(pool, cfg)

	const n = 200
	for i := int64(0); i < n; i++ {
		if !ht.Insert(intKey(i), heap.RID{PageID: storage.PageID(i + 1), Slot: 0}) {
			t.Fatalf("insert %d failed", i)
		}
	}
	for i := int64(0); i < n; i++ {
		rid, found := ht.GetValue(intKey(i))
		if !found {
			t.Fatalf("key %d missing", i)
		}
		if rid.PageID != storage.PageID(i+1) {
			t.Errorf("key %d: got %v", i, rid)
		}
	}
}
