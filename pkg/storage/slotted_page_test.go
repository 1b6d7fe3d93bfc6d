package storage

import "testing"

func TestSlottedPageInsertAndGetRoundTrips(t *testing.T) {
	p := NewPage(1, PageTypeTable)
	sp := InitSlottedPage(p)

	id, err := sp.Insert([]byte("hello"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := sp.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
	if sp.SlotCount() != 1 {
		t.Fatalf("expected slot count 1, got %d", sp.SlotCount())
	}
}

func TestSlottedPageUpdateInPlaceRejectsGrowth(t *testing.T) {
	p := NewPage(1, PageTypeTable)
	sp := InitSlottedPage(p)

	id, err := sp.Insert([]byte("abc"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := sp.UpdateInPlace(id, []byte("abcdef")); err == nil {
		t.Fatal("expected an error growing a slot in place")
	}
	if err := sp.UpdateInPlace(id, []byte("xy")); err != nil {
		t.Fatalf("UpdateInPlace shrinking: %v", err)
	}
	got, err := sp.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "xy" {
		t.Fatalf("expected xy, got %q", got)
	}
}

func TestSlottedPageDeleteMarksTombstone(t *testing.T) {
	p := NewPage(1, PageTypeTable)
	sp := InitSlottedPage(p)

	id, err := sp.Insert([]byte("doomed"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if sp.IsDeleted(id) {
		t.Fatal("expected a fresh slot to not be deleted")
	}
	if err := sp.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !sp.IsDeleted(id) {
		t.Fatal("expected slot to be marked deleted")
	}
	// Deleting twice is a no-op, not an error.
	if err := sp.Delete(id); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestSlottedPageCompactPreservesSlotIDs(t *testing.T) {
	p := NewPage(1, PageTypeTable)
	sp := InitSlottedPage(p)

	id1, _ := sp.Insert([]byte("one"))
	id2, _ := sp.Insert([]byte("two"))
	id3, _ := sp.Insert([]byte("three"))

	if err := sp.Delete(id2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	sp.Compact()

	if !sp.IsDeleted(id2) {
		t.Fatal("expected id2 to remain tombstoned after compaction")
	}
	got1, err := sp.Get(id1)
	if err != nil {
		t.Fatalf("Get(id1): %v", err)
	}
	if string(got1) != "one" {
		t.Fatalf("expected one, got %q", got1)
	}
	got3, err := sp.Get(id3)
	if err != nil {
		t.Fatalf("Get(id3): %v", err)
	}
	if string(got3) != "three" {
		t.Fatalf("expected three, got %q", got3)
	}
}

func TestSlottedPageLoadRoundTripsThroughPageSerialize(t *testing.T) {
	p := NewPage(1, PageTypeTable)
	sp := InitSlottedPage(p)
	id, err := sp.Insert([]byte("persisted"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	sp.SetNextPageID(9)

	reloaded, err := LoadSlottedPage(p)
	if err != nil {
		t.Fatalf("LoadSlottedPage: %v", err)
	}
	got, err := reloaded.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "persisted" {
		t.Fatalf("expected persisted, got %q", got)
	}
	if reloaded.NextPageID() != 9 {
		t.Fatalf("expected next page id 9, got %d", reloaded.NextPageID())
	}
}

func TestSlottedPageInsertFailsWhenFull(t *testing.T) {
	p := NewPage(1, PageTypeTable)
	sp := InitSlottedPage(p)

	big := make([]byte, len(p.Data))
	if _, err := sp.Insert(big); err == nil {
		t.Fatal("expected an error inserting a record that can't fit alongside its slot entry")
	}
}

func TestSlottedPageInsertRejectsEmptyRecord(t *testing.T) {
	p := NewPage(1, PageTypeTable)
	sp := InitSlottedPage(p)
	if _, err := sp.Insert(nil); err == nil {
		t.Fatal("expected an error inserting an empty record")
	}
}
