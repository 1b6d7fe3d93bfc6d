package storage

import "testing"

func TestNewPageAllocatesFullDataSegment(t *testing.T) {
	p := NewPage(1, PageTypeTable)
	if len(p.Data) != PageSize-PageHeaderSize {
		t.Fatalf("expected data segment of %d bytes, got %d", PageSize-PageHeaderSize, len(p.Data))
	}
	if p.IsPinned() {
		t.Fatal("expected a fresh page to be unpinned")
	}
}

func TestPagePinUnpinTracksCount(t *testing.T) {
	p := NewPage(1, PageTypeTable)
	p.Pin()
	p.Pin()
	if p.PinCount != 2 {
		t.Fatalf("expected pin count 2, got %d", p.PinCount)
	}
	p.Unpin()
	if !p.IsPinned() {
		t.Fatal("expected page to still be pinned")
	}
	p.Unpin()
	if p.IsPinned() {
		t.Fatal("expected page to be unpinned")
	}
	p.Unpin()
	if p.PinCount != 0 {
		t.Fatalf("expected unpin below zero to be a no-op, got %d", p.PinCount)
	}
}

func TestSerializeDeserializeRoundTrips(t *testing.T) {
	p := NewPage(42, PageTypeHashBucket)
	copy(p.Data, []byte("some page contents"))
	p.LSN = 7

	raw := p.Serialize()
	if len(raw) != PageSize {
		t.Fatalf("expected serialized image of %d bytes, got %d", PageSize, len(raw))
	}

	got, err := Deserialize(raw)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.ID != p.ID || got.Type != p.Type || got.LSN != p.LSN {
		t.Fatalf("round trip mismatch: got %+v, want id=%d type=%d lsn=%d", got, p.ID, p.Type, p.LSN)
	}
	for i := range p.Data {
		if got.Data[i] != p.Data[i] {
			t.Fatalf("data mismatch at byte %d: got %d, want %d", i, got.Data[i], p.Data[i])
		}
	}
}

func TestDeserializeRejectsWrongSize(t *testing.T) {
	if _, err := Deserialize(make([]byte, PageSize-1)); err == nil {
		t.Fatal("expected an error for a short buffer")
	}
}

func TestDeserializeRejectsCorruptChecksum(t *testing.T) {
	p := NewPage(1, PageTypeTable)
	copy(p.Data, []byte("original"))
	raw := p.Serialize()
	raw[PageHeaderSize] ^= 0xFF // flip a data byte after the checksum was computed

	if _, err := Deserialize(raw); err == nil {
		t.Fatal("expected a checksum mismatch error")
	}
}

func TestPageTypeStringNamesEveryType(t *testing.T) {
	cases := map[PageType]string{
		PageTypeInvalid:       "invalid",
		PageTypeTable:         "table",
		PageTypeHashHeader:    "hash-header",
		PageTypeHashDirectory: "hash-directory",
		PageTypeHashBucket:    "hash-bucket",
		PageTypeFreeList:      "free-list",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("PageType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}
