// Package heap implements the table heap: a linked sequence of slotted
// pages storing (meta, payload) tuples, addressed by RID.
package heap

import (
	"encoding/binary"
	"fmt"

	"github.com/relcore-db/relcore/pkg/storage"
)

// RID identifies a tuple by the page it lives on and its slot within
// that page's directory.
type RID struct {
	PageID storage.PageID
	Slot   storage.SlotID
}

func (r RID) String() string { return fmt.Sprintf("(%d,%d)", r.PageID, r.Slot) }

// Invalid reports whether r names no tuple.
func (r RID) Invalid() bool { return r.PageID == storage.InvalidPageID }

// TupleMeta carries the MVCC visibility stamp for a tuple. Ts below
// TxnStartID is a commit timestamp; at or above it, it is the id of the
// transaction that owns the tuple's uncommitted write. IsDeleted marks a
// tombstone, which persists until GC.
type TupleMeta struct {
	Ts        uint64
	IsDeleted bool
}

const metaSize = 9 // 8-byte ts + 1-byte tombstone flag

func encodeRecord(meta TupleMeta, payload []byte) []byte {
	buf := make([]byte, metaSize+len(payload))
	binary.LittleEndian.PutUint64(buf[0:8], meta.Ts)
	if meta.IsDeleted {
		buf[8] = 1
	}
	copy(buf[metaSize:], payload)
	return buf
}

func decodeRecord(raw []byte) (TupleMeta, []byte) {
	meta := TupleMeta{Ts: binary.LittleEndian.Uint64(raw[0:8]), IsDeleted: raw[8] != 0}
	payload := make([]byte, len(raw)-metaSize)
	copy(payload, raw[metaSize:])
	return meta, payload
}

// TableHeap is a linked sequence of slotted pages. Tuples are immutable
// once placed: an update overwrites the slot at the same RID, and must
// fit within the slot's existing capacity (the spec requires growing
// tuples to be handled by the caller as insert-then-delete).
type TableHeap struct {
	pool      *storage.BufferPool
	firstPage storage.PageID
	lastPage  storage.PageID
}

// NewTableHeap creates an empty heap with a single initial page.
func NewTableHeap(pool *storage.BufferPool) (*TableHeap, error) {
	g := pool.NewPageGuarded()
	if g == nil {
		return nil, fmt.Errorf("heap: cannot allocate first page")
	}
	storage.InitSlottedPage(g.Page())
	g.MarkDirty()
	id := g.Page().ID
	g.Drop()
	return &TableHeap{pool: pool, firstPage: id, lastPage: id}, nil
}

// OpenTableHeap reopens a heap whose first/last page ids are already
// known (e.g. from the catalog).
func OpenTableHeap(pool *storage.BufferPool, firstPage, lastPage storage.PageID) *TableHeap {
	return &TableHeap{pool: pool, firstPage: firstPage, lastPage: lastPage}
}

// FirstPageID / LastPageID expose the heap's page chain endpoints for
// catalog persistence.
func (h *TableHeap) FirstPageID() storage.PageID { return h.firstPage }
func (h *TableHeap) LastPageID() storage.PageID  { return h.lastPage }

// InsertTuple appends a tuple to the last page in the chain, allocating
// a new page if it doesn't fit. Returns the absent RID only when even a
// fresh page can't hold the record (record larger than a page).
func (h *TableHeap) InsertTuple(meta TupleMeta, payload []byte) (RID, bool) {
	record := encodeRecord(meta, payload)

	g := h.pool.FetchPageGuarded(h.lastPage)
	if g == nil {
		return RID{}, false
	}
	sp, err := storage.LoadSlottedPage(g.Page())
	if err != nil {
		g.Drop()
		return RID{}, false
	}
	slot, err := sp.Insert(record)
	if err == nil {
		g.MarkDirty()
		rid := RID{PageID: g.Page().ID, Slot: slot}
		g.Drop()
		return rid, true
	}
	g.Drop()

	// Current last page is full: allocate a new one and link the chain.
	ng := h.pool.NewPageGuarded()
	if ng == nil {
		return RID{}, false
	}
	nsp := storage.InitSlottedPage(ng.Page())
	slot, err = nsp.Insert(record)
	if err != nil {
		ng.Drop()
		return RID{}, false
	}
	ng.MarkDirty()
	rid := RID{PageID: ng.Page().ID, Slot: slot}

	prev := h.pool.FetchPageGuarded(h.lastPage)
	if prev == nil {
		ng.Drop()
		return RID{}, false
	}
	prevSP, err := storage.LoadSlottedPage(prev.Page())
	if err != nil {
		prev.Drop()
		ng.Drop()
		return RID{}, false
	}
	prevSP.SetNextPageID(ng.Page().ID)
	prev.Drop()

	h.lastPage = ng.Page().ID
	ng.Drop()
	return rid, true
}

// UpdateTupleInPlace overwrites the payload at rid; size must fit the
// existing slot.
func (h *TableHeap) UpdateTupleInPlace(meta TupleMeta, payload []byte, rid RID) error {
	g := h.pool.FetchPageGuarded(rid.PageID)
	if g == nil {
		return fmt.Errorf("heap: page %d not resident", rid.PageID)
	}
	defer g.Drop()
	sp, err := storage.LoadSlottedPage(g.Page())
	if err != nil {
		return err
	}
	if err := sp.UpdateInPlace(rid.Slot, encodeRecord(meta, payload)); err != nil {
		return err
	}
	g.MarkDirty()
	return nil
}

// UpdateTupleMeta rewrites only the meta for rid, preserving payload
// bytes.
func (h *TableHeap) UpdateTupleMeta(meta TupleMeta, rid RID) error {
	g := h.pool.FetchPageGuarded(rid.PageID)
	if g == nil {
		return fmt.Errorf("heap: page %d not resident", rid.PageID)
	}
	defer g.Drop()
	sp, err := storage.LoadSlottedPage(g.Page())
	if err != nil {
		return err
	}
	raw, err := sp.Get(rid.Slot)
	if err != nil {
		return err
	}
	_, payload := decodeRecord(raw)
	if err := sp.UpdateInPlace(rid.Slot, encodeRecord(meta, payload)); err != nil {
		return err
	}
	g.MarkDirty()
	return nil
}

// GetTuple reads both meta and payload at rid.
func (h *TableHeap) GetTuple(rid RID) (TupleMeta, []byte, error) {
	g := h.pool.FetchPageGuarded(rid.PageID)
	if g == nil {
		return TupleMeta{}, nil, fmt.Errorf("heap: page %d not resident", rid.PageID)
	}
	defer g.Drop()
	sp, err := storage.LoadSlottedPage(g.Page())
	if err != nil {
		return TupleMeta{}, nil, err
	}
	raw, err := sp.Get(rid.Slot)
	if err != nil {
		return TupleMeta{}, nil, err
	}
	meta, payload := decodeRecord(raw)
	return meta, payload, nil
}

// GetTupleMeta reads only the meta at rid.
func (h *TableHeap) GetTupleMeta(rid RID) (TupleMeta, error) {
	meta, _, err := h.GetTuple(rid)
	return meta, err
}

// Iterator walks every slot in page/slot order, including tombstoned
// ones — the iterator itself never filters; that's the MVCC read rule's
// job, since a reader at an older snapshot may still need a tombstoned
// slot's version chain.
type Iterator struct {
	heap    *TableHeap
	page    storage.PageID
	slot    int
	slotMax int
	done    bool
}

// MakeIterator returns an iterator positioned before the first tuple.
func (h *TableHeap) MakeIterator() *Iterator {
	it := &Iterator{heap: h, page: h.firstPage, slot: -1}
	it.loadPageBounds()
	return it
}

func (it *Iterator) loadPageBounds() {
	g := it.heap.pool.FetchPageGuarded(it.page)
	if g == nil {
		it.done = true
		return
	}
	sp, err := storage.LoadSlottedPage(g.Page())
	g.Drop()
	if err != nil {
		it.done = true
		return
	}
	it.slotMax = int(sp.SlotCount())
}

// Next advances to the following slot, skipping to the next page in the
// chain when the current page is exhausted. Returns false at end of
// table.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	it.slot++
	for it.slot >= it.slotMax {
		next := it.nextPageID()
		if next == storage.InvalidPageID {
			it.done = true
			return false
		}
		it.page = next
		it.slot = 0
		it.loadPageBounds()
		if it.done {
			return false
		}
	}
	return true
}

// nextPageID looks up the chain successor recorded in the current
// page's header.
func (it *Iterator) nextPageID() storage.PageID {
	g := it.heap.pool.FetchPageGuarded(it.page)
	if g == nil {
		return storage.InvalidPageID
	}
	defer g.Drop()
	sp, err := storage.LoadSlottedPage(g.Page())
	if err != nil {
		return storage.InvalidPageID
	}
	return sp.NextPageID()
}

// RID returns the RID the iterator currently sits on.
func (it *Iterator) RID() RID {
	return RID{PageID: it.page, Slot: storage.SlotID(it.slot)}
}

// Tuple reads the meta and payload at the iterator's current position.
func (it *Iterator) Tuple() (TupleMeta, []byte, error) {
	return it.heap.GetTuple(it.RID())
}

// IsEnd reports whether the iterator has walked off the end of the
// table.
func (it *Iterator) IsEnd() bool { return it.done }
