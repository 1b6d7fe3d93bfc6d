package storage

import (
	"encoding/binary"
	"fmt"
)

const (
	slottedHeaderSize = 12 // slotCount(2) + freeStart(2) + freeEnd(2) + fragmented(2) + nextPageID(4)
	slotEntrySize     = 5  // offset(2) + length(2) + flags(1)

	slotFlagDeleted = byte(1 << 0)

	// compactionThreshold is the fragmentation ratio above which Insert
	// runs an automatic Compact() before placing the new record.
	compactionThreshold = 0.25
)

// SlotID identifies a slot within a single page's directory.
type SlotID uint16

type slotEntry struct {
	offset uint16
	length uint16
	flags  byte
}

func (s slotEntry) deleted() bool { return s.flags&slotFlagDeleted != 0 }

// SlottedPage lays out variable-length byte records inside a Page's data
// segment: a small header, a slot directory growing down from the top,
// and record bytes growing up from the bottom. The table heap stores
// (meta, payload) tuples through this layer; the layer itself is payload
// agnostic, matching the buffer pool's type-agnostic frames.
type SlottedPage struct {
	page            *Page
	slotCount       uint16
	freeStart       uint16
	freeEnd         uint16
	fragmentedSpace uint16
	nextPageID      PageID
	slots           []slotEntry
}

// NextPageID returns the heap page chain successor, or InvalidPageID if
// this is the last page.
func (sp *SlottedPage) NextPageID() PageID { return sp.nextPageID }

// SetNextPageID links this page to its chain successor.
func (sp *SlottedPage) SetNextPageID(id PageID) {
	sp.nextPageID = id
	sp.writeHeader()
	sp.page.MarkDirty()
}

// InitSlottedPage initializes a brand-new page's data segment as an
// empty slotted page.
func InitSlottedPage(p *Page) *SlottedPage {
	sp := &SlottedPage{page: p, freeEnd: uint16(len(p.Data))}
	sp.writeHeader()
	return sp
}

// LoadSlottedPage parses an existing page's data segment as a slotted
// page.
func LoadSlottedPage(p *Page) (*SlottedPage, error) {
	if len(p.Data) < slottedHeaderSize {
		return nil, fmt.Errorf("storage: page too small for slotted header")
	}
	sp := &SlottedPage{page: p}
	sp.slotCount = binary.LittleEndian.Uint16(p.Data[0:2])
	sp.freeStart = binary.LittleEndian.Uint16(p.Data[2:4])
	sp.freeEnd = binary.LittleEndian.Uint16(p.Data[4:6])
	sp.fragmentedSpace = binary.LittleEndian.Uint16(p.Data[6:8])
	sp.nextPageID = PageID(binary.LittleEndian.Uint32(p.Data[8:12]))

	sp.slots = make([]slotEntry, sp.slotCount)
	for i := uint16(0); i < sp.slotCount; i++ {
		off := slottedHeaderSize + int(i)*slotEntrySize
		if off+slotEntrySize > len(p.Data) {
			return nil, fmt.Errorf("storage: slot directory extends beyond page")
		}
		sp.slots[i] = slotEntry{
			offset: binary.LittleEndian.Uint16(p.Data[off : off+2]),
			length: binary.LittleEndian.Uint16(p.Data[off+2 : off+4]),
			flags:  p.Data[off+4],
		}
	}
	return sp, nil
}

func (sp *SlottedPage) writeHeader() {
	binary.LittleEndian.PutUint16(sp.page.Data[0:2], sp.slotCount)
	binary.LittleEndian.PutUint16(sp.page.Data[2:4], sp.freeStart)
	binary.LittleEndian.PutUint16(sp.page.Data[4:6], sp.freeEnd)
	binary.LittleEndian.PutUint16(sp.page.Data[6:8], sp.fragmentedSpace)
	binary.LittleEndian.PutUint32(sp.page.Data[8:12], uint32(sp.nextPageID))
}

func (sp *SlottedPage) writeSlot(id SlotID, s slotEntry) {
	off := slottedHeaderSize + int(id)*slotEntrySize
	binary.LittleEndian.PutUint16(sp.page.Data[off:off+2], s.offset)
	binary.LittleEndian.PutUint16(sp.page.Data[off+2:off+4], s.length)
	sp.page.Data[off+4] = s.flags
}

// contiguousFree is the space between the end of the slot directory and
// the start of record data.
func (sp *SlottedPage) contiguousFree() int {
	c := int(sp.freeEnd) - int(sp.freeStart)
	if c < 0 {
		return 0
	}
	return c
}

// NeedsCompaction reports whether fragmentation has crossed the
// threshold that makes an automatic compaction worthwhile.
func (sp *SlottedPage) NeedsCompaction() bool {
	if sp.fragmentedSpace == 0 {
		return false
	}
	return float64(sp.fragmentedSpace)/float64(len(sp.page.Data)) > compactionThreshold
}

// Insert appends data into a new slot, compacting first if fragmentation
// warrants it. Returns the new slot id, or an error if there isn't room.
func (sp *SlottedPage) Insert(data []byte) (SlotID, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("storage: cannot insert empty record")
	}
	if sp.NeedsCompaction() {
		sp.Compact()
	}
	needed := len(data) + slotEntrySize
	if sp.contiguousFree() < needed {
		return 0, fmt.Errorf("storage: insufficient space: need %d, have %d", needed, sp.contiguousFree())
	}

	id := SlotID(sp.slotCount)
	sp.slotCount++
	sp.freeStart = slottedHeaderSize + sp.slotCount*slotEntrySize
	sp.freeEnd -= uint16(len(data))

	s := slotEntry{offset: sp.freeEnd, length: uint16(len(data))}
	sp.slots = append(sp.slots, s)
	copy(sp.page.Data[s.offset:int(s.offset)+len(data)], data)
	sp.writeSlot(id, s)
	sp.writeHeader()
	sp.page.MarkDirty()
	return id, nil
}

// Get returns the record stored at slotID, including tombstoned ones —
// callers that must skip tombstones (none at this layer; that's an MVCC
// / executor concern) do so above this layer.
func (sp *SlottedPage) Get(id SlotID) ([]byte, error) {
	if int(id) >= len(sp.slots) {
		return nil, fmt.Errorf("storage: invalid slot %d", id)
	}
	s := sp.slots[id]
	out := make([]byte, s.length)
	copy(out, sp.page.Data[s.offset:int(s.offset)+int(s.length)])
	return out, nil
}

// IsDeleted reports the slot's tombstone flag (distinct from MVCC's
// tombstone bit carried inside the record payload; this one means the
// slot itself has been physically reclaimed).
func (sp *SlottedPage) IsDeleted(id SlotID) bool {
	if int(id) >= len(sp.slots) {
		return true
	}
	return sp.slots[id].deleted()
}

// UpdateInPlace overwrites a slot's bytes. The new data must fit within
// the slot's existing length; growing a record requires the caller to
// insert a new slot and delete the old one (spec §4.5).
func (sp *SlottedPage) UpdateInPlace(id SlotID, data []byte) error {
	if int(id) >= len(sp.slots) {
		return fmt.Errorf("storage: invalid slot %d", id)
	}
	s := &sp.slots[id]
	if len(data) > int(s.length) {
		return fmt.Errorf("storage: update of %d bytes does not fit existing slot of %d bytes", len(data), s.length)
	}
	copy(sp.page.Data[s.offset:int(s.offset)+len(data)], data)
	if len(data) < int(s.length) {
		sp.fragmentedSpace += s.length - uint16(len(data))
		s.length = uint16(len(data))
	}
	sp.writeSlot(id, *s)
	sp.writeHeader()
	sp.page.MarkDirty()
	return nil
}

// Delete marks a slot as physically reclaimed.
func (sp *SlottedPage) Delete(id SlotID) error {
	if int(id) >= len(sp.slots) {
		return fmt.Errorf("storage: invalid slot %d", id)
	}
	s := &sp.slots[id]
	if s.deleted() {
		return nil
	}
	s.flags |= slotFlagDeleted
	sp.fragmentedSpace += s.length
	sp.writeSlot(id, *s)
	sp.writeHeader()
	sp.page.MarkDirty()
	return nil
}

// SlotCount returns the number of slots, including deleted ones (slot
// ids are stable once assigned; iteration order is page/slot order).
func (sp *SlottedPage) SlotCount() uint16 { return sp.slotCount }

// Compact removes deleted slots' storage and repacks live record bytes
// contiguously. Live slot ids are NOT renumbered: the slot count stays
// fixed and only the dead slots' record bytes are reclaimed. Deleted
// slots keep their directory entries, still flagged deleted, with their
// old offset and length left unchanged (they no longer point at their
// former record). This preserves RID stability, which the table heap's
// contract requires.
func (sp *SlottedPage) Compact() {
	type kept struct {
		id   int
		data []byte
	}
	live := make([]kept, 0, len(sp.slots))
	for i, s := range sp.slots {
		if s.deleted() {
			continue
		}
		data := make([]byte, s.length)
		copy(data, sp.page.Data[s.offset:int(s.offset)+int(s.length)])
		live = append(live, kept{id: i, data: data})
	}

	end := uint16(len(sp.page.Data))
	for i := len(live) - 1; i >= 0; i-- {
		l := live[i]
		end -= uint16(len(l.data))
		copy(sp.page.Data[end:int(end)+len(l.data)], l.data)
		sp.slots[l.id].offset = end
	}
	sp.freeEnd = end
	sp.fragmentedSpace = 0
	for i, s := range sp.slots {
		sp.writeSlot(SlotID(i), s)
	}
	sp.writeHeader()
	sp.page.MarkDirty()
}

// Page returns the underlying page.
func (sp *SlottedPage) Page() *Page { return sp.page }
