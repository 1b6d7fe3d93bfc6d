// Package storage implements the disk-resident page tier: fixed-size
// pages, a slotted layout for variable-length tuples, a single-worker
// disk scheduler, and a buffer pool with scoped page guards.
package storage

import (
	"encoding/binary"
	"fmt"
)

const (
	// PageSize is the fixed size of every on-disk page.
	PageSize = 4096

	// PageHeaderSize is the size of the raw page header written by
	// Serialize/Deserialize, ahead of the type-specific payload.
	PageHeaderSize = 24

	// InvalidPageID marks the absence of a page reference.
	InvalidPageID PageID = 0
)

// PageID is a dense, non-zero identifier for a persistent page.
type PageID uint32

// PageType tags how the pool-agnostic byte buffer should be interpreted.
// The pool itself never inspects this; it exists for callers and for
// on-disk bookkeeping (e.g. skipping non-data pages during compaction).
type PageType uint8

const (
	PageTypeInvalid PageType = iota
	PageTypeTable
	PageTypeHashHeader
	PageTypeHashDirectory
	PageTypeHashBucket
	PageTypeFreeList
)

func (t PageType) String() string {
	switch t {
	case PageTypeTable:
		return "table"
	case PageTypeHashHeader:
		return "hash-header"
	case PageTypeHashDirectory:
		return "hash-directory"
	case PageTypeHashBucket:
		return "hash-bucket"
	case PageTypeFreeList:
		return "free-list"
	default:
		return "invalid"
	}
}

// Page is a fixed-size in-memory buffer plus the bookkeeping the buffer
// pool needs: identity, pin count, dirty flag, and a checksum computed at
// serialization time. The payload (Data) is interpreted by the caller
// according to Type; the pool never looks inside it.
type Page struct {
	ID       PageID
	Type     PageType
	Data     []byte
	IsDirty  bool
	PinCount int
	LSN      uint64 // reserved for future recovery use; not interpreted
}

// NewPage allocates a zeroed page of the given id and type.
func NewPage(id PageID, t PageType) *Page {
	return &Page{
		ID:   id,
		Type: t,
		Data: make([]byte, PageSize-PageHeaderSize),
	}
}

// Pin increments the reference count preventing eviction.
func (p *Page) Pin() { p.PinCount++ }

// Unpin decrements the reference count. It is a no-op below zero; callers
// that need to detect the "already at zero" failure do so via the buffer
// pool, which tracks pin counts authoritatively.
func (p *Page) Unpin() {
	if p.PinCount > 0 {
		p.PinCount--
	}
}

// IsPinned reports whether the page has any outstanding pins.
func (p *Page) IsPinned() bool { return p.PinCount > 0 }

// MarkDirty records that the page's contents no longer match disk.
func (p *Page) MarkDirty() { p.IsDirty = true }

// Serialize produces the on-disk image of the page: a small header
// (id, type, LSN, checksum) followed by the raw data segment.
func (p *Page) Serialize() []byte {
	buf := make([]byte, PageSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(p.ID))
	buf[4] = byte(p.Type)
	binary.LittleEndian.PutUint64(buf[8:16], p.LSN)
	sum := checksum(p.Data)
	copy(buf[16:16+len(sum)], sum[:])
	copy(buf[PageHeaderSize:], p.Data)
	return buf
}

// Deserialize reconstructs a page from its on-disk image and verifies the
// stored checksum against the data segment, returning an error on
// mismatch (corruption or a short/garbage read).
func Deserialize(buf []byte) (*Page, error) {
	if len(buf) != PageSize {
		return nil, fmt.Errorf("storage: invalid page image size: got %d, want %d", len(buf), PageSize)
	}
	p := &Page{
		ID:   PageID(binary.LittleEndian.Uint32(buf[0:4])),
		Type: PageType(buf[4]),
		LSN:  binary.LittleEndian.Uint64(buf[8:16]),
		Data: make([]byte, PageSize-PageHeaderSize),
	}
	copy(p.Data, buf[PageHeaderSize:])
	var want checksumT
	copy(want[:], buf[16:16+len(want)])
	if want != checksum(p.Data) {
		return nil, fmt.Errorf("storage: checksum mismatch on page %d: corrupt page image", p.ID)
	}
	return p, nil
}
