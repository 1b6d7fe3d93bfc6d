package index

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/relcore-db/relcore/pkg/heap"
	"github.com/relcore-db/relcore/pkg/storage"
)

// bucketPageHeaderSize: size (4) + maxSize (4) + keySize (4).
const bucketPageHeaderSize = 12

// ridSize is the on-disk width of a heap.RID: a page id (4 bytes) and a
// slot id (2 bytes).
const ridSize = 6

// bucketPage is an unordered array of (key, rid) entries, linearly
// probed on lookup/insert/remove.
type bucketPage struct {
	page    *storage.Page
	size    uint32
	maxSize uint32
	keySize uint32
}

func entrySize(keySize uint32) int { return int(keySize) + ridSize }

func initBucketPage(p *storage.Page, maxSize, keySize uint32) *bucketPage {
	bp := &bucketPage{page: p, maxSize: maxSize, keySize: keySize}
	need := bucketPageHeaderSize + int(maxSize)*entrySize(keySize)
	if need > len(p.Data) {
		panic(fmt.Sprintf("index: bucket page cannot hold max size %d at key size %d", maxSize, keySize))
	}
	bp.writeHeader()
	return bp
}

func loadBucketPage(p *storage.Page) *bucketPage {
	return &bucketPage{
		page:    p,
		size:    binary.LittleEndian.Uint32(p.Data[0:4]),
		maxSize: binary.LittleEndian.Uint32(p.Data[4:8]),
		keySize: binary.LittleEndian.Uint32(p.Data[8:12]),
	}
}

func (bp *bucketPage) writeHeader() {
	binary.LittleEndian.PutUint32(bp.page.Data[0:4], bp.size)
	binary.LittleEndian.PutUint32(bp.page.Data[4:8], bp.maxSize)
	binary.LittleEndian.PutUint32(bp.page.Data[8:12], bp.keySize)
	bp.page.MarkDirty()
}

func (bp *bucketPage) entryOffset(i uint32) int {
	return bucketPageHeaderSize + int(i)*entrySize(bp.keySize)
}

func (bp *bucketPage) keyAt(i uint32) []byte {
	off := bp.entryOffset(i)
	return bp.page.Data[off : off+int(bp.keySize)]
}

func (bp *bucketPage) ridAt(i uint32) heap.RID {
	off := bp.entryOffset(i) + int(bp.keySize)
	return heap.RID{
		PageID: storage.PageID(binary.LittleEndian.Uint32(bp.page.Data[off : off+4])),
		Slot:   storage.SlotID(binary.LittleEndian.Uint16(bp.page.Data[off+4 : off+6])),
	}
}

func (bp *bucketPage) writeEntryAt(i uint32, key []byte, rid heap.RID) {
	off := bp.entryOffset(i)
	copy(bp.page.Data[off:off+int(bp.keySize)], key)
	ridOff := off + int(bp.keySize)
	binary.LittleEndian.PutUint32(bp.page.Data[ridOff:ridOff+4], uint32(rid.PageID))
	binary.LittleEndian.PutUint16(bp.page.Data[ridOff+4:ridOff+6], uint16(rid.Slot))
	bp.page.MarkDirty()
}

// lookup linearly probes for key, returning its rid if present.
func (bp *bucketPage) lookup(key []byte) (heap.RID, bool) {
	for i := uint32(0); i < bp.size; i++ {
		if bytes.Equal(bp.keyAt(i), key) {
			return bp.ridAt(i), true
		}
	}
	return heap.RID{}, false
}

func (bp *bucketPage) isFull() bool  { return bp.size >= bp.maxSize }
func (bp *bucketPage) isEmpty() bool { return bp.size == 0 }

// insert appends an entry, returning false if the bucket is full or the
// key already exists.
func (bp *bucketPage) insert(key []byte, rid heap.RID) bool {
	if _, found := bp.lookup(key); found {
		return false
	}
	if bp.isFull() {
		return false
	}
	bp.writeEntryAt(bp.size, key, rid)
	bp.size++
	bp.writeHeader()
	return true
}

// remove deletes the entry for key, compacting the array by moving the
// last entry into the gap. Returns false if key wasn't found.
func (bp *bucketPage) remove(key []byte) bool {
	for i := uint32(0); i < bp.size; i++ {
		if !bytes.Equal(bp.keyAt(i), key) {
			continue
		}
		last := bp.size - 1
		if i != last {
			bp.writeEntryAt(i, bp.keyAt(last), bp.ridAt(last))
		}
		bp.size--
		bp.writeHeader()
		return true
	}
	return false
}

// bucketEntry is a materialized (key, rid) pair, used to migrate entries
// during a split.
type bucketEntry struct {
	key []byte
	rid heap.RID
}

// entries returns copies of every (key, rid) currently stored, for
// migration during a split.
func (bp *bucketPage) entries() []bucketEntry {
	out := make([]bucketEntry, bp.size)
	for i := uint32(0); i < bp.size; i++ {
		k := make([]byte, bp.keySize)
		copy(k, bp.keyAt(i))
		out[i] = bucketEntry{key: k, rid: bp.ridAt(i)}
	}
	return out
}

// clear empties the bucket in place, for reuse after migrating its
// entries out during a split.
func (bp *bucketPage) clear() {
	bp.size = 0
	bp.writeHeader()
}
