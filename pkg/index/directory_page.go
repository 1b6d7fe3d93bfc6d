package index

import (
	"encoding/binary"
	"fmt"

	"github.com/relcore-db/relcore/pkg/storage"
)

// directoryPageHeaderSize: globalDepth (4) + maxDepth (4).
const directoryPageHeaderSize = 8

// directoryPage maps the low globalDepth bits of hash(key) to a bucket
// page id and records each slot's local depth. Slots sharing the low
// localDepth[i] bits of their index point at the same bucket (the
// core extendible-hashing invariant).
type directoryPage struct {
	page        *storage.Page
	globalDepth uint32
	maxDepth    uint32
}

func directoryEntrySize() int { return 4 + 1 } // bucket page id (4) + local depth (1)

func initDirectoryPage(p *storage.Page, maxDepth uint32) *directoryPage {
	dp := &directoryPage{page: p, maxDepth: maxDepth}
	need := directoryPageHeaderSize + (1<<maxDepth)*directoryEntrySize()
	if need > len(p.Data) {
		panic(fmt.Sprintf("index: directory page cannot hold max depth %d", maxDepth))
	}
	dp.writeHeader()
	for i := 0; i < 1<<maxDepth; i++ {
		dp.setBucketPageID(uint32(i), storage.InvalidPageID)
		dp.setLocalDepth(uint32(i), 0)
	}
	p.MarkDirty()
	return dp
}

func loadDirectoryPage(p *storage.Page) *directoryPage {
	return &directoryPage{
		page:        p,
		globalDepth: binary.LittleEndian.Uint32(p.Data[0:4]),
		maxDepth:    binary.LittleEndian.Uint32(p.Data[4:8]),
	}
}

func (dp *directoryPage) writeHeader() {
	binary.LittleEndian.PutUint32(dp.page.Data[0:4], dp.globalDepth)
	binary.LittleEndian.PutUint32(dp.page.Data[4:8], dp.maxDepth)
	dp.page.MarkDirty()
}

func (dp *directoryPage) entryOffset(idx uint32) int {
	return directoryPageHeaderSize + int(idx)*directoryEntrySize()
}

func (dp *directoryPage) bucketPageID(idx uint32) storage.PageID {
	off := dp.entryOffset(idx)
	return storage.PageID(binary.LittleEndian.Uint32(dp.page.Data[off : off+4]))
}

func (dp *directoryPage) setBucketPageID(idx uint32, id storage.PageID) {
	off := dp.entryOffset(idx)
	binary.LittleEndian.PutUint32(dp.page.Data[off:off+4], uint32(id))
	dp.page.MarkDirty()
}

func (dp *directoryPage) localDepth(idx uint32) uint32 {
	off := dp.entryOffset(idx) + 4
	return uint32(dp.page.Data[off])
}

func (dp *directoryPage) setLocalDepth(idx uint32, depth uint32) {
	off := dp.entryOffset(idx) + 4
	dp.page.Data[off] = byte(depth)
	dp.page.MarkDirty()
}

// size is the number of active directory slots: 2^globalDepth.
func (dp *directoryPage) size() uint32 { return 1 << dp.globalDepth }

// hashToBucketIndex extracts the low globalDepth bits of hash.
func (dp *directoryPage) hashToBucketIndex(hash uint32) uint32 {
	if dp.globalDepth == 0 {
		return 0
	}
	return hash & ((1 << dp.globalDepth) - 1)
}

// splitImageIndex returns the sibling slot that shares bucketIdx's bucket
// before a split, differing only in the bit just above its local depth.
func (dp *directoryPage) splitImageIndex(bucketIdx uint32) uint32 {
	depth := dp.localDepth(bucketIdx)
	if depth == 0 {
		return bucketIdx
	}
	return bucketIdx ^ (1 << (depth - 1))
}

// canGrow reports whether the directory may double without exceeding
// maxDepth.
func (dp *directoryPage) canGrow() bool { return dp.globalDepth < dp.maxDepth }

// grow doubles the directory, duplicating every slot's bucket id and
// local depth into its mirrored half.
func (dp *directoryPage) grow() {
	oldSize := dp.size()
	for i := uint32(0); i < oldSize; i++ {
		dp.setBucketPageID(oldSize+i, dp.bucketPageID(i))
		dp.setLocalDepth(oldSize+i, dp.localDepth(i))
	}
	dp.globalDepth++
	dp.writeHeader()
}

// canShrink reports whether every active slot's local depth is strictly
// below the global depth, meaning the directory may safely halve.
func (dp *directoryPage) canShrink() bool {
	for i := uint32(0); i < dp.size(); i++ {
		if dp.localDepth(i) >= dp.globalDepth {
			return false
		}
	}
	return true
}

func (dp *directoryPage) shrink() {
	dp.globalDepth--
	dp.writeHeader()
}
