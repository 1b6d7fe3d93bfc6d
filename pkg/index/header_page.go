package index

import (
	"encoding/binary"
	"fmt"

	"github.com/relcore-db/relcore/pkg/storage"
)

// headerPageHeaderSize is the fixed prefix before the directory-id array:
// maxDepth (4 bytes, padded from a byte for alignment).
const headerPageHeaderSize = 4

// headerPage is the single top-level page of an extendible hash index. It
// is indexed by the top maxDepth bits of hash(key); each cell names the
// directory page responsible for that prefix, or InvalidPageID if no
// directory has been allocated under it yet.
type headerPage struct {
	page     *storage.Page
	maxDepth uint32
}

func initHeaderPage(p *storage.Page, maxDepth uint32) *headerPage {
	hp := &headerPage{page: p, maxDepth: maxDepth}
	need := headerPageHeaderSize + (1<<maxDepth)*4
	if need > len(p.Data) {
		panic(fmt.Sprintf("index: header page cannot hold max depth %d", maxDepth))
	}
	binary.LittleEndian.PutUint32(p.Data[0:4], maxDepth)
	for i := 0; i < 1<<maxDepth; i++ {
		binary.LittleEndian.PutUint32(p.Data[headerPageHeaderSize+i*4:headerPageHeaderSize+i*4+4], uint32(storage.InvalidPageID))
	}
	p.MarkDirty()
	return hp
}

func loadHeaderPage(p *storage.Page) *headerPage {
	maxDepth := binary.LittleEndian.Uint32(p.Data[0:4])
	return &headerPage{page: p, maxDepth: maxDepth}
}

// hashToDirectoryIndex extracts the top maxDepth bits of hash.
func (hp *headerPage) hashToDirectoryIndex(hash uint32) uint32 {
	if hp.maxDepth == 0 {
		return 0
	}
	return hash >> (32 - hp.maxDepth)
}

func (hp *headerPage) directoryPageID(idx uint32) storage.PageID {
	off := headerPageHeaderSize + int(idx)*4
	return storage.PageID(binary.LittleEndian.Uint32(hp.page.Data[off : off+4]))
}

func (hp *headerPage) setDirectoryPageID(idx uint32, id storage.PageID) {
	off := headerPageHeaderSize + int(idx)*4
	binary.LittleEndian.PutUint32(hp.page.Data[off:off+4], uint32(id))
	hp.page.MarkDirty()
}
