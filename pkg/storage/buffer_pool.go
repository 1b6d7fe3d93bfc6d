package storage

import (
	"fmt"
	"sync"

	"github.com/relcore-db/relcore/pkg/replacer"
)

// frame is a cell in the buffer pool's fixed-size array: at most one page
// resident at a time, plus the latch backing that page's guards.
type frame struct {
	page  *Page
	latch *pageLatch
}

// BufferPool owns a fixed array of frames and maps resident page ids to
// them. It pins/unpins, fetches/creates/flushes/deletes pages, and hands
// out scoped guards. A single mutex guards all pool state; I/O is
// performed while holding it, per spec §4.3's documented trade-off.
type BufferPool struct {
	mu         sync.Mutex
	frames     []*frame
	freeList   []replacer.FrameID
	pageTable  map[PageID]replacer.FrameID
	repl       *replacer.LRUK
	scheduler  *DiskScheduler
	disk       *DiskManager
}

// NewBufferPool creates a pool of the given size backed by disk, with a
// replacer remembering up to k accesses per frame.
func NewBufferPool(poolSize int, disk *DiskManager, k int) *BufferPool {
	bp := &BufferPool{
		frames:    make([]*frame, poolSize),
		pageTable: make(map[PageID]replacer.FrameID, poolSize),
		repl:      replacer.New(poolSize, k),
		disk:      disk,
		scheduler: NewDiskScheduler(disk, poolSize),
	}
	for i := 0; i < poolSize; i++ {
		bp.freeList = append(bp.freeList, replacer.FrameID(i))
	}
	return bp
}

// Shutdown stops the backing disk scheduler. Call once, after all guards
// have been dropped.
func (bp *BufferPool) Shutdown() { bp.scheduler.Shutdown() }

// latchFor returns the latch for a resident page. Must be called with a
// pin already held on id (so the frame cannot be reassigned underfoot).
func (bp *BufferPool) latchFor(id PageID) *pageLatch {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	fid := bp.pageTable[id]
	return bp.frames[fid].latch
}

// acquireFrame finds a frame to host a new resident page: the free list
// first, else an evicted frame (flushing it first if dirty). Must be
// called with bp.mu held.
func (bp *BufferPool) acquireFrame() (replacer.FrameID, error) {
	if n := len(bp.freeList); n > 0 {
		fid := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		bp.frames[fid] = &frame{latch: &pageLatch{}}
		return fid, nil
	}
	fid, ok := bp.repl.Evict()
	if !ok {
		return 0, fmt.Errorf("storage: no evictable frame available")
	}
	victim := bp.frames[fid]
	if victim.page.IsDirty {
		bp.scheduler.ScheduleWrite(victim.page)
	}
	delete(bp.pageTable, victim.page.ID)
	bp.frames[fid] = &frame{latch: &pageLatch{}}
	return fid, nil
}

// NewPageGuarded allocates a fresh page and returns it pinned, with no
// latch held. Returns nil if no frame can be acquired.
func (bp *BufferPool) NewPageGuarded() *BasicPageGuard {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, err := bp.acquireFrame()
	if err != nil {
		return nil
	}
	id, err := bp.disk.AllocatePage()
	if err != nil {
		return nil
	}
	page := NewPage(id, PageTypeTable)
	page.Pin()
	bp.frames[fid].page = page
	bp.pageTable[id] = fid
	bp.repl.RecordAccess(fid)
	_ = bp.repl.SetEvictable(fid, false)
	return &BasicPageGuard{pool: bp, page: page}
}

// FetchPageGuarded returns the requested page pinned, with no latch
// held, reading it from disk if not already resident. Returns nil if the
// page cannot be brought in (no evictable frame).
func (bp *BufferPool) FetchPageGuarded(id PageID) *BasicPageGuard {
	bp.mu.Lock()
	if fid, ok := bp.pageTable[id]; ok {
		f := bp.frames[fid]
		f.page.Pin()
		bp.repl.RecordAccess(fid)
		_ = bp.repl.SetEvictable(fid, false)
		bp.mu.Unlock()
		return &BasicPageGuard{pool: bp, page: f.page}
	}

	fid, err := bp.acquireFrame()
	if err != nil {
		bp.mu.Unlock()
		return nil
	}
	page := NewPage(id, PageTypeTable)
	bp.scheduler.ScheduleRead(id, page)
	page.Pin()
	bp.frames[fid].page = page
	bp.pageTable[id] = fid
	bp.repl.RecordAccess(fid)
	_ = bp.repl.SetEvictable(fid, false)
	bp.mu.Unlock()
	return &BasicPageGuard{pool: bp, page: page}
}

// FetchPageRead fetches and returns the page already wrapped in a
// read-latched guard.
func (bp *BufferPool) FetchPageRead(id PageID) *ReadPageGuard {
	g := bp.FetchPageGuarded(id)
	if g == nil {
		return nil
	}
	return g.UpgradeRead()
}

// FetchPageWrite fetches and returns the page already wrapped in a
// write-latched guard.
func (bp *BufferPool) FetchPageWrite(id PageID) *WritePageGuard {
	g := bp.FetchPageGuarded(id)
	if g == nil {
		return nil
	}
	return g.UpgradeWrite()
}

// UnpinPage decrements a page's pin count, marking the frame evictable
// once it reaches zero, and ORs in the dirty flag. Fails for an unknown
// page or a pin count already at zero — both indicate a caller bug.
func (bp *BufferPool) UnpinPage(id PageID, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	fid, ok := bp.pageTable[id]
	if !ok {
		return fmt.Errorf("storage: unpin of non-resident page %d", id)
	}
	f := bp.frames[fid]
	if f.page.PinCount == 0 {
		return fmt.Errorf("storage: double unpin of page %d", id)
	}
	f.page.Unpin()
	if isDirty {
		f.page.MarkDirty()
	}
	if f.page.PinCount == 0 {
		_ = bp.repl.SetEvictable(fid, true)
	}
	return nil
}

// FlushPage writes a resident page to disk if dirty, idempotently.
func (bp *BufferPool) FlushPage(id PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	fid, ok := bp.pageTable[id]
	if !ok {
		return fmt.Errorf("storage: flush of non-resident page %d", id)
	}
	f := bp.frames[fid]
	if f.page.IsDirty {
		bp.scheduler.ScheduleWrite(f.page)
		f.page.IsDirty = false
	}
	return nil
}

// FlushAllPages flushes every resident dirty page.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	ids := make([]PageID, 0, len(bp.pageTable))
	for id := range bp.pageTable {
		ids = append(ids, id)
	}
	bp.mu.Unlock()
	for _, id := range ids {
		if err := bp.FlushPage(id); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage removes a page from the pool and frees its disk id.
// Succeeds trivially if the page isn't resident; fails if it is pinned.
func (bp *BufferPool) DeletePage(id PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if fid, ok := bp.pageTable[id]; ok {
		f := bp.frames[fid]
		if f.page.IsPinned() {
			return fmt.Errorf("storage: cannot delete pinned page %d", id)
		}
		if f.page.IsDirty {
			bp.scheduler.ScheduleWrite(f.page)
		}
		_ = bp.repl.Remove(fid)
		delete(bp.pageTable, id)
		bp.freeList = append(bp.freeList, fid)
		bp.frames[fid] = nil
	}
	return bp.disk.DeallocatePage(id)
}

// Stats reports pool occupancy for observability.
func (bp *BufferPool) Stats() map[string]interface{} {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return map[string]interface{}{
		"capacity":  len(bp.frames),
		"resident":  len(bp.pageTable),
		"evictable": bp.repl.Size(),
	}
}
