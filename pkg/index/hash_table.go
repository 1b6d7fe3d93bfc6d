// Package index implements a disk-resident extendible hash index: a
// single header page, a growable set of directory pages, and bucket
// pages holding unordered (key, rid) arrays. Lookups and mutations
// latch-crab from header to directory to bucket, escalating to write
// latches on both directory and bucket together for splits and merges.
package index

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/relcore-db/relcore/pkg/heap"
	"github.com/relcore-db/relcore/pkg/storage"
)

// Config bounds an index's three page tiers.
type Config struct {
	HeaderMaxDepth    uint32
	DirectoryMaxDepth uint32
	BucketMaxSize     uint32
	KeySize           uint32
}

// DefaultConfig mirrors the common BusTub-style index sizing: a header
// wide enough that directory growth rarely reroutes under it, directory
// depth bounded well below a realistic fan-out, 8-byte keys.
func DefaultConfig() Config {
	return Config{
		HeaderMaxDepth:    9,
		DirectoryMaxDepth: 9,
		BucketMaxSize:     32,
		KeySize:           8,
	}
}

// HashTable is a disk-backed extendible hash index over fixed-width
// byte-slice keys, mapping each key to at most one heap.RID.
type HashTable struct {
	pool         *storage.BufferPool
	headerPageID storage.PageID
	cfg          Config
}

// New allocates a fresh header page and returns the empty index.
func New(pool *storage.BufferPool, cfg Config) (*HashTable, error) {
	g := pool.NewPageGuarded()
	if g == nil {
		return nil, fmt.Errorf("index: cannot allocate header page")
	}
	initHeaderPage(g.Page(), cfg.HeaderMaxDepth)
	id := g.Page().ID
	g.Drop()
	return &HashTable{pool: pool, headerPageID: id, cfg: cfg}, nil
}

// Open reattaches to an existing index by its header page id (e.g. from
// the catalog).
func Open(pool *storage.BufferPool, headerPageID storage.PageID, cfg Config) *HashTable {
	return &HashTable{pool: pool, headerPageID: headerPageID, cfg: cfg}
}

// HeaderPageID exposes the index's root page for catalog persistence.
func (ht *HashTable) HeaderPageID() storage.PageID { return ht.headerPageID }

func (ht *HashTable) hash(key []byte) uint32 {
	return uint32(xxhash.Sum64(key))
}

func (ht *HashTable) normalizeKey(key []byte) []byte {
	k := make([]byte, ht.cfg.KeySize)
	copy(k, key)
	return k
}

// GetValue returns the rid stored for key, if any.
func (ht *HashTable) GetValue(key []byte) (heap.RID, bool) {
	key = ht.normalizeKey(key)
	hash := ht.hash(key)

	hg := ht.pool.FetchPageRead(ht.headerPageID)
	if hg == nil {
		return heap.RID{}, false
	}
	hp := loadHeaderPage(hg.Page())
	dirID := hp.directoryPageID(hp.hashToDirectoryIndex(hash))
	hg.Drop()
	if dirID == storage.InvalidPageID {
		return heap.RID{}, false
	}

	dg := ht.pool.FetchPageRead(dirID)
	if dg == nil {
		return heap.RID{}, false
	}
	dp := loadDirectoryPage(dg.Page())
	bucketID := dp.bucketPageID(dp.hashToBucketIndex(hash))
	dg.Drop()
	if bucketID == storage.InvalidPageID {
		return heap.RID{}, false
	}

	bg := ht.pool.FetchPageRead(bucketID)
	if bg == nil {
		return heap.RID{}, false
	}
	defer bg.Drop()
	bp := loadBucketPage(bg.Page())
	return bp.lookup(key)
}

// Insert adds key→rid. Reports false on a duplicate key or when the
// directory has exhausted its configured max depth and a needed split
// cannot proceed.
func (ht *HashTable) Insert(key []byte, rid heap.RID) bool {
	key = ht.normalizeKey(key)
	hash := ht.hash(key)

	hg := ht.pool.FetchPageWrite(ht.headerPageID)
	if hg == nil {
		return false
	}
	hp := loadHeaderPage(hg.Page())
	dirIdx := hp.hashToDirectoryIndex(hash)
	dirID := hp.directoryPageID(dirIdx)

	if dirID == storage.InvalidPageID {
		ndg := ht.pool.NewPageGuarded()
		if ndg == nil {
			hg.Drop()
			return false
		}
		initDirectoryPage(ndg.Page(), ht.cfg.DirectoryMaxDepth)
		newDirID := ndg.Page().ID

		nbg := ht.pool.NewPageGuarded()
		if nbg == nil {
			ndg.Drop()
			hg.Drop()
			return false
		}
		initBucketPage(nbg.Page(), ht.cfg.BucketMaxSize, ht.cfg.KeySize)
		newBucketID := nbg.Page().ID
		nbg.Drop()

		dp0 := loadDirectoryPage(ndg.Page())
		dp0.setBucketPageID(0, newBucketID)
		ndg.Drop()

		hp.setDirectoryPageID(dirIdx, newDirID)
		dirID = newDirID
	}
	hg.Drop()

	return ht.insertIntoDirectory(dirID, hash, key, rid)
}

// insertIntoDirectory runs the bucket-probe/split loop once a directory
// id is known. Recursion terminates because each split either makes
// room or hits directoryMaxDepth.
func (ht *HashTable) insertIntoDirectory(dirID storage.PageID, hash uint32, key []byte, rid heap.RID) bool {
	for {
		dg := ht.pool.FetchPageWrite(dirID)
		if dg == nil {
			return false
		}
		dp := loadDirectoryPage(dg.Page())
		bucketIdx := dp.hashToBucketIndex(hash)
		bucketID := dp.bucketPageID(bucketIdx)

		bg := ht.pool.FetchPageWrite(bucketID)
		if bg == nil {
			dg.Drop()
			return false
		}
		bp := loadBucketPage(bg.Page())

		if _, found := bp.lookup(key); found {
			bg.Drop()
			dg.Drop()
			return false
		}
		if !bp.isFull() {
			ok := bp.insert(key, rid)
			bg.Drop()
			dg.Drop()
			return ok
		}

		// Bucket full: split.
		oldLocalDepth := dp.localDepth(bucketIdx)
		if oldLocalDepth == dp.globalDepth {
			if !dp.canGrow() {
				bg.Drop()
				dg.Drop()
				return false
			}
			dp.grow()
		}

		nbg := ht.pool.NewPageGuarded()
		if nbg == nil {
			bg.Drop()
			dg.Drop()
			return false
		}
		initBucketPage(nbg.Page(), ht.cfg.BucketMaxSize, ht.cfg.KeySize)
		newBucketPage := loadBucketPage(nbg.Page())
		newBucketID := nbg.Page().ID
		newLocalDepth := oldLocalDepth + 1
		splitBit := uint32(1) << oldLocalDepth

		// Rewire every directory slot currently pointing at the old
		// bucket: bump its local depth, and send it to the new bucket
		// if its index has the newly-significant bit set.
		for i := uint32(0); i < dp.size(); i++ {
			if dp.bucketPageID(i) != bucketID {
				continue
			}
			dp.setLocalDepth(i, newLocalDepth)
			if i&splitBit != 0 {
				dp.setBucketPageID(i, newBucketID)
			}
		}

		// Rehash the old bucket's entries across the two buckets.
		old := loadBucketPage(bg.Page())
		entries := old.entries()
		old.clear()
		for _, e := range entries {
			h := ht.hash(e.key)
			if h&splitBit != 0 {
				newBucketPage.insert(e.key, e.rid)
			} else {
				old.insert(e.key, e.rid)
			}
		}

		bg.Drop()
		nbg.Drop()
		dg.Drop()
		// Retry: the target bucket for this key may now be either half.
	}
}

// Remove deletes key, merging the emptied bucket back toward its split
// image where the invariant allows it. Reports false if key wasn't
// present.
func (ht *HashTable) Remove(key []byte) bool {
	key = ht.normalizeKey(key)
	hash := ht.hash(key)

	hg := ht.pool.FetchPageRead(ht.headerPageID)
	if hg == nil {
		return false
	}
	hp := loadHeaderPage(hg.Page())
	dirID := hp.directoryPageID(hp.hashToDirectoryIndex(hash))
	hg.Drop()
	if dirID == storage.InvalidPageID {
		return false
	}

	dg := ht.pool.FetchPageWrite(dirID)
	if dg == nil {
		return false
	}
	dp := loadDirectoryPage(dg.Page())
	bucketIdx := dp.hashToBucketIndex(hash)
	bucketID := dp.bucketPageID(bucketIdx)
	if bucketID == storage.InvalidPageID {
		dg.Drop()
		return false
	}

	bg := ht.pool.FetchPageWrite(bucketID)
	if bg == nil {
		dg.Drop()
		return false
	}
	bp := loadBucketPage(bg.Page())
	removed := bp.remove(key)
	empty := bp.isEmpty()
	bg.Drop()
	dg.Drop()
	if !removed {
		return false
	}
	if empty {
		ht.merge(dirID, bucketIdx)
	}
	return true
}

// merge collapses an emptied bucket into its split image, shrinking the
// directory where possible, and recurses if the image is also empty.
func (ht *HashTable) merge(dirID storage.PageID, bucketIdx uint32) {
	dg := ht.pool.FetchPageWrite(dirID)
	if dg == nil {
		return
	}
	dp := loadDirectoryPage(dg.Page())

	emptyBucketID := dp.bucketPageID(bucketIdx)
	imageIdx := dp.splitImageIndex(bucketIdx)
	if dp.localDepth(bucketIdx) != dp.localDepth(imageIdx) {
		dg.Drop()
		return
	}
	imageBucketID := dp.bucketPageID(imageIdx)
	newLocalDepth := uint32(0)
	if dp.localDepth(bucketIdx) > 0 {
		newLocalDepth = dp.localDepth(bucketIdx) - 1
	}

	for i := uint32(0); i < dp.size(); i++ {
		if dp.bucketPageID(i) == emptyBucketID || dp.bucketPageID(i) == imageBucketID {
			dp.setBucketPageID(i, imageBucketID)
			dp.setLocalDepth(i, newLocalDepth)
		}
	}

	if emptyBucketID != storage.InvalidPageID && emptyBucketID != imageBucketID {
		_ = ht.pool.DeletePage(emptyBucketID)
	}

	canShrink := dp.canShrink()
	if canShrink && dp.globalDepth > 0 {
		dp.shrink()
	}
	nowGlobalZero := dp.globalDepth == 0
	size := dp.size()
	dg.Drop()

	imageBG := ht.pool.FetchPageRead(imageBucketID)
	imageEmpty := false
	if imageBG != nil {
		imageEmpty = loadBucketPage(imageBG.Page()).isEmpty()
		imageBG.Drop()
	}

	if nowGlobalZero && imageEmpty {
		ht.clearDirectory(dirID, imageBucketID)
		return
	}
	if canShrink && imageEmpty {
		ht.merge(dirID, imageIdx%size)
	}
}

// clearDirectory frees the last bucket, the directory page, and the
// header slot pointing at it, once global depth has collapsed to zero
// and the sole remaining bucket is empty.
func (ht *HashTable) clearDirectory(dirID storage.PageID, lastBucketID storage.PageID) {
	hg := ht.pool.FetchPageWrite(ht.headerPageID)
	if hg == nil {
		return
	}
	hp := loadHeaderPage(hg.Page())
	for i := uint32(0); i < uint32(1)<<hp.maxDepth; i++ {
		if hp.directoryPageID(i) == dirID {
			hp.setDirectoryPageID(i, storage.InvalidPageID)
		}
	}
	hg.Drop()

	_ = ht.pool.DeletePage(lastBucketID)
	_ = ht.pool.DeletePage(dirID)
}

// ScanKey looks up key and returns its RID as a single-element slice
// (or none), matching the vector-returning contract a unique index
// exposes to callers that don't want to special-case cardinality.
func (ht *HashTable) ScanKey(key []byte) []heap.RID {
	if rid, ok := ht.GetValue(key); ok {
		return []heap.RID{rid}
	}
	return nil
}

// Stats reports index sizing for observability.
func (ht *HashTable) Stats() map[string]interface{} {
	return map[string]interface{}{
		"header_page_id": ht.headerPageID,
		"key_size":       ht.cfg.KeySize,
		"bucket_max":     ht.cfg.BucketMaxSize,
	}
}
