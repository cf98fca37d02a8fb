package storage

import (
	"sync"
	"time"
)

// DefaultReplacerK is the history depth used when the caller does not pick one
const DefaultReplacerK = 2

// BufferPoolManager presents the illusion of addressable pages while keeping
// only poolSize of them in memory. All disk traffic and all replacer
// interactions go through it.
//
// A single mutex serializes every buffer-pool mutation, including the disk
// read on a fetch miss: a concurrent fetch for the same page can never
// observe an uninitialized frame. Frame latches are independent and are only
// acquired by the page guards after this mutex is released.
type BufferPoolManager struct {
	poolSize    uint32
	pages       []*Page
	pageTable   map[uint32]uint32 // page id -> frame id, resident pages only
	freeList    []uint32
	replacer    Replacer
	diskManager DiskManager
	metrics     *Metrics
	nextPageID  uint32

	mutex sync.Mutex
}

// NewBufferPoolManager creates a buffer pool with the default LRU-K policy
func NewBufferPoolManager(poolSize uint32, diskManager DiskManager) (*BufferPoolManager, error) {
	return NewBufferPoolManagerWithReplacer(poolSize, diskManager, "lruk", DefaultReplacerK)
}

// NewBufferPoolManagerWithReplacer creates a buffer pool with a specific
// replacement policy; k is only meaningful for "lruk"
func NewBufferPoolManagerWithReplacer(poolSize uint32, diskManager DiskManager, policy string, k uint32) (*BufferPoolManager, error) {
	if poolSize == 0 {
		return nil, NewStorageError(ErrCodeInternal, "NewBufferPoolManager", "pool size must be greater than 0", nil)
	}

	bpm := &BufferPoolManager{
		poolSize:    poolSize,
		pages:       make([]*Page, poolSize),
		pageTable:   make(map[uint32]uint32),
		freeList:    make([]uint32, 0, poolSize),
		replacer:    NewReplacer(policy, poolSize, k),
		diskManager: diskManager,
		metrics:     NewMetrics(),
	}

	// Every frame starts in the free list
	for i := uint32(0); i < poolSize; i++ {
		bpm.pages[i] = NewEmptyPage()
		bpm.freeList = append(bpm.freeList, i)
	}

	return bpm, nil
}

// GetPoolSize returns the number of frames in the pool
func (bpm *BufferPoolManager) GetPoolSize() uint32 {
	return bpm.poolSize
}

// GetMetrics returns the buffer pool metrics
func (bpm *BufferPoolManager) GetMetrics() *Metrics {
	return bpm.metrics
}

// allocatePage hands out the next page id. Ids are never reused.
func (bpm *BufferPoolManager) allocatePage() uint32 {
	id := bpm.nextPageID
	bpm.nextPageID++
	return id
}

// deallocatePage returns a page id to the allocator. With a monotonic
// counter this is a no-op; the hook mirrors the allocate side so a real
// allocator can slot in.
func (bpm *BufferPoolManager) deallocatePage(pageID uint32) {
}

// acquireFrame finds a host frame for a new resident page: the free list
// first, then an eviction victim. A dirty victim is written back and its
// page-table entry removed. Caller must hold the pool mutex.
func (bpm *BufferPoolManager) acquireFrame() (uint32, bool) {
	if len(bpm.freeList) > 0 {
		frameID := bpm.freeList[len(bpm.freeList)-1]
		bpm.freeList = bpm.freeList[:len(bpm.freeList)-1]
		return frameID, true
	}

	frameID, ok := bpm.replacer.Evict()
	if !ok {
		return 0, false
	}
	bpm.metrics.RecordPageEviction()

	page := bpm.pages[frameID]
	if page.isDirty {
		bpm.metrics.RecordDirtyPageFlush()
		bpm.diskManager.WritePage(page.pageID, page.data)
		page.isDirty = false
	}
	delete(bpm.pageTable, page.pageID)

	return frameID, true
}

// NewPage allocates a fresh page id, hosts it in a frame, and returns the
// frame pinned once. Returns ErrNoFreeFrames when every frame is pinned.
func (bpm *BufferPoolManager) NewPage() (*Page, error) {
	bpm.mutex.Lock()
	defer bpm.mutex.Unlock()

	frameID, ok := bpm.acquireFrame()
	if !ok {
		return nil, ErrNoFreeFrames("BufferPoolManager.NewPage")
	}

	pageID := bpm.allocatePage()

	page := bpm.pages[frameID]
	page.pageID = pageID
	page.pinCount = 1
	page.isDirty = false
	page.ResetMemory()

	bpm.pageTable[pageID] = frameID
	bpm.replacer.RecordAccess(frameID, AccessUnknown)
	bpm.replacer.SetEvictable(frameID, false)

	return page, nil
}

// FetchPage returns the frame holding pageID, reading it from disk on a
// miss. The caller holds a pin and must UnpinPage when done.
func (bpm *BufferPoolManager) FetchPage(pageID uint32) (*Page, error) {
	return bpm.FetchPageWithAccessType(pageID, AccessUnknown)
}

// FetchPageWithAccessType is FetchPage with the access type forwarded to the
// replacement policy
func (bpm *BufferPoolManager) FetchPageWithAccessType(pageID uint32, accessType AccessType) (*Page, error) {
	if pageID == InvalidPageID {
		return nil, ErrPageNotFound("BufferPoolManager.FetchPage", pageID)
	}

	start := time.Now()
	defer func() {
		bpm.metrics.RecordPageFetchLatency(time.Since(start))
	}()

	bpm.mutex.Lock()
	defer bpm.mutex.Unlock()

	// Hit: pin and refresh the replacement policy
	if frameID, ok := bpm.pageTable[pageID]; ok {
		bpm.metrics.RecordCacheHit()

		page := bpm.pages[frameID]
		page.pinCount++
		bpm.replacer.RecordAccess(frameID, accessType)
		bpm.replacer.SetEvictable(frameID, false)
		return page, nil
	}

	// Miss: host the page and read it while still holding the pool mutex,
	// so no other fetch of the same id can see a half-initialized frame
	bpm.metrics.RecordCacheMiss()

	frameID, ok := bpm.acquireFrame()
	if !ok {
		return nil, ErrNoFreeFrames("BufferPoolManager.FetchPage")
	}

	page := bpm.pages[frameID]
	page.pageID = pageID
	page.pinCount = 1
	page.isDirty = false
	page.ResetMemory()

	bpm.pageTable[pageID] = frameID
	bpm.replacer.RecordAccess(frameID, accessType)
	bpm.replacer.SetEvictable(frameID, false)

	if err := bpm.diskManager.ReadPage(pageID, page.data); err != nil {
		// Undo the residency: the frame goes back to the free list
		delete(bpm.pageTable, pageID)
		bpm.replacer.SetEvictable(frameID, true)
		bpm.replacer.Remove(frameID)
		page.pageID = InvalidPageID
		page.pinCount = 0
		bpm.freeList = append(bpm.freeList, frameID)
		return nil, err
	}

	return page, nil
}

// UnpinPage drops one pin on the page. The dirty hint is OR-assigned into
// the frame's dirty flag: a writer must pass true, a reader passing false
// never clears an existing mark. Returns false for an unknown or already
// unpinned page.
func (bpm *BufferPoolManager) UnpinPage(pageID uint32, isDirty bool) bool {
	if pageID == InvalidPageID {
		return false
	}

	bpm.mutex.Lock()
	defer bpm.mutex.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return false
	}

	page := bpm.pages[frameID]
	if page.pinCount <= 0 {
		return false
	}

	page.pinCount--
	if page.pinCount == 0 {
		bpm.replacer.SetEvictable(frameID, true)
	}

	page.isDirty = page.isDirty || isDirty

	return true
}

// FlushPage writes the page's bytes back to disk unconditionally, dirty or
// not, and clears the dirty flag. Returns false when the page is not
// resident.
func (bpm *BufferPoolManager) FlushPage(pageID uint32) bool {
	bpm.mutex.Lock()
	defer bpm.mutex.Unlock()

	return bpm.flushPageLocked(pageID)
}

// flushPageLocked is the body of FlushPage; caller must hold the pool mutex
func (bpm *BufferPoolManager) flushPageLocked(pageID uint32) bool {
	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return false
	}

	start := time.Now()

	page := bpm.pages[frameID]
	if err := bpm.diskManager.WritePage(pageID, page.data); err != nil {
		return false
	}
	page.isDirty = false

	bpm.metrics.RecordPageFlushLatency(time.Since(start))
	return true
}

// FlushAllPages flushes every resident page
func (bpm *BufferPoolManager) FlushAllPages() {
	bpm.mutex.Lock()
	defer bpm.mutex.Unlock()

	for pageID := range bpm.pageTable {
		bpm.flushPageLocked(pageID)
	}
}

// DeletePage evicts pageID from the pool and returns its frame to the free
// list. A non-resident page deletes vacuously; a pinned page cannot be
// deleted. The page is NOT written back: callers wanting durability must
// FlushPage first.
func (bpm *BufferPoolManager) DeletePage(pageID uint32) bool {
	bpm.mutex.Lock()
	defer bpm.mutex.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return true
	}

	page := bpm.pages[frameID]
	if page.pinCount > 0 {
		return false
	}

	delete(bpm.pageTable, pageID)
	bpm.replacer.Remove(frameID)
	bpm.freeList = append(bpm.freeList, frameID)

	page.ResetMemory()
	page.pageID = InvalidPageID
	page.isDirty = false
	page.pinCount = 0

	bpm.deallocatePage(pageID)
	bpm.metrics.RecordPageDelete()
	return true
}
