package storage

// PageSize is the fixed size of every on-disk and in-memory page in bytes.
const PageSize = 4096

// InvalidPageID marks a frame that currently holds no page.
// The allocator never hands out this id.
const InvalidPageID uint32 = 0xFFFFFFFF

// Page is a buffer-pool frame: a PageSize byte slab plus the metadata the
// buffer pool needs to manage it. The pageID, pinCount and isDirty fields are
// protected by the buffer pool's mutex; the latch guards only the bytes.
type Page struct {
	data     []byte
	pageID   uint32
	pinCount int32
	isDirty  bool
	latch    *RWLatch
}

// NewEmptyPage creates a frame holding no page
func NewEmptyPage() *Page {
	return &Page{
		data:   make([]byte, PageSize),
		pageID: InvalidPageID,
		latch:  NewRWLatch(),
	}
}

// GetPageId returns the id of the resident page, or InvalidPageID
func (p *Page) GetPageId() uint32 {
	return p.pageID
}

// GetPinCount returns the number of outstanding pins
func (p *Page) GetPinCount() int32 {
	return p.pinCount
}

// IsDirty reports whether the frame's bytes differ from the on-disk copy
func (p *Page) IsDirty() bool {
	return p.isDirty
}

// GetData returns the frame's byte slab
func (p *Page) GetData() []byte {
	return p.data
}

// ResetMemory zeroes the frame's bytes for reuse
func (p *Page) ResetMemory() {
	for i := range p.data {
		p.data[i] = 0
	}
}

// RLatch acquires the frame's read latch
func (p *Page) RLatch() {
	p.latch.RLock()
}

// RUnlatch releases the frame's read latch
func (p *Page) RUnlatch() {
	p.latch.RUnlock()
}

// WLatch acquires the frame's write latch
func (p *Page) WLatch() {
	p.latch.Lock()
}

// WUnlatch releases the frame's write latch
func (p *Page) WUnlatch() {
	p.latch.Unlock()
}
