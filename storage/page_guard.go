package storage

// BasicPageGuard scopes a pin on a frame: it guarantees exactly one unpin,
// with the right dirty hint, however the using code exits. Guards are the
// intended caller API; raw FetchPage/UnpinPage pairs are for the pool's own
// plumbing.
//
// Go has no destructors, so callers defer Drop. Drop is idempotent.
type BasicPageGuard struct {
	bpm     *BufferPoolManager
	page    *Page
	isDirty bool
}

// FetchPageBasic fetches pageID and wraps the pin in a guard
func (bpm *BufferPoolManager) FetchPageBasic(pageID uint32) (*BasicPageGuard, error) {
	page, err := bpm.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	return &BasicPageGuard{bpm: bpm, page: page}, nil
}

// NewPageGuarded allocates a new page and wraps the pin in a guard
func (bpm *BufferPoolManager) NewPageGuarded() (*BasicPageGuard, error) {
	page, err := bpm.NewPage()
	if err != nil {
		return nil, err
	}
	return &BasicPageGuard{bpm: bpm, page: page}, nil
}

// PageId returns the guarded page's id
func (g *BasicPageGuard) PageId() uint32 {
	return g.page.GetPageId()
}

// GetData returns the page bytes for reading
func (g *BasicPageGuard) GetData() []byte {
	return g.page.GetData()
}

// GetDataMut returns the page bytes for writing and records that the guard
// must unpin with a dirty hint
func (g *BasicPageGuard) GetDataMut() []byte {
	g.isDirty = true
	return g.page.GetData()
}

// Drop releases the pin. Safe to call more than once.
func (g *BasicPageGuard) Drop() {
	if g.page == nil {
		return
	}
	g.bpm.UnpinPage(g.page.GetPageId(), g.isDirty)
	g.page = nil
}

// ReadPageGuard is a BasicPageGuard that additionally holds the frame's read
// latch. The latch is taken after the buffer-pool mutex is released and is
// given back before the unpin.
type ReadPageGuard struct {
	guard BasicPageGuard
}

// FetchPageRead fetches pageID, pins it, and read-latches the frame
func (bpm *BufferPoolManager) FetchPageRead(pageID uint32) (*ReadPageGuard, error) {
	page, err := bpm.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	page.RLatch()
	return &ReadPageGuard{guard: BasicPageGuard{bpm: bpm, page: page}}, nil
}

// PageId returns the guarded page's id
func (g *ReadPageGuard) PageId() uint32 {
	return g.guard.PageId()
}

// GetData returns the page bytes for reading
func (g *ReadPageGuard) GetData() []byte {
	return g.guard.GetData()
}

// Drop releases the read latch and then the pin. Safe to call more than once.
func (g *ReadPageGuard) Drop() {
	if g.guard.page == nil {
		return
	}
	g.guard.page.RUnlatch()
	g.guard.Drop()
}

// WritePageGuard is a BasicPageGuard that additionally holds the frame's
// write latch. Dropping it always unpins with a dirty hint.
type WritePageGuard struct {
	guard BasicPageGuard
}

// FetchPageWrite fetches pageID, pins it, and write-latches the frame
func (bpm *BufferPoolManager) FetchPageWrite(pageID uint32) (*WritePageGuard, error) {
	page, err := bpm.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	page.WLatch()
	return &WritePageGuard{guard: BasicPageGuard{bpm: bpm, page: page, isDirty: true}}, nil
}

// PageId returns the guarded page's id
func (g *WritePageGuard) PageId() uint32 {
	return g.guard.PageId()
}

// GetData returns the page bytes for reading
func (g *WritePageGuard) GetData() []byte {
	return g.guard.GetData()
}

// GetDataMut returns the page bytes for writing
func (g *WritePageGuard) GetDataMut() []byte {
	return g.guard.GetDataMut()
}

// Drop releases the write latch and then the pin. Safe to call more than once.
func (g *WritePageGuard) Drop() {
	if g.guard.page == nil {
		return
	}
	g.guard.page.WUnlatch()
	g.guard.Drop()
}
