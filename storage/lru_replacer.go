package storage

import (
	"container/list"
	"sync"
)

// lruEntry is one tracked frame inside the recency list
type lruEntry struct {
	frameID   uint32
	evictable bool
}

// LRUReplacer implements plain LRU against the Replacer interface.
// The recency list holds every tracked frame, least recently used at the
// front; only entries flagged evictable are eviction candidates.
type LRUReplacer struct {
	numFrames uint32
	lruList   *list.List
	lruMap    map[uint32]*list.Element
	currSize  uint32
	mutex     sync.Mutex
}

// NewLRUReplacer creates an LRU replacer for frame ids in [0, numFrames)
func NewLRUReplacer(numFrames uint32) *LRUReplacer {
	return &LRUReplacer{
		numFrames: numFrames,
		lruList:   list.New(),
		lruMap:    make(map[uint32]*list.Element),
	}
}

// RecordAccess moves the frame to the most-recently-used position,
// tracking it as non-evictable on first access
func (lru *LRUReplacer) RecordAccess(frameID uint32, accessType AccessType) error {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	if frameID >= lru.numFrames {
		return ErrInvalidFrameID("LRUReplacer.RecordAccess", frameID, lru.numFrames)
	}

	if elem, ok := lru.lruMap[frameID]; ok {
		lru.lruList.MoveToBack(elem)
		return nil
	}

	elem := lru.lruList.PushBack(&lruEntry{frameID: frameID})
	lru.lruMap[frameID] = elem
	return nil
}

// SetEvictable flips the frame's evictable flag
func (lru *LRUReplacer) SetEvictable(frameID uint32, evictable bool) error {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	if frameID >= lru.numFrames {
		return ErrInvalidFrameID("LRUReplacer.SetEvictable", frameID, lru.numFrames)
	}

	elem, ok := lru.lruMap[frameID]
	if !ok {
		return nil
	}

	entry := elem.Value.(*lruEntry)
	if entry.evictable != evictable {
		entry.evictable = evictable
		if evictable {
			lru.currSize++
		} else {
			lru.currSize--
		}
	}

	return nil
}

// Remove forgets the frame. Panics if it is still non-evictable.
func (lru *LRUReplacer) Remove(frameID uint32) {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	elem, ok := lru.lruMap[frameID]
	if !ok {
		return
	}

	entry := elem.Value.(*lruEntry)
	if !entry.evictable {
		panic("LRUReplacer: Remove called on a non-evictable frame")
	}

	lru.lruList.Remove(elem)
	delete(lru.lruMap, frameID)
	lru.currSize--
}

// Evict removes and returns the least recently used evictable frame
func (lru *LRUReplacer) Evict() (uint32, bool) {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	for elem := lru.lruList.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*lruEntry)
		if !entry.evictable {
			continue
		}

		lru.lruList.Remove(elem)
		delete(lru.lruMap, entry.frameID)
		lru.currSize--
		return entry.frameID, true
	}

	return 0, false
}

// Size returns the number of evictable frames
func (lru *LRUReplacer) Size() uint32 {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	return lru.currSize
}
