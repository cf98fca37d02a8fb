package storage

import (
	"sync"
)

// lruKNode tracks one frame: the timestamps of its last up to k accesses
// (oldest at the front) and whether the frame may currently be evicted.
type lruKNode struct {
	history   []uint64
	evictable bool
}

// firstAccess returns the oldest retained access timestamp
func (n *lruKNode) firstAccess() uint64 {
	return n.history[0]
}

// LRUKReplacer implements the LRU-K replacement policy.
//
// The victim is the evictable frame whose k-th most recent access lies
// furthest in the past (largest backward k-distance). Frames with fewer than
// k recorded accesses have infinite backward k-distance; among those the one
// with the earliest first access loses, which degenerates to plain LRU for
// k = 1. A single mutex covers the whole structure.
type LRUKReplacer struct {
	numFrames uint32
	k         uint32

	nodeStore map[uint32]*lruKNode
	timestamp uint64 // monotonically increasing logical clock
	currSize  uint32 // number of evictable frames

	mutex sync.Mutex
}

// NewLRUKReplacer creates an LRU-K replacer for frame ids in [0, numFrames).
// k must be at least 1; smaller values are clamped.
func NewLRUKReplacer(numFrames uint32, k uint32) *LRUKReplacer {
	if k < 1 {
		k = 1
	}
	return &LRUKReplacer{
		numFrames: numFrames,
		k:         k,
		nodeStore: make(map[uint32]*lruKNode),
	}
}

// RecordAccess appends the next logical timestamp to the frame's history,
// keeping only the most recent k entries. First access starts tracking the
// frame as non-evictable.
func (r *LRUKReplacer) RecordAccess(frameID uint32, accessType AccessType) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if frameID >= r.numFrames {
		return ErrInvalidFrameID("LRUKReplacer.RecordAccess", frameID, r.numFrames)
	}

	node, ok := r.nodeStore[frameID]
	if !ok {
		node = &lruKNode{history: make([]uint64, 0, r.k)}
		r.nodeStore[frameID] = node
	}

	r.timestamp++
	node.history = append(node.history, r.timestamp)
	if uint32(len(node.history)) > r.k {
		node.history = node.history[1:]
	}

	return nil
}

// SetEvictable flips the frame's evictable flag, adjusting the evictable
// count only on an actual transition. Untracked frames are a no-op.
func (r *LRUKReplacer) SetEvictable(frameID uint32, evictable bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if frameID >= r.numFrames {
		return ErrInvalidFrameID("LRUKReplacer.SetEvictable", frameID, r.numFrames)
	}

	node, ok := r.nodeStore[frameID]
	if !ok {
		return nil
	}

	if node.evictable != evictable {
		node.evictable = evictable
		if evictable {
			r.currSize++
		} else {
			r.currSize--
		}
	}

	return nil
}

// Remove forgets the frame and its history. Removing a frame that is still
// non-evictable means the caller never cleared the pin; that is an invariant
// violation, not a recoverable condition.
func (r *LRUKReplacer) Remove(frameID uint32) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	node, ok := r.nodeStore[frameID]
	if !ok {
		return
	}
	if !node.evictable {
		panic("LRUKReplacer: Remove called on a non-evictable frame")
	}

	delete(r.nodeStore, frameID)
	r.currSize--
}

// Evict selects and forgets the victim frame.
//
// Among evictable frames the largest backward k-distance wins; frames with
// fewer than k accesses count as infinitely distant. Ties (all infinite, or
// equal finite distances) break toward the earliest first recorded access.
func (r *LRUKReplacer) Evict() (uint32, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.currSize == 0 {
		return 0, false
	}

	var (
		found        bool
		victim       uint32
		victimInf    bool
		victimDist   uint64
		victimFirst  uint64
	)

	for frameID, node := range r.nodeStore {
		if !node.evictable {
			continue
		}

		inf := uint32(len(node.history)) < r.k
		var dist uint64
		if !inf {
			dist = r.timestamp - node.firstAccess()
		}
		first := node.firstAccess()

		if !found {
			found, victim = true, frameID
			victimInf, victimDist, victimFirst = inf, dist, first
			continue
		}

		better := false
		switch {
		case inf && !victimInf:
			better = true
		case inf == victimInf && inf:
			better = first < victimFirst
		case inf == victimInf:
			better = dist > victimDist || (dist == victimDist && first < victimFirst)
		}

		if better {
			victim = frameID
			victimInf, victimDist, victimFirst = inf, dist, first
		}
	}

	if !found {
		return 0, false
	}

	delete(r.nodeStore, victim)
	r.currSize--
	return victim, true
}

// Size returns the number of evictable frames
func (r *LRUKReplacer) Size() uint32 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.currSize
}
