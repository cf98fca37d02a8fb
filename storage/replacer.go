package storage

// AccessType classifies why a frame was touched. The replacement policies
// currently treat all access types alike; the parameter exists so callers
// (sequential scans, index probes) can be told apart later without an
// interface change.
type AccessType int

const (
	AccessUnknown AccessType = iota
	AccessLookup
	AccessScan
	AccessIndex
)

// Replacer interface for page replacement policies.
// Frames start out untracked; the first RecordAccess begins tracking them as
// non-evictable. Only frames flagged evictable are eviction candidates.
type Replacer interface {
	// RecordAccess notes a logical-time access to the frame.
	// Returns an ErrCodeInvalidFrameID error for out-of-range frame ids.
	RecordAccess(frameID uint32, accessType AccessType) error

	// SetEvictable flips the frame's evictable flag. Untracked frames are
	// a no-op; out-of-range frame ids are an error.
	SetEvictable(frameID uint32, evictable bool) error

	// Remove forgets the frame entirely. No-op for untracked frames.
	// Removing a tracked frame that is still non-evictable is a caller
	// invariant violation and panics: the pin must be cleared first.
	Remove(frameID uint32)

	// Evict selects a victim per the policy, forgets it, and returns its
	// frame id. Returns false when nothing is evictable.
	Evict() (uint32, bool)

	// Size returns the number of evictable frames
	Size() uint32
}

// NewReplacer creates a replacer based on the specified policy.
// k is only meaningful for the LRU-K policy.
func NewReplacer(policy string, numFrames uint32, k uint32) Replacer {
	switch policy {
	case "lru":
		return NewLRUReplacer(numFrames)
	case "lruk":
		return NewLRUKReplacer(numFrames, k)
	default:
		// Default to LRU-K: scan-resistant and the best studied
		return NewLRUKReplacer(numFrames, k)
	}
}
