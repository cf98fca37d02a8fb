package trie

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keys collects every key holding a value, in sorted order
func keys(t Trie) []string {
	var out []string
	var walk func(n *node, prefix string)
	walk = func(n *node, prefix string) {
		if n == nil {
			return
		}
		if n.hasValue {
			out = append(out, prefix)
		}
		for b, child := range n.children {
			walk(child, prefix+string(b))
		}
	}
	walk(t.root, "")
	sort.Strings(out)
	return out
}

func TestTriePutGet(t *testing.T) {
	t1 := Put(New(), "abc", uint32(1))
	t2 := Put(t1, "abd", uint32(2))

	v, ok := Get[uint32](t2, "abc")
	require.True(t, ok)
	assert.Equal(t, uint32(1), v)

	v, ok = Get[uint32](t2, "abd")
	require.True(t, ok)
	assert.Equal(t, uint32(2), v)

	_, ok = Get[uint32](t2, "ab")
	assert.False(t, ok, "prefix without a value is a miss")

	// The older version never sees the newer key
	_, ok = Get[uint32](t1, "abd")
	assert.False(t, ok)

	_, ok = Get[uint32](t2, "xyz")
	assert.False(t, ok)
}

func TestTrieGetTypeMismatch(t *testing.T) {
	tr := Put(New(), "key", uint32(7))

	_, ok := Get[uint64](tr, "key")
	assert.False(t, ok, "a uint32 value must not satisfy Get[uint64]")

	_, ok = Get[string](tr, "key")
	assert.False(t, ok)

	v, ok := Get[uint32](tr, "key")
	require.True(t, ok)
	assert.Equal(t, uint32(7), v)
}

func TestTrieValueTypes(t *testing.T) {
	tr := New()
	tr = Put(tr, "u32", uint32(32))
	tr = Put(tr, "u64", uint64(64))
	tr = Put(tr, "str", "hello")

	// Pointer values stand in for move-only types: no copy is made
	moveOnly := &struct{ n int }{n: 42}
	tr = Put(tr, "ptr", moveOnly)

	u32, ok := Get[uint32](tr, "u32")
	require.True(t, ok)
	assert.Equal(t, uint32(32), u32)

	u64, ok := Get[uint64](tr, "u64")
	require.True(t, ok)
	assert.Equal(t, uint64(64), u64)

	s, ok := Get[string](tr, "str")
	require.True(t, ok)
	assert.Equal(t, "hello", s)

	p, ok := Get[*struct{ n int }](tr, "ptr")
	require.True(t, ok)
	assert.Same(t, moveOnly, p)
}

func TestTrieOverwrite(t *testing.T) {
	tr := Put(New(), "key", uint32(1))
	tr = Put(tr, "key", uint32(2))

	v, ok := Get[uint32](tr, "key")
	require.True(t, ok)
	assert.Equal(t, uint32(2), v)

	// Overwriting with a different type replaces the value wholesale
	tr = Put(tr, "key", "now a string")
	s, ok := Get[string](tr, "key")
	require.True(t, ok)
	assert.Equal(t, "now a string", s)
}

func TestTriePutPreservesChildren(t *testing.T) {
	tr := Put(New(), "abc", uint32(1))
	tr = Put(tr, "ab", uint32(9))

	v, ok := Get[uint32](tr, "abc")
	require.True(t, ok)
	assert.Equal(t, uint32(1), v, "putting a prefix must keep the longer key")

	v, ok = Get[uint32](tr, "ab")
	require.True(t, ok)
	assert.Equal(t, uint32(9), v)
}

func TestTrieEmptyKey(t *testing.T) {
	_, ok := Get[uint32](New(), "")
	assert.False(t, ok)

	tr := Put(New(), "", uint32(5))
	v, ok := Get[uint32](tr, "")
	require.True(t, ok)
	assert.Equal(t, uint32(5), v)

	// Root value coexists with descendants
	tr = Put(tr, "a", uint32(6))
	v, ok = Get[uint32](tr, "")
	require.True(t, ok)
	assert.Equal(t, uint32(5), v)
	v, ok = Get[uint32](tr, "a")
	require.True(t, ok)
	assert.Equal(t, uint32(6), v)

	// Removing the root value keeps the children
	removed := tr.Remove("")
	_, ok = Get[uint32](removed, "")
	assert.False(t, ok)
	v, ok = Get[uint32](removed, "a")
	require.True(t, ok)
	assert.Equal(t, uint32(6), v)

	// Empty-key remove on a trie whose root holds no value is a no-op
	again := removed.Remove("")
	assert.Equal(t, removed.root, again.root)
}

func TestTrieRemove(t *testing.T) {
	tr := Put(New(), "abc", uint32(1))
	tr = Put(tr, "abd", uint32(2))

	removed := tr.Remove("abd")

	_, ok := Get[uint32](removed, "abd")
	assert.False(t, ok)

	v, ok := Get[uint32](removed, "abc")
	require.True(t, ok)
	assert.Equal(t, uint32(1), v)

	// The original version still has both
	v, ok = Get[uint32](tr, "abd")
	require.True(t, ok)
	assert.Equal(t, uint32(2), v)
}

func TestTrieRemoveMissingIsNoOp(t *testing.T) {
	tr := Put(New(), "abc", uint32(1))

	// Missing edge, value-less terminal, and empty trie all return the
	// receiver unchanged
	assert.Equal(t, tr.root, tr.Remove("xyz").root)
	assert.Equal(t, tr.root, tr.Remove("ab").root)
	assert.Equal(t, tr.root, tr.Remove("abcd").root)

	empty := New()
	assert.Nil(t, empty.Remove("anything").root)
}

func TestTrieRemovePrunesEmptyNodes(t *testing.T) {
	tr := Put(New(), "abc", uint32(1))

	removed := tr.Remove("abc")
	assert.Nil(t, removed.root, "removing the only key collapses the trie")

	// Intermediate nodes shared with a surviving key are kept
	tr2 := Put(tr, "abx", uint32(2))
	removed2 := tr2.Remove("abc")
	require.NotNil(t, removed2.root)
	v, ok := Get[uint32](removed2, "abx")
	require.True(t, ok)
	assert.Equal(t, uint32(2), v)
}

func TestTrieRemoveKeepsValuedInterior(t *testing.T) {
	tr := Put(New(), "ab", uint32(1))
	tr = Put(tr, "abcd", uint32(2))

	removed := tr.Remove("abcd")

	v, ok := Get[uint32](removed, "ab")
	require.True(t, ok)
	assert.Equal(t, uint32(1), v)
	_, ok = Get[uint32](removed, "abcd")
	assert.False(t, ok)
}

func TestTriePutRemoveSymmetry(t *testing.T) {
	base := Put(New(), "shared", uint32(10))
	base = Put(base, "shard", uint32(11))

	roundTrip := Put(base, "newkey", uint32(99)).Remove("newkey")

	assert.Equal(t, keys(base), keys(roundTrip))
	for _, k := range keys(base) {
		want, ok := Get[uint32](base, k)
		require.True(t, ok)
		got, ok := Get[uint32](roundTrip, k)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestTrieStructuralSharing(t *testing.T) {
	t1 := Put(New(), "abc", uint32(1))
	t2 := Put(t1, "abd", uint32(2))

	// Only the root-to-leaf path is fresh; the sibling leaf is shared
	leaf1 := t1.root.children['a'].children['b'].children['c']
	leaf2 := t2.root.children['a'].children['b'].children['c']
	assert.Same(t, leaf1, leaf2, "untouched leaf must be shared by reference")

	assert.NotSame(t, t1.root, t2.root)
	assert.NotSame(t,
		t1.root.children['a'],
		t2.root.children['a'])

	// Removing the diverging leaf leaves a trie key-equal to the original
	t3 := t2.Remove("abd")
	assert.Equal(t, keys(t1), keys(t3))
	assert.Same(t, leaf1, t3.root.children['a'].children['b'].children['c'])
}

func TestTrieConcurrentReaders(t *testing.T) {
	tr := New()
	for _, k := range []string{"alpha", "beta", "gamma", "delta"} {
		tr = Put(tr, k, k)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Writers derive new versions; the shared base never changes
			local := Put(tr, "local", uint32(1))
			for j := 0; j < 100; j++ {
				v, ok := Get[string](tr, "alpha")
				if !ok || v != "alpha" {
					t.Error("reader saw a torn value")
					return
				}
				local = local.Remove("local")
				local = Put(local, "local", uint32(1))
			}
		}()
	}
	wg.Wait()
}
