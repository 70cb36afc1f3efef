package filetree

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildIndex_AddFindRemove(t *testing.T) {
	t.Parallel()

	ci := NewChildIndex(NewComparator(false))
	require.True(t, ci.Add(Child{Name: "b", NodeIndex: 2}))
	require.True(t, ci.Add(Child{Name: "a", NodeIndex: 1}))
	require.True(t, ci.Add(Child{Name: "c", NodeIndex: 3}))

	assert.Equal(t, 3, ci.Len())

	c, ok := ci.Find("a")
	require.True(t, ok)
	assert.Equal(t, uint64(1), c.NodeIndex)

	_, ok = ci.Find("missing")
	assert.False(t, ok)

	assert.False(t, ci.Add(Child{Name: "a", NodeIndex: 99}), "duplicate add must not change the index")

	require.True(t, ci.Remove("b"))
	assert.Equal(t, 2, ci.Len())
	_, ok = ci.Find("b")
	assert.False(t, ok)

	assert.False(t, ci.Remove("b"), "removing twice reports false")
}

func TestChildIndex_CaseInsensitive(t *testing.T) {
	t.Parallel()

	ci := NewChildIndex(NewComparator(true))
	require.True(t, ci.Add(Child{Name: "Foo", NodeIndex: 1}))
	assert.False(t, ci.Add(Child{Name: "foo", NodeIndex: 2}), "case-insensitive index rejects a case-only duplicate")

	c, ok := ci.Find("FOO")
	require.True(t, ok)
	assert.Equal(t, "Foo", c.Name, "lookup returns the canonical stored spelling")
}

func TestChildIndex_Rename(t *testing.T) {
	t.Parallel()

	ci := NewChildIndex(NewComparator(false))
	require.True(t, ci.Add(Child{Name: "old", NodeIndex: 1}))
	require.True(t, ci.Rename("old", "new"))

	_, ok := ci.Find("old")
	assert.False(t, ok)
	c, ok := ci.Find("new")
	require.True(t, ok)
	assert.Equal(t, uint64(1), c.NodeIndex)

	assert.False(t, ci.Rename("old", "whatever"))
}

func TestChildIndex_SetNodeIndex(t *testing.T) {
	t.Parallel()

	ci := NewChildIndex(NewComparator(false))
	require.True(t, ci.Add(Child{Name: "x", NodeIndex: 1}))
	require.True(t, ci.SetNodeIndex("x", 42))

	c, ok := ci.Find("x")
	require.True(t, ok)
	assert.Equal(t, uint64(42), c.NodeIndex)
	assert.Equal(t, "x", c.Name)

	assert.False(t, ci.SetNodeIndex("nope", 1))
}

// TestChildIndex_MultiToothSortedIteration matches end-to-end scenario 5:
// 1000 children spread across several teeth, enumerated from a marker in
// the middle, expecting exactly the back half, in order, none <= marker.
func TestChildIndex_MultiToothSortedIteration(t *testing.T) {
	t.Parallel()

	const n = 1000
	ci := NewChildIndex(NewComparator(false))
	names := make([]string, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%08x", hashMix(uint32(i)))
		names[i] = name
		require.True(t, ci.Add(Child{Name: name, NodeIndex: uint64(i)}))
	}
	require.Greater(t, len(ci.teeth), 1, "1000 entries must span more than one tooth at this ToothSize")

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	marker := sorted[499]
	enum := ci.IterFrom(&marker)
	var got []string
	for {
		c, ok := enum.Next()
		if !ok {
			break
		}
		got = append(got, c.Name)
	}

	assert.Equal(t, sorted[500:], got, "must emit exactly the tail past the marker, in sorted order")
	for _, name := range got {
		assert.Greater(t, name, marker)
	}
}

func TestChildIndex_IterFromNilMarkerStartsAtBeginning(t *testing.T) {
	t.Parallel()

	ci := NewChildIndex(NewComparator(false))
	for _, n := range []string{"c", "a", "b"} {
		require.True(t, ci.Add(Child{Name: n, NodeIndex: 0}))
	}

	enum := ci.IterFrom(nil)
	var got []string
	for {
		c, ok := enum.Next()
		if !ok {
			break
		}
		got = append(got, c.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

// hashMix is a tiny deterministic integer scrambler, used only to spread
// test names across the sort order without importing math/rand for a
// fixed-size fixture.
func hashMix(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}
