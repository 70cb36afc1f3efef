package filetree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentedBuffer_GrowSingleTooth(t *testing.T) {
	t.Parallel()

	b := NewSegmentedBuffer(nil)
	reached, err := b.SetLength(100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), reached)
	assert.Equal(t, int64(100), b.AllocationSize())
}

func TestSegmentedBuffer_GrowPastToothMaxSplitsIntoTeeth(t *testing.T) {
	t.Parallel()

	b := NewSegmentedBuffer(nil)
	size := int64(ToothMax) + 10
	reached, err := b.SetLength(size)
	require.NoError(t, err)
	assert.Equal(t, size, reached)
	assert.Equal(t, size, b.AllocationSize())
	assert.Len(t, b.teeth, 2)
	assert.Equal(t, ToothMax, len(b.teeth[0]))
	assert.Equal(t, 10, len(b.teeth[1]))
}

func TestSegmentedBuffer_ShrinkReleasesTrailingTeeth(t *testing.T) {
	t.Parallel()

	b := NewSegmentedBuffer(nil)
	_, err := b.SetLength(int64(ToothMax) * 2)
	require.NoError(t, err)

	reached, err := b.SetLength(10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), reached)
	assert.Equal(t, int64(10), b.AllocationSize())
	assert.Len(t, b.teeth, 1)
}

func TestSegmentedBuffer_WriteReadRoundtrip(t *testing.T) {
	t.Parallel()

	b := NewSegmentedBuffer(nil)
	_, err := b.SetLength(int64(ToothMax) + 10)
	require.NoError(t, err)

	data := []byte{1, 2, 3, 4, 5}
	// Straddle the tooth boundary.
	offset := int64(ToothMax) - 2
	b.Write(offset, data)

	dst := make([]byte, len(data))
	b.Read(offset, dst)
	assert.Equal(t, data, dst)
}

// TestSegmentedBuffer_PartialOOMLeavesValidPartialState matches §4.3's
// "exception-safe partial-growth": a mid-grow allocator failure on the
// second tooth leaves the buffer holding exactly what it acquired.
func TestSegmentedBuffer_PartialOOMLeavesValidPartialState(t *testing.T) {
	t.Parallel()

	calls := 0
	failSecond := func(size int) ([]byte, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("stub allocator: exhausted")
		}
		return make([]byte, size), nil
	}

	b := NewSegmentedBuffer(failSecond)
	target := int64(ToothMax) * 2
	reached, err := b.SetLength(target)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
	assert.Equal(t, int64(ToothMax), reached, "must keep the one tooth it acquired")
	assert.Equal(t, int64(ToothMax), b.AllocationSize())
}

func TestRoundedLength(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want int64
	}{
		{0, 0},
		{-5, 0},
		{1, ToothMax},
		{ToothMax, ToothMax},
		{ToothMax + 1, 2 * ToothMax},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, RoundedLength(c.in))
	}
}
