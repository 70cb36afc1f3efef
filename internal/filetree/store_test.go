package filetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeStore_NewChargesRootOverhead(t *testing.T) {
	t.Parallel()

	s := NewNodeStore(10_000)
	assert.Equal(t, int64(10_000-NodeOverhead), s.FreeSize())
	assert.Equal(t, int64(10_000), s.TotalSize())
}

func TestNodeStore_AllocateGrowsThenReusesFreeList(t *testing.T) {
	t.Parallel()

	s := NewNodeStore(1_000_000)
	before := s.FreeSize()

	idx1, err := s.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx1, "first allocation past root grows the array")
	assert.Equal(t, before-NodeOverhead, s.FreeSize())

	s.Lock()
	s.freeLocked(idx1)
	s.Unlock()
	assert.Equal(t, before, s.FreeSize(), "freeing returns exactly what was charged")

	idx2, err := s.Allocate()
	require.NoError(t, err)
	assert.Equal(t, idx1, idx2, "a freed slot is reused before growing again")
}

func TestNodeStore_ChargeReleaseRoundtrip(t *testing.T) {
	t.Parallel()

	s := NewNodeStore(1000)
	before := s.FreeSize()

	require.True(t, s.ChargeBytes(100))
	assert.Equal(t, before-100, s.FreeSize())

	s.ReleaseBytes(100)
	assert.Equal(t, before, s.FreeSize())
}

func TestNodeStore_ChargeBytesFullReportsFalseWithoutChange(t *testing.T) {
	t.Parallel()

	s := NewNodeStore(NodeOverhead + 100)
	before := s.FreeSize()

	assert.False(t, s.ChargeBytes(before+1))
	assert.Equal(t, before, s.FreeSize(), "a failed charge must not alter the budget")
}

func TestNodeStore_AllocateFullWhenBudgetExhausted(t *testing.T) {
	t.Parallel()

	s := NewNodeStore(NodeOverhead) // exactly enough for the root, nothing more
	_, err := s.Allocate()
	assert.ErrorIs(t, err, ErrFull)
}
