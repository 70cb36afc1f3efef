package filetree

import "sync/atomic"

// Node is the fixed-size inode-like record described in §3, identified by
// its stable node_index. The union field is reinterpreted depending on
// state: free-list link when Attributes is zero, parent index for
// directories, link count for regular files. A single atomic word is used
// for it (rather than a Go union, which the language has no equivalent
// of) so free-list push/pop can be a lock-free CAS loop per §5.
type Node struct {
	Attributes     Attributes
	ReparseTag     ReparseTag
	FileSize       int64
	Times          Times
	union          atomic.Uint64
	OpenCount      atomic.Int64
}

// IsFree reports whether this slot is on the free list.
func (n *Node) IsFree() bool { return n.Attributes.IsFree() }

// NextFree returns the free-list successor stored in union. Valid only
// while IsFree().
func (n *Node) NextFree() uint64 { return n.union.Load() }

// SetNextFree stores the free-list successor.
func (n *Node) SetNextFree(idx uint64) { n.union.Store(idx) }

// ParentNodeIndex returns the directory's parent index, or DetachedParent
// if it has been unlinked while still open. Valid only for directories.
func (n *Node) ParentNodeIndex() uint64 { return n.union.Load() }

// SetParentNodeIndex sets the directory's parent index.
func (n *Node) SetParentNodeIndex(idx uint64) { n.union.Store(idx) }

// IsDetached reports whether a directory's parent link has been cleared
// because it was removed while still open (§3, "detached sentinel").
func (n *Node) IsDetached() bool { return n.union.Load() == DetachedParent }

// LinkCount returns a regular file's link count. Valid only for regular
// files (Attributes.IsDirectory() == false and not free).
func (n *Node) LinkCount() uint64 { return n.union.Load() }

// SetLinkCount sets a regular file's link count.
func (n *Node) SetLinkCount(c uint64) { n.union.Store(c) }

// AddLinkCount atomically adds delta (which may be negative) to the link
// count and returns the new value.
func (n *Node) AddLinkCount(delta int64) uint64 {
	for {
		cur := n.union.Load()
		next := uint64(int64(cur) + delta)
		if n.union.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// IncOpenCount atomically increments open_count and returns the new value.
func (n *Node) IncOpenCount() int64 { return n.OpenCount.Add(1) }

// DecOpenCount atomically decrements open_count and returns the new value.
// Panics if the count would go negative: an engine invariant violation.
func (n *Node) DecOpenCount() int64 {
	v := n.OpenCount.Add(-1)
	if v < 0 {
		panic("filetree: open_count went negative")
	}
	return v
}

// NodeAux is the per-node record holding variable-size and pointer-heavy
// fields, kept separate from Node so growing NodeStore's arrays never
// invalidates references into this record's contents (§3).
type NodeAux struct {
	SecurityDescriptor []byte
	ExtraData          []byte
	Data               *SegmentedBuffer
	Children           *ChildIndex
}
