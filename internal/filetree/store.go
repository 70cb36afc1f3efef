package filetree

import (
	"sync"
	"sync/atomic"
)

// NodeStore owns the two parallel dense arrays backing every Node and
// NodeAux, the free list threaded through Node's union field, and the
// store lock described in §5. The store lock's shared mode covers every
// operation that does not relocate the arrays; its exclusive mode is
// taken only to append one slot when the free list is empty. Go's
// sync.RWMutex has no built-in shared-to-exclusive upgrade, so Allocate
// approximates the spec's "upgradeable shared" mode by trying the free
// list under a shared lock first and only acquiring the exclusive lock
// to grow, rechecking the free list once it has it.
type NodeStore struct {
	mu    sync.RWMutex
	nodes []Node
	aux   []NodeAux

	freeHead atomic.Uint64 // LIFO free-list head; 0 (root) means empty
	freeSize atomic.Int64
	total    int64
}

// NewNodeStore returns a NodeStore with the given byte budget and a
// single slot at RootNodeIndex, charged NodeOverhead but otherwise left
// zeroed for the caller to initialize via InitRoot.
func NewNodeStore(totalSize int64) *NodeStore {
	s := &NodeStore{total: totalSize}
	s.freeSize.Store(totalSize)
	s.nodes = append(s.nodes, Node{})
	s.aux = append(s.aux, NodeAux{})
	if !s.chargeBytes(NodeOverhead) {
		panic("filetree: budget too small to hold the root node")
	}
	return s
}

// InitRoot populates the root slot. Called once, before the store is
// shared across goroutines.
func (s *NodeStore) InitRoot(attrs Attributes, children *ChildIndex) {
	root := &s.nodes[RootNodeIndex]
	root.Attributes = attrs.Canonicalize() | AttrDirectory
	root.Times = NowTimes()
	root.SetParentNodeIndex(RootNodeIndex)
	s.aux[RootNodeIndex].Children = children
}

// RLock/RUnlock/Lock/Unlock expose the store lock directly; FileTree
// decides the scope each operation needs (§5 enumerates which operations
// require which mode).
func (s *NodeStore) RLock()   { s.mu.RLock() }
func (s *NodeStore) RUnlock() { s.mu.RUnlock() }
func (s *NodeStore) Lock()    { s.mu.Lock() }
func (s *NodeStore) Unlock()  { s.mu.Unlock() }

// NodeAt and AuxAt return direct pointers into the backing arrays. Valid
// only while the caller holds the store lock (either mode); a pointer
// obtained this way must not be retained past the matching unlock, since
// a later grow may reallocate the backing array (§5, §9).
func (s *NodeStore) NodeAt(idx uint64) *Node     { return &s.nodes[idx] }
func (s *NodeStore) AuxAt(idx uint64) *NodeAux   { return &s.aux[idx] }
func (s *NodeStore) Len() uint64                 { return uint64(len(s.nodes)) }

func (s *NodeStore) FreeSize() int64  { return s.freeSize.Load() }
func (s *NodeStore) TotalSize() int64 { return s.total }

// ChargeBytes attempts to deduct n bytes from the budget via a CAS loop,
// reporting false (no state changed) if the budget cannot cover it.
func (s *NodeStore) ChargeBytes(n int64) bool { return s.chargeBytes(n) }

func (s *NodeStore) chargeBytes(n int64) bool {
	for {
		cur := s.freeSize.Load()
		if cur < n {
			return false
		}
		if s.freeSize.CompareAndSwap(cur, cur-n) {
			return true
		}
	}
}

// ReleaseBytes returns n bytes to the budget. Every charge's matching
// release must pass exactly the amount that was charged (§7).
func (s *NodeStore) ReleaseBytes(n int64) {
	if n == 0 {
		return
	}
	s.freeSize.Add(n)
}

// Allocate returns a fresh node_index with undefined Node/NodeAux
// content that the caller must immediately populate. It first tries to
// pop the free list under a shared lock; if empty, it acquires the
// exclusive lock to append one slot, rechecking the free list first in
// case another goroutine freed a slot while it waited. Returns with no
// lock held.
func (s *NodeStore) Allocate() (uint64, error) {
	if !s.chargeBytes(NodeOverhead) {
		return 0, ErrFull
	}

	s.mu.RLock()
	idx, ok := s.popFreeLocked()
	s.mu.RUnlock()
	if ok {
		return idx, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.popFreeLocked(); ok {
		return idx, nil
	}
	idx = uint64(len(s.nodes))
	s.nodes = append(s.nodes, Node{})
	s.aux = append(s.aux, NodeAux{})
	return idx, nil
}

func (s *NodeStore) popFreeLocked() (uint64, bool) {
	for {
		head := s.freeHead.Load()
		if head == 0 {
			return 0, false
		}
		next := s.nodes[head].NextFree()
		if s.freeHead.CompareAndSwap(head, next) {
			return head, true
		}
	}
}

// Free releases idx back to the free list; it is a self-contained,
// single-shot version of freeLocked for callers that are not already
// holding the store lock.
func (s *NodeStore) Free(idx uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.freeLocked(idx)
}

// freeLocked releases idx back to the free list, after releasing every
// byte charge held against its security descriptor, extra data, and
// content buffer. Preconditions (enforced by FileTree, not here):
// open_count==0 and the node is unreachable. Caller must already hold
// the store lock, in either mode; recursive unlink (§4.4) relies on this
// to free a whole detached subtree within one lock acquisition — calling
// the self-locking Free from inside that walk would risk the classic
// recursive-RLock-vs-pending-Lock deadlock on sync.RWMutex.
func (s *NodeStore) freeLocked(idx uint64) {
	n := &s.nodes[idx]
	aux := &s.aux[idx]
	s.ReleaseBytes(int64(len(aux.SecurityDescriptor)))
	s.ReleaseBytes(int64(len(aux.ExtraData)))
	if aux.Data != nil {
		s.ReleaseBytes(aux.Data.AllocationSize())
	}
	s.ReleaseBytes(NodeOverhead)

	*n = Node{}
	*aux = NodeAux{}

	for {
		head := s.freeHead.Load()
		n.SetNextFree(head)
		if s.freeHead.CompareAndSwap(head, idx) {
			return
		}
	}
}
