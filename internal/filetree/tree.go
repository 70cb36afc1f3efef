package filetree

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures a new FileTree.
type Options struct {
	TotalSize               int64
	CaseInsensitive         bool
	RootSecurityDescriptor  []byte
	Allocator               Allocator
	Logger                  zerolog.Logger
}

// FileTree is the facade described in §4.4: it orchestrates locking and
// byte accounting across a NodeStore and exposes every public operation.
type FileTree struct {
	store *NodeStore
	cmp   Comparator
	alloc Allocator
	log   zerolog.Logger

	idempotent *idempotencyCache
}

// New builds a FileTree with a freshly initialized root directory at
// RootNodeIndex.
func New(opts Options) (*FileTree, error) {
	if opts.TotalSize <= 0 {
		opts.TotalSize = 0
	}
	store := NewNodeStore(opts.TotalSize)
	cmp := NewComparator(opts.CaseInsensitive)
	store.InitRoot(AttrDirectory, NewChildIndex(cmp))

	t := &FileTree{
		store:      store,
		cmp:        cmp,
		alloc:      opts.Allocator,
		log:        opts.Logger,
		idempotent: newIdempotencyCache(256),
	}
	if len(opts.RootSecurityDescriptor) > 0 {
		if err := t.SetSecurity(RootNodeIndex, opts.RootSecurityDescriptor); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Comparator returns the comparator this tree uses for every name
// comparison, so callers (e.g. the host driver shim) can apply the same
// rule outside the engine.
func (t *FileTree) Comparator() Comparator { return t.cmp }

// FreeSize reports the remaining byte budget.
func (t *FileTree) FreeSize() int64 { return t.store.FreeSize() }

// TotalSize reports the configured byte budget.
func (t *FileTree) TotalSize() int64 { return t.store.TotalSize() }

func childCost(name string) int64 {
	return int64(ChildOverhead) + 2*int64(len(name))
}

// NodeSnapshot is a copy-out view of a Node, returned instead of a
// pointer per the "copy-out structs" option in §9's design notes: the
// caller does not need zero-copy access and a snapshot cannot be
// invalidated by a later store grow.
type NodeSnapshot struct {
	NodeIndex       uint64
	Attributes      Attributes
	ReparseTag      ReparseTag
	FileSize        int64
	Times           Times
	OpenCount       int64
	IsDirectory     bool
	ParentNodeIndex uint64
	LinkCount       uint64
}

func (t *FileTree) snapshotLocked(idx uint64) NodeSnapshot {
	n := t.store.NodeAt(idx)
	s := NodeSnapshot{
		NodeIndex:   idx,
		Attributes:  n.Attributes,
		ReparseTag:  n.ReparseTag,
		FileSize:    n.FileSize,
		Times:       n.Times,
		OpenCount:   n.OpenCount.Load(),
		IsDirectory: n.Attributes.IsDirectory(),
	}
	if s.IsDirectory {
		s.ParentNodeIndex = n.ParentNodeIndex()
	} else if !n.IsFree() {
		s.LinkCount = n.LinkCount()
	}
	return s
}

// Get returns a read-only snapshot of node_index's Node record.
func (t *FileTree) Get(idx uint64) NodeSnapshot {
	t.store.RLock()
	defer t.store.RUnlock()
	return t.snapshotLocked(idx)
}

// AddOptions configures Add. A non-nil RequestID makes the call
// idempotent: a retry with the same RequestID observes the result of
// the first call instead of failing with a duplicate-name result.
type AddOptions struct {
	RequestID uuid.UUID
}

type addResult struct {
	nodeIndex uint64
	created   bool
}

// idempotencyCache remembers the outcome of recent Add calls by
// RequestID, bounded to a fixed capacity with FIFO eviction; it is a
// bookkeeping aid layered on top of the engine, not part of the NodeStore
// byte budget.
type idempotencyCache struct {
	mu      sync.Mutex
	cap     int
	order   []uuid.UUID
	results map[uuid.UUID]addResult
}

func newIdempotencyCache(capacity int) *idempotencyCache {
	return &idempotencyCache{cap: capacity, results: make(map[uuid.UUID]addResult, capacity)}
}

func (c *idempotencyCache) get(id uuid.UUID) (addResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[id]
	return r, ok
}

func (c *idempotencyCache) put(id uuid.UUID, r addResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.results[id]; exists {
		return
	}
	c.results[id] = r
	c.order = append(c.order, id)
	if len(c.order) > c.cap {
		evict := c.order[0]
		c.order = c.order[1:]
		delete(c.results, evict)
	}
}

// Add creates a node named name under parent. See the operations table
// in §4.4: directories get their parent back-pointer set, regular files
// get link_count=1. Returns created=false without changing state when
// name already exists under parent.
func (t *FileTree) Add(parent uint64, name string, attrs Attributes, tag ReparseTag, times Times, opts AddOptions) (nodeIndex uint64, created bool, err error) {
	if opts.RequestID != uuid.Nil {
		if r, ok := t.idempotent.get(opts.RequestID); ok {
			return r.nodeIndex, r.created, nil
		}
	}
	attrs = attrs.Canonicalize()

	t.store.RLock()
	parentNode := t.store.NodeAt(parent)
	if !parentNode.Attributes.IsDirectory() {
		t.store.RUnlock()
		return 0, false, ErrNotADirectory
	}
	if _, exists := t.store.AuxAt(parent).Children.Find(name); exists {
		t.store.RUnlock()
		t.log.Debug().Uint64("parent", parent).Str("name", name).Msg("add: name already exists")
		return 0, false, nil
	}
	t.store.RUnlock()

	cost := childCost(name)
	if !t.store.ChargeBytes(cost) {
		t.log.Warn().Uint64("parent", parent).Str("name", name).Int64("cost", cost).Msg("add: budget exhausted")
		return 0, false, ErrFull
	}

	idx, err := t.store.Allocate()
	if err != nil {
		t.store.ReleaseBytes(cost)
		t.log.Warn().Err(err).Uint64("parent", parent).Str("name", name).Msg("add: node allocation failed")
		return 0, false, err
	}

	t.store.RLock()
	n := t.store.NodeAt(idx)
	aux := t.store.AuxAt(idx)
	n.Attributes = attrs
	n.ReparseTag = tag
	n.FileSize = 0
	n.Times = times
	if attrs.IsDirectory() {
		n.SetParentNodeIndex(parent)
		aux.Children = NewChildIndex(t.cmp)
	} else {
		n.SetLinkCount(1)
		aux.Data = NewSegmentedBuffer(t.alloc)
	}

	added := t.store.AuxAt(parent).Children.Add(Child{Name: name, NodeIndex: idx})
	if !added {
		t.store.RUnlock()
		t.store.Free(idx)
		t.store.ReleaseBytes(cost)
		return 0, false, nil
	}
	t.store.RUnlock()

	if opts.RequestID != uuid.Nil {
		t.idempotent.put(opts.RequestID, addResult{nodeIndex: idx, created: true})
	}
	t.log.Debug().Uint64("parent", parent).Str("name", name).Uint64("nodeIndex", idx).Msg("add: created")
	return idx, true, nil
}

// Find resolves name under parent, returning the canonical stored
// spelling alongside the node_index (§4.4, §4.5's "normalized name").
func (t *FileTree) Find(parent uint64, name string) (nodeIndex uint64, normalizedName string, ok bool) {
	t.store.RLock()
	defer t.store.RUnlock()
	children := t.store.AuxAt(parent).Children
	if children == nil {
		return 0, "", false
	}
	c, found := children.Find(name)
	if !found {
		return 0, "", false
	}
	return c.NodeIndex, c.Name, true
}

func setAttrsLocked(n *Node, attrs Attributes, tag ReparseTag) {
	dirBit := n.Attributes & AttrDirectory
	n.Attributes = (attrs.Canonicalize() &^ AttrDirectory) | dirBit
	n.ReparseTag = tag
}

// SetAttrs updates attributes and reparse_tag in place. The Directory
// bit is immutable and silently preserved regardless of attrs.
func (t *FileTree) SetAttrs(idx uint64, attrs Attributes, tag ReparseTag) {
	t.store.RLock()
	defer t.store.RUnlock()
	setAttrsLocked(t.store.NodeAt(idx), attrs, tag)
}

// SetTimesAndAttrs updates attributes, reparse_tag, and all four
// timestamps in one locked step.
func (t *FileTree) SetTimesAndAttrs(idx uint64, attrs Attributes, tag ReparseTag, times Times) {
	t.store.RLock()
	defer t.store.RUnlock()
	n := t.store.NodeAt(idx)
	setAttrsLocked(n, attrs, tag)
	n.Times = times
}

// ResetAndGet zeroes file_size, resets all four timestamps, and leaves
// link_count/parent untouched, returning the resulting snapshot.
func (t *FileTree) ResetAndGet(idx uint64, attrs Attributes, tag ReparseTag, times Times) NodeSnapshot {
	t.store.RLock()
	defer t.store.RUnlock()
	n := t.store.NodeAt(idx)
	setAttrsLocked(n, attrs, tag)
	n.FileSize = 0
	n.Times = times
	return t.snapshotLocked(idx)
}
