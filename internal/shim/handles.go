package shim

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// handleTable is the concrete FileHandleManager the teacher's
// internal/core/fuse.go leaves as a TODO interface: a mapping from FUSE
// file handles to node indices. Built on xsync.Map the same way the
// teacher's filesystem/node.go uses it for its children map — many
// concurrent readers (every Read/Write/Getattr-by-fh callback), occasional
// writers (Open/Release).
type handleTable struct {
	next    atomic.Uint64
	entries *xsync.Map[uint64, uint64]
}

func newHandleTable() *handleTable {
	return &handleTable{entries: xsync.NewMap[uint64, uint64]()}
}

// open allocates a new file handle bound to nodeIndex.
func (h *handleTable) open(nodeIndex uint64) uint64 {
	fh := h.next.Add(1)
	h.entries.Store(fh, nodeIndex)
	return fh
}

// lookup resolves a file handle to its node index.
func (h *handleTable) lookup(fh uint64) (uint64, bool) {
	return h.entries.Load(fh)
}

// close releases a file handle.
func (h *handleTable) close(fh uint64) {
	h.entries.Delete(fh)
}
