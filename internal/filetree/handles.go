package filetree

// Open atomically increments node_index's open_count and returns a
// snapshot of the resulting state.
func (t *FileTree) Open(idx uint64) NodeSnapshot {
	t.store.RLock()
	defer t.store.RUnlock()
	t.store.NodeAt(idx).IncOpenCount()
	return t.snapshotLocked(idx)
}

// Close atomically decrements node_index's open_count; if it reaches
// zero and the node is unreachable (a detached directory, or a regular
// file with link_count==0), the node is freed.
func (t *FileTree) Close(idx uint64) {
	t.store.RLock()
	defer t.store.RUnlock()
	n := t.store.NodeAt(idx)
	remaining := n.DecOpenCount()
	if remaining != 0 {
		return
	}
	if n.Attributes.IsDirectory() {
		if n.IsDetached() {
			t.freeRecursiveLocked(idx)
		}
		return
	}
	if n.LinkCount() == 0 {
		t.store.freeLocked(idx)
	}
}
