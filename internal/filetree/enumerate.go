package filetree

// HasChildren reports whether parent's directory has at least one child.
func (t *FileTree) HasChildren(parent uint64) bool {
	t.store.RLock()
	defer t.store.RUnlock()
	return t.store.AuxAt(parent).Children.Len() > 0
}

// TreeChildEnumerator enumerates a directory's children in sorted order,
// holding the store's shared lock for its entire lifetime per §4.4's
// "enumerator holds that lock for its lifetime". Callers must call
// Close exactly once, however the enumeration ends.
type TreeChildEnumerator struct {
	tree   *FileTree
	enum   *ChildEnumerator
	closed bool
}

// GetChildren returns an enumerator over parent's children whose names
// compare strictly greater than marker (nil starts from the beginning),
// in sorted order under the tree's comparator.
func (t *FileTree) GetChildren(parent uint64, marker *string) *TreeChildEnumerator {
	t.store.RLock()
	children := t.store.AuxAt(parent).Children
	return &TreeChildEnumerator{tree: t, enum: children.IterFrom(marker)}
}

// Next returns the next child, or ok=false once exhausted.
func (e *TreeChildEnumerator) Next() (Child, bool) {
	if e.closed {
		return Child{}, false
	}
	return e.enum.Next()
}

// Close releases the store lock held by this enumerator. Safe to call
// more than once.
func (e *TreeChildEnumerator) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.tree.store.RUnlock()
}
