package filetree

import "strings"

// WalkPath resolves a backslash-separated path starting at root, per
// §4.5. It returns the node_index of the final component. err is non-nil
// when an intermediate component does not exist or is not a directory
// (err is ErrObjectPathNotFound), or when an intermediate directory is a
// reparse point the caller must resolve itself (err is
// ErrDirectoryIsAReparsePoint); in the reparse case idx is the index of
// the reparse-point directory reached so far, not the final target.
func (t *FileTree) WalkPath(path string) (idx uint64, err error) {
	idx = RootNodeIndex
	path = strings.TrimPrefix(path, `\`)
	if path == "" {
		return idx, nil
	}
	parts := strings.Split(path, `\`)
	for i, name := range parts {
		t.store.RLock()
		n := t.store.NodeAt(idx)
		if !n.Attributes.IsDirectory() {
			t.store.RUnlock()
			return 0, ErrObjectPathNotFound
		}
		if n.Attributes.IsReparsePoint() {
			t.store.RUnlock()
			return idx, ErrDirectoryIsAReparsePoint
		}
		children := t.store.AuxAt(idx).Children
		child, found := children.Find(name)
		t.store.RUnlock()
		if !found {
			return 0, ErrObjectPathNotFound
		}
		idx = child.NodeIndex
		_ = i
	}
	return idx, nil
}

// NormalizeName recomposes name using the canonical spelling stored in
// parent's ChildIndex entry, when the tree is case-insensitive; under
// case-sensitive comparison it returns name unchanged (callers treat the
// two cases identically, per §4.5: "return null under case-sensitive
// mode" becomes "return the input" in a Go API with no null strings).
func (t *FileTree) NormalizeName(parent uint64, name string) (string, bool) {
	t.store.RLock()
	defer t.store.RUnlock()
	children := t.store.AuxAt(parent).Children
	if children == nil {
		return name, false
	}
	child, ok := children.Find(name)
	if !ok {
		return name, false
	}
	return child.Name, true
}
