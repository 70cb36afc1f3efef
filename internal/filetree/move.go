package filetree

// unlinkLocked implements the unlink semantics of §4.4 for a node that
// has just lost its name under its parent. Caller must already hold
// the store lock, in either mode.
func (t *FileTree) unlinkLocked(idx uint64) {
	n := t.store.NodeAt(idx)
	if n.Attributes.IsDirectory() {
		n.SetParentNodeIndex(DetachedParent)
		if n.OpenCount.Load() == 0 {
			t.freeRecursiveLocked(idx)
		}
		return
	}
	remaining := n.AddLinkCount(-1)
	if remaining == 0 && n.OpenCount.Load() == 0 {
		t.store.freeLocked(idx)
	}
}

// freeRecursiveLocked unlinks every remaining child of idx and then
// frees idx itself; used when a detached directory's last handle closes
// and by bulk remove. Caller must already hold the store lock.
func (t *FileTree) freeRecursiveLocked(idx uint64) {
	aux := t.store.AuxAt(idx)
	if aux.Children != nil {
		for _, c := range aux.Children.Snapshot() {
			t.store.ReleaseBytes(childCost(c.Name))
			t.unlinkLocked(c.NodeIndex)
		}
	}
	t.store.freeLocked(idx)
}

// MoveSameParent renames src_name to dst_name within parent (§4.4's
// same-parent move). If dst_name already names a different child, that
// child's node is unlinked and the dst entry is repointed at src's node;
// otherwise src's entry is renamed in place.
func (t *FileTree) MoveSameParent(parent uint64, srcName, dstName string) error {
	t.store.RLock()
	defer t.store.RUnlock()
	children := t.store.AuxAt(parent).Children

	if dst, exists := children.Find(dstName); exists && !t.cmp.Equal(srcName, dstName) {
		src, ok := children.Find(srcName)
		if !ok {
			return ErrObjectPathNotFound
		}
		children.SetNodeIndex(dst.Name, src.NodeIndex)
		children.Remove(srcName)
		t.store.ReleaseBytes(childCost(src.Name))
		t.unlinkLocked(dst.NodeIndex)
		t.log.Debug().Uint64("parent", parent).Str("src", srcName).Str("dst", dstName).Msg("moveSameParent: replaced existing destination")
		return nil
	}

	src, ok := children.Find(srcName)
	if !ok {
		return ErrObjectPathNotFound
	}
	oldCost, newCost := childCost(src.Name), childCost(dstName)
	if newCost > oldCost {
		if !t.store.ChargeBytes(newCost - oldCost) {
			t.log.Warn().Uint64("parent", parent).Str("src", srcName).Str("dst", dstName).Msg("moveSameParent: budget exhausted")
			return ErrFull
		}
	}
	children.Rename(srcName, dstName)
	if newCost < oldCost {
		t.store.ReleaseBytes(oldCost - newCost)
	}
	return nil
}

// MoveCrossParent moves srcName out of srcParent and into dstParent as
// dstName (§4.4's cross-parent move), fixing a moved directory's parent
// back-pointer. If dstName already exists under dstParent, that child's
// node is unlinked and replaced.
func (t *FileTree) MoveCrossParent(srcParent uint64, srcName string, dstParent uint64, dstName string) error {
	t.store.RLock()
	defer t.store.RUnlock()

	srcChildren := t.store.AuxAt(srcParent).Children
	src, ok := srcChildren.Find(srcName)
	if !ok {
		return ErrObjectPathNotFound
	}
	dstChildren := t.store.AuxAt(dstParent).Children

	if dst, exists := dstChildren.Find(dstName); exists {
		dstChildren.SetNodeIndex(dst.Name, src.NodeIndex)
		t.unlinkLocked(dst.NodeIndex)
	} else {
		cost := childCost(dstName)
		if !t.store.ChargeBytes(cost) {
			t.log.Warn().Uint64("srcParent", srcParent).Uint64("dstParent", dstParent).Str("dst", dstName).Msg("moveCrossParent: budget exhausted")
			return ErrFull
		}
		if !dstChildren.Add(Child{Name: dstName, NodeIndex: src.NodeIndex}) {
			t.store.ReleaseBytes(cost)
			return ErrFull
		}
	}

	srcChildren.Remove(srcName)
	t.store.ReleaseBytes(childCost(src.Name))

	movedNode := t.store.NodeAt(src.NodeIndex)
	if movedNode.Attributes.IsDirectory() {
		movedNode.SetParentNodeIndex(dstParent)
	}
	t.log.Debug().Uint64("srcParent", srcParent).Str("src", srcName).Uint64("dstParent", dstParent).Str("dst", dstName).Msg("moveCrossParent: moved")
	return nil
}

// Remove deletes the child named name under parent, unlinking (and
// possibly freeing) the node it pointed to.
func (t *FileTree) Remove(parent uint64, name string) bool {
	t.store.RLock()
	defer t.store.RUnlock()
	children := t.store.AuxAt(parent).Children
	c, ok := children.Find(name)
	if !ok {
		return false
	}
	children.Remove(name)
	t.store.ReleaseBytes(childCost(c.Name))
	t.unlinkLocked(c.NodeIndex)
	t.log.Debug().Uint64("parent", parent).Str("name", name).Uint64("nodeIndex", c.NodeIndex).Msg("remove: unlinked")
	return true
}

// RemoveChildren bulk-unlinks every child of parent, leaving parent
// itself intact and empty.
func (t *FileTree) RemoveChildren(parent uint64) {
	t.store.RLock()
	defer t.store.RUnlock()
	children := t.store.AuxAt(parent).Children
	for _, c := range children.Snapshot() {
		children.Remove(c.Name)
		t.store.ReleaseBytes(childCost(c.Name))
		t.unlinkLocked(c.NodeIndex)
	}
}
