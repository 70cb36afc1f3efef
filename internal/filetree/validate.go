package filetree

import "fmt"

// Validate re-walks the whole tree and recomputes every invariant listed
// in §3, returning the first violation found, or nil if none. It is the
// full-tree validator called out in §9's design notes as a debug-only
// self-check; production call paths never invoke it. It takes the store
// lock's exclusive mode for the duration of the walk.
func (t *FileTree) Validate() error {
	t.store.Lock()
	defer t.store.Unlock()

	reachable := make(map[uint64]bool)
	var usedBytes int64

	var walk func(idx, expectedParent uint64) error
	walk = func(idx, expectedParent uint64) error {
		if reachable[idx] {
			return fmt.Errorf("filetree: node %d reachable via more than one path", idx)
		}
		reachable[idx] = true

		n := t.store.NodeAt(idx)
		aux := t.store.AuxAt(idx)
		if n.IsFree() {
			return fmt.Errorf("filetree: node %d is reachable but marked free", idx)
		}
		usedBytes += int64(NodeOverhead) + int64(len(aux.SecurityDescriptor)) + int64(len(aux.ExtraData))

		if n.Attributes.IsDirectory() {
			if idx != RootNodeIndex {
				if n.IsDetached() {
					return fmt.Errorf("filetree: node %d reachable but detached", idx)
				}
				if n.ParentNodeIndex() != expectedParent {
					return fmt.Errorf("filetree: node %d parent_node_index %d != containing directory %d", idx, n.ParentNodeIndex(), expectedParent)
				}
			}
			seen := make(map[string]bool)
			for _, c := range aux.Children.Snapshot() {
				key := t.cmp.fold(c.Name)
				if seen[key] {
					return fmt.Errorf("filetree: directory %d has duplicate child name %q", idx, c.Name)
				}
				seen[key] = true
				usedBytes += childCost(c.Name)
				if err := walk(c.NodeIndex, idx); err != nil {
					return err
				}
			}
			return nil
		}

		if n.LinkCount() == 0 {
			return fmt.Errorf("filetree: node %d reached via a parent but link_count is 0", idx)
		}
		if aux.Data != nil {
			usedBytes += aux.Data.AllocationSize()
			if n.FileSize > aux.Data.AllocationSize() {
				return fmt.Errorf("filetree: node %d file_size %d exceeds allocation_size %d", idx, n.FileSize, aux.Data.AllocationSize())
			}
		} else if n.FileSize != 0 {
			return fmt.Errorf("filetree: node %d has no buffer but file_size %d", idx, n.FileSize)
		}
		return nil
	}
	if err := walk(RootNodeIndex, RootNodeIndex); err != nil {
		return err
	}

	freeSet := make(map[uint64]bool)
	for head := t.store.freeHead.Load(); head != 0; {
		if freeSet[head] {
			return fmt.Errorf("filetree: free list cycle at node %d", head)
		}
		freeSet[head] = true
		n := t.store.NodeAt(head)
		if !n.IsFree() {
			return fmt.Errorf("filetree: free-list node %d is not marked free", head)
		}
		head = n.NextFree()
	}

	for idx := uint64(0); idx < t.store.Len(); idx++ {
		if reachable[idx] || freeSet[idx] {
			continue
		}
		n := t.store.NodeAt(idx)
		if n.OpenCount.Load() <= 0 {
			return fmt.Errorf("filetree: node %d is neither reachable, free, nor open", idx)
		}
		aux := t.store.AuxAt(idx)
		usedBytes += int64(NodeOverhead) + int64(len(aux.SecurityDescriptor)) + int64(len(aux.ExtraData))
		if aux.Data != nil {
			usedBytes += aux.Data.AllocationSize()
		}
		if n.Attributes.IsDirectory() && aux.Children != nil {
			for _, c := range aux.Children.Snapshot() {
				usedBytes += childCost(c.Name)
			}
		}
	}

	if want, got := t.store.FreeSize(), t.store.TotalSize()-usedBytes; want != got {
		return fmt.Errorf("filetree: free_size = %d, recomputed %d (used_bytes=%d)", want, got, usedBytes)
	}
	return nil
}
