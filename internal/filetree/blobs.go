package filetree

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// GetSecurity returns a copy of node_index's security descriptor blob.
func (t *FileTree) GetSecurity(idx uint64) []byte {
	t.store.RLock()
	defer t.store.RUnlock()
	return cloneBytes(t.store.AuxAt(idx).SecurityDescriptor)
}

// SetSecurity replaces node_index's security descriptor blob wholesale,
// charging/releasing the byte-length delta.
func (t *FileTree) SetSecurity(idx uint64, blob []byte) error {
	return t.setBlob(idx, blob, func(aux *NodeAux) *[]byte { return &aux.SecurityDescriptor })
}

// GetExtraData returns a copy of node_index's extra-data blob (used by
// the host driver shim to carry reparse-point payloads).
func (t *FileTree) GetExtraData(idx uint64) []byte {
	t.store.RLock()
	defer t.store.RUnlock()
	return cloneBytes(t.store.AuxAt(idx).ExtraData)
}

// SetExtraData replaces node_index's extra-data blob wholesale.
func (t *FileTree) SetExtraData(idx uint64, blob []byte) error {
	return t.setBlob(idx, blob, func(aux *NodeAux) *[]byte { return &aux.ExtraData })
}

func (t *FileTree) setBlob(idx uint64, blob []byte, field func(*NodeAux) *[]byte) error {
	t.store.RLock()
	defer t.store.RUnlock()
	slot := field(t.store.AuxAt(idx))
	oldLen, newLen := int64(len(*slot)), int64(len(blob))
	if newLen > oldLen {
		if !t.store.ChargeBytes(newLen - oldLen) {
			return ErrFull
		}
	}
	*slot = cloneBytes(blob)
	if newLen < oldLen {
		t.store.ReleaseBytes(oldLen - newLen)
	}
	return nil
}

// ModifySecurity performs a read-modify-write of node_index's security
// descriptor under the store lock's shared mode (§9's "delegate-based
// security modify"): fn receives a copy of the current blob plus arg and
// returns the replacement blob. A non-nil error from fn aborts without
// changing state.
func (t *FileTree) ModifySecurity(idx uint64, arg any, fn func(current []byte, arg any) ([]byte, error)) error {
	t.store.RLock()
	defer t.store.RUnlock()
	aux := t.store.AuxAt(idx)
	next, err := fn(cloneBytes(aux.SecurityDescriptor), arg)
	if err != nil {
		return err
	}
	oldLen, newLen := int64(len(aux.SecurityDescriptor)), int64(len(next))
	if newLen > oldLen {
		if !t.store.ChargeBytes(newLen - oldLen) {
			return ErrFull
		}
	}
	aux.SecurityDescriptor = cloneBytes(next)
	if newLen < oldLen {
		t.store.ReleaseBytes(oldLen - newLen)
	}
	return nil
}
