package filetree

import (
	"errors"
	"math"
)

// maxOffset is this implementation's analog of the spec's u64::MAX
// ceiling clamp for write_data, adapted to Go's int64 offsets (the
// idiom os.File itself uses); see DESIGN.md for the rationale.
const maxOffset = math.MaxInt64

// GetAllocationSize returns the current backing-buffer capacity of a
// regular file.
func (t *FileTree) GetAllocationSize(idx uint64) int64 {
	t.store.RLock()
	defer t.store.RUnlock()
	data := t.store.AuxAt(idx).Data
	if data == nil {
		return 0
	}
	return data.AllocationSize()
}

// SetAllocationSize adjusts node_index's backing buffer capacity,
// clamping file_size if it shrinks past it. Shrinking never fails; on
// grow, OutOfMemory may leave the buffer only partially enlarged, in
// which case the partial length is kept and file_size clamped to it.
func (t *FileTree) SetAllocationSize(idx uint64, newSize int64) error {
	if newSize < 0 {
		panic("filetree: negative allocation size")
	}
	t.store.RLock()
	defer t.store.RUnlock()
	n := t.store.NodeAt(idx)
	aux := t.store.AuxAt(idx)
	if aux.Data == nil {
		aux.Data = NewSegmentedBuffer(t.alloc)
	}
	old := aux.Data.AllocationSize()

	if newSize <= old {
		aux.Data.SetLength(newSize)
		t.store.ReleaseBytes(old - newSize)
		if n.FileSize > newSize {
			n.FileSize = newSize
		}
		return nil
	}

	delta := newSize - old
	if !t.store.ChargeBytes(delta) {
		return ErrFull
	}
	reached, err := aux.Data.SetLength(newSize)
	if reached != newSize {
		t.store.ReleaseBytes(newSize - reached)
	}
	if n.FileSize > reached {
		n.FileSize = reached
	}
	return err
}

// SetFileSize grows the backing buffer if needed, then sets file_size.
func (t *FileTree) SetFileSize(idx uint64, newSize int64) error {
	if newSize < 0 {
		panic("filetree: negative file size")
	}
	t.store.RLock()
	data := t.store.AuxAt(idx).Data
	needGrow := data == nil || newSize > data.AllocationSize()
	t.store.RUnlock()

	if needGrow {
		if err := t.SetAllocationSize(idx, newSize); err != nil {
			return err
		}
	}

	t.store.RLock()
	defer t.store.RUnlock()
	n := t.store.NodeAt(idx)
	alloc := t.store.AuxAt(idx).Data.AllocationSize()
	if newSize > alloc {
		newSize = alloc
	}
	n.FileSize = newSize
	return nil
}

// ReadData copies into dst starting at offset, clamped to file_size;
// returns the number of bytes actually read, which is 0 at or past EOF.
func (t *FileTree) ReadData(idx uint64, offset int64, dst []byte) int {
	if offset < 0 {
		panic("filetree: negative read offset")
	}
	t.store.RLock()
	defer t.store.RUnlock()
	n := t.store.NodeAt(idx)
	if offset >= n.FileSize {
		return 0
	}
	avail := n.FileSize - offset
	toRead := int64(len(dst))
	if toRead > avail {
		toRead = avail
	}
	t.store.AuxAt(idx).Data.Read(offset, dst[:toRead])
	return int(toRead)
}

// growForWrite implements write_data's grow fallback ladder (§4.4): try
// rounded_length(target), then the exact target, then repeatedly halve
// the remaining gap above curAlloc until a grow succeeds or the
// candidate equals curAlloc, only then reporting Full. Returns the
// allocation size actually reached.
func (t *FileTree) growForWrite(idx uint64, curAlloc, target int64) (int64, error) {
	candidates := []int64{RoundedLength(target), target}
	for gap := target - curAlloc; gap > 1; {
		gap /= 2
		candidates = append(candidates, curAlloc+gap)
	}

	var lastErr error = ErrFull
	for _, c := range candidates {
		if c <= curAlloc {
			continue
		}
		err := t.SetAllocationSize(idx, c)
		reached := t.GetAllocationSize(idx)
		if err == nil {
			return reached, nil
		}
		if errors.Is(err, ErrOutOfMemory) {
			return reached, err
		}
		lastErr = err
	}
	return curAlloc, lastErr
}

// WriteData writes src at offset, growing file_size and the backing
// allocation as needed via the fallback ladder. It may write fewer bytes
// than requested when the allocator fails mid-grow; the returned count
// reflects what was actually written and is not itself an error.
func (t *FileTree) WriteData(idx uint64, offset int64, src []byte) (int, error) {
	if offset < 0 {
		panic("filetree: negative write offset")
	}
	length := int64(len(src))
	if length == 0 {
		return 0, nil
	}
	if offset > maxOffset-length {
		length = maxOffset - offset
		if length <= 0 {
			return 0, nil
		}
		src = src[:length]
	}
	target := offset + length

	t.store.RLock()
	curAlloc := t.store.AuxAt(idx).Data.AllocationSize()
	t.store.RUnlock()

	if target > curAlloc {
		reached, err := t.growForWrite(idx, curAlloc, target)
		if reached < target {
			t.log.Warn().Uint64("nodeIndex", idx).Int64("requested", target).Int64("reached", reached).Err(err).Msg("writeData: short write")
			target = reached
			length = target - offset
			if length <= 0 {
				return 0, err
			}
			src = src[:length]
		}
	}

	t.store.RLock()
	defer t.store.RUnlock()
	n := t.store.NodeAt(idx)
	t.store.AuxAt(idx).Data.Write(offset, src)
	if target > n.FileSize {
		n.FileSize = target
	}
	return int(length), nil
}
