package filetree

import "fmt"

// Allocator allocates a zero-initialized byte slice of the requested size.
// Production code uses the default (make()); tests inject a failing
// Allocator to exercise the partial-growth paths described in §4.3/§4.4 and
// exercised end-to-end by scenario 6 in §8.
type Allocator func(size int) ([]byte, error)

func defaultAllocator(size int) ([]byte, error) {
	return make([]byte, size), nil
}

// SegmentedBuffer is the file-content byte store ("comb") described in
// §4.3: a single contiguous buffer while the allocation is small, a
// sequence of fixed 1 MiB teeth (except possibly the last, which is
// partial) once it grows past ToothMax. Every tooth but the last is
// always exactly ToothMax bytes; this lets offset-to-tooth lookup be a
// plain division instead of a search.
type SegmentedBuffer struct {
	alloc Allocator
	teeth [][]byte
}

// NewSegmentedBuffer returns an empty buffer. A nil alloc uses make().
func NewSegmentedBuffer(alloc Allocator) *SegmentedBuffer {
	if alloc == nil {
		alloc = defaultAllocator
	}
	return &SegmentedBuffer{alloc: alloc}
}

// AllocationSize returns the buffer's current total capacity.
func (b *SegmentedBuffer) AllocationSize() int64 {
	var total int64
	for _, t := range b.teeth {
		total += int64(len(t))
	}
	return total
}

// RoundedLength rounds n up to the nearest multiple of ToothMax, except
// that a request for n<=0 rounds to 0 (§4.3).
func RoundedLength(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return ((n + ToothMax - 1) / ToothMax) * ToothMax
}

// desiredToothSizes returns the per-tooth capacities needed to hold n bytes
// of allocation: a single tooth of exactly n bytes while n <= ToothMax, or
// a run of full ToothMax teeth followed by one partial trailing tooth.
func desiredToothSizes(n int64) []int {
	if n <= 0 {
		return nil
	}
	if n <= ToothMax {
		return []int{int(n)}
	}
	numTeeth := (n + ToothMax - 1) / ToothMax
	full := numTeeth - 1
	trailing := n - full*ToothMax
	sizes := make([]int, numTeeth)
	for i := int64(0); i < full; i++ {
		sizes[i] = ToothMax
	}
	sizes[full] = int(trailing)
	return sizes
}

// SetLength grows or shrinks the buffer to newLen bytes of capacity. On
// grow, it returns the length actually reached along with ErrOutOfMemory
// if the allocator refused partway through; the buffer is left holding
// whatever it managed to acquire (§4.3, §7). Shrink never fails and never
// calls the allocator.
func (b *SegmentedBuffer) SetLength(newLen int64) (reached int64, err error) {
	if newLen < 0 {
		panic("filetree: negative SegmentedBuffer length")
	}
	cur := b.AllocationSize()
	switch {
	case newLen == cur:
		return cur, nil
	case newLen < cur:
		b.shrink(newLen)
		return newLen, nil
	default:
		return b.grow(newLen)
	}
}

func (b *SegmentedBuffer) grow(newLen int64) (int64, error) {
	target := desiredToothSizes(newLen)
	built := append([][]byte(nil), b.teeth...)
	for i, sz := range target {
		if i < len(built) {
			if len(built[i]) == sz {
				continue
			}
			nb, err := b.alloc(sz)
			if err != nil {
				b.teeth = built
				return b.AllocationSize(), fmt.Errorf("%w: grow tooth %d to %d bytes: %v", ErrOutOfMemory, i, sz, err)
			}
			copy(nb, built[i])
			built[i] = nb
			continue
		}
		nb, err := b.alloc(sz)
		if err != nil {
			b.teeth = built
			return b.AllocationSize(), fmt.Errorf("%w: allocate tooth %d (%d bytes): %v", ErrOutOfMemory, i, sz, err)
		}
		built = append(built, nb)
	}
	b.teeth = built
	return newLen, nil
}

func (b *SegmentedBuffer) shrink(newLen int64) {
	target := desiredToothSizes(newLen)
	b.teeth = b.teeth[:len(target)]
	if len(target) == 0 {
		return
	}
	last := len(target) - 1
	b.teeth[last] = b.teeth[last][:target[last]:target[last]]
}

// segment returns the tooth index and in-tooth offset for an absolute
// buffer position. Valid because every tooth but the last is exactly
// ToothMax bytes.
func (b *SegmentedBuffer) segment(pos int64) (toothIdx int, toothOff int64) {
	return int(pos / ToothMax), pos % ToothMax
}

// Read copies len(dst) bytes starting at offset into dst, splitting the
// transfer at tooth boundaries. Preconditions: offset+len(dst) <= AllocationSize().
func (b *SegmentedBuffer) Read(offset int64, dst []byte) {
	n := int64(len(dst))
	if n == 0 {
		return
	}
	if offset < 0 || offset+n > b.AllocationSize() {
		panic("filetree: SegmentedBuffer.Read out of range")
	}
	var done int64
	for done < n {
		idx, toff := b.segment(offset + done)
		tooth := b.teeth[idx]
		avail := int64(len(tooth)) - toff
		chunk := n - done
		if chunk > avail {
			chunk = avail
		}
		copy(dst[done:done+chunk], tooth[toff:toff+chunk])
		done += chunk
	}
}

// Write copies len(src) bytes from src into the buffer starting at offset,
// splitting the transfer at tooth boundaries. Preconditions:
// offset+len(src) <= AllocationSize().
func (b *SegmentedBuffer) Write(offset int64, src []byte) {
	n := int64(len(src))
	if n == 0 {
		return
	}
	if offset < 0 || offset+n > b.AllocationSize() {
		panic("filetree: SegmentedBuffer.Write out of range")
	}
	var done int64
	for done < n {
		idx, toff := b.segment(offset + done)
		tooth := b.teeth[idx]
		avail := int64(len(tooth)) - toff
		chunk := n - done
		if chunk > avail {
			chunk = avail
		}
		copy(tooth[toff:toff+chunk], src[done:done+chunk])
		done += chunk
	}
}

// toothCount reports how many teeth currently back the buffer; used by
// tests asserting the single-tooth/multi-tooth representation switch.
func (b *SegmentedBuffer) toothCount() int { return len(b.teeth) }
