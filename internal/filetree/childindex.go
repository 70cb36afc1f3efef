package filetree

import "container/heap"

// Child is a single (name, node_index) entry inside a directory's
// ChildIndex.
type Child struct {
	Name      string
	NodeIndex uint64
}

// tooth is one fixed-capacity, internally-sorted leaf of the comb. Teeth
// are not sorted relative to one another.
type tooth struct {
	children []Child
}

func (t *tooth) full() bool { return len(t.children) >= ToothSize }

// ChildIndex is the per-directory ordered set of children described in
// §4.2: a segmented ("comb") array of Child, append-on-add to the tail
// tooth, k-way merge for ordered enumeration.
type ChildIndex struct {
	cmp   Comparator
	teeth []*tooth
}

// NewChildIndex returns an empty ChildIndex using cmp for all ordering and
// equality decisions.
func NewChildIndex(cmp Comparator) *ChildIndex {
	return &ChildIndex{cmp: cmp}
}

// Len returns the total number of children across all teeth.
func (ci *ChildIndex) Len() int {
	n := 0
	for _, t := range ci.teeth {
		n += len(t.children)
	}
	return n
}

// search locates name, returning its tooth and in-tooth index. Each tooth
// is independently sorted, so lookup is a binary search per tooth.
func (ci *ChildIndex) search(name string) (ti, idx int, ok bool) {
	for i, t := range ci.teeth {
		lo, hi := 0, len(t.children)
		for lo < hi {
			mid := (lo + hi) / 2
			switch c := ci.cmp.Compare(t.children[mid].Name, name); {
			case c == 0:
				return i, mid, true
			case c < 0:
				lo = mid + 1
			default:
				hi = mid
			}
		}
	}
	return 0, 0, false
}

// Find returns the child stored under name (with its canonical stored
// spelling) and whether it exists.
func (ci *ChildIndex) Find(name string) (Child, bool) {
	ti, idx, ok := ci.search(name)
	if !ok {
		return Child{}, false
	}
	return ci.teeth[ti].children[idx], true
}

// siftWithinTooth restores sort order around idx after a single element
// at that position has been changed or replaced; every other element in
// the tooth is already in order, so at most one of the two directions
// below actually moves anything.
func (ci *ChildIndex) siftWithinTooth(ti, idx int) {
	t := ci.teeth[ti]
	c := t.children[idx]
	for idx > 0 && ci.cmp.Less(c.Name, t.children[idx-1].Name) {
		t.children[idx] = t.children[idx-1]
		idx--
	}
	t.children[idx] = c
	for idx < len(t.children)-1 && ci.cmp.Less(t.children[idx+1].Name, c.Name) {
		t.children[idx], t.children[idx+1] = t.children[idx+1], t.children[idx]
		idx++
	}
}

// Add inserts child into the tail tooth (growing by one tooth if full)
// and sifts it into sorted position within that tooth. Returns false
// without modifying the index if a child with that name already exists.
func (ci *ChildIndex) Add(child Child) bool {
	if _, ok := ci.Find(child.Name); ok {
		return false
	}
	if len(ci.teeth) == 0 || ci.teeth[len(ci.teeth)-1].full() {
		ci.teeth = append(ci.teeth, &tooth{})
	}
	t := ci.teeth[len(ci.teeth)-1]
	t.children = append(t.children, child)
	ci.siftWithinTooth(len(ci.teeth)-1, len(t.children)-1)
	return true
}

// Remove deletes the child named name, if present. The vacated slot is
// filled with the last child in storage order (swap-remove), which is
// then re-sifted within its new tooth; an emptied tail tooth is dropped.
func (ci *ChildIndex) Remove(name string) bool {
	ti, idx, ok := ci.search(name)
	if !ok {
		return false
	}
	lastTi := len(ci.teeth) - 1
	lastTooth := ci.teeth[lastTi]
	lastIdx := len(lastTooth.children) - 1
	last := lastTooth.children[lastIdx]
	lastTooth.children = lastTooth.children[:lastIdx]

	if !(ti == lastTi && idx == lastIdx) {
		ci.teeth[ti].children[idx] = last
		ci.siftWithinTooth(ti, idx)
	}
	for len(ci.teeth) > 0 && len(ci.teeth[len(ci.teeth)-1].children) == 0 {
		ci.teeth = ci.teeth[:len(ci.teeth)-1]
	}
	return true
}

// Rename changes the stored name of the child currently named oldName to
// newName and re-sifts it within its tooth (§4.2's reorder). Returns false
// if oldName does not exist.
func (ci *ChildIndex) Rename(oldName, newName string) bool {
	ti, idx, ok := ci.search(oldName)
	if !ok {
		return false
	}
	ci.teeth[ti].children[idx].Name = newName
	ci.siftWithinTooth(ti, idx)
	return true
}

// SetNodeIndex repoints the child named name at nodeIndex without
// touching its stored name or sort position, used when a rename-with-
// replace swaps the destination entry onto the source's node (§4.4).
func (ci *ChildIndex) SetNodeIndex(name string, nodeIndex uint64) bool {
	ti, idx, ok := ci.search(name)
	if !ok {
		return false
	}
	ci.teeth[ti].children[idx].NodeIndex = nodeIndex
	return true
}

// Snapshot returns every child in storage (unordered) order.
func (ci *ChildIndex) Snapshot() []Child {
	out := make([]Child, 0, ci.Len())
	for _, t := range ci.teeth {
		out = append(out, t.children...)
	}
	return out
}

// mergeHeap is a container/heap.Interface over one cursor per tooth, used
// to k-way merge the independently-sorted teeth into one ordered stream.
// An exhausted tooth (cursor past its length) sorts as greater than any
// name, so it sinks to the bottom rather than being removed.
type mergeHeap struct {
	ci      *ChildIndex
	entries []heapEntry
}

type heapEntry struct {
	toothIdx int
	cursor   int
}

func (h *mergeHeap) current(e heapEntry) (Child, bool) {
	t := h.ci.teeth[e.toothIdx]
	if e.cursor >= len(t.children) {
		return Child{}, false
	}
	return t.children[e.cursor], true
}

func (h *mergeHeap) Len() int { return len(h.entries) }

func (h *mergeHeap) Less(i, j int) bool {
	ci, oki := h.current(h.entries[i])
	cj, okj := h.current(h.entries[j])
	switch {
	case !oki:
		return false
	case !okj:
		return true
	default:
		return h.ci.cmp.Less(ci.Name, cj.Name)
	}
}

func (h *mergeHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *mergeHeap) Push(x any) { h.entries = append(h.entries, x.(heapEntry)) }

func (h *mergeHeap) Pop() any {
	n := len(h.entries)
	e := h.entries[n-1]
	h.entries = h.entries[:n-1]
	return e
}

// ChildEnumerator yields children in sorted order, built from IterFrom.
type ChildEnumerator struct {
	h *mergeHeap
}

// firstGreaterIndex returns the index of the first child in t whose name
// compares strictly greater than marker, via binary search over the
// tooth's internally-sorted run.
func (ci *ChildIndex) firstGreaterIndex(t *tooth, marker string) int {
	lo, hi := 0, len(t.children)
	for lo < hi {
		mid := (lo + hi) / 2
		if ci.cmp.Compare(t.children[mid].Name, marker) > 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// IterFrom returns an enumerator over children in sorted order whose
// names compare strictly greater than marker. A nil marker starts each
// tooth at its first name.
func (ci *ChildIndex) IterFrom(marker *string) *ChildEnumerator {
	h := &mergeHeap{ci: ci, entries: make([]heapEntry, len(ci.teeth))}
	for i, t := range ci.teeth {
		cursor := 0
		if marker != nil {
			cursor = ci.firstGreaterIndex(t, *marker)
		}
		h.entries[i] = heapEntry{toothIdx: i, cursor: cursor}
	}
	heap.Init(h)
	return &ChildEnumerator{h: h}
}

// Next returns the next child in sorted order, or ok=false once every
// tooth is exhausted.
func (e *ChildEnumerator) Next() (Child, bool) {
	if e.h.Len() == 0 {
		return Child{}, false
	}
	top := e.h.entries[0]
	child, ok := e.h.current(top)
	if !ok {
		return Child{}, false
	}
	top.cursor++
	e.h.entries[0] = top
	heap.Fix(e.h, 0)
	return child, true
}
