package filetree

// ToothSize is the capacity of a single ChildIndex tooth. Release builds use
// 2^7; kept small here relative to production NTFS-scale directories so
// multi-tooth behavior (the interesting code path) shows up quickly in
// tests with a few hundred children instead of tens of thousands.
const ToothSize = 1 << 7

// ToothMax is the size of a full SegmentedBuffer tooth (1 MiB per §4.3).
const ToothMax = 1 << 20

// NodeOverhead is the fixed per-node byte charge against the volume budget,
// independent of any blob/content the node carries (§4, invariant 4).
const NodeOverhead = 128

// ChildOverhead is the fixed per-entry byte charge for a ChildIndex entry,
// in addition to 2 bytes per byte of the stored name's UTF-8 encoding
// (§4, invariant 4).
const ChildOverhead = 16

// DetachedParent is the sentinel parent_node_index recorded on a directory
// that has been unlinked while still holding open handles.
const DetachedParent = ^uint64(0)

// RootNodeIndex is the fixed index of the volume root; it is never freed.
const RootNodeIndex = 0
