package linker_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/graph"
	"github.com/module-linker/bundler/internal/helpers"
	"github.com/module-linker/bundler/internal/linker"
)

// bitSetCmp lets go-cmp compare helpers.BitSet by its observable bit
// pattern rather than panicking on its unexported field.
var bitSetCmp = cmp.Comparer(func(a, b helpers.BitSet) bool {
	return a.Equals(b)
})

func liveGraph(deps map[uint32][]uint32, entries []uint32) *graph.ModuleGraph {
	count := len(deps)
	g := &graph.ModuleGraph{
		Modules: make([]graph.Module, count),
		Meta:    make([]graph.ModuleMeta, count),
	}
	for i := uint32(0); i < uint32(count); i++ {
		g.Meta[i].IsLive = true
		for _, d := range deps[i] {
			g.Modules[i].Dependencies = append(g.Modules[i].Dependencies, ast.MakeIndex32(d))
		}
	}
	for _, e := range entries {
		g.EntryPoints = append(g.EntryPoints, graph.EntryPoint{SourceIndex: e, OutputPath: "entry"})
	}
	return g
}

// TestComputeChunksSharedDependencyGetsOwnChunk is spec.md §8 scenario S2:
// two entries importing a shared module produce three chunks, the shared
// module living in the one neither entry's bit set excludes the other from.
func TestComputeChunksSharedDependencyGetsOwnChunk(t *testing.T) {
	// 0: p.js (entry), 1: q.js (entry), 2: s.js (shared)
	g := liveGraph(map[uint32][]uint32{
		0: {2},
		1: {2},
		2: {},
	}, []uint32{0, 1})

	linker.ComputeEntryBits(g)
	chunks := linker.ComputeChunks(g)

	require.Len(t, chunks, 3)

	var sharedChunk *linker.Chunk
	entryChunks := 0
	for _, c := range chunks {
		if c.IsEntryPoint {
			entryChunks++
			continue
		}
		sharedChunk = c
	}
	require.Equal(t, 2, entryChunks)
	require.NotNil(t, sharedChunk)

	if diff := cmp.Diff([]uint32{2}, sharedChunk.Modules); diff != "" {
		t.Errorf("shared chunk modules mismatch (-want +got):\n%s", diff)
	}
}

// TestComputeChunksOrdersCycleByFirstVisit is spec.md §4.F's SCC ordering
// rule: a cycle a<->b is emitted as one SCC, ordered by first-visit index,
// and precedes nothing it doesn't depend on.
func TestComputeChunksOrdersCycleByFirstVisit(t *testing.T) {
	// 0: main (entry) -> 1: a <-> 2: b
	g := liveGraph(map[uint32][]uint32{
		0: {1},
		1: {2},
		2: {1},
	}, []uint32{0})

	linker.ComputeEntryBits(g)
	chunks := linker.ComputeChunks(g)
	require.Len(t, chunks, 1)

	// spec.md §8 property 4: a module depending on another, and not in the
	// same SCC, is preceded by the module it depends on. main (0) depends on
	// the a<->b cycle (1,2), so the cycle - ordered by first-visit index -
	// comes first and main comes last.
	want := []uint32{1, 2, 0}
	if diff := cmp.Diff(want, chunks[0].Modules); diff != "" {
		t.Errorf("cycle ordering mismatch (-want +got):\n%s", diff)
	}
}

// TestComputeEntryBitsMarksReachability exercises ComputeEntryBits directly
// with the go-cmp BitSet comparer, independent of the chunk partition it
// feeds.
func TestComputeEntryBitsMarksReachability(t *testing.T) {
	g := liveGraph(map[uint32][]uint32{
		0: {1},
		1: {},
	}, []uint32{0})

	linker.ComputeEntryBits(g)

	want := helpers.NewBitSet(1)
	want.SetBit(0)

	if diff := cmp.Diff(want, g.Meta[1].EntryBits, bitSetCmp); diff != "" {
		t.Errorf("entry bits mismatch (-want +got):\n%s", diff)
	}
}
