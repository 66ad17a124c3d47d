package linker

import (
	"sort"

	"github.com/module-linker/bundler/internal/graph"
	"github.com/module-linker/bundler/internal/helpers"
)

// Chunk is spec.md §3's Chunk: a subset of included modules assigned to one
// output file, in the deterministic emission order the Renamer & Emitter
// (component G) will walk.
type Chunk struct {
	// EntryBits is the key every module in this chunk shares: the set of
	// entry points that can reach it. Two modules chunk together iff their
	// bits are equal (spec.md §4.F's "unique minimal partition").
	EntryBits helpers.BitSet

	// Set when this chunk corresponds 1:1 to a user entry point rather than
	// a shared-dependency chunk synthesized because two or more entries
	// reach the same modules (spec.md §8 scenario S2's "third chunk").
	IsEntryPoint bool
	EntrySourceIndex uint32 // valid only if IsEntryPoint

	// Modules, in final emission order: Tarjan SCCs in reverse-finish order,
	// each SCC internally ordered by first-visit index from the entry -
	// spec.md §4.F's ordering rule, satisfying the topological-order
	// invariant in spec.md §8 property 4 for every pair not in the same SCC.
	Modules []uint32
}

// ComputeEntryBits is spec.md §4.F's prerequisite: before modules can be
// grouped by "reachable from the same set of entries", every live module
// needs to know which entries reach it at all. Grounded on esbuild's
// markFileReachableForCodeSplitting, minus the CSS-stub branch.
func ComputeEntryBits(g *graph.ModuleGraph) {
	bitCount := uint(len(g.EntryPoints))
	for i := range g.Meta {
		g.Meta[i].EntryBits = helpers.NewBitSet(bitCount)
		g.Meta[i].DistanceFromEntryPoint = ^uint32(0)
	}
	for i, ep := range g.EntryPoints {
		markReachable(g, ep.SourceIndex, uint(i), 0)
	}
}

func markReachable(g *graph.ModuleGraph, sourceIndex uint32, entryBit uint, distance uint32) {
	meta := &g.Meta[sourceIndex]
	if !meta.IsLive {
		return
	}

	traverseAgain := false
	if distance < meta.DistanceFromEntryPoint {
		meta.DistanceFromEntryPoint = distance
		traverseAgain = true
	}
	distance++

	if meta.EntryBits.HasBit(entryBit) && !traverseAgain {
		return
	}
	meta.EntryBits.SetBit(entryBit)

	module := &g.Modules[sourceIndex]
	for _, dep := range module.Dependencies {
		if dep.IsValid() {
			markReachable(g, dep.GetIndex(), entryBit, distance)
		}
	}
	for _, part := range module.AST.Parts {
		for _, dependency := range part.Dependencies {
			if dependency.SourceIndex != sourceIndex {
				markReachable(g, dependency.SourceIndex, entryBit, distance)
			}
		}
	}
}

// ComputeChunks is the Chunker's (component F) contract: partition every
// live module into the unique minimal set of chunks such that no entry
// point transitively depends on a chunk it doesn't need, then fix each
// chunk's internal module order. Call after MarkLive and ComputeEntryBits.
func ComputeChunks(g *graph.ModuleGraph) []*Chunk {
	chunksByKey := make(map[string]*Chunk)
	var keysInFirstSeenOrder []string

	// Always create a chunk for every entry point, even one whose output
	// would otherwise be empty (spec.md §8 property 7) - esbuild does the
	// same so a user-specified entry always produces a named output file.
	for i, ep := range g.EntryPoints {
		bits := helpers.NewBitSet(uint(len(g.EntryPoints)))
		bits.SetBit(uint(i))
		key := bits.String()
		chunksByKey[key] = &Chunk{EntryBits: bits, IsEntryPoint: true, EntrySourceIndex: ep.SourceIndex}
		keysInFirstSeenOrder = append(keysInFirstSeenOrder, key)
	}

	for sourceIndex := range g.Modules {
		meta := &g.Meta[sourceIndex]
		if !meta.IsLive {
			continue
		}
		key := meta.EntryBits.String()
		chunk, ok := chunksByKey[key]
		if !ok {
			chunk = &Chunk{EntryBits: meta.EntryBits}
			chunksByKey[key] = chunk
			keysInFirstSeenOrder = append(keysInFirstSeenOrder, key)
		}
		chunk.Modules = append(chunk.Modules, uint32(sourceIndex))
	}

	// Sort by key for determinism (spec.md §8 property 5), not by discovery
	// order - two builds of the same input must produce the same chunk list
	// regardless of any goroutine-scheduling nondeterminism upstream.
	sortedKeys := make([]string, 0, len(chunksByKey))
	for key := range chunksByKey {
		sortedKeys = append(sortedKeys, key)
	}
	sort.Strings(sortedKeys)

	chunks := make([]*Chunk, 0, len(sortedKeys))
	for _, key := range sortedKeys {
		chunk := chunksByKey[key]
		chunk.Modules = orderModulesInChunk(g, chunk.Modules)
		chunks = append(chunks, chunk)
	}
	return chunks
}

// orderModulesInChunk is spec.md §4.F's ordering rule: Tarjan SCCs in
// reverse-finish order, each SCC ordered internally by first-visit index.
// The subgraph walked is restricted to modules that belong to this chunk -
// an edge to a module in a different chunk is a cross-chunk import, handled
// by the emitter, not by this ordering.
func orderModulesInChunk(g *graph.ModuleGraph, modules []uint32) []uint32 {
	inChunk := make(map[uint32]bool, len(modules))
	for _, m := range modules {
		inChunk[m] = true
	}

	t := &tarjan{
		g:         g,
		inChunk:   inChunk,
		index:     make(map[uint32]int),
		lowlink:   make(map[uint32]int),
		onStack:   make(map[uint32]bool),
		firstSeen: make(map[uint32]int),
	}

	// Visit in ascending source-index order so that ties (two otherwise
	// independent SCCs) come out in a deterministic sequence rather than one
	// driven by map iteration.
	sortedModules := append([]uint32(nil), modules...)
	sort.Slice(sortedModules, func(i, j int) bool { return sortedModules[i] < sortedModules[j] })

	for _, m := range sortedModules {
		if _, seen := t.index[m]; !seen {
			t.strongConnect(m)
		}
	}

	// Tarjan yields SCCs in reverse topological (i.e. reverse-finish) order
	// as they're popped, which is exactly what spec.md §4.F asks for.
	var out []uint32
	for _, scc := range t.sccs {
		sort.Slice(scc, func(i, j int) bool { return t.firstSeen[scc[i]] < t.firstSeen[scc[j]] })
		out = append(out, scc...)
	}
	return out
}

type tarjan struct {
	g       *graph.ModuleGraph
	inChunk map[uint32]bool

	counter   int
	index     map[uint32]int
	lowlink   map[uint32]int
	onStack   map[uint32]bool
	stack     []uint32
	sccs      [][]uint32
	firstSeen map[uint32]int
}

func (t *tarjan) strongConnect(v uint32) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.firstSeen[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.edgesOf(v) {
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []uint32
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}

func (t *tarjan) edgesOf(v uint32) []uint32 {
	var out []uint32
	seen := make(map[uint32]bool)
	add := func(idx uint32) {
		if t.inChunk[idx] && !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	module := &t.g.Modules[v]
	for _, dep := range module.Dependencies {
		if dep.IsValid() {
			add(dep.GetIndex())
		}
	}
	for _, part := range module.AST.Parts {
		for _, dependency := range part.Dependencies {
			if dependency.SourceIndex != v {
				add(dependency.SourceIndex)
			}
		}
	}
	return out
}
