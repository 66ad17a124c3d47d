package graph

import (
	"sync"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/helpers"
)

type EntryPointKind uint8

const (
	EntryPointNone EntryPointKind = iota
	EntryPointUserSpecified
	EntryPointDynamicImport
)

// EntryPoint pairs a user-order index with the resolved module id it
// ultimately loaded to - spec.md's "list of entry ids in user order".
type EntryPoint struct {
	OutputPath string
	SourceIndex uint32
	Kind        EntryPointKind
}

// ModuleMeta is linker-phase-only bookkeeping about one Module, kept
// separate from Module itself because (a) it doesn't exist until after the
// whole graph is scanned and (b) several linking operations over the same
// scanned graph could in principle run concurrently with different
// metadata, per esbuild's own rationale for this split.
type ModuleMeta struct {
	// Minimum number of edges from any entry point to this module.
	DistanceFromEntryPoint uint32

	// Flipped true by the Liveness engine; monotonic.
	IsLive bool

	// Which entry points can reach this module - used by the Chunker
	// (component F) to group modules whose entry-reachability set is equal.
	EntryBits helpers.BitSet

	EntryPointKind EntryPointKind
}

func (m *ModuleMeta) IsEntryPoint() bool {
	return m.EntryPointKind != EntryPointNone
}

// ModuleGraph is spec.md §3's ModuleGraph: the set of all loaded modules
// keyed by a dense id, plus entry points in user order. It is the single
// writable structure during a build (§5): the scanner is its only writer,
// and it is never observed concurrently by two writers.
type ModuleGraph struct {
	Modules     []Module
	Meta        []ModuleMeta
	EntryPoints []EntryPoint

	// Symbols is the graph-owned table every Module's Scope & Binding
	// Analyzer output declares into - spec.md §3's "a Module exclusively
	// owns its Variables", modeled as one slice per source index inside a
	// single table the graph (not any one Module) is responsible for.
	Symbols ast.SymbolMap

	// id -> dense index, so a (specifier, importer) resolver cache result
	// can be turned into a graph slot in O(1).
	indexForID map[string]uint32
	idForIndex []string

	// mu is held by IndexForID and IDForIndex only. The Module Graph
	// Builder writes Modules, Meta and Symbols without it, from the single
	// goroutine that owns the graph; its load goroutines never touch these
	// fields.
	mu sync.Mutex
}

func NewModuleGraph() *ModuleGraph {
	return &ModuleGraph{indexForID: make(map[string]uint32)}
}

// IndexForID returns the dense slot for a resolved id, allocating a new one
// (with an empty placeholder Module) the first time it's seen. This is how
// the scanner can schedule a load for a dependency before that dependency
// has finished loading - the slot exists, the Module.AST doesn't yet.
func (g *ModuleGraph) IndexForID(id string) (index uint32, isNew bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if i, ok := g.indexForID[id]; ok {
		return i, false
	}
	index = uint32(len(g.Modules))
	g.indexForID[id] = index
	g.idForIndex = append(g.idForIndex, id)
	g.Modules = append(g.Modules, Module{})
	g.Meta = append(g.Meta, ModuleMeta{})
	g.Symbols.SymbolsForSource = append(g.Symbols.SymbolsForSource, nil)
	return index, true
}

func (g *ModuleGraph) IDForIndex(index uint32) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.idForIndex[index]
}
