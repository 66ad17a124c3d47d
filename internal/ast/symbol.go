package ast

// Ref is a module-local pointer to a Symbol: "SourceIndex" says which
// module's symbol table to look in and "InnerIndex" is the slot within it.
// A Ref never points across modules by itself - cross-module binding always
// goes through an ExportRecord lookup keyed by (module id, export name), per
// the Variable invariant in spec.md §3 ("a Variable is owned by exactly one
// Scope"; cross-module edges are resolved via the graph, not via pointers).
type Ref struct {
	SourceIndex uint32
	InnerIndex  uint32
}

var InvalidRef = Ref{SourceIndex: 0x7FFFFFFF, InnerIndex: 0x7FFFFFFF}

func (r Ref) IsValid() bool {
	return r != InvalidRef
}

// NamespaceImportName is the sentinel ImportedName a SymbolImport carries
// for "import * as ns" - there is no single exported name to chase through
// ResolveExport, so the linker treats it as "the whole module", not as a
// lookup failure.
const NamespaceImportName = "*"

type SymbolKind uint8

const (
	// Declared by "var" or a hoisted function; hoists to the nearest
	// function/module scope and may be redeclared.
	SymbolHoisted SymbolKind = iota

	// Declared by "let", "const" or "class"; stays in its block, subject to
	// the temporal dead zone until its declaration executes.
	SymbolBlockScoped

	// A named, default or namespace import binding. Carries an unresolved
	// (later resolved) link to an ExportRecord in another module.
	SymbolImport

	// A function parameter, or a destructured sub-binding of one.
	SymbolParameter

	// Referenced but never declared anywhere reachable - e.g. a global like
	// "console". Never renamed, never tree-shaken.
	SymbolUnbound
)

func (kind SymbolKind) IsHoisted() bool {
	return kind == SymbolHoisted
}

// Symbol is one declared binding - spec.md's Variable. It's module-owned:
// the owning module never changes once assigned, and a Symbol is referenced
// from elsewhere only via its Ref, never via a pointer.
type Symbol struct {
	OriginalName string
	Kind         SymbolKind

	// Set true exactly once by the liveness engine; never reset
	// (spec.md §3: "once included flips true it stays true").
	IsIncluded bool

	// Populated only for SymbolImport: identifies which module and which
	// exported name this import binding resolves to. Left zero-valued until
	// the Module Graph Builder links it.
	ImportSourceIndex Index32
	ImportedName      string

	// UseCountEstimate lets unreferenced TypeScript-only-looking imports and
	// otherwise-dead declarations be distinguished from genuinely used ones.
	UseCountEstimate uint32

	// Link chains merged symbols together (e.g. "export {x as y}" at the
	// same binding). Followed via FollowSymbols; the final link is itself.
	Link Ref
}

type SymbolMap struct {
	// Parallel to ModuleGraph's module list: SymbolsForSource[i] holds every
	// symbol declared in module i.
	SymbolsForSource [][]Symbol
}

func NewSymbolMap(sourceCount int) SymbolMap {
	return SymbolMap{SymbolsForSource: make([][]Symbol, sourceCount)}
}

func (sm SymbolMap) Get(ref Ref) *Symbol {
	return &sm.SymbolsForSource[ref.SourceIndex][ref.InnerIndex]
}

// FollowSymbols resolves a chain of merged symbols down to its final link.
func FollowSymbols(symbols SymbolMap, ref Ref) Ref {
	symbol := symbols.Get(ref)
	if symbol.Link == InvalidRef || symbol.Link == ref {
		return ref
	}
	link := FollowSymbols(symbols, symbol.Link)
	if link != symbol.Link {
		symbol.Link = link // path compression
	}
	return link
}

// MergeSymbols collapses "new" into "old": every future reference to "new"
// is redirected to "old". Used when a re-export and its underlying local
// declaration should be treated as a single binding for renaming purposes.
func MergeSymbols(symbols SymbolMap, old Ref, new Ref) {
	if old == new {
		return
	}
	newSymbol := symbols.Get(new)
	newSymbol.Link = old
	oldSymbol := symbols.Get(old)
	oldSymbol.UseCountEstimate += newSymbol.UseCountEstimate
}
