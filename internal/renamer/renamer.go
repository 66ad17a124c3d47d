// Package renamer implements the collision-avoiding half of the Renamer &
// Emitter (component G): once the chunker has decided which modules share an
// output file, every top-level binding in that file needs a name that is
// unique within it, because two different modules are free to declare the
// same identifier. This is grounded on the teacher's internal/renamer, with
// the minification-oriented slot/frequency renamer dropped since this scope
// has no minified-output mode - only deduplication.
package renamer

import (
	"sort"
	"strconv"
	"sync"

	"github.com/module-linker/bundler/internal/ast"
)

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "export": true, "extends": true, "false": true, "finally": true,
	"for": true, "function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "new": true, "null": true, "return": true, "super": true,
	"switch": true, "this": true, "throw": true, "true": true, "try": true,
	"typeof": true, "var": true, "void": true, "while": true, "with": true,
	"let": true, "static": true, "yield": true, "await": true, "enum": true,
	"implements": true, "package": true, "protected": true, "interface": true,
	"private": true, "public": true,
}

// ComputeReservedNames collects every name that a rename must never produce:
// JS keywords, and every symbol that is referenced but never declared
// anywhere in the graph (spec.md's globals like "console" or "require") -
// those can't be renamed since other code refers to them by their literal
// source name.
func ComputeReservedNames(moduleScopes []*ast.Scope, symbols ast.SymbolMap) map[string]uint32 {
	names := make(map[string]uint32)
	for k := range reservedWords {
		names[k] = 1
	}
	for _, scope := range moduleScopes {
		computeReservedNamesForScope(scope, symbols, names)
	}
	return names
}

func computeReservedNamesForScope(scope *ast.Scope, symbols ast.SymbolMap, names map[string]uint32) {
	for _, ref := range scope.Members {
		if symbols.Get(ref).Kind == ast.SymbolUnbound {
			names[symbols.Get(ref).OriginalName] = 1
		}
	}
	for _, ref := range scope.Generated {
		if symbols.Get(ref).Kind == ast.SymbolUnbound {
			names[symbols.Get(ref).OriginalName] = 1
		}
	}

	// A direct "eval" can reach any name in its scope by its original source
	// name, so keep descending through scopes that might contain one.
	if scope.ContainsDirectEval {
		for _, child := range scope.Children {
			if child.ContainsDirectEval {
				computeReservedNamesForScope(child, symbols, names)
			}
		}
	}
}

// Renamer maps a symbol reference to the name it should be emitted under.
type Renamer interface {
	NameForSymbol(ref ast.Ref) string
}

////////////////////////////////////////////////////////////////////////////////
// noOpRenamer

type noOpRenamer struct {
	symbols ast.SymbolMap
}

// NewNoOpRenamer is used outside bundling mode, where every module becomes
// its own chunk and there's nothing for any other module to collide with.
func NewNoOpRenamer(symbols ast.SymbolMap) Renamer {
	return &noOpRenamer{symbols: symbols}
}

func (r *noOpRenamer) NameForSymbol(ref ast.Ref) string {
	ref = ast.FollowSymbols(r.symbols, ref)
	return r.symbols.Get(ref).OriginalName
}

////////////////////////////////////////////////////////////////////////////////
// NumberRenamer

// NumberRenamer is spec.md §4.G's collision rule: the first symbol named "x"
// keeps its name, the second one visible in the same chunk becomes "x2", the
// third "x3", and so on. Names are assigned outside-in over the scope tree so
// that an outer collision is visible before an inner name is chosen.
type NumberRenamer struct {
	symbols ast.SymbolMap
	root    numberScope
	names   [][]string
}

func NewNumberRenamer(symbols ast.SymbolMap, reservedNames map[string]uint32) *NumberRenamer {
	return &NumberRenamer{
		symbols: symbols,
		names:   make([][]string, len(symbols.SymbolsForSource)),
		root:    numberScope{nameCounts: reservedNames},
	}
}

func (r *NumberRenamer) NameForSymbol(ref ast.Ref) string {
	ref = ast.FollowSymbols(r.symbols, ref)
	if inner := r.names[ref.SourceIndex]; inner != nil {
		if name := inner[ref.InnerIndex]; name != "" {
			return name
		}
	}
	return r.symbols.Get(ref).OriginalName
}

// AddTopLevelSymbol reserves a name for a symbol visible at chunk top level
// (module-scope declarations, and the synthesized namespace/require symbols
// the linker adds for CommonJS interop).
func (r *NumberRenamer) AddTopLevelSymbol(ref ast.Ref) {
	r.assignName(&r.root, ref)
}

func (r *NumberRenamer) assignName(scope *numberScope, ref ast.Ref) {
	ref = ast.FollowSymbols(r.symbols, ref)

	inner := r.names[ref.SourceIndex]
	if inner != nil && inner[ref.InnerIndex] != "" {
		return
	}

	symbol := r.symbols.Get(ref)
	if symbol.Kind == ast.SymbolUnbound {
		return
	}

	name := scope.findUnusedName(symbol.OriginalName)

	if inner == nil {
		// Safe without a lock: AssignNamesByScope only touches nested scopes
		// from one source index per goroutine, and a Ref never crosses a
		// module boundary on its own (see ast.Ref's doc comment).
		inner = make([]string, len(r.symbols.SymbolsForSource[ref.SourceIndex]))
		r.names[ref.SourceIndex] = inner
	}
	inner[ref.InnerIndex] = name
}

func (r *NumberRenamer) assignNamesInScope(scope *ast.Scope, sourceIndex uint32, parent *numberScope, sorted *[]uint32) *numberScope {
	s := &numberScope{parent: parent, nameCounts: make(map[string]uint32)}

	if len(scope.Members) > 0 {
		*sorted = (*sorted)[:0]
		for _, ref := range scope.Members {
			*sorted = append(*sorted, ref.InnerIndex)
		}
		sort.Slice(*sorted, func(i, j int) bool { return (*sorted)[i] < (*sorted)[j] })

		for _, innerIndex := range *sorted {
			r.assignName(s, ast.Ref{SourceIndex: sourceIndex, InnerIndex: innerIndex})
		}
	}

	for _, ref := range scope.Generated {
		r.assignName(s, ref)
	}

	return s
}

func (r *NumberRenamer) assignNamesRecursive(scope *ast.Scope, sourceIndex uint32, parent *numberScope, sorted *[]uint32) {
	if len(scope.Members) > 0 || len(scope.Generated) > 0 {
		parent = r.assignNamesInScope(scope, sourceIndex, parent, sorted)
	}
	for _, child := range scope.Children {
		r.assignNamesRecursive(child, sourceIndex, parent, sorted)
	}
}

// AssignNamesByScope renames every nested (non-top-level) scope for each
// module in parallel - nested scopes never reference symbols from another
// module, so this is safe without further synchronization.
func (r *NumberRenamer) AssignNamesByScope(moduleScopes map[uint32]*ast.Scope) {
	var wg sync.WaitGroup
	wg.Add(len(moduleScopes))
	for sourceIndex, scope := range moduleScopes {
		go func(sourceIndex uint32, scope *ast.Scope) {
			defer wg.Done()
			var sorted []uint32
			for _, child := range scope.Children {
				r.assignNamesRecursive(child, sourceIndex, &r.root, &sorted)
			}
		}(sourceIndex, scope)
	}
	wg.Wait()
}

type numberScope struct {
	parent *numberScope

	// Counts collisions for a name so the next one can resume counting from
	// here instead of starting over at 1 - keeps repeated collisions O(n)
	// instead of O(n^2).
	nameCounts map[string]uint32
}

type nameUse uint8

const (
	nameUnused nameUse = iota
	nameUsed
	nameUsedInSameScope
)

func (s *numberScope) findNameUse(name string) nameUse {
	for scope := s; scope != nil; scope = scope.parent {
		if _, ok := scope.nameCounts[name]; ok {
			if scope == s {
				return nameUsedInSameScope
			}
			return nameUsed
		}
	}
	return nameUnused
}

func (s *numberScope) findUnusedName(name string) string {
	if use := s.findNameUse(name); use != nameUnused {
		tries := uint32(1)
		if use == nameUsedInSameScope {
			tries = s.nameCounts[name]
		}
		prefix := name

		for {
			tries++
			name = prefix + strconv.Itoa(int(tries))
			if s.findNameUse(name) == nameUnused {
				if use == nameUsedInSameScope {
					s.nameCounts[prefix] = tries
				}
				break
			}
		}
	}

	s.nameCounts[name] = 1
	return name
}

////////////////////////////////////////////////////////////////////////////////
// ExportRenamer

// ExportRenamer resolves collisions among the export names a chunk exposes,
// separately from the internal binding names NumberRenamer assigns.
type ExportRenamer struct {
	used map[string]uint32
}

func (r *ExportRenamer) NextRenamedName(name string) string {
	if r.used == nil {
		r.used = make(map[string]uint32)
	}
	if tries, ok := r.used[name]; ok {
		prefix := name
		for {
			tries++
			name = prefix + strconv.Itoa(int(tries))
			if _, ok := r.used[name]; !ok {
				break
			}
		}
		r.used[name] = tries
	} else {
		r.used[name] = 1
	}
	return name
}
