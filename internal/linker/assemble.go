package linker

import (
	"sort"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/graph"
	"github.com/module-linker/bundler/internal/jsast"
	"github.com/module-linker/bundler/internal/renamer"
)

// ChunkRenamers builds one collision-avoiding renamer per chunk: spec.md
// §4.G's "within each chunk, collect every live Variable from every
// contained module" and "the top-level of a chunk is one conceptual scope".
// A ref belonging to a module outside the chunk is reserved too, the same
// way, whenever a live part inside the chunk references it - that's what
// lets an imported binding get its own collision-free local name alongside
// the chunk's own declarations.
func ChunkRenamers(g *graph.ModuleGraph, chunks []*Chunk) []*renamer.NumberRenamer {
	moduleScopes := make([]*ast.Scope, len(g.Modules))
	for i := range g.Modules {
		moduleScopes[i] = g.Modules[i].AST.ModuleScope
	}
	reserved := renamer.ComputeReservedNames(moduleScopes, g.Symbols)

	renamers := make([]*renamer.NumberRenamer, len(chunks))
	for i, chunk := range chunks {
		rn := renamer.NewNumberRenamer(g.Symbols, copyReservedNames(reserved))
		seen := make(map[ast.Ref]bool)

		addTopLevel := func(ref ast.Ref) {
			ref = ast.FollowSymbols(g.Symbols, ref)
			if !seen[ref] {
				seen[ref] = true
				rn.AddTopLevelSymbol(ref)
			}
		}

		for _, sourceIndex := range chunk.Modules {
			module := &g.Modules[sourceIndex]
			for partIndex := range module.AST.Parts {
				part := &module.AST.Parts[partIndex]
				if !part.IsLive {
					continue
				}
				for _, declared := range part.DeclaredSymbols {
					addTopLevel(declared.Ref)
				}
				for ref := range part.SymbolUses {
					resolved := ast.FollowSymbols(g.Symbols, ref)
					if g.Symbols.Get(resolved).Kind != ast.SymbolUnbound {
						addTopLevel(resolved)
					}
				}
			}
		}

		scopes := make(map[uint32]*ast.Scope, len(chunk.Modules))
		for _, sourceIndex := range chunk.Modules {
			scopes[sourceIndex] = g.Modules[sourceIndex].AST.ModuleScope
		}
		rn.AssignNamesByScope(scopes)

		renamers[i] = rn
	}
	return renamers
}

func copyReservedNames(in map[string]uint32) map[string]uint32 {
	out := make(map[string]uint32, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ChunkIO is one chunk's cross-chunk wiring: what it needs to pull in from
// other chunks at runtime, and what of its own bindings other chunks pull
// in - spec.md §4.F's "cross-chunk edges become runtime imports emitted in
// the bundle's output module format", grounded on esbuild's
// computeCrossChunkDependencies.
type ChunkIO struct {
	Imports []ChunkImport
	Exports []ExportedRef
}

type ChunkImport struct {
	ChunkIndex int
	Items      []ChunkImportItem
}

type ChunkImportItem struct {
	ExportAlias string
	LocalName   string
	Ref         ast.Ref
}

type ExportedRef struct {
	Ref   ast.Ref
	Alias string
}

// ComputeCrossChunkIO finds, for every live part, every symbol use that
// crosses a chunk boundary, and turns each one into an import entry on the
// consuming chunk and an export entry on the declaring chunk. The alias two
// chunks agree on is the declaring chunk's own renamed name for that symbol
// - the only name guaranteed not to collide with anything else the
// declaring chunk emits.
func ComputeCrossChunkIO(g *graph.ModuleGraph, chunks []*Chunk, renamers []*renamer.NumberRenamer) []ChunkIO {
	chunkOf := make(map[uint32]int, len(g.Modules))
	for i, chunk := range chunks {
		for _, sourceIndex := range chunk.Modules {
			chunkOf[sourceIndex] = i
		}
	}

	ios := make([]ChunkIO, len(chunks))
	importSets := make([]map[int]map[ast.Ref]bool, len(chunks))
	exportSets := make([]map[ast.Ref]bool, len(chunks))
	for i := range chunks {
		importSets[i] = make(map[int]map[ast.Ref]bool)
		exportSets[i] = make(map[ast.Ref]bool)
	}

	note := func(consumerChunk int, ref ast.Ref) {
		ref = ast.FollowSymbols(g.Symbols, ref)
		declaringChunk, ok := chunkOf[ref.SourceIndex]
		if !ok || declaringChunk == consumerChunk {
			return
		}
		if importSets[consumerChunk][declaringChunk] == nil {
			importSets[consumerChunk][declaringChunk] = make(map[ast.Ref]bool)
		}
		importSets[consumerChunk][declaringChunk][ref] = true
		exportSets[declaringChunk][ref] = true
	}

	for chunkIndex, chunk := range chunks {
		for _, sourceIndex := range chunk.Modules {
			module := &g.Modules[sourceIndex]
			for partIndex := range module.AST.Parts {
				part := &module.AST.Parts[partIndex]
				if !part.IsLive {
					continue
				}
				for ref := range part.SymbolUses {
					note(chunkIndex, ref)
				}
				if s, ok := part.Stmt.Data.(*jsast.SImport); ok {
					if s.DefaultName != nil {
						note(chunkIndex, *s.DefaultName)
					}
					if s.StarName != nil {
						note(chunkIndex, *s.StarName)
					}
					for _, item := range s.Items {
						note(chunkIndex, item.Ref)
					}
				}
			}
		}
	}

	for i := range chunks {
		var exportRefs []ast.Ref
		for ref := range exportSets[i] {
			exportRefs = append(exportRefs, ref)
		}
		sort.Slice(exportRefs, func(a, b int) bool {
			if exportRefs[a].SourceIndex != exportRefs[b].SourceIndex {
				return exportRefs[a].SourceIndex < exportRefs[b].SourceIndex
			}
			return exportRefs[a].InnerIndex < exportRefs[b].InnerIndex
		})
		for _, ref := range exportRefs {
			ios[i].Exports = append(ios[i].Exports, ExportedRef{Ref: ref, Alias: renamers[i].NameForSymbol(ref)})
		}

		var fromChunks []int
		for from := range importSets[i] {
			fromChunks = append(fromChunks, from)
		}
		sort.Ints(fromChunks)
		for _, from := range fromChunks {
			var refs []ast.Ref
			for ref := range importSets[i][from] {
				refs = append(refs, ref)
			}
			sort.Slice(refs, func(a, b int) bool {
				if refs[a].SourceIndex != refs[b].SourceIndex {
					return refs[a].SourceIndex < refs[b].SourceIndex
				}
				return refs[a].InnerIndex < refs[b].InnerIndex
			})
			imp := ChunkImport{ChunkIndex: from}
			for _, ref := range refs {
				imp.Items = append(imp.Items, ChunkImportItem{
					ExportAlias: renamers[from].NameForSymbol(ref),
					LocalName:   renamers[i].NameForSymbol(ref),
					Ref:         ref,
				})
			}
			ios[i].Imports = append(ios[i].Imports, imp)
		}
	}

	return ios
}
