package linker

import (
	"fmt"
	"sort"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/config"
	"github.com/module-linker/bundler/internal/graph"
	"github.com/module-linker/bundler/internal/jsast"
	"github.com/module-linker/bundler/internal/logger"
)

// DetectCycles is spec.md §4.G's failure mode: "a circular chunk-import that
// cannot be legally expressed in the target format is reported as
// CIRCULAR_DEPENDENCY (warning) or UNRESOLVABLE_CYCLE (error for CJS
// output)". Grounded on esbuild's own commonjs-wrapper cycle handling
// (internal/linker/linker.go's convertStmtsForChunk lazy-wrapper path),
// restated at chunk granularity since this spec's Chunker already computes
// the cross-chunk import edges ComputeCrossChunkIO produces.
//
// Every chunk-level strongly connected component of size > 1 is a cycle.
// Per spec.md §8 scenario S5, a CJS cycle only escalates to an error when
// some live top-level statement (not a deferred function/class declaration)
// in one chunk reads a binding declared in another chunk of the same cycle -
// that's the case CommonJS's synchronous, eager require() can't satisfy,
// since the producing module hasn't finished executing yet. A cycle whose
// only cross-chunk references happen inside function bodies is fine in CJS
// too: by the time those functions run, both modules have finished loading.
func DetectCycles(g *graph.ModuleGraph, chunks []*Chunk, ios []ChunkIO, format config.Format) []logger.Msg {
	sccs := chunkSCCs(ios, len(chunks))

	var msgs []logger.Msg
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		inCycle := make(map[int]bool, len(scc))
		for _, c := range scc {
			inCycle[c] = true
		}

		names := chunkNames(g, chunks, scc)

		if format == config.FormatCommonJS && cycleTouchesTopLevelExpression(g, chunks, inCycle) {
			msgs = append(msgs, logger.Msg{
				Kind: logger.Error,
				Data: logger.MsgData{
					Text: fmt.Sprintf("unresolvable circular import between chunks %s for the \"cjs\" output format: a top-level statement reads a binding from another chunk in the cycle before that chunk has finished executing", names),
				},
			})
			continue
		}

		msgs = append(msgs, logger.Msg{
			Kind: logger.Warning,
			Data: logger.MsgData{
				Text: fmt.Sprintf("circular import between chunks %s", names),
			},
		})
	}
	return msgs
}

func chunkNames(g *graph.ModuleGraph, chunks []*Chunk, scc []int) string {
	sorted := append([]int(nil), scc...)
	sort.Ints(sorted)
	out := "["
	for i, c := range sorted {
		if i > 0 {
			out += ", "
		}
		chunk := chunks[c]
		if chunk.IsEntryPoint {
			out += g.Modules[chunk.EntrySourceIndex].Source.PrettyPath
		} else {
			out += fmt.Sprintf("chunk-%d", c)
		}
	}
	return out + "]"
}

// cycleTouchesTopLevelExpression reports whether any live Part outside a
// deferred function/class declaration, in any module belonging to a chunk
// in the cycle, uses a symbol declared in a module belonging to a different
// chunk that is also in the cycle.
func cycleTouchesTopLevelExpression(g *graph.ModuleGraph, chunks []*Chunk, inCycle map[int]bool) bool {
	chunkOf := make(map[uint32]int, len(g.Modules))
	for i, chunk := range chunks {
		for _, sourceIndex := range chunk.Modules {
			chunkOf[sourceIndex] = i
		}
	}

	for chunkIndex := range inCycle {
		for _, sourceIndex := range chunks[chunkIndex].Modules {
			module := &g.Modules[sourceIndex]
			for partIndex := range module.AST.Parts {
				part := &module.AST.Parts[partIndex]
				if !part.IsLive || isDeferredDeclaration(part.Stmt) {
					continue
				}
				for ref := range part.SymbolUses {
					resolved := ast.FollowSymbols(g.Symbols, ref)
					declChunk, ok := chunkOf[resolved.SourceIndex]
					if ok && declChunk != chunkIndex && inCycle[declChunk] {
						return true
					}
				}
			}
		}
	}
	return false
}

// isDeferredDeclaration reports whether a statement's evaluation is deferred
// until call time rather than running eagerly at module load - spec.md
// §4.C(b)'s "function/class declaration" side-effect-free shape, the only
// kind of top-level statement a CommonJS cycle can safely reference before
// its producer chunk has finished running.
func isDeferredDeclaration(stmt jsast.Stmt) bool {
	switch s := stmt.Data.(type) {
	case *jsast.SFunction:
		return true
	case *jsast.SClass:
		return true
	case *jsast.SExportDefault:
		return s.Value.Function != nil || s.Value.Class != nil
	}
	return false
}

// chunkSCCs finds strongly connected components of the chunk-level import
// graph derived from ComputeCrossChunkIO's per-chunk ChunkImport list
// (consumer -> declaring chunk), via the same Tarjan algorithm orderModulesInChunk
// uses at module granularity.
func chunkSCCs(ios []ChunkIO, chunkCount int) [][]int {
	adj := make([][]int, chunkCount)
	for consumer, io := range ios {
		for _, imp := range io.Imports {
			adj[consumer] = append(adj[consumer], imp.ChunkIndex)
		}
	}

	var (
		counter   int
		index     = make(map[int]int)
		lowlink   = make(map[int]int)
		onStack   = make(map[int]bool)
		stack     []int
		sccs      [][]int
	)

	var strongConnect func(v int)
	strongConnect = func(v int) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, seen := index[w]; !seen {
				strongConnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var scc []int
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := 0; v < chunkCount; v++ {
		if _, seen := index[v]; !seen {
			strongConnect(v)
		}
	}
	return sccs
}
