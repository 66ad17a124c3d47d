package linker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/config"
	"github.com/module-linker/bundler/internal/graph"
	"github.com/module-linker/bundler/internal/jsast"
	"github.com/module-linker/bundler/internal/linker"
	"github.com/module-linker/bundler/internal/logger"
)

// twoChunkCycle builds a two-module, two-chunk graph where module 0's chunk
// imports a symbol from module 1's chunk and vice versa - a cross-chunk
// cycle per spec.md §8 scenario S5 - with the cross-chunk reference living
// in the kind of top-level statement the caller specifies.
func twoChunkCycle(t *testing.T, topLevelUse bool) (*graph.ModuleGraph, []*linker.Chunk, []linker.ChunkIO) {
	t.Helper()

	g := &graph.ModuleGraph{
		Modules: make([]graph.Module, 2),
		Symbols: ast.NewSymbolMap(2),
	}
	g.Symbols.SymbolsForSource[0] = []ast.Symbol{{OriginalName: "fromB", Link: ast.InvalidRef}}
	g.Symbols.SymbolsForSource[1] = []ast.Symbol{{OriginalName: "fromA", Link: ast.InvalidRef}}

	refFromB := ast.Ref{SourceIndex: 1, InnerIndex: 0} // declared in module 1, used by module 0
	refFromA := ast.Ref{SourceIndex: 0, InnerIndex: 0} // declared in module 0, used by module 1

	stmt := jsast.Stmt{Data: &jsast.SExpr{}}
	if !topLevelUse {
		stmt = jsast.Stmt{Data: &jsast.SFunction{}}
	}

	g.Modules[0].AST.Parts = []jsast.Part{{
		Stmt:       stmt,
		IsLive:     true,
		SymbolUses: map[ast.Ref]jsast.SymbolUse{refFromB: {}},
	}}
	g.Modules[1].AST.Parts = []jsast.Part{{
		Stmt:       stmt,
		IsLive:     true,
		SymbolUses: map[ast.Ref]jsast.SymbolUse{refFromA: {}},
	}}

	chunks := []*linker.Chunk{
		{IsEntryPoint: true, EntrySourceIndex: 0, Modules: []uint32{0}},
		{IsEntryPoint: true, EntrySourceIndex: 1, Modules: []uint32{1}},
	}

	ios := []linker.ChunkIO{
		{Imports: []linker.ChunkImport{{ChunkIndex: 1, Items: []linker.ChunkImportItem{{Ref: refFromB}}}}},
		{Imports: []linker.ChunkImport{{ChunkIndex: 0, Items: []linker.ChunkImportItem{{Ref: refFromA}}}}},
	}

	return g, chunks, ios
}

func TestDetectCyclesWarnsForESM(t *testing.T) {
	g, chunks, ios := twoChunkCycle(t, true)

	msgs := linker.DetectCycles(g, chunks, ios, config.FormatESModule)

	require.Len(t, msgs, 1)
	assert.Equal(t, logger.Warning, msgs[0].Kind)
}

func TestDetectCyclesErrorsForCJSWhenTopLevelStatementTouchesCycle(t *testing.T) {
	g, chunks, ios := twoChunkCycle(t, true)

	msgs := linker.DetectCycles(g, chunks, ios, config.FormatCommonJS)

	require.Len(t, msgs, 1)
	assert.Equal(t, logger.Error, msgs[0].Kind)
}

// TestDetectCyclesWarnsForCJSWhenOnlyDeferredFunctionsTouchCycle is spec.md
// §8 scenario S5: each side only calls the other's export from inside
// another function, so the reference is deferred past module-load time and
// CJS can tolerate the cycle - a warning, not an error.
func TestDetectCyclesWarnsForCJSWhenOnlyDeferredFunctionsTouchCycle(t *testing.T) {
	g, chunks, ios := twoChunkCycle(t, false)

	msgs := linker.DetectCycles(g, chunks, ios, config.FormatCommonJS)

	require.Len(t, msgs, 1)
	assert.Equal(t, logger.Warning, msgs[0].Kind)
}

func TestDetectCyclesNoneWithoutACycle(t *testing.T) {
	g := &graph.ModuleGraph{Modules: make([]graph.Module, 2), Symbols: ast.NewSymbolMap(2)}
	chunks := []*linker.Chunk{
		{IsEntryPoint: true, EntrySourceIndex: 0, Modules: []uint32{0}},
		{IsEntryPoint: true, EntrySourceIndex: 1, Modules: []uint32{1}},
	}
	ios := []linker.ChunkIO{{}, {}}

	msgs := linker.DetectCycles(g, chunks, ios, config.FormatCommonJS)
	assert.Empty(t, msgs)
}
