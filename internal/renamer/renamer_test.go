package renamer_test

import (
	"testing"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/renamer"
	"github.com/stretchr/testify/assert"
)

func TestNumberRenamerAvoidsCollisions(t *testing.T) {
	symbols := ast.NewSymbolMap(1)
	symbols.SymbolsForSource[0] = []ast.Symbol{
		{OriginalName: "x", Kind: ast.SymbolHoisted, Link: ast.InvalidRef},
		{OriginalName: "x", Kind: ast.SymbolHoisted, Link: ast.InvalidRef},
		{OriginalName: "x", Kind: ast.SymbolHoisted, Link: ast.InvalidRef},
	}

	r := renamer.NewNumberRenamer(symbols, renamer.ComputeReservedNames(nil, symbols))
	r.AddTopLevelSymbol(ast.Ref{SourceIndex: 0, InnerIndex: 0})
	r.AddTopLevelSymbol(ast.Ref{SourceIndex: 0, InnerIndex: 1})
	r.AddTopLevelSymbol(ast.Ref{SourceIndex: 0, InnerIndex: 2})

	assert.Equal(t, "x", r.NameForSymbol(ast.Ref{SourceIndex: 0, InnerIndex: 0}))
	assert.Equal(t, "x2", r.NameForSymbol(ast.Ref{SourceIndex: 0, InnerIndex: 1}))
	assert.Equal(t, "x3", r.NameForSymbol(ast.Ref{SourceIndex: 0, InnerIndex: 2}))
}

func TestNumberRenamerSkipsUnboundSymbols(t *testing.T) {
	symbols := ast.NewSymbolMap(1)
	symbols.SymbolsForSource[0] = []ast.Symbol{
		{OriginalName: "console", Kind: ast.SymbolUnbound, Link: ast.InvalidRef},
	}

	r := renamer.NewNumberRenamer(symbols, renamer.ComputeReservedNames(nil, symbols))
	r.AddTopLevelSymbol(ast.Ref{SourceIndex: 0, InnerIndex: 0})

	assert.Equal(t, "console", r.NameForSymbol(ast.Ref{SourceIndex: 0, InnerIndex: 0}))
}

func TestNoOpRenamerFollowsSymbolLinks(t *testing.T) {
	symbols := ast.NewSymbolMap(1)
	symbols.SymbolsForSource[0] = []ast.Symbol{
		{OriginalName: "a", Link: ast.InvalidRef},
		{OriginalName: "b", Link: ast.Ref{SourceIndex: 0, InnerIndex: 0}},
	}

	r := renamer.NewNoOpRenamer(symbols)
	assert.Equal(t, "a", r.NameForSymbol(ast.Ref{SourceIndex: 0, InnerIndex: 1}))
}

func TestExportRenamerRenamesDuplicates(t *testing.T) {
	var r renamer.ExportRenamer
	assert.Equal(t, "foo", r.NextRenamedName("foo"))
	assert.Equal(t, "foo2", r.NextRenamedName("foo"))
	assert.Equal(t, "foo3", r.NextRenamedName("foo"))
	assert.Equal(t, "bar", r.NextRenamedName("bar"))
}
