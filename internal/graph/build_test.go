package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/graph"
	"github.com/module-linker/bundler/internal/jsast"
	"github.com/module-linker/bundler/internal/logger"
	"github.com/module-linker/bundler/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolve treats every specifier that isn't already an absolute id as a
// "./" relative import resolved by stripping the leading "./" - enough to
// exercise the builder's linking rules without a real resolver.Resolver.
func fakeResolve(files map[string]bool) graph.ResolveFunc {
	return func(specifier, importerID string) (resolver.ResolvedID, error) {
		id := strings.TrimPrefix(specifier, "./")
		if !files[id] {
			return resolver.ResolvedID{}, &resolver.UnresolvedImportError{Specifier: specifier, ImporterID: importerID}
		}
		return resolver.ResolvedID{ID: id}, nil
	}
}

func TestBuildLinksNamedImportToLocalExport(t *testing.T) {
	load := func(ctx context.Context, id string, sourceIndex uint32, symbols *[]ast.Symbol) (*graph.Module, []logger.Msg, error) {
		switch id {
		case "a.js":
			ref := ast.Ref{SourceIndex: sourceIndex, InnerIndex: uint32(len(*symbols))}
			*symbols = append(*symbols, ast.Symbol{OriginalName: "foo", Kind: ast.SymbolBlockScoped, Link: ast.InvalidRef})
			return &graph.Module{
				Source: logger.Source{Index: sourceIndex},
				AST: jsast.AST{
					NamedExports: map[string]jsast.ExportEntry{
						"foo": {Kind: jsast.ExportLocal, Ref: ref},
					},
				},
			}, nil, nil

		case "b.js":
			*symbols = append(*symbols, ast.Symbol{
				OriginalName:      "foo",
				Kind:              ast.SymbolImport,
				Link:              ast.InvalidRef,
				ImportSourceIndex: ast.MakeIndex32(0), // import record 0, resolved by the link pass
				ImportedName:      "foo",
			})
			return &graph.Module{
				Source: logger.Source{Index: sourceIndex},
				AST: jsast.AST{
					ImportRecords: []ast.ImportRecord{{Path: logger.Path{Text: "./a.js"}, Kind: ast.ImportStmt}},
				},
			}, nil, nil
		}
		t.Fatalf("unexpected load of %q", id)
		return nil, nil, nil
	}

	b := graph.NewBuilder(fakeResolve(map[string]bool{"a.js": true, "b.js": true}), load)
	g, msgs := b.Build(context.Background(), []string{"b.js"})

	assert.Empty(t, msgs)
	require.Len(t, g.Modules, 2)

	bIndex := g.EntryPoints[0].SourceIndex
	aIndex := uint32(1)
	if bIndex == 1 {
		aIndex = 0
	}

	bRef := ast.Ref{SourceIndex: bIndex, InnerIndex: 0}
	aRef := ast.Ref{SourceIndex: aIndex, InnerIndex: 0}

	assert.Equal(t, aRef, ast.FollowSymbols(g.Symbols, bRef))
}

func TestBuildReportsMissingExport(t *testing.T) {
	load := func(ctx context.Context, id string, sourceIndex uint32, symbols *[]ast.Symbol) (*graph.Module, []logger.Msg, error) {
		switch id {
		case "a.js":
			return &graph.Module{
				Source: logger.Source{Index: sourceIndex},
				AST:    jsast.AST{NamedExports: map[string]jsast.ExportEntry{}},
			}, nil, nil

		case "b.js":
			*symbols = append(*symbols, ast.Symbol{
				OriginalName:      "bar",
				Kind:              ast.SymbolImport,
				Link:              ast.InvalidRef,
				ImportSourceIndex: ast.MakeIndex32(0),
				ImportedName:      "bar",
			})
			return &graph.Module{
				Source: logger.Source{Index: sourceIndex},
				AST: jsast.AST{
					ImportRecords: []ast.ImportRecord{{Path: logger.Path{Text: "./a.js"}, Kind: ast.ImportStmt}},
				},
			}, nil, nil
		}
		t.Fatalf("unexpected load of %q", id)
		return nil, nil, nil
	}

	b := graph.NewBuilder(fakeResolve(map[string]bool{"a.js": true, "b.js": true}), load)
	_, msgs := b.Build(context.Background(), []string{"b.js"})

	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Data.Text, "bar")
}

func TestBuildTreatsCircularImportsAsResolved(t *testing.T) {
	load := func(ctx context.Context, id string, sourceIndex uint32, symbols *[]ast.Symbol) (*graph.Module, []logger.Msg, error) {
		other := "b.js"
		if id == "b.js" {
			other = "a.js"
		}
		ref := ast.Ref{SourceIndex: sourceIndex, InnerIndex: uint32(len(*symbols))}
		*symbols = append(*symbols, ast.Symbol{OriginalName: id, Kind: ast.SymbolBlockScoped, Link: ast.InvalidRef})
		return &graph.Module{
			Source: logger.Source{Index: sourceIndex},
			AST: jsast.AST{
				NamedExports: map[string]jsast.ExportEntry{
					id: {Kind: jsast.ExportLocal, Ref: ref},
				},
				ImportRecords: []ast.ImportRecord{{Path: logger.Path{Text: "./" + other}, Kind: ast.ImportStmt}},
			},
		}, nil, nil
	}

	b := graph.NewBuilder(fakeResolve(map[string]bool{"a.js": true, "b.js": true}), load)
	g, msgs := b.Build(context.Background(), []string{"a.js"})

	assert.Empty(t, msgs)
	assert.Len(t, g.Modules, 2)
}
