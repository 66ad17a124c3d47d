package loader_test

import (
	"context"
	"testing"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/config"
	"github.com/module-linker/bundler/internal/fs"
	"github.com/module-linker/bundler/internal/jsast"
	"github.com/module-linker/bundler/internal/loader"
	"github.com/module-linker/bundler/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopParse(source logger.Source, symbols *[]ast.Symbol) (jsast.AST, []logger.Msg) {
	return jsast.AST{ModuleScope: ast.NewScope(ast.ScopeModule, nil)}, nil
}

func TestLoadReadsFromDefaultFS(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{"/project/a.js": "export const x = 1"})
	l := loader.New(mock, &config.BuildOptions{}, nil, nil, noopParse)

	var symbols []ast.Symbol
	module, msgs, err := l.Load(context.Background(), "/project/a.js", 0, &symbols)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, "export const x = 1", module.Source.Contents)
}

func TestLoadHookTakesPrecedenceOverFS(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{"/project/a.js": "from disk"})
	hook := func(id string) (string, bool, error) {
		if id == "/project/a.js" {
			return "from plugin", true, nil
		}
		return "", false, nil
	}
	l := loader.New(mock, &config.BuildOptions{}, []loader.LoadHook{hook}, nil, noopParse)

	var symbols []ast.Symbol
	module, _, err := l.Load(context.Background(), "/project/a.js", 0, &symbols)
	require.NoError(t, err)
	assert.Equal(t, "from plugin", module.Source.Contents)
}

func TestLoadAppliesTransformHooks(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{"/project/a.js": "original"})
	transform := func(code, id string) (string, bool, error) {
		return code + "; transformed", true, nil
	}
	l := loader.New(mock, &config.BuildOptions{}, nil, []loader.TransformHook{transform}, noopParse)

	var symbols []ast.Symbol
	module, _, err := l.Load(context.Background(), "/project/a.js", 0, &symbols)
	require.NoError(t, err)
	assert.Equal(t, "original; transformed", module.Source.Contents)
}

func TestLoadMissingFileFails(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{})
	l := loader.New(mock, &config.BuildOptions{}, nil, nil, noopParse)

	var symbols []ast.Symbol
	_, _, err := l.Load(context.Background(), "/project/missing.js", 0, &symbols)
	require.Error(t, err)
	var notFound *loader.FileNotFoundError
	assert.ErrorAs(t, err, &notFound)
}
