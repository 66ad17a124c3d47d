package resolver_test

import (
	"testing"

	"github.com/module-linker/bundler/internal/config"
	"github.com/module-linker/bundler/internal/fs"
	"github.com/module-linker/bundler/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRelativeImport(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{
		"/project/main.js": "import './a'",
		"/project/a.js":    "export const x = 1",
	})
	r := resolver.New(mock, &config.BuildOptions{}, nil)

	resolved, err := r.Resolve("./a", "/project/main.js")
	require.NoError(t, err)
	assert.Equal(t, "/project/a.js", resolved.ID)
	assert.False(t, resolved.IsExternal())
}

func TestResolveRelativeImportIndex(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{
		"/project/main.js":   "import './lib'",
		"/project/lib/index.js": "export const y = 1",
	})
	r := resolver.New(mock, &config.BuildOptions{}, nil)

	resolved, err := r.Resolve("./lib", "/project/main.js")
	require.NoError(t, err)
	assert.Equal(t, "/project/lib/index.js", resolved.ID)
}

func TestResolveBareSpecifierFromNodeModules(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{
		"/project/main.js":                                "import 'leftpad'",
		"/project/node_modules/leftpad/package.json":       `{"name":"leftpad","main":"index.js"}`,
		"/project/node_modules/leftpad/index.js":           "module.exports = () => {}",
	})
	r := resolver.New(mock, &config.BuildOptions{}, nil)

	resolved, err := r.Resolve("leftpad", "/project/main.js")
	require.NoError(t, err)
	assert.Equal(t, "/project/node_modules/leftpad/index.js", resolved.ID)
}

func TestResolveBareSpecifierSideEffectsFalse(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{
		"/project/main.js":                          "import 'pure-pkg'",
		"/project/node_modules/pure-pkg/package.json": `{"name":"pure-pkg","main":"index.js","sideEffects":false}`,
		"/project/node_modules/pure-pkg/index.js":     "export const z = 1",
	})
	r := resolver.New(mock, &config.BuildOptions{}, nil)

	resolved, err := r.Resolve("pure-pkg", "/project/main.js")
	require.NoError(t, err)
	require.NotNil(t, resolved.SideEffects)
}

func TestResolveUnresolvedImportFails(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{
		"/project/main.js": "import 'missing-pkg'",
	})
	r := resolver.New(mock, &config.BuildOptions{}, nil)

	_, err := r.Resolve("missing-pkg", "/project/main.js")
	require.Error(t, err)
	var unresolved *resolver.UnresolvedImportError
	assert.ErrorAs(t, err, &unresolved)
}

func TestResolveExternalAllowListDowngrade(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{
		"/project/main.js": "import 'react'",
	})
	r := resolver.New(mock, &config.BuildOptions{External: []string{"react"}}, nil)

	resolved, err := r.Resolve("react", "/project/main.js")
	require.NoError(t, err)
	assert.True(t, resolved.IsExternal())
}

func TestResolvePluginHookTakesPrecedence(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{"/project/main.js": ""})
	hook := func(specifier, importerID string) (string, bool, bool, error) {
		if specifier == "virtual:thing" {
			return "\x00virtual:thing", false, true, nil
		}
		return "", false, false, nil
	}
	r := resolver.New(mock, &config.BuildOptions{}, []resolver.Hook{hook})

	resolved, err := r.Resolve("virtual:thing", "/project/main.js")
	require.NoError(t, err)
	assert.Equal(t, "\x00virtual:thing", resolved.ID)
}
