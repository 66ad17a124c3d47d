package config_test

import (
	"testing"

	"github.com/module-linker/bundler/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	opts, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, config.FormatESModule, opts.Format)
	assert.Equal(t, config.PlatformBrowser, opts.Platform)
	assert.True(t, opts.Bundle)
}

func TestIsExternalMatchesGlob(t *testing.T) {
	opts := &config.BuildOptions{External: []string{"react", "@scope/*"}}
	assert.True(t, opts.IsExternal("react"))
	assert.True(t, opts.IsExternal("@scope/widget"))
	assert.False(t, opts.IsExternal("lodash"))
}

func TestIsPureFunction(t *testing.T) {
	opts := &config.BuildOptions{PureFunctions: []string{"classNames"}}
	assert.True(t, opts.IsPureFunction("classNames"))
	assert.False(t, opts.IsPureFunction("fetch"))
}

func TestLoaderForPath(t *testing.T) {
	opts := &config.BuildOptions{LoaderByExtension: map[string]config.Loader{}}
	assert.Equal(t, config.LoaderJS, opts.LoaderForPath("a.js"))
	assert.Equal(t, config.LoaderJSON, opts.LoaderForPath("pkg.json"))
	assert.Equal(t, config.LoaderDefault, opts.LoaderForPath("a.svg"))
}
