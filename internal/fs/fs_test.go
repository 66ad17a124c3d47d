package fs_test

import (
	"testing"

	"github.com/module-linker/bundler/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockFSReadFile(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{
		"/project/a.js": "export const x = 1",
	})
	contents, err := mock.ReadFile("/project/a.js")
	require.NoError(t, err)
	assert.Equal(t, "export const x = 1", contents)

	_, err = mock.ReadFile("/project/missing.js")
	assert.Error(t, err)
}

func TestMockFSReadDir(t *testing.T) {
	mock := fs.NewMockFS(map[string]string{
		"/project/a.js":          "",
		"/project/b.js":          "",
		"/project/lib/c.js":      "",
		"/project/node_modules/pkg/index.js": "",
	})
	entries, err := mock.ReadDir("/project")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "b.js", "lib", "node_modules"}, fs.SortedKeys(entries))
	assert.Equal(t, fs.FileEntry, entries["a.js"])
	assert.Equal(t, fs.DirEntry, entries["lib"])
}
