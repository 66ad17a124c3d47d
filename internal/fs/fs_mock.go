package fs

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// MockFS is an in-memory FS for tests: entries keyed by absolute path,
// exactly the style esbuild's fs_mock.go uses so resolver/loader tests can
// build a directory tree out of literal strings instead of writing real
// files to disk.
type MockFS struct {
	files map[string]string
}

func NewMockFS(files map[string]string) *MockFS {
	return &MockFS{files: files}
}

func (m *MockFS) ReadFile(filePath string) (string, error) {
	if contents, ok := m.files[filePath]; ok {
		return contents, nil
	}
	return "", fmt.Errorf("file not found: %s", filePath)
}

func (m *MockFS) ReadDir(dirPath string) (map[string]EntryKind, error) {
	dirPath = strings.TrimSuffix(dirPath, "/")
	result := make(map[string]EntryKind)
	found := false
	for filePath := range m.files {
		if !strings.HasPrefix(filePath, dirPath+"/") {
			continue
		}
		found = true
		rest := strings.TrimPrefix(filePath, dirPath+"/")
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			result[rest[:i]] = DirEntry
		} else {
			result[rest] = FileEntry
		}
	}
	if !found {
		return nil, fmt.Errorf("directory not found: %s", dirPath)
	}
	return result, nil
}

func (m *MockFS) Kind(p string) EntryKind {
	if _, ok := m.files[p]; ok {
		return FileEntry
	}
	return DirEntry
}

// Dirname is a small path helper MockFS-based tests lean on since there's no
// real filesystem to call filepath.Dir against with the right separator.
func Dirname(p string) string {
	return path.Dir(p)
}

// SortedKeys is a test helper for asserting deterministic directory listings.
func SortedKeys(entries map[string]EntryKind) []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
