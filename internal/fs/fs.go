// Package fs is the default I/O adapter the core falls back to when no
// plugin `load` hook claims a module id (spec.md §4.B step 1). It is
// grounded on esbuild's internal/fs abstraction, trimmed down from its
// Yarn-PnP-aware, watch-data-tracking original to the two operations the
// Resolver and Loader actually need: reading a file and listing a directory.
// Watch-mode change detection lives in internal/watch instead of here.
package fs

import "os"

type EntryKind uint8

const (
	DirEntry EntryKind = iota
	FileEntry
)

// FS is implemented by realFS (backed by the OS) and by MockFS (backed by an
// in-memory map, for tests). Callers never touch the os package directly so
// that resolver/loader tests don't need a real directory tree on disk.
type FS interface {
	ReadFile(path string) (contents string, err error)
	ReadDir(path string) (entries map[string]EntryKind, err error)
	Kind(path string) EntryKind
}

type realFS struct {
	ignore *ignoreMatcher
}

// RealFS returns the default OS-backed adapter. ignoreFile, if non-empty, is
// the path to a gitignore-syntax file (".bundlerignore") whose patterns are
// skipped by ReadDir - this is what the resolver's node_modules package scan
// and internal/watch's directory walk both use to avoid descending into
// vendored or generated trees.
func RealFS(ignoreFile string) FS {
	return &realFS{ignore: loadIgnoreMatcher(ignoreFile)}
}

func (fs *realFS) ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (fs *realFS) ReadDir(path string) (map[string]EntryKind, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	result := make(map[string]EntryKind, len(entries))
	for _, e := range entries {
		if fs.ignore != nil && fs.ignore.MatchesPath(path+"/"+e.Name()) {
			continue
		}
		if e.IsDir() {
			result[e.Name()] = DirEntry
		} else {
			result[e.Name()] = FileEntry
		}
	}
	return result, nil
}

func (fs *realFS) Kind(path string) EntryKind {
	info, err := os.Stat(path)
	if err != nil {
		return FileEntry
	}
	if info.IsDir() {
		return DirEntry
	}
	return FileEntry
}
